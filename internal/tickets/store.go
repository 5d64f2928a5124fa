package tickets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"warerabot/internal/dispatch"
)

// Store persists tickets and small key/value bot state in a single SQLite
// file, like the original deployment. Safe to open on an existing file:
// the schema only creates what is missing
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS tickets (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    username TEXT NOT NULL,
    kind TEXT NOT NULL,
    state TEXT NOT NULL DEFAULT 'pending' CHECK (state IN ('pending', 'approved', 'denied')),
    reason TEXT NOT NULL DEFAULT '',
    resolved_by TEXT NOT NULL DEFAULT '',
    prompt_channel_id TEXT NOT NULL DEFAULT '',
    prompt_message_id TEXT NOT NULL DEFAULT '',
    side_effect_done INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    resolved_at TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_tickets_pending_user ON tickets(user_id) WHERE state = 'pending';

CREATE TABLE IF NOT EXISTS bot_state (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// Open opens the SQLite file at path and makes sure the schema exists.
// The parent directory is created if needed; SQLite itself will not
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("could not create database directory %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("could not open database %s: %w", path, err)
	}
	// A single writer keeps SQLite happy under concurrent handlers
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create schema in %s: %w", path, err)
	}
	log.Info().Msg(fmt.Sprintf("Database ready at %s", path))
	return &Store{db: db}, nil
}

func (store *Store) Close() error {
	return store.db.Close()
}

// Create inserts a new pending ticket. The partial unique index on pending
// tickets makes a second insert for the same user fail with ErrPendingExists,
// closing the window between a pending check and the insert
func (store *Store) Create(ctx context.Context, ticket Ticket) error {
	_, err := store.db.ExecContext(ctx,
		`INSERT INTO tickets (id, user_id, username, kind, state, prompt_channel_id, prompt_message_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ticket.ID, ticket.UserID, ticket.Username, string(ticket.Kind), string(ticket.State),
		ticket.Prompt.ChannelID, ticket.Prompt.MessageID, formatTime(ticket.CreatedAt))
	if err != nil {
		var sqliteErr *sqlite.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return ErrPendingExists
		}
		return fmt.Errorf("could not create ticket %s: %w", ticket.ID, err)
	}
	return nil
}

// Get returns the ticket with the given id
func (store *Store) Get(ctx context.Context, id string) (Ticket, error) {
	row := store.db.QueryRowContext(ctx, selectTicket+` WHERE id = ?`, id)
	ticket, err := scanTicket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Ticket{}, ErrNotFound
	}
	return ticket, err
}

// FindPending returns the pending ticket of a user, if there is one.
// There is at most one: the workflow reuses it instead of opening a second
func (store *Store) FindPending(ctx context.Context, userID string) (Ticket, bool, error) {
	row := store.db.QueryRowContext(ctx, selectTicket+` WHERE user_id = ? AND state = 'pending'`, userID)
	ticket, err := scanTicket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Ticket{}, false, nil
	}
	if err != nil {
		return Ticket{}, false, err
	}
	return ticket, true, nil
}

// Resolve moves a pending ticket to a terminal state. The guarded update is
// what makes the first decision win: a ticket that is no longer pending is
// not touched and the caller gets ErrAlreadyResolved
func (store *Store) Resolve(ctx context.Context, id string, state State, moderator string, reason string, at time.Time) error {
	result, err := store.db.ExecContext(ctx,
		`UPDATE tickets SET state = ?, resolved_by = ?, reason = ?, resolved_at = ?
		 WHERE id = ? AND state = 'pending'`,
		string(state), moderator, reason, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("could not resolve ticket %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, err := store.Get(ctx, id); errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return ErrAlreadyResolved
	}
	return nil
}

// ConfirmSideEffect records that the decision's side effects (role grant,
// prompt update) completed, taking the ticket out of the reconciliation set
func (store *Store) ConfirmSideEffect(ctx context.Context, id string) error {
	_, err := store.db.ExecContext(ctx, `UPDATE tickets SET side_effect_done = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("could not confirm side effect for ticket %s: %w", id, err)
	}
	return nil
}

// SetPrompt replaces the stored prompt reference, used when a stale prompt
// message had to be reposted
func (store *Store) SetPrompt(ctx context.Context, id string, ref dispatch.MessageRef) error {
	_, err := store.db.ExecContext(ctx,
		`UPDATE tickets SET prompt_channel_id = ?, prompt_message_id = ? WHERE id = ?`,
		ref.ChannelID, ref.MessageID, id)
	if err != nil {
		return fmt.Errorf("could not store prompt reference for ticket %s: %w", id, err)
	}
	return nil
}

// ListUnreconciled returns decided tickets whose side effects were never
// confirmed. An external reconciliation pass re-drives these after a crash
// between "decided" and "granted"
func (store *Store) ListUnreconciled(ctx context.Context) ([]Ticket, error) {
	rows, err := store.db.QueryContext(ctx, selectTicket+` WHERE state != 'pending' AND side_effect_done = 0 ORDER BY resolved_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}

// GetState reads a key from the bot state table
func (store *Store) GetState(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := store.db.QueryRowContext(ctx, `SELECT value FROM bot_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetState writes a key in the bot state table
func (store *Store) SetState(ctx context.Context, key string, value string) error {
	_, err := store.db.ExecContext(ctx,
		`INSERT INTO bot_state (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("could not store bot state %s: %w", key, err)
	}
	return nil
}

const selectTicket = `SELECT id, user_id, username, kind, state, reason, resolved_by,
	prompt_channel_id, prompt_message_id, side_effect_done, created_at, resolved_at FROM tickets`

type scanner interface {
	Scan(dest ...any) error
}

func scanTicket(row scanner) (Ticket, error) {
	var ticket Ticket
	var kind, state, createdAt, resolvedAt string
	var sideEffectDone int
	err := row.Scan(&ticket.ID, &ticket.UserID, &ticket.Username, &kind, &state,
		&ticket.Reason, &ticket.ResolvedBy, &ticket.Prompt.ChannelID, &ticket.Prompt.MessageID,
		&sideEffectDone, &createdAt, &resolvedAt)
	if err != nil {
		return Ticket{}, err
	}
	ticket.Kind = Kind(kind)
	ticket.State = State(state)
	ticket.SideEffectDone = sideEffectDone != 0
	if ticket.CreatedAt, err = parseTime(createdAt); err != nil {
		return Ticket{}, err
	}
	if resolvedAt != "" {
		if ticket.ResolvedAt, err = parseTime(resolvedAt); err != nil {
			return Ticket{}, err
		}
	}
	return ticket, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("could not parse stored timestamp %q: %w", s, err)
	}
	return t, nil
}
