package tickets

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warerabot/internal/dispatch"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "tickets.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestTicket(userID string) Ticket {
	return Ticket{
		ID:        uuid.NewString(),
		UserID:    userID,
		Username:  "testuser",
		Kind:      KindCitizen,
		State:     StatePending,
		Prompt:    dispatch.MessageRef{ChannelID: "chan", MessageID: "msg"},
		CreatedAt: time.Now().UTC(),
	}
}

func TestStoreCreateAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	ticket := newTestTicket("user-1")
	require.NoError(t, store.Create(ctx, ticket))

	got, err := store.Get(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.UserID, got.UserID)
	assert.Equal(t, KindCitizen, got.Kind)
	assert.Equal(t, StatePending, got.State)
	assert.Equal(t, ticket.Prompt, got.Prompt)
	assert.False(t, got.SideEffectDone)
	assert.True(t, ticket.CreatedAt.Equal(got.CreatedAt))
}

func TestStoreCreateRejectsSecondPendingTicket(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newTestTicket("user-1")))

	err := store.Create(ctx, newTestTicket("user-1"))
	assert.ErrorIs(t, err, ErrPendingExists)

	// Once the first ticket is resolved, a fresh one may be opened
	first, found, err := store.FindPending(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, found)
	require.NoError(t, store.Resolve(ctx, first.ID, StateDenied, "mod", "", time.Now()))
	assert.NoError(t, store.Create(ctx, newTestTicket("user-1")))
}

func TestStoreCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "db", "tickets.db")

	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Create(context.Background(), newTestTicket("user-1")))
}

func TestStoreGetUnknownTicket(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Get(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreFindPending(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, found, err := store.FindPending(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, found)

	ticket := newTestTicket("user-1")
	require.NoError(t, store.Create(ctx, ticket))

	got, found, err := store.FindPending(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, ticket.ID, got.ID)

	// Resolved tickets no longer count as pending
	require.NoError(t, store.Resolve(ctx, ticket.ID, StateDenied, "mod", "", time.Now()))
	_, found, err = store.FindPending(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStoreResolveFirstDecisionWins(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	ticket := newTestTicket("user-1")
	require.NoError(t, store.Create(ctx, ticket))

	require.NoError(t, store.Resolve(ctx, ticket.ID, StateApproved, "mod-a", "looks fine", time.Now()))

	err := store.Resolve(ctx, ticket.ID, StateDenied, "mod-b", "", time.Now())
	assert.ErrorIs(t, err, ErrAlreadyResolved)

	got, err := store.Get(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, StateApproved, got.State)
	assert.Equal(t, "mod-a", got.ResolvedBy)
	assert.Equal(t, "looks fine", got.Reason)
	assert.False(t, got.ResolvedAt.IsZero())
}

func TestStoreResolveUnknownTicket(t *testing.T) {
	store := openTestStore(t)

	err := store.Resolve(context.Background(), "no-such-id", StateApproved, "mod", "", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreListUnreconciled(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	pending := newTestTicket("user-1")
	decided := newTestTicket("user-2")
	confirmed := newTestTicket("user-3")
	for _, ticket := range []Ticket{pending, decided, confirmed} {
		require.NoError(t, store.Create(ctx, ticket))
	}
	require.NoError(t, store.Resolve(ctx, decided.ID, StateApproved, "mod", "", time.Now()))
	require.NoError(t, store.Resolve(ctx, confirmed.ID, StateApproved, "mod", "", time.Now()))
	require.NoError(t, store.ConfirmSideEffect(ctx, confirmed.ID))

	unreconciled, err := store.ListUnreconciled(ctx)
	require.NoError(t, err)
	require.Len(t, unreconciled, 1)
	assert.Equal(t, decided.ID, unreconciled[0].ID)
}

func TestStoreSetPrompt(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	ticket := newTestTicket("user-1")
	require.NoError(t, store.Create(ctx, ticket))

	fresh := dispatch.MessageRef{ChannelID: "chan", MessageID: "reposted"}
	require.NoError(t, store.SetPrompt(ctx, ticket.ID, fresh))

	got, err := store.Get(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, fresh, got.Prompt)
}

func TestStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickets.db")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)
	ticket := newTestTicket("user-1")
	require.NoError(t, store.Create(ctx, ticket))
	require.NoError(t, store.SetState(ctx, "threat.last_period", "2026-01-01T00:00:00Z"))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, StatePending, got.State)

	value, found, err := reopened.GetState(ctx, "threat.last_period")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "2026-01-01T00:00:00Z", value)
}

func TestStoreStateRoundtrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, found, err := store.GetState(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.SetState(ctx, "production.top.steel", "NL"))
	require.NoError(t, store.SetState(ctx, "production.top.steel", "BE"))

	value, found, err := store.GetState(ctx, "production.top.steel")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "BE", value)
}
