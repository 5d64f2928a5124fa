package tickets

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"warerabot/internal/dispatch"
	"warerabot/internal/templates"
)

// ModQueueAlias is the logical destination for verification prompts
const ModQueueAlias = "mod-queue"

// RoleGranter is the role side effect of an approval, implemented by the
// platform boundary
type RoleGranter interface {
	GrantRole(guildID string, userID string, roleID string) error
}

// Workflow drives the verification ticket state machine.
//
// Every transition is persisted before its side effects run, so a crash
// between "decided" and "granted" leaves a decided ticket with
// SideEffectDone false, which is enough for a reconciler to retry.
// Actions on the same ticket are serialized with a per-ticket lock;
// the database guard makes the first decision win regardless
type Workflow struct {
	store      *Store
	templates  *templates.Store
	resolver   dispatch.Resolver
	dispatcher *dispatch.Dispatcher
	granter    RoleGranter
	guildID    string
	roles      map[Kind]string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewWorkflow wires the workflow. roles maps a ticket kind to the role
// granted on approval; kinds without an entry (embassy) grant nothing
func NewWorkflow(store *Store, tmpls *templates.Store, resolver dispatch.Resolver, dispatcher *dispatch.Dispatcher, granter RoleGranter, guildID string, roles map[Kind]string) *Workflow {
	copied := make(map[Kind]string, len(roles))
	for kind, role := range roles {
		copied[kind] = role
	}
	return &Workflow{
		store:      store,
		templates:  tmpls,
		resolver:   resolver,
		dispatcher: dispatcher,
		granter:    granter,
		guildID:    guildID,
		roles:      copied,
		locks:      map[string]*sync.Mutex{},
	}
}

// Open creates a pending ticket for the user and posts the moderation
// prompt. If the user already has a pending ticket it is returned instead
// of opening a second one; the boolean reports whether a ticket was created.
// A failed prompt dispatch does not leave a ticket behind
func (w *Workflow) Open(ctx context.Context, userID string, username string, kind Kind) (Ticket, bool, error) {
	if existing, ok, err := w.store.FindPending(ctx, userID); err != nil {
		return Ticket{}, false, err
	} else if ok {
		log.Debug().Msg(fmt.Sprintf("User %s already has pending ticket %s", userID, existing.ID))
		return existing, false, nil
	}

	ticket := Ticket{
		ID:        uuid.NewString(),
		UserID:    userID,
		Username:  username,
		Kind:      kind,
		State:     StatePending,
		CreatedAt: time.Now().UTC(),
	}

	msg, err := w.renderPrompt(ticket)
	if err != nil {
		return Ticket{}, false, err
	}
	channelID, err := w.resolver.Resolve(ModQueueAlias)
	if err != nil {
		return Ticket{}, false, err
	}

	ref, err := w.dispatcher.Post(channelID, msg)
	if err != nil {
		return Ticket{}, false, err
	}
	ticket.Prompt = ref

	if err := w.store.Create(ctx, ticket); err != nil {
		// The prompt is already visible; take it back down rather than
		// leaving a prompt without a ticket behind it
		if retractErr := w.dispatcher.Retract(ref); retractErr != nil {
			log.Warn().Msg(fmt.Sprintf("Could not retract orphan prompt %s: %v", ref, retractErr))
		}
		if errors.Is(err, ErrPendingExists) {
			// A concurrent request won the insert; serve its ticket
			if existing, ok, findErr := w.store.FindPending(ctx, userID); findErr == nil && ok {
				return existing, false, nil
			}
		}
		return Ticket{}, false, err
	}

	log.Info().Msg(fmt.Sprintf("Opened %s ticket %s for user %s", kind, ticket.ID, username))
	return ticket, true, nil
}

// Get returns a ticket by id
func (w *Workflow) Get(ctx context.Context, id string) (Ticket, error) {
	return w.store.Get(ctx, id)
}

// Approve moves a pending ticket to approved, grants the configured role
// and marks the prompt message resolved
func (w *Workflow) Approve(ctx context.Context, id string, moderator string, reason string) (Ticket, error) {
	return w.resolve(ctx, id, StateApproved, moderator, reason)
}

// Deny moves a pending ticket to denied and marks the prompt message
// resolved. No role is granted
func (w *Workflow) Deny(ctx context.Context, id string, moderator string, reason string) (Ticket, error) {
	return w.resolve(ctx, id, StateDenied, moderator, reason)
}

func (w *Workflow) resolve(ctx context.Context, id string, state State, moderator string, reason string) (Ticket, error) {
	lock := w.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	// Persist the decision first; everything after this point is a side
	// effect that the reconciler can retry
	if err := w.store.Resolve(ctx, id, state, moderator, reason, time.Now().UTC()); err != nil {
		if errors.Is(err, ErrAlreadyResolved) || errors.Is(err, ErrNotFound) {
			// Terminal either way, the lock has no future use
			w.dropLock(id)
		}
		return Ticket{}, err
	}
	ticket, err := w.store.Get(ctx, id)
	if err != nil {
		return Ticket{}, err
	}
	log.Info().Msg(fmt.Sprintf("Ticket %s resolved as %s by %s", id, state, moderator))

	confirmed := true
	if state == StateApproved {
		if roleID := w.roles[ticket.Kind]; roleID != "" {
			if err := w.granter.GrantRole(w.guildID, ticket.UserID, roleID); err != nil {
				log.Warn().Msg(fmt.Sprintf("Role grant for ticket %s failed, leaving it for reconciliation: %v", id, err))
				confirmed = false
			}
		}
	}

	if confirmed {
		if err := w.updatePrompt(ctx, &ticket); err != nil {
			log.Warn().Msg(fmt.Sprintf("Prompt update for ticket %s failed, leaving it for reconciliation: %v", id, err))
			confirmed = false
		}
	}

	if confirmed {
		if err := w.store.ConfirmSideEffect(ctx, ticket.ID); err != nil {
			return Ticket{}, err
		}
		ticket.SideEffectDone = true
	}
	// The ticket is terminal now; any late waiter on the old lock gets
	// ErrAlreadyResolved from the database guard
	w.dropLock(id)
	return ticket, nil
}

// updatePrompt edits the moderation prompt in place to show the outcome.
// If somebody deleted the prompt by hand, post a fresh resolved message and
// remember the new reference instead
func (w *Workflow) updatePrompt(ctx context.Context, ticket *Ticket) error {
	msg, err := w.renderResolved(*ticket)
	if err != nil {
		return err
	}

	err = w.dispatcher.Update(ticket.Prompt, msg)
	if errors.Is(err, dispatch.ErrStaleReference) {
		log.Debug().Msg(fmt.Sprintf("Prompt for ticket %s is gone, posting fresh", ticket.ID))
		channelID, resolveErr := w.resolver.Resolve(ModQueueAlias)
		if resolveErr != nil {
			return resolveErr
		}
		ref, postErr := w.dispatcher.Post(channelID, msg)
		if postErr != nil {
			return postErr
		}
		if setErr := w.store.SetPrompt(ctx, ticket.ID, ref); setErr != nil {
			return setErr
		}
		ticket.Prompt = ref
		return nil
	}
	return err
}

func (w *Workflow) renderPrompt(ticket Ticket) (dispatch.Message, error) {
	tmpl, err := w.templates.Get("ticket_" + string(ticket.Kind))
	if err != nil {
		return dispatch.Message{}, err
	}
	rendered, err := templates.Render(tmpl, w.renderContext(ticket))
	if err != nil {
		return dispatch.Message{}, err
	}
	return dispatch.Message{Content: rendered.Content, Embeds: rendered.Embeds}, nil
}

func (w *Workflow) renderResolved(ticket Ticket) (dispatch.Message, error) {
	tmpl, err := w.templates.Get("ticket_resolved")
	if err != nil {
		return dispatch.Message{}, err
	}
	ctx := w.renderContext(ticket)
	ctx["state"] = string(ticket.State)
	ctx["moderator"] = ticket.ResolvedBy
	rendered, err := templates.Render(tmpl, ctx)
	if err != nil {
		return dispatch.Message{}, err
	}
	return dispatch.Message{Content: rendered.Content, Embeds: rendered.Embeds}, nil
}

func (w *Workflow) renderContext(ticket Ticket) templates.Context {
	return templates.Context{
		"user":      fmt.Sprintf("<@%s>", ticket.UserID),
		"user_id":   ticket.UserID,
		"username":  ticket.Username,
		"kind":      string(ticket.Kind),
		"ticket_id": ticket.ID,
		"created":   ticket.CreatedAt.Format(time.RFC1123),
	}
}

func (w *Workflow) lockFor(id string) *sync.Mutex {
	w.mu.Lock()
	defer w.mu.Unlock()
	lock, ok := w.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		w.locks[id] = lock
	}
	return lock
}

// dropLock forgets the per-ticket lock of a resolved ticket, so the map does
// not grow with every ticket ever decided
func (w *Workflow) dropLock(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.locks, id)
}
