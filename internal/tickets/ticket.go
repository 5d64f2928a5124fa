package tickets

import (
	"errors"
	"fmt"
	"time"

	"warerabot/internal/dispatch"
)

// State is the lifecycle state of a ticket. Transitions are monotonic:
// pending goes to approved or denied and nothing ever goes back
type State string

const (
	StatePending  State = "pending"
	StateApproved State = "approved"
	StateDenied   State = "denied"
)

// Kind is the type of verification a ticket asks for
type Kind string

const (
	KindCitizen   Kind = "citizen"
	KindForeigner Kind = "foreigner"
	KindEmbassy   Kind = "embassy"
)

// ParseKind validates user input into a ticket kind
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindCitizen, KindForeigner, KindEmbassy:
		return Kind(s), nil
	}
	return "", fmt.Errorf("%q is not a verification type (citizen, foreigner or embassy)", s)
}

// ErrAlreadyResolved means a moderator acted on a ticket that is already in
// a terminal state. It is reported back instead of silently ignored, so the
// moderator knows the earlier decision stands
var ErrAlreadyResolved = errors.New("ticket is already resolved")

// ErrNotFound means no ticket with the given id exists
var ErrNotFound = errors.New("ticket not found")

// ErrPendingExists means an insert hit the one-pending-ticket-per-user
// constraint. The workflow maps it onto the reuse path, so two racing
// requests end up sharing the ticket that won
var ErrPendingExists = errors.New("user already has a pending ticket")

// Ticket is one user's verification request.
// Prompt points at the moderation message created for it, so a resolution
// can edit that message in place. SideEffectDone records whether the role
// grant and prompt update after a decision were confirmed; a decided ticket
// with SideEffectDone false is what an external reconciler retries
type Ticket struct {
	ID             string
	UserID         string
	Username       string
	Kind           Kind
	State          State
	Reason         string
	ResolvedBy     string
	Prompt         dispatch.MessageRef
	CreatedAt      time.Time
	ResolvedAt     time.Time
	SideEffectDone bool
}

// Resolved reports whether the ticket is in a terminal state
func (t Ticket) Resolved() bool {
	return t.State != StatePending
}
