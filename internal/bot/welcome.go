package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"warerabot/internal/dispatch"
	"warerabot/internal/templates"
	"warerabot/internal/tickets"
)

// Aliases of the channels the welcome flow talks to
const (
	welcomeAlias = "welcome"
	logAlias     = "log"
)

// WelcomeHandler greets new members and runs the verification ticket flow
type WelcomeHandler struct {
	templates  *templates.Store
	resolver   dispatch.Resolver
	dispatcher *dispatch.Dispatcher
	workflow   *tickets.Workflow
}

func NewWelcomeHandler(tmpls *templates.Store, resolver dispatch.Resolver, dispatcher *dispatch.Dispatcher, workflow *tickets.Workflow) *WelcomeHandler {
	return &WelcomeHandler{templates: tmpls, resolver: resolver, dispatcher: dispatcher, workflow: workflow}
}

// HandleMemberJoin posts the welcome message with the verification
// instructions to the welcome channel
func (h *WelcomeHandler) HandleMemberJoin(ctx context.Context, join MemberJoin) error {
	tmpl, err := h.templates.Get("welcome")
	if err != nil {
		return err
	}
	rendered, err := templates.Render(tmpl, templates.Context{
		"user":         fmt.Sprintf("<@%s>", join.UserID),
		"username":     join.Username,
		"member_count": strconv.Itoa(join.MemberCount),
	})
	if err != nil {
		return err
	}
	channelID, err := h.resolver.Resolve(welcomeAlias)
	if err != nil {
		return err
	}
	if _, err := h.dispatcher.Post(channelID, dispatch.Message{Content: rendered.Content, Embeds: rendered.Embeds}); err != nil {
		return err
	}
	log.Info().Msg(fmt.Sprintf("Welcomed user %s (member #%d)", join.Username, join.MemberCount))
	return nil
}

func (h *WelcomeHandler) Commands() []Command {
	return []Command{
		{
			Name:        "verify",
			Usage:       "verify <citizen|foreigner|embassy>",
			Description: "Vraag verificatie aan; een moderator beoordeelt je aanvraag",
			Run:         h.verify,
		},
		{
			Name:        "approve",
			Usage:       "approve <ticket_id> [reden]",
			Description: "Keur een verificatie aanvraag goed",
			ModOnly:     true,
			Run:         h.approve,
		},
		{
			Name:        "deny",
			Usage:       "deny <ticket_id> [reden]",
			Description: "Wijs een verificatie aanvraag af",
			ModOnly:     true,
			Run:         h.deny,
		},
	}
}

func (h *WelcomeHandler) verify(ctx context.Context, req Request) ([]dispatch.Message, error) {
	if len(req.Args) == 0 {
		return text("Geef het type verificatie op: `citizen`, `foreigner` of `embassy`"), nil
	}
	kind, err := tickets.ParseKind(req.Args[0])
	if err != nil {
		return text(fmt.Sprintf("Dat begrijp ik niet: %v", err)), nil
	}

	ticket, created, err := h.workflow.Open(ctx, req.UserID, req.Username, kind)
	if err != nil {
		return nil, err
	}
	if !created {
		return text(fmt.Sprintf("Je hebt al een lopende aanvraag (`%s`). Even geduld, een moderator kijkt er naar.", ticket.ID)), nil
	}
	return text(fmt.Sprintf("Je %s aanvraag is aangemaakt (`%s`). Een moderator beoordeelt hem zo snel mogelijk.", kind, ticket.ID)), nil
}

func (h *WelcomeHandler) approve(ctx context.Context, req Request) ([]dispatch.Message, error) {
	return h.decide(ctx, req, tickets.StateApproved)
}

func (h *WelcomeHandler) deny(ctx context.Context, req Request) ([]dispatch.Message, error) {
	return h.decide(ctx, req, tickets.StateDenied)
}

func (h *WelcomeHandler) decide(ctx context.Context, req Request, state tickets.State) ([]dispatch.Message, error) {
	if len(req.Args) == 0 {
		return text("Geef het ticket id op"), nil
	}
	id := req.Args[0]
	reason := strings.Join(req.Args[1:], " ")
	if reason == "" {
		reason = "Geen reden opgegeven"
	}

	var ticket tickets.Ticket
	var err error
	if state == tickets.StateApproved {
		ticket, err = h.workflow.Approve(ctx, id, req.Username, reason)
	} else {
		ticket, err = h.workflow.Deny(ctx, id, req.Username, reason)
	}

	switch {
	case errors.Is(err, tickets.ErrNotFound):
		return text(fmt.Sprintf("Ticket `%s` bestaat niet", id)), nil
	case errors.Is(err, tickets.ErrAlreadyResolved):
		// The moderator gets told, instead of wondering whether their
		// click registered
		if resolved, getErr := h.workflow.Get(ctx, id); getErr == nil {
			return text(fmt.Sprintf("Ticket `%s` is al afgehandeld: %s door %s", id, resolved.State, resolved.ResolvedBy)), nil
		}
		return text(fmt.Sprintf("Ticket `%s` is al afgehandeld", id)), nil
	case err != nil:
		return nil, err
	}

	h.logResolution(ticket)

	verdict := "goedgekeurd"
	if state == tickets.StateDenied {
		verdict = "afgewezen"
	}
	return text(fmt.Sprintf("Ticket `%s` van %s is %s", ticket.ID, ticket.Username, verdict)), nil
}

// logResolution posts the decision to the log channel. Failing to log never
// fails the decision itself
func (h *WelcomeHandler) logResolution(ticket tickets.Ticket) {
	tmpl, err := h.templates.Get("ticket_log")
	if err != nil {
		log.Warn().Msg(fmt.Sprintf("Could not log resolution of ticket %s: %v", ticket.ID, err))
		return
	}
	rendered, err := templates.Render(tmpl, templates.Context{
		"user":      fmt.Sprintf("<@%s>", ticket.UserID),
		"username":  ticket.Username,
		"kind":      string(ticket.Kind),
		"state":     string(ticket.State),
		"moderator": ticket.ResolvedBy,
		"reason":    ticket.Reason,
		"ticket_id": ticket.ID,
	})
	if err != nil {
		log.Warn().Msg(fmt.Sprintf("Could not log resolution of ticket %s: %v", ticket.ID, err))
		return
	}
	channelID, err := h.resolver.Resolve(logAlias)
	if err != nil {
		log.Warn().Msg(fmt.Sprintf("Could not log resolution of ticket %s: %v", ticket.ID, err))
		return
	}
	if _, err := h.dispatcher.Post(channelID, dispatch.Message{Content: rendered.Content, Embeds: rendered.Embeds}); err != nil {
		log.Warn().Msg(fmt.Sprintf("Could not log resolution of ticket %s: %v", ticket.ID, err))
	}
}

func text(content string) []dispatch.Message {
	return []dispatch.Message{{Content: content}}
}
