package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"warerabot/internal/dispatch"
	"warerabot/internal/templates"
)

// StandardMessages posts the prepared guide embeds (introduction, military
// unit list, threat level explainer) into the invoking channel, and lets
// the owner reload the template set from disk
type StandardMessages struct {
	templates *templates.Store
}

func NewStandardMessages(tmpls *templates.Store) *StandardMessages {
	return &StandardMessages{templates: tmpls}
}

func (h *StandardMessages) Commands() []Command {
	return []Command{
		{
			Name:        "introductie",
			Usage:       "introductie",
			Description: "Post de introductie in het huidige kanaal",
			ModOnly:     true,
			Run:         h.post("introductie"),
		},
		{
			Name:        "mulijst",
			Usage:       "mulijst",
			Description: "Post de MU lijst in het huidige kanaal",
			ModOnly:     true,
			Run:         h.post("mus"),
		},
		{
			Name:        "dreigingsniveau",
			Usage:       "dreigingsniveau",
			Description: "Post de uitleg van de dreigingsniveau's",
			ModOnly:     true,
			Run:         h.post("dreigingsniveau"),
		},
		{
			Name:        "herlaad",
			Usage:       "herlaad",
			Description: "Herlaad de templates van schijf",
			OwnerOnly:   true,
			Run:         h.reload,
		},
	}
}

// post builds the command that sends a template's embeds.
// Each embed goes out as its own message, so a long guide is not capped by
// the platform's per-message embed limit
func (h *StandardMessages) post(name string) func(ctx context.Context, req Request) ([]dispatch.Message, error) {
	return func(ctx context.Context, req Request) ([]dispatch.Message, error) {
		tmpl, err := h.templates.Get(name)
		if err != nil {
			var notFound *templates.NotFoundError
			if errors.As(err, &notFound) {
				return text(fmt.Sprintf("Template `%s` niet gevonden. Gebruik `herlaad` om opnieuw te laden.", name)), nil
			}
			return nil, err
		}
		rendered, err := templates.Render(tmpl, templates.Context{})
		if err != nil {
			return nil, err
		}

		messages := make([]dispatch.Message, 0, len(rendered.Embeds)+1)
		if rendered.Content != "" {
			messages = append(messages, dispatch.Message{Content: rendered.Content})
		}
		for _, embed := range rendered.Embeds {
			messages = append(messages, dispatch.Message{Embeds: []templates.Embed{embed}})
		}
		log.Info().Msg(fmt.Sprintf("Posting %s (%d embeds) requested by %s", name, len(rendered.Embeds), req.Username))
		return messages, nil
	}
}

// reload swaps in a fresh template set. A malformed file aborts the whole
// reload and keeps the previous set serving
func (h *StandardMessages) reload(ctx context.Context, req Request) ([]dispatch.Message, error) {
	if err := h.templates.Reload(); err != nil {
		return text(fmt.Sprintf("Herladen mislukt, oude templates blijven actief: %v", err)), nil
	}
	return text(fmt.Sprintf("Templates succesvol herladen (%d geladen)", h.templates.Len())), nil
}
