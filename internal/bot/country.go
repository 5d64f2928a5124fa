package bot

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"warerabot/internal/dispatch"
	"warerabot/internal/templates"
	"warerabot/internal/warera"
)

// CountryInfo answers country lookups against the game API. Repeated lookups
// are served from the client's country cache, so moderators spamming the
// command do not burn the rate budget
type CountryInfo struct {
	client    *warera.Client
	templates *templates.Store
	homeID    warera.CountryID
}

func NewCountryInfo(client *warera.Client, tmpls *templates.Store, homeID warera.CountryID) *CountryInfo {
	return &CountryInfo{client: client, templates: tmpls, homeID: homeID}
}

func (h *CountryInfo) Commands() []Command {
	return []Command{
		{
			Name:        "land",
			Usage:       "land [land_id]",
			Description: "Toon de specialisatie en productiebonus van een land",
			Run:         h.lookup,
		},
	}
}

func (h *CountryInfo) lookup(ctx context.Context, req Request) ([]dispatch.Message, error) {
	id := h.homeID
	if len(req.Args) > 0 {
		id = warera.CountryID(req.Args[0])
	}

	country, err := h.client.GetCountry(id)
	if err != nil {
		log.Warn().Msg(fmt.Sprintf("Country lookup for %s failed: %v", id, err))
		return text(fmt.Sprintf("Kon land `%s` niet vinden", id)), nil
	}

	item := country.SpecializedItem
	if item == "" {
		item = "geen"
	}
	tmpl, err := h.templates.Get("land_info")
	if err != nil {
		return nil, err
	}
	rendered, err := templates.Render(tmpl, templates.Context{
		"name":  country.Name,
		"code":  country.Code,
		"item":  item,
		"bonus": fmt.Sprintf("%.1f", country.ProductionBonus),
	})
	if err != nil {
		return nil, err
	}
	return []dispatch.Message{{Content: rendered.Content, Embeds: rendered.Embeds}}, nil
}
