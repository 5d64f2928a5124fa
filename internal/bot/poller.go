package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"warerabot/internal/dispatch"
	"warerabot/internal/templates"
	"warerabot/internal/tickets"
	"warerabot/internal/warera"
)

const productionAlias = "production"

// ProductionPoller watches which country holds the top production bonus per
// specialized item and announces changes. The last seen top per item lives
// in the state store, so a restart does not re-announce what everyone
// already knows
type ProductionPoller struct {
	client     *warera.Client
	state      *tickets.Store
	templates  *templates.Store
	resolver   dispatch.Resolver
	dispatcher *dispatch.Dispatcher
	interval   time.Duration
}

func NewProductionPoller(client *warera.Client, state *tickets.Store, tmpls *templates.Store, resolver dispatch.Resolver, dispatcher *dispatch.Dispatcher, interval time.Duration) *ProductionPoller {
	return &ProductionPoller{
		client:     client,
		state:      state,
		templates:  tmpls,
		resolver:   resolver,
		dispatcher: dispatcher,
		interval:   interval,
	}
}

func (p *ProductionPoller) Name() string { return "production poller" }

func (p *ProductionPoller) Interval() time.Duration { return p.interval }

func (p *ProductionPoller) Tick(ctx context.Context) error {

	countries, err := p.client.GetCountries(false)
	if err != nil {
		// Background fetch, the next tick will try again
		log.Warn().Msg(fmt.Sprintf("Skipping production poll: %v", err))
		return nil
	}

	for item, top := range warera.TopProducers(countries) {
		key := "production.top." + item
		previous, _, err := p.state.GetState(ctx, key)
		if err != nil {
			return err
		}
		if previous == top.Name {
			continue
		}
		if previous != "" {
			if err := p.announce(item, previous, top); err != nil {
				log.Warn().Msg(fmt.Sprintf("Could not announce production change for %s: %v", item, err))
				continue
			}
		}
		// The very first observation of an item is recorded silently
		if err := p.state.SetState(ctx, key, top.Name); err != nil {
			return err
		}
	}
	return nil
}

func (p *ProductionPoller) announce(item string, previous string, top warera.Country) error {
	tmpl, err := p.templates.Get("productie_update")
	if err != nil {
		return err
	}
	rendered, err := templates.Render(tmpl, templates.Context{
		"item":     item,
		"country":  top.Name,
		"previous": previous,
		"bonus":    fmt.Sprintf("%.1f", top.ProductionBonus),
	})
	if err != nil {
		return err
	}
	channelID, err := p.resolver.Resolve(productionAlias)
	if err != nil {
		return err
	}
	if _, err := p.dispatcher.Post(channelID, dispatch.Message{Content: rendered.Content, Embeds: rendered.Embeds}); err != nil {
		return err
	}
	log.Info().Msg(fmt.Sprintf("Top producer of %s changed from %s to %s", item, previous, top.Name))
	return nil
}
