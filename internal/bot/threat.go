package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"warerabot/internal/dispatch"
	"warerabot/internal/templates"
	"warerabot/internal/tickets"
	"warerabot/internal/warera"
)

const threatAlias = "threat-level"

// State keys of the threat updater
const (
	threatPeriodKey  = "threat.last_period"
	threatMessageKey = "threat.message"
)

// ThreatUpdater keeps one threat level message up to date: it posts the
// message once and afterwards edits that same message in place every
// period. The period marker in the state store guards against posting twice
// for the same period when a tick fires again after a restart
type ThreatUpdater struct {
	client     *warera.Client
	state      *tickets.Store
	templates  *templates.Store
	resolver   dispatch.Resolver
	dispatcher *dispatch.Dispatcher
	countryID  warera.CountryID
	interval   time.Duration
	period     time.Duration
}

func NewThreatUpdater(client *warera.Client, state *tickets.Store, tmpls *templates.Store, resolver dispatch.Resolver, dispatcher *dispatch.Dispatcher, countryID warera.CountryID, interval time.Duration, period time.Duration) *ThreatUpdater {
	return &ThreatUpdater{
		client:     client,
		state:      state,
		templates:  tmpls,
		resolver:   resolver,
		dispatcher: dispatcher,
		countryID:  countryID,
		interval:   interval,
		period:     period,
	}
}

func (u *ThreatUpdater) Name() string { return "threat updater" }

func (u *ThreatUpdater) Interval() time.Duration { return u.interval }

func (u *ThreatUpdater) Tick(ctx context.Context) error {

	periodKey := time.Now().UTC().Truncate(u.period).Format(time.RFC3339)
	lastPeriod, _, err := u.state.GetState(ctx, threatPeriodKey)
	if err != nil {
		return err
	}
	if lastPeriod == periodKey {
		return nil
	}

	wars, err := u.client.GetActiveWars(u.countryID, false)
	if err != nil {
		// Background fetch, the next tick will try again
		log.Warn().Msg(fmt.Sprintf("Skipping threat update: %v", err))
		return nil
	}
	level := warera.ThreatFromWars(len(wars))

	msg, err := u.render(level, len(wars))
	if err != nil {
		return err
	}
	if err := u.publish(ctx, msg); err != nil {
		return err
	}

	// Mark the period only after the message is out, so a failed dispatch
	// is retried instead of skipped
	if err := u.state.SetState(ctx, threatPeriodKey, periodKey); err != nil {
		return err
	}
	log.Info().Msg(fmt.Sprintf("Threat level for period %s: %s (%d active wars)", periodKey, level, len(wars)))
	return nil
}

// publish edits the previous threat message in place, or posts a fresh one
// when there is none yet or somebody deleted it
func (u *ThreatUpdater) publish(ctx context.Context, msg dispatch.Message) error {

	if ref, ok, err := u.loadRef(ctx); err != nil {
		return err
	} else if ok {
		err := u.dispatcher.Update(ref, msg)
		if err == nil {
			return nil
		}
		if !errors.Is(err, dispatch.ErrStaleReference) {
			return err
		}
		log.Debug().Msg(fmt.Sprintf("Threat message %s is gone, posting fresh", ref))
	}

	channelID, err := u.resolver.Resolve(threatAlias)
	if err != nil {
		return err
	}
	ref, err := u.dispatcher.Post(channelID, msg)
	if err != nil {
		return err
	}
	return u.saveRef(ctx, ref)
}

func (u *ThreatUpdater) render(level warera.ThreatLevel, activeWars int) (dispatch.Message, error) {
	tmpl, err := u.templates.Get("dreigingsniveau_status")
	if err != nil {
		return dispatch.Message{}, err
	}
	rendered, err := templates.Render(tmpl, templates.Context{
		"level":      strconv.Itoa(int(level)),
		"level_name": level.String(),
		"wars":       strconv.Itoa(activeWars),
		"updated":    time.Now().UTC().Format(time.RFC1123),
	})
	if err != nil {
		return dispatch.Message{}, err
	}
	return dispatch.Message{Content: rendered.Content, Embeds: rendered.Embeds}, nil
}

func (u *ThreatUpdater) loadRef(ctx context.Context) (dispatch.MessageRef, bool, error) {
	value, ok, err := u.state.GetState(ctx, threatMessageKey)
	if err != nil || !ok {
		return dispatch.MessageRef{}, false, err
	}
	channelID, messageID, found := strings.Cut(value, "/")
	if !found {
		return dispatch.MessageRef{}, false, nil
	}
	return dispatch.MessageRef{ChannelID: channelID, MessageID: messageID}, true, nil
}

func (u *ThreatUpdater) saveRef(ctx context.Context, ref dispatch.MessageRef) error {
	return u.state.SetState(ctx, threatMessageKey, ref.String())
}
