package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"warerabot/internal/common"
	"warerabot/internal/dispatch"
	"warerabot/internal/tickets"
)

// Bot connects the handler registry to the Discord gateway and drives the
// background jobs. All feature behavior lives in the registered handlers;
// the bot only routes events and posts the resulting messages
type Bot struct {
	session      *discordgo.Session
	registry     *Registry
	dispatcher   *dispatch.Dispatcher
	store        *tickets.Store
	prefix       string
	ownerID      string
	modRoles     map[string]struct{}
	mainCycle    time.Duration
	housekeeping common.TimedExecutor

	runCtx context.Context
}

func New(session *discordgo.Session, registry *Registry, dispatcher *dispatch.Dispatcher, store *tickets.Store, prefix string, ownerID string, modRoleIDs []string, mainCycle time.Duration, housekeepingTimeout time.Duration) *Bot {
	bot := &Bot{
		session:    session,
		registry:   registry,
		dispatcher: dispatcher,
		store:      store,
		prefix:     prefix,
		ownerID:    ownerID,
		modRoles:   map[string]struct{}{},
		mainCycle:  mainCycle,
	}
	for _, id := range modRoleIDs {
		bot.modRoles[id] = struct{}{}
	}
	bot.housekeeping = common.NewTimedExecutor(housekeepingTimeout, bot.reportUnreconciled)
	return bot
}

// Run opens the gateway session and blocks until the context is cancelled
func (b *Bot) Run(ctx context.Context) error {
	b.runCtx = ctx

	b.session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages | discordgo.IntentMessageContent

	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onGuildMemberAdd)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("could not open discord session: %w", err)
	}
	defer b.session.Close()
	log.Info().Msg("Discord session open")

	group, ctx := errgroup.WithContext(ctx)
	for _, job := range b.registry.periodics {
		job := job
		group.Go(func() error {
			b.runPeriodic(ctx, job)
			return nil
		})
	}
	group.Go(func() error {
		b.runHousekeeping(ctx)
		return nil
	})
	return group.Wait()
}

// runPeriodic ticks a background job until shutdown. A failing tick is
// logged and retried on the next interval; it never takes the bot down
func (b *Bot) runPeriodic(ctx context.Context, job Periodic) {
	log.Info().Msg(fmt.Sprintf("Starting %s, interval %s", job.Name(), job.Interval()))
	ticker := time.NewTicker(job.Interval())
	defer ticker.Stop()

	for {
		if err := job.Tick(ctx); err != nil {
			log.Error().Msg(fmt.Sprintf("Tick of %s failed: %v", job.Name(), err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (b *Bot) runHousekeeping(ctx context.Context) {
	ticker := time.NewTicker(b.mainCycle)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.housekeeping.Execute()
		}
	}
}

// reportUnreconciled surfaces decided tickets whose side effects never
// confirmed, so an operator notices they need the reconciliation pass
func (b *Bot) reportUnreconciled() {
	unreconciled, err := b.store.ListUnreconciled(b.runCtx)
	if err != nil {
		log.Error().Msg(fmt.Sprintf("Could not list unreconciled tickets: %v", err))
		return
	}
	if len(unreconciled) == 0 {
		return
	}
	log.Warn().Msg(fmt.Sprintf("%d resolved tickets await reconciliation of their side effects", len(unreconciled)))
}

func (b *Bot) onMessageCreate(session *discordgo.Session, message *discordgo.MessageCreate) {

	// Reject my own messages and those of other bots
	if message.Author == nil || message.Author.Bot {
		return
	}
	if session.State.User != nil && message.Author.ID == session.State.User.ID {
		return
	}

	// Ignore messages from private channels
	if message.GuildID == "" {
		log.Debug().Msg("Ignoring private message")
		return
	}

	result := Parse(b.prefix, message.Content)
	switch result.ID {
	case ParseNoBotPrefix:
		return
	case ParseNoCommand:
		b.reply(message.ChannelID, text(fmt.Sprintf("Geen commando opgegeven. Typ `%s help` voor een overzicht.", b.prefix))...)
		return
	}
	log.Debug().Msg(fmt.Sprintf("Received command: %s", message.Content))

	if result.Command == "help" {
		b.reply(message.ChannelID, b.registry.Help(b.prefix))
		return
	}

	cmd, ok := b.registry.Command(result.Command)
	if !ok {
		b.reply(message.ChannelID, text(fmt.Sprintf("Onbekend commando `%s`. Typ `%s help` voor een overzicht.", result.Command, b.prefix))...)
		return
	}

	req := Request{
		GuildID:   message.GuildID,
		ChannelID: message.ChannelID,
		UserID:    message.Author.ID,
		Username:  message.Author.Username,
		Args:      result.Args,
		IsMod:     b.isMod(message.Member),
		IsOwner:   message.Author.ID == b.ownerID,
	}
	if cmd.OwnerOnly && !req.IsOwner {
		b.reply(message.ChannelID, text("Dit commando is alleen voor de eigenaar van de bot")...)
		return
	}
	if cmd.ModOnly && !req.IsMod && !req.IsOwner {
		b.reply(message.ChannelID, text("Je hebt geen toestemming voor dit commando")...)
		return
	}

	responses, err := cmd.Run(b.runCtx, req)
	if err != nil {
		log.Error().Msg(fmt.Sprintf("Command %s failed: %v", result.Command, err))
		b.reply(message.ChannelID, text("Er ging iets mis, probeer het later opnieuw")...)
		return
	}
	b.reply(message.ChannelID, responses...)
}

func (b *Bot) onGuildMemberAdd(session *discordgo.Session, event *discordgo.GuildMemberAdd) {

	memberCount := 0
	if guild, err := session.State.Guild(event.GuildID); err == nil {
		memberCount = guild.MemberCount
	}

	join := MemberJoin{
		GuildID:     event.GuildID,
		UserID:      event.User.ID,
		Username:    event.User.Username,
		MemberCount: memberCount,
	}
	for _, handler := range b.registry.joins {
		if err := handler.HandleMemberJoin(b.runCtx, join); err != nil {
			log.Error().Msg(fmt.Sprintf("Join handler failed for user %s: %v", join.Username, err))
		}
	}
}

func (b *Bot) isMod(member *discordgo.Member) bool {
	if member == nil {
		return false
	}
	for _, roleID := range member.Roles {
		if _, ok := b.modRoles[roleID]; ok {
			return true
		}
	}
	return false
}

func (b *Bot) reply(channelID string, messages ...dispatch.Message) {
	for _, msg := range messages {
		if _, err := b.dispatcher.Post(channelID, msg); err != nil {
			log.Error().Msg(fmt.Sprintf("Could not send response to channel %s: %v", channelID, err))
		}
	}
}
