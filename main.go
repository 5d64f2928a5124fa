package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"warerabot/internal/bot"
	"warerabot/internal/common"
	"warerabot/internal/config"
	"warerabot/internal/dispatch"
	"warerabot/internal/templates"
	"warerabot/internal/tickets"
	"warerabot/internal/warera"
)

func main() {

	// Secrets come from the environment, optionally via a .env file
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found")
	}

	configPath := os.Getenv("WARERA_BOT_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Msg(err.Error())
	}

	setupLogging(cfg)

	token := os.Getenv("WARERA_BOT_TOKEN")
	if token == "" {
		log.Fatal().Msg("WARERA_BOT_TOKEN is not set")
	}

	// Templates
	store, err := templates.NewStore(cfg.Templates.Dir)
	if err != nil {
		log.Fatal().Msg(err.Error())
	}

	// Database
	db, err := tickets.Open(cfg.Database.Path)
	if err != nil {
		log.Fatal().Msg(err.Error())
	}
	defer db.Close()

	// Discord session and outbound plumbing
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		log.Fatal().Msgf("Could not create discord session: %v", err)
	}
	messenger := dispatch.NewDiscordMessenger(session)
	dispatcher := dispatch.NewDispatcher(messenger, cfg.ColorValues())
	resolver := dispatch.NewResolver(cfg.Channels)

	// WarEra API client
	restrictions := []common.Restriction{
		{Requests: cfg.Warera.RequestsPerMinute, Duration: time.Minute},
	}
	client := warera.NewClient(cfg.Warera.BaseURL, restrictions)

	// Ticket workflow
	workflow := tickets.NewWorkflow(db, store, resolver, dispatcher, messenger, cfg.Discord.GuildID, map[tickets.Kind]string{
		tickets.KindCitizen:   cfg.Roles["nederlander"],
		tickets.KindForeigner: cfg.Roles["foreigner"],
	})

	// Build the explicit handler registry
	registry := bot.NewRegistry()
	welcome := bot.NewWelcomeHandler(store, resolver, dispatcher, workflow)
	if err := registry.AddCommands(welcome); err != nil {
		log.Fatal().Msg(err.Error())
	}
	registry.AddJoinHandler(welcome)
	if err := registry.AddCommands(bot.NewStandardMessages(store)); err != nil {
		log.Fatal().Msg(err.Error())
	}
	if err := registry.AddCommands(bot.NewCountryInfo(client, store, warera.CountryID(cfg.Warera.CountryID))); err != nil {
		log.Fatal().Msg(err.Error())
	}
	registry.AddPeriodic(bot.NewThreatUpdater(client, db, store, resolver, dispatcher,
		warera.CountryID(cfg.Warera.CountryID), cfg.Warera.MainCycle(), cfg.Warera.ThreatPeriod()))
	registry.AddPeriodic(bot.NewProductionPoller(client, db, store, resolver, dispatcher, cfg.Warera.PollInterval()))

	modRoles := []string{
		cfg.Roles["border_control"],
		cfg.Roles["minister_foreign_affairs"],
		cfg.Roles["president"],
		cfg.Roles["vice_president"],
	}
	b := bot.New(session, registry, dispatcher, db, cfg.Discord.Prefix, cfg.Discord.OwnerID,
		modRoles, cfg.Warera.MainCycle(), cfg.Warera.Housekeeping())

	// Run until interrupted
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return b.Run(ctx) })
	if err := group.Wait(); err != nil {
		log.Fatal().Msg(err.Error())
	}
	log.Info().Msg("Shutting down")
}

func setupLogging(cfg config.Config) {
	level, err := zerolog.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.App.Environment != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
