// Package app assembles the bot: database, event bus, Discord session, the
// ranking modules, the scheduled queue, and the HTTP projection.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"

	"github.com/romeda-works/romeda-bot/api"
	clubevents "github.com/romeda-works/romeda-bot/app/events"
	"github.com/romeda-works/romeda-bot/app/eventbus"
	activityservice "github.com/romeda-works/romeda-bot/app/modules/activity/application"
	"github.com/romeda-works/romeda-bot/app/modules/activity/infrastructure/counter"
	activitydb "github.com/romeda-works/romeda-bot/app/modules/activity/infrastructure/repositories"
	"github.com/romeda-works/romeda-bot/app/modules/orchestrator"
	orchestratorqueue "github.com/romeda-works/romeda-bot/app/modules/orchestrator/queue"
	"github.com/romeda-works/romeda-bot/app/modules/ranking"
	"github.com/romeda-works/romeda-bot/app/modules/reorg"
	"github.com/romeda-works/romeda-bot/app/shared"
	"github.com/romeda-works/romeda-bot/config"
	"github.com/romeda-works/romeda-bot/db/bundb"
	"github.com/romeda-works/romeda-bot/internal/discord"
)

// App holds every long-lived component of the bot process.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	DB      *bun.DB
	Bus     shared.EventBus
	Session *discordgo.Session

	Service *orchestrator.Service
	Queue   *orchestratorqueue.Service

	Registry *prometheus.Registry

	watermillRouter *message.Router
	httpServer      *http.Server
}

// NewApp wires the application together. Nothing is started yet; Run does that.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := bundb.NewDB(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	bus, err := eventbus.NewEventBus(ctx, cfg.NATS.URL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}
	if err := bus.EnsureStream(ctx, clubevents.Stream, []string{"club.>"}); err != nil {
		return nil, fmt.Errorf("failed to ensure club stream: %w", err)
	}

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentGuilds | discordgo.IntentGuildMessages
	session.StateEnabled = true

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	guild := discord.NewClient(session, logger)
	repo := activitydb.NewRepository(db)
	buffer := counter.NewBuffer()
	tracer := otel.Tracer("romeda-bot")

	scorer := activityservice.NewScorer(guild, repo, db, logger, tracer)
	builder := ranking.NewBuilder(guild, scorer, repo, db, cfg.Discord.GuildID, cfg.Club, logger, tracer)
	sweep := reorg.NewSweep(guild, scorer, repo, db, cfg.Discord.GuildID, cfg.Club, logger, tracer)
	reorganizer := reorg.NewReorganizer(guild, cfg.Discord.GuildID, logger, tracer)

	service := orchestrator.NewService(
		buffer, repo, db, builder, sweep, reorganizer,
		guild, cfg.Club, bus, logger, tracer,
		orchestrator.NewMetrics(registry),
	)

	session.AddHandler(orchestrator.NewMessageCreateHandler(bus, cfg.Club, logger))

	watermillRouter, err := message.NewRouter(message.RouterConfig{}, watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create watermill router: %w", err)
	}
	orchestratorRouter := orchestrator.NewRouter(logger, watermillRouter, bus, bus, registry)
	handlers := orchestrator.NewHandlers(service, buffer, logger, tracer)
	if err := orchestratorRouter.Configure(ctx, handlers); err != nil {
		return nil, fmt.Errorf("failed to configure orchestrator router: %w", err)
	}

	queue, err := orchestratorqueue.NewService(ctx, cfg.Postgres.DSN, service, cfg.Club, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create queue service: %w", err)
	}

	httpServer := &http.Server{
		Addr:    cfg.API.Addr,
		Handler: api.NewRouter(cfg.API, service, registry, logger),
	}

	return &App{
		Config:          cfg,
		Logger:          logger,
		DB:              db,
		Bus:             bus,
		Session:         session,
		Service:         service,
		Queue:           queue,
		Registry:        registry,
		watermillRouter: watermillRouter,
		httpServer:      httpServer,
	}, nil
}
