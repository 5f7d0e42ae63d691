package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"

	clubevents "github.com/romeda-works/romeda-bot/app/events"
	"github.com/romeda-works/romeda-bot/app/shared"
)

const (
	TestEnvironmentFlag  = "APP_ENV"
	TestEnvironmentValue = "test"
)

// Router wires the club subjects onto a watermill router.
type Router struct {
	logger         *slog.Logger
	Router         *message.Router
	subscriber     shared.EventBus
	publisher      shared.EventBus
	metricsBuilder *metrics.PrometheusMetricsBuilder
	metricsEnabled bool
}

// NewRouter creates the orchestrator router.
func NewRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber shared.EventBus,
	publisher shared.EventBus,
	prometheusRegistry *prometheus.Registry,
) *Router {
	inTestEnv := os.Getenv(TestEnvironmentFlag) == TestEnvironmentValue

	var metricsBuilder *metrics.PrometheusMetricsBuilder
	if prometheusRegistry != nil && !inTestEnv {
		builder := metrics.NewPrometheusMetricsBuilder(prometheusRegistry, "", "")
		metricsBuilder = &builder
	}
	return &Router{
		logger:         logger,
		Router:         router,
		subscriber:     subscriber,
		publisher:      publisher,
		metricsBuilder: metricsBuilder,
		metricsEnabled: prometheusRegistry != nil && !inTestEnv,
	}
}

// Configure adds the middleware chain and registers the club handlers.
func (r *Router) Configure(ctx context.Context, handlers *Handlers) error {
	if r.metricsEnabled && r.metricsBuilder != nil {
		r.metricsBuilder.AddPrometheusRouterMetrics(r.Router)
	}

	r.Router.AddMiddleware(
		middleware.CorrelationID,
		middleware.Recoverer,
		middleware.Retry{MaxRetries: 3}.Middleware,
	)

	return r.RegisterHandlers(ctx, handlers)
}

// RegisterHandlers binds each subject to its handler. Handlers that reply do
// so on a fixed subject per handler.
func (r *Router) RegisterHandlers(ctx context.Context, handlers *Handlers) error {
	type binding struct {
		handler      message.HandlerFunc
		publishTopic string
	}
	eventsToHandlers := map[string]binding{
		clubevents.MessageCountedV1:  {handler: handlers.HandleMessageCounted},
		clubevents.ResortRequestedV1: {handler: handlers.HandleResortRequested},
		clubevents.DryRunRequestedV1: {handler: handlers.HandleDryRunRequested, publishTopic: clubevents.DryRunResultV1},
	}

	for topic, b := range eventsToHandlers {
		b := b
		handlerName := fmt.Sprintf("orchestrator.%s", topic)
		r.Router.AddHandler(
			handlerName,
			topic,
			r.subscriber,
			"",
			nil,
			func(msg *message.Message) ([]*message.Message, error) {
				messages, err := b.handler(msg)
				if err != nil {
					r.logger.ErrorContext(ctx, "Error processing message",
						slog.String("message_id", msg.UUID),
						slog.Any("error", err),
					)
					return nil, err
				}
				for _, m := range messages {
					if b.publishTopic == "" {
						r.logger.Error("handler returned a message with no publish subject - message dropped",
							slog.String("handler", handlerName),
							slog.String("msg_uuid", m.UUID),
						)
						continue
					}
					if err := r.publisher.Publish(b.publishTopic, m); err != nil {
						return nil, fmt.Errorf("failed to publish to %s: %w", b.publishTopic, err)
					}
				}
				return nil, nil
			},
		)
	}
	return nil
}

func (r *Router) Close() error {
	return r.Router.Close()
}
