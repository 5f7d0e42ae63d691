package orchestrator

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	clubevents "github.com/romeda-works/romeda-bot/app/events"
	"github.com/romeda-works/romeda-bot/app/modules/activity/infrastructure/counter"
)

// Handlers consumes the club subjects.
type Handlers struct {
	service *Service
	counter counter.Counter
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewHandlers creates the orchestrator event handlers.
func NewHandlers(service *Service, buf counter.Counter, logger *slog.Logger, tracer trace.Tracer) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("orchestrator")
	}
	return &Handlers{
		service: service,
		counter: buf,
		logger:  logger,
		tracer:  tracer,
	}
}

// HandleMessageCounted buffers one observed message. Malformed payloads are
// dropped rather than retried; a poison message must not stall counting.
func (h *Handlers) HandleMessageCounted(msg *message.Message) ([]*message.Message, error) {
	var payload clubevents.MessageCountedPayloadV1
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		h.logger.Error("Dropping malformed message-counted payload",
			slog.String("message_id", msg.UUID),
			slog.Any("error", err),
		)
		return nil, nil
	}
	if payload.ChannelID == "" {
		return nil, nil
	}
	h.counter.Increment(payload.ChannelID)
	return nil, nil
}

// HandleResortRequested runs a full pass. The pass summary is published by the
// service itself, so nothing is returned for routing.
func (h *Handlers) HandleResortRequested(msg *message.Message) ([]*message.Message, error) {
	var payload clubevents.ResortRequestedPayloadV1
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		h.logger.Error("Dropping malformed resort request",
			slog.String("message_id", msg.UUID),
			slog.Any("error", err),
		)
		return nil, nil
	}

	ctx := msg.Context()
	triggeredBy := "manual"
	if payload.RequestedBy != "" {
		triggeredBy = "manual:" + payload.RequestedBy
	}
	h.logger.InfoContext(ctx, "Resort requested",
		slog.String("requested_by", payload.RequestedBy),
		slog.String("reason", payload.Reason),
	)

	if _, err := h.service.RunPass(ctx, triggeredBy); err != nil {
		return nil, fmt.Errorf("resort pass failed: %w", err)
	}
	return nil, nil
}

// HandleDryRunRequested projects the next pass and replies with the plan.
func (h *Handlers) HandleDryRunRequested(msg *message.Message) ([]*message.Message, error) {
	var payload clubevents.DryRunRequestedPayloadV1
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		h.logger.Error("Dropping malformed dry-run request",
			slog.String("message_id", msg.UUID),
			slog.Any("error", err),
		)
		return nil, nil
	}

	result, err := h.service.DryRun(msg.Context(), payload.RequestedBy)
	if err != nil {
		return nil, fmt.Errorf("dry run failed: %w", err)
	}

	body, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal dry-run result: %w", err)
	}
	reply := message.NewMessage(watermill.NewUUID(), body)
	reply.Metadata.Set("reply_to", payload.ReplyTo)
	return []*message.Message{reply}, nil
}
