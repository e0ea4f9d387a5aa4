package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sakashimaa/lesson-booking/pkg/mylogger"
	"github.com/sakashimaa/lesson-booking/pkg/outbox/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type OutboxRepository interface {
	GetUnpublishedEvents(ctx context.Context, batchSize int) ([]*domain.OutboxEvent, error)
	MarkEventPublished(ctx context.Context, eventID string) error
	MarkEventFailed(ctx context.Context, eventID string, errMsg string) error
}

type Producer interface {
	ProduceMessage(ctx context.Context, topic string, key string, message interface{}) error
}

type OutboxProcessor struct {
	repo      OutboxRepository
	producer  Producer
	logger    *zap.Logger
	batchSize int
	interval  time.Duration
	tracer    trace.Tracer
}

type Option func(*OutboxProcessor)

func WithBatchSize(n int) Option {
	return func(p *OutboxProcessor) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(p *OutboxProcessor) {
		if d > 0 {
			p.interval = d
		}
	}
}

func NewOutboxProcessor(
	repo OutboxRepository,
	producer Producer,
	logger *zap.Logger,
	opts ...Option,
) *OutboxProcessor {
	p := &OutboxProcessor{
		repo:      repo,
		producer:  producer,
		logger:    logger,
		batchSize: 50,
		interval:  500 * time.Millisecond,
		tracer:    otel.Tracer("outbox-worker"),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	mylogger.Info(ctx, p.logger, "Starting outbox processor")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			mylogger.Info(ctx, p.logger, "Outbox processor stopping")
			return
		case <-ticker.C:
			if _, err := p.processBatch(ctx); err != nil {
				mylogger.Error(
					ctx,
					p.logger,
					"Error processing outbox batch",
					zap.Error(err),
				)
			}
		}
	}
}

// processBatch publishes one batch and reports how many events went out.
func (p *OutboxProcessor) processBatch(ctx context.Context) (int, error) {
	ctx, span := p.tracer.Start(ctx, "OutboxProcessor.processBatch")
	defer span.End()

	events, err := p.repo.GetUnpublishedEvents(ctx, p.batchSize)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	if len(events) == 0 {
		return 0, nil
	}

	span.SetAttributes(attribute.Int("batch_size", len(events)))

	mylogger.Debug(
		ctx,
		p.logger,
		"Processing outbox events",
		zap.Int("count", len(events)),
	)

	published := 0
	for _, event := range events {
		var payloadMap map[string]any
		if err := json.Unmarshal(event.Payload, &payloadMap); err != nil {
			mylogger.Error(
				ctx,
				p.logger,
				"outbox worker unmarshal event payload failed",
				zap.String("id", event.ID),
				zap.Error(err),
			)

			_ = p.repo.MarkEventFailed(ctx, event.ID, err.Error())
			continue
		}

		payloadMap["event_id"] = event.ID

		if err := p.producer.ProduceMessage(ctx, event.Topic, event.AggregateID, payloadMap); err != nil {
			mylogger.Error(
				ctx,
				p.logger,
				"outbox worker produce message failed",
				zap.String("id", event.ID),
				zap.Error(err),
			)

			if dbErr := p.repo.MarkEventFailed(ctx, event.ID, err.Error()); dbErr != nil {
				mylogger.Error(
					ctx,
					p.logger,
					"outbox worker mark event failed failed",
					zap.String("id", event.ID),
					zap.Error(dbErr),
				)
			}
			continue
		}

		if err := p.repo.MarkEventPublished(ctx, event.ID); err != nil {
			span.RecordError(err)

			mylogger.Error(
				ctx,
				p.logger,
				"outbox worker mark event published failed",
				zap.String("id", event.ID),
				zap.Error(err),
			)

			return published, err
		}

		published++

		mylogger.Debug(
			ctx,
			p.logger,
			"outbox worker event published successfully",
			zap.String("id", event.ID),
		)
	}

	return published, nil
}
