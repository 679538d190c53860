package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/dayplanner/libs/kafkax"
	otelx "github.com/md-rashed-zaman/dayplanner/libs/otel"
	"github.com/segmentio/kafka-go"
)

// Source hands out pending records. A batch is marked published only when
// fn returns nil; otherwise it is retried on the next poll.
//
// A Source has a single consumer: implementations may read a batch and mark
// it published in separate steps, so two concurrent PublishBatch calls can
// hand out the same records twice. Records written while fn runs are left
// pending for the next call.
type Source interface {
	PublishBatch(ctx context.Context, limit int, fn func([]Record) error) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Publisher struct {
	source    Source
	writer    messageWriter
	logger    *slog.Logger
	pollEvery time.Duration
	batchSize int
}

type PublisherConfig struct {
	PollEvery time.Duration
	BatchSize int
}

func NewPublisher(source Source, writer messageWriter, logger *slog.Logger, cfg PublisherConfig) *Publisher {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Publisher{
		source:    source,
		writer:    writer,
		logger:    logger,
		pollEvery: cfg.PollEvery,
		batchSize: cfg.BatchSize,
	}
}

// Start runs the publisher in the background. The returned channel is closed
// once Run has returned, including any batch that was in flight when ctx was
// cancelled.
func (p *Publisher) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx)
	}()
	return done
}

func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.PublishOnce(ctx); err != nil {
				p.logger.Error("outbox publish failed", "err", err)
			}
		}
	}
}

// PublishOnce drains at most one batch and reports how many records went out.
func (p *Publisher) PublishOnce(ctx context.Context) (int, error) {
	sent := 0
	err := p.source.PublishBatch(ctx, p.batchSize, func(records []Record) error {
		if len(records) == 0 {
			return nil
		}
		msgs := make([]kafka.Message, 0, len(records))
		for _, r := range records {
			msgCtx := otelx.ContextWithTraceContext(ctx, r.Traceparent, r.Tracestate)
			meta := kafkax.EventMeta{EventID: r.EventID, EventType: r.EventType}
			msgs = append(msgs, kafka.Message{
				Topic:   r.EventType,
				Key:     []byte(r.AggregateID),
				Value:   r.Payload,
				Headers: kafkax.InjectTraceHeaders(msgCtx, meta.Headers()),
			})
		}
		if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
			return err
		}
		sent = len(msgs)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if sent > 0 {
		p.logger.Debug("outbox batch published", "count", sent)
	}
	return sent, nil
}
