package outbox

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/corray333/backend-labs/idempotent-order/internal/clock"
	"github.com/corray333/backend-labs/idempotent-order/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/idempotent-order/internal/service/models/outbox"
	"github.com/spf13/viper"
)

// publisher delivers a message to the broker.
type publisher interface {
	Publish(exchange, routingKey, contentType string, body []byte) error
}

// Worker processes messages from the outbox table.
type Worker struct {
	outboxRepo    ioutboxrepo.IOutboxRepository
	publisher     publisher
	clock         clock.Clock
	pollInterval  time.Duration
	batchSize     int
	retryInterval time.Duration
	stopCh        chan struct{}
}

// NewWorker creates a new outbox worker.
func NewWorker(
	outboxRepo ioutboxrepo.IOutboxRepository,
	publisher publisher,
	clk clock.Clock,
) *Worker {
	pollInterval := viper.GetDuration("outbox.poll_interval")
	if pollInterval == 0 {
		pollInterval = 10 * time.Second
	}

	batchSize := viper.GetInt("outbox.batch_size")
	if batchSize == 0 {
		batchSize = 100
	}

	retryInterval := viper.GetDuration("outbox.retry_interval")
	if retryInterval == 0 {
		retryInterval = 30 * time.Second
	}

	return &Worker{
		outboxRepo:    outboxRepo,
		publisher:     publisher,
		clock:         clk,
		pollInterval:  pollInterval,
		batchSize:     batchSize,
		retryInterval: retryInterval,
		stopCh:        make(chan struct{}),
	}
}

// Start begins processing messages from the outbox. It returns when ctx is
// done or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	slog.Info("Outbox worker started", "poll_interval", w.pollInterval, "batch_size", w.batchSize)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Outbox worker shutting down")

			return
		case <-w.stopCh:
			slog.Info("Outbox worker stopped")

			return
		case <-ticker.C:
			w.ProcessMessages(ctx)
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}

// ProcessMessages publishes one batch of pending messages.
func (w *Worker) ProcessMessages(ctx context.Context) {
	messages, err := w.outboxRepo.GetPendingMessages(ctx, w.batchSize)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to get pending messages from outbox", "error", err)

		return
	}

	if len(messages) == 0 {
		return
	}

	slog.InfoContext(ctx, "Processing outbox messages", "count", len(messages))

	for _, msg := range messages {
		if err := w.publisher.Publish(msg.ExchangeName, msg.RoutingKey, msg.ContentType, msg.Payload); err != nil {
			w.scheduleRetry(ctx, msg, err)

			continue
		}

		if err := w.outboxRepo.Delete(ctx, msg.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to delete message from outbox after successful publish",
				"outbox_id", msg.ID,
				"error", err,
			)
		} else {
			slog.InfoContext(ctx, "Message successfully published and removed from outbox", "outbox_id", msg.ID)
		}
	}
}

func (w *Worker) scheduleRetry(ctx context.Context, msg outbox.OutboxMessage, publishErr error) {
	newRetryCount := msg.RetryCount + 1
	nextRetryAt := w.clock.Now().Add(w.backoff(newRetryCount))

	slog.WarnContext(ctx, "Failed to publish message from outbox, will retry",
		"outbox_id", msg.ID,
		"retry_count", newRetryCount,
		"max_retries", msg.MaxRetries,
		"next_retry", nextRetryAt,
		"error", publishErr,
	)

	if newRetryCount >= msg.MaxRetries {
		slog.ErrorContext(ctx, "Outbox message exhausted its retries", "outbox_id", msg.ID)
	}

	if err := w.outboxRepo.UpdateRetry(ctx, msg.ID, newRetryCount, publishErr.Error(), nextRetryAt); err != nil {
		slog.ErrorContext(ctx, "Failed to update retry information", "outbox_id", msg.ID, "error", err)
	}
}

// backoff returns retryInterval * 2^retryCount.
func (w *Worker) backoff(retryCount int) time.Duration {
	return time.Duration(math.Pow(2, float64(retryCount)) * float64(w.retryInterval))
}
