package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/corray333/backend-labs/idempotent-order/internal/clock"
	outboxrepo "github.com/corray333/backend-labs/idempotent-order/internal/dal/repositories/outbox/sqlrepo"
	"github.com/corray333/backend-labs/idempotent-order/internal/service/models/outbox"
	"github.com/corray333/backend-labs/idempotent-order/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange    string
	routingKey  string
	contentType string
	body        string
}

type fakePublisher struct {
	sent []published
	err  error
}

func (f *fakePublisher) Publish(exchange, routingKey, contentType string, body []byte) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{exchange, routingKey, contentType, string(body)})
	return nil
}

func insertMessage(t *testing.T, repo *outboxrepo.OutboxRepository, body string, maxRetries int) {
	t.Helper()

	past := time.Now().UTC().Add(-time.Minute)
	require.NoError(t, repo.Insert(context.Background(), outbox.OutboxMessage{
		ExchangeName: "orders",
		RoutingKey:   "order.created",
		Payload:      []byte(body),
		ContentType:  "application/json",
		MaxRetries:   maxRetries,
		CreatedAt:    past,
		UpdatedAt:    past,
		NextRetryAt:  past,
	}))
}

func TestWorker_PublishesAndDeletes(t *testing.T) {
	db := testutil.NewSQLite(t)
	repo := outboxrepo.NewOutboxRepository(db.DB())
	insertMessage(t, repo, `{"orderId":"o-1"}`, 3)
	insertMessage(t, repo, `{"orderId":"o-2"}`, 3)

	pub := &fakePublisher{}
	w := NewWorker(repo, pub, clock.NewSystem())

	w.ProcessMessages(context.Background())

	require.Len(t, pub.sent, 2)
	assert.Equal(t, published{"orders", "order.created", "application/json", `{"orderId":"o-1"}`}, pub.sent[0])
	assert.Equal(t, `{"orderId":"o-2"}`, pub.sent[1].body)
	assert.Equal(t, 0, testutil.CountRows(t, db.DB(), "outbox"))
}

func TestWorker_SchedulesRetryOnFailure(t *testing.T) {
	db := testutil.NewSQLite(t)
	repo := outboxrepo.NewOutboxRepository(db.DB())
	insertMessage(t, repo, `{"orderId":"o-1"}`, 3)

	pub := &fakePublisher{err: errors.New("channel closed")}
	w := NewWorker(repo, pub, clock.NewSystem())

	w.ProcessMessages(context.Background())

	assert.Equal(t, 1, testutil.CountRows(t, db.DB(), "outbox"))

	var row struct {
		RetryCount int    `db:"retry_count"`
		LastError  string `db:"last_error"`
	}
	require.NoError(t, db.DB().Get(&row, `SELECT retry_count, last_error FROM outbox`))
	assert.Equal(t, 1, row.RetryCount)
	assert.Equal(t, "channel closed", row.LastError)

	// The retry is scheduled in the future, so the next poll skips it.
	pending, err := repo.GetPendingMessages(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestWorker_SkipsExhaustedMessages(t *testing.T) {
	db := testutil.NewSQLite(t)
	repo := outboxrepo.NewOutboxRepository(db.DB())
	insertMessage(t, repo, `{"orderId":"o-1"}`, 0)

	pub := &fakePublisher{}
	NewWorker(repo, pub, clock.NewSystem()).ProcessMessages(context.Background())

	assert.Empty(t, pub.sent)
}

func TestWorker_Backoff(t *testing.T) {
	w := &Worker{retryInterval: 30 * time.Second}

	assert.Equal(t, 60*time.Second, w.backoff(1))
	assert.Equal(t, 120*time.Second, w.backoff(2))
	assert.Equal(t, 240*time.Second, w.backoff(3))
}

func TestWorker_StartStops(t *testing.T) {
	db := testutil.NewSQLite(t)
	w := NewWorker(outboxrepo.NewOutboxRepository(db.DB()), &fakePublisher{}, clock.NewSystem())

	done := make(chan struct{})
	go func() {
		w.Start(context.Background())
		close(done)
	}()

	w.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
