package relay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"coursecatalog/internal/metrics"
	"coursecatalog/internal/model"
	"coursecatalog/internal/pgmq"
	"coursecatalog/internal/pubsub"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	mu      sync.Mutex
	batches [][]*pgmq.Message
	readErr error
	sendErr error
	deleted []int64
	dlq     [][]byte
}

func (q *fakeQueue) ReadWithPoll(ctx context.Context, queue string, visibilitySec, timeoutSec, maxMessages int) ([]*pgmq.Message, error) {
	q.mu.Lock()
	if q.readErr != nil {
		q.mu.Unlock()
		return nil, q.readErr
	}
	if len(q.batches) == 0 {
		q.mu.Unlock()
		<-ctx.Done()
		return nil, ctx.Err()
	}
	b := q.batches[0]
	q.batches = q.batches[1:]
	q.mu.Unlock()
	return b, nil
}

func (q *fakeQueue) Delete(ctx context.Context, queue string, msgIDs []int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deleted = append(q.deleted, msgIDs...)
	return nil
}

func (q *fakeQueue) Send(ctx context.Context, queue string, payload []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.sendErr != nil {
		return q.sendErr
	}
	q.dlq = append(q.dlq, payload)
	return nil
}

type fakePublisher struct {
	mu        sync.Mutex
	failTypes map[model.ContentEventType]bool
	sent      []pubsub.Message
}

func (p *fakePublisher) Publish(ctx context.Context, topic string, msg pubsub.Message) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failTypes[model.ContentEventType(msg.Attributes["event_type"])] {
		return "", errors.New("unavailable")
	}
	p.sent = append(p.sent, msg)
	return "ps-1", nil
}

func message(t *testing.T, id int64, typ model.ContentEventType, courseID string) *pgmq.Message {
	t.Helper()
	data, err := json.Marshal(model.ContentEvent{ID: "ev", Type: typ, CourseID: courseID, EntityIDs: []string{"x"}})
	require.NoError(t, err)
	return &pgmq.Message{ID: id, Data: data}
}

var opts = Options{Queue: "content_events", Topic: "content-events", MaxMessages: 10}

func TestRelayBatch_PublishesAndDeletes(t *testing.T) {
	q := &fakeQueue{batches: [][]*pgmq.Message{{
		message(t, 1, model.EventChaptersCreated, "course-1"),
		message(t, 2, model.EventLessonsReordered, "course-2"),
	}}}
	pub := &fakePublisher{}
	before := testutil.ToFloat64(metrics.RelayedEventsTotal.WithLabelValues("published"))

	n, err := relayBatch(context.Background(), zerolog.Nop(), q, pub, opts)

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{1, 2}, q.deleted)
	require.Len(t, pub.sent, 2)
	assert.Equal(t, "course-1", pub.sent[0].OrderingKey)
	assert.Equal(t, "lessons.reordered", pub.sent[1].Attributes["event_type"])
	assert.Equal(t, before+2, testutil.ToFloat64(metrics.RelayedEventsTotal.WithLabelValues("published")))
}

func TestRelayBatch_KeepsFailedAndLaterEventsOfSameCourse(t *testing.T) {
	q := &fakeQueue{batches: [][]*pgmq.Message{{
		message(t, 1, model.EventChaptersDeleted, "course-1"),
		message(t, 2, model.EventChaptersRestored, "course-1"),
		message(t, 3, model.EventChaptersCreated, "course-2"),
		{ID: 4, Data: []byte("not json")},
	}}}
	pub := &fakePublisher{failTypes: map[model.ContentEventType]bool{model.EventChaptersDeleted: true}}

	n, err := relayBatch(context.Background(), zerolog.Nop(), q, pub, opts)

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{3, 4}, q.deleted)
	require.Len(t, pub.sent, 1)
	assert.Equal(t, "course-2", pub.sent[0].Attributes["course_id"])
}

func TestRelayBatch_DeadLettersUndecodable(t *testing.T) {
	withDLQ := opts
	withDLQ.DeadLetterQueue = "content_events_dlq"

	q := &fakeQueue{batches: [][]*pgmq.Message{{{ID: 5, Data: []byte("{broken")}}}}
	before := testutil.ToFloat64(metrics.RelayedEventsTotal.WithLabelValues("dead_lettered"))

	n, err := relayBatch(context.Background(), zerolog.Nop(), q, &fakePublisher{}, withDLQ)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int64{5}, q.deleted)
	require.Len(t, q.dlq, 1)
	var env deadLetterEnvelope
	require.NoError(t, json.Unmarshal(q.dlq[0], &env))
	assert.Equal(t, int64(5), env.MsgID)
	assert.Equal(t, "{broken", env.Raw)
	assert.NotEmpty(t, env.Error)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.RelayedEventsTotal.WithLabelValues("dead_lettered")))

	q = &fakeQueue{sendErr: errors.New("queue missing"), batches: [][]*pgmq.Message{{{ID: 6, Data: []byte("{broken")}}}}
	n, err = relayBatch(context.Background(), zerolog.Nop(), q, &fakePublisher{}, withDLQ)

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, q.deleted)
}

func TestRun_StopsOnCancel(t *testing.T) {
	q := &fakeQueue{batches: [][]*pgmq.Message{{message(t, 7, model.EventCourseCreated, "course-1")}}}
	pub := &fakePublisher{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Run(ctx, zerolog.Nop(), q, pub, opts) }()

	require.Eventually(t, func() bool {
		q.mu.Lock()
		defer q.mu.Unlock()
		return len(q.deleted) == 1
	}, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop after cancel")
	}
}

func TestRun_BacksOffOnReadError(t *testing.T) {
	q := &fakeQueue{readErr: errors.New("connection refused")}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := Run(ctx, zerolog.Nop(), q, &fakePublisher{}, Options{Queue: "q", RetryDelay: 10 * time.Millisecond})

	assert.NoError(t, err)
}
