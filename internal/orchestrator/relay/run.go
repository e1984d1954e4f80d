// Package relay moves committed content events from the pgmq outbox queue
// to a Pub/Sub topic.
package relay

import (
	"context"
	"encoding/json"
	"time"

	"coursecatalog/internal/metrics"
	"coursecatalog/internal/model"
	"coursecatalog/internal/pgmq"
	"coursecatalog/internal/pubsub"

	"github.com/rs/zerolog"
)

// Queue is the part of the pgmq client the relay uses.
type Queue interface {
	ReadWithPoll(ctx context.Context, queue string, visibilitySec, timeoutSec, maxMessages int) ([]*pgmq.Message, error)
	Delete(ctx context.Context, queue string, msgIDs []int64) error
	Send(ctx context.Context, queue string, payload []byte) error
}

type Options struct {
	Queue          string
	Topic          string
	VisibilitySec  int
	PollTimeoutSec int
	MaxMessages    int

	// DeadLetterQueue receives undecodable events. When empty they are dropped.
	DeadLetterQueue string
	// RetryDelay is the pause after a failed queue read.
	RetryDelay time.Duration
}

// Run relays events until ctx is cancelled. A message is deleted only after
// Pub/Sub accepted it, so delivery is at least once.
func Run(ctx context.Context, logger zerolog.Logger, q Queue, pub pubsub.Publisher, opts Options) error {
	logger = logger.With().Str("orchestrator", "relay").Str("queue", opts.Queue).Logger()
	logger.Info().Str("topic", opts.Topic).Msg("Starting content event relay")
	if opts.RetryDelay == 0 {
		opts.RetryDelay = time.Second
	}
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Shutting down content event relay")
			return nil
		default:
		}

		if _, err := relayBatch(ctx, logger, q, pub, opts); err != nil {
			if ctx.Err() != nil {
				continue
			}
			logger.Error().Err(err).Msg("Error reading content events queue")
			select {
			case <-ctx.Done():
			case <-time.After(opts.RetryDelay):
			}
		}
	}
}

// relayBatch reads one batch and publishes it in queue order. It returns the
// number of messages removed from the queue.
func relayBatch(ctx context.Context, logger zerolog.Logger, q Queue, pub pubsub.Publisher, opts Options) (int, error) {
	msgs, err := q.ReadWithPoll(ctx, opts.Queue, opts.VisibilitySec, opts.PollTimeoutSec, opts.MaxMessages)
	if err != nil {
		return 0, err
	}

	var done []int64
	failedKeys := map[string]bool{}
	for _, msg := range msgs {
		var ev model.ContentEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			if deadLetter(ctx, logger, q, opts, msg, err) {
				done = append(done, msg.ID)
			}
			continue
		}
		// Later events of a course wait for an earlier failed one.
		if failedKeys[ev.CourseID] {
			continue
		}
		id, err := pub.Publish(ctx, opts.Topic, pubsub.Message{
			Data: msg.Data,
			Attributes: map[string]string{
				"event_id":   ev.ID,
				"event_type": string(ev.Type),
				"course_id":  ev.CourseID,
			},
			OrderingKey: ev.CourseID,
		})
		if err != nil {
			logger.Warn().Err(err).Int64("msg_id", msg.ID).Int64("read_count", msg.ReadCnt).
				Str("event_type", string(ev.Type)).Msg("Publishing content event failed; will retry")
			metrics.RelayedEventsTotal.WithLabelValues("failed").Inc()
			failedKeys[ev.CourseID] = true
			continue
		}
		logger.Debug().Int64("msg_id", msg.ID).Str("pubsub_id", id).Str("event_type", string(ev.Type)).Msg("Content event relayed")
		metrics.RelayedEventsTotal.WithLabelValues("published").Inc()
		done = append(done, msg.ID)
	}

	if len(done) == 0 {
		return 0, nil
	}
	if err := q.Delete(ctx, opts.Queue, done); err != nil {
		// The messages reappear after the visibility timeout and are sent again.
		logger.Error().Err(err).Int("count", len(done)).Msg("Error deleting relayed content events")
		return 0, nil
	}
	return len(done), nil
}

// deadLetterEnvelope wraps the raw message, which may not be valid JSON.
type deadLetterEnvelope struct {
	MsgID     int64  `json:"msg_id"`
	ReadCount int64  `json:"read_count"`
	Raw       string `json:"raw"`
	Error     string `json:"error"`
}

// deadLetter moves an undecodable message out of the relay's way. It reports
// whether the message may be deleted from the source queue.
func deadLetter(ctx context.Context, logger zerolog.Logger, q Queue, opts Options, msg *pgmq.Message, cause error) bool {
	if opts.DeadLetterQueue == "" {
		logger.Error().Err(cause).Int64("msg_id", msg.ID).Msg("Dropping undecodable content event")
		metrics.RelayedEventsTotal.WithLabelValues("dropped").Inc()
		return true
	}
	payload, err := json.Marshal(deadLetterEnvelope{
		MsgID:     msg.ID,
		ReadCount: msg.ReadCnt,
		Raw:       string(msg.Data),
		Error:     cause.Error(),
	})
	if err != nil {
		logger.Error().Err(err).Int64("msg_id", msg.ID).Msg("Failed to marshal dead-letter envelope")
		return false
	}
	if err := q.Send(ctx, opts.DeadLetterQueue, payload); err != nil {
		logger.Error().Err(err).Str("dlq", opts.DeadLetterQueue).Int64("msg_id", msg.ID).Msg("Failed to send content event to dead-letter queue")
		return false
	}
	logger.Warn().Err(cause).Str("dlq", opts.DeadLetterQueue).Int64("msg_id", msg.ID).Msg("Moved undecodable content event to dead-letter queue")
	metrics.RelayedEventsTotal.WithLabelValues("dead_lettered").Inc()
	return true
}
