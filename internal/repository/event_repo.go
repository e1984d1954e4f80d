package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"coursecatalog/internal/model"
	"coursecatalog/internal/pgmq"
)

// EventRepository appends content events to the outbox queue
type EventRepository interface {
	Append(ctx context.Context, ev *model.ContentEvent) error
}

type eventRepo struct {
	queue  string
	client *pgmq.Client
}

// NewEventRepo creates an EventRepository that sends to a pgmq queue on db.
// Bound to a transaction, the event commits or rolls back with the change.
func NewEventRepo(db DBTX, queue string) EventRepository {
	return &eventRepo{queue: queue, client: pgmq.New(db)}
}

func (r *eventRepo) Append(ctx context.Context, ev *model.ContentEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshalling %s event: %w", ev.Type, err)
	}
	if err := r.client.Send(ctx, r.queue, payload); err != nil {
		return fmt.Errorf("appending %s event: %w", ev.Type, err)
	}
	return nil
}
