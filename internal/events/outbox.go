package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrInvalidEventType = errors.New("invalid_event_type")
	ErrInvalidSubject   = errors.New("invalid_subject")
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
}

// Outbox writes billing events in the same transaction as the state change
// they describe, so consumers never observe an event without its effect.
type Outbox struct {
	log   *zap.Logger
	genID *snowflake.Node
}

func NewOutbox(p Params) *Outbox {
	return &Outbox{
		log:   p.Log.Named("events.outbox"),
		genID: p.GenID,
	}
}

// PublishTx appends an event using the caller's transaction. Duplicate dedupe
// keys are dropped silently so replayed operations stay idempotent.
func (o *Outbox) PublishTx(ctx context.Context, tx *gorm.DB, event Event) error {
	eventType := strings.TrimSpace(event.Type)
	if eventType == "" {
		return ErrInvalidEventType
	}
	if event.SubjectID == 0 {
		return ErrInvalidSubject
	}

	dedupeKey := strings.TrimSpace(event.DedupeKey)
	if dedupeKey == "" {
		dedupeKey = eventType + ":" + o.genID.Generate().String()
	}

	payload := datatypes.JSONMap{}
	for key, value := range event.Payload {
		if key == "" {
			continue
		}
		payload[key] = value
	}

	return tx.WithContext(ctx).Exec(
		`INSERT INTO billing_events (
			id, subject_id, event_type, payload, dedupe_key, published, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (dedupe_key) DO NOTHING`,
		o.genID.Generate(),
		event.SubjectID,
		eventType,
		payload,
		dedupeKey,
		false,
		time.Now().UTC(),
	).Error
}

// Pending returns unpublished events in creation order for the dispatcher.
func (o *Outbox) Pending(ctx context.Context, db *gorm.DB, limit int) ([]BillingEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []BillingEvent
	err := db.WithContext(ctx).Raw(
		`SELECT id, subject_id, event_type, payload, dedupe_key, published, created_at, published_at
		 FROM billing_events
		 WHERE published = false
		 ORDER BY created_at ASC
		 LIMIT ?`,
		limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkPublished flags an event as handed off to downstream collaborators.
func (o *Outbox) MarkPublished(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE billing_events SET published = true, published_at = ? WHERE id = ?`,
		time.Now().UTC(),
		id,
	).Error
}

var Module = fx.Module("events",
	fx.Provide(NewOutbox),
)
