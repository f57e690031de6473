package events

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/medisync/medledger/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newOutbox(t *testing.T) (*Outbox, *gorm.DB, *snowflake.Node) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&BillingEvent{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewOutbox(Params{Log: zap.NewNop(), GenID: node}), conn, node
}

func TestPublishTxDedupes(t *testing.T) {
	outbox, conn, node := newOutbox(t)
	subjectID := node.Generate()

	event := Event{
		SubjectID: subjectID,
		Type:      EventChargeCreated,
		DedupeKey: EventChargeCreated + ":42",
		Payload:   map[string]any{"amount_cents": int64(5000)},
	}
	require.NoError(t, outbox.PublishTx(context.Background(), conn, event))
	// Replay with the same dedupe key is dropped, not an error.
	require.NoError(t, outbox.PublishTx(context.Background(), conn, event))

	var count int64
	require.NoError(t, conn.Model(&BillingEvent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestPublishTxValidation(t *testing.T) {
	outbox, conn, node := newOutbox(t)

	err := outbox.PublishTx(context.Background(), conn, Event{SubjectID: node.Generate()})
	assert.ErrorIs(t, err, ErrInvalidEventType)

	err = outbox.PublishTx(context.Background(), conn, Event{Type: EventChargeCreated})
	assert.ErrorIs(t, err, ErrInvalidSubject)
}

func TestPendingAndMarkPublished(t *testing.T) {
	outbox, conn, node := newOutbox(t)
	subjectID := node.Generate()

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, outbox.PublishTx(context.Background(), conn, Event{
			SubjectID: subjectID,
			Type:      EventPaymentPosted,
			DedupeKey: EventPaymentPosted + ":" + key,
		}))
	}

	pending, err := outbox.Pending(context.Background(), conn, 10)
	require.NoError(t, err)
	require.Len(t, pending, 3)

	require.NoError(t, outbox.MarkPublished(context.Background(), conn, pending[0].ID))

	remaining, err := outbox.Pending(context.Background(), conn, 10)
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}
