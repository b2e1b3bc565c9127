package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novasocial/nova-consistency/internal/model"
	"github.com/novasocial/nova-consistency/internal/repository"
)

type recordingRepo struct {
	inserted []model.OutboxEvent
}

func (r *recordingRepo) Insert(ctx context.Context, tx *sqlx.Tx, ev model.OutboxEvent) error {
	r.inserted = append(r.inserted, ev)
	return nil
}

func (r *recordingRepo) ClaimBatch(context.Context, int, int) (repository.OutboxClaim, error) {
	panic("not used")
}

func (r *recordingRepo) PendingStats(context.Context) (int64, time.Duration, error) {
	panic("not used")
}

func (r *recordingRepo) SweepPublished(context.Context, time.Time) (int64, error) {
	panic("not used")
}

func (r *recordingRepo) ReplaySince(context.Context, time.Time) (int64, error) {
	panic("not used")
}

func TestAppendRequiresTransaction(t *testing.T) {
	w := NewWriter(&recordingRepo{})

	_, err := w.Append(context.Background(), nil, "user", "42", "user.created", map[string]string{"name": "a"})
	assert.ErrorIs(t, err, ErrTransactionRequired)
}

func TestAppendValidatesFields(t *testing.T) {
	rec := &recordingRepo{}
	w := NewWriter(rec)
	tx := &sqlx.Tx{}

	cases := []struct {
		name                                  string
		aggregateType, aggregateID, eventType string
	}{
		{"missing aggregate type", "", "42", "user.created"},
		{"missing aggregate id", "user", "", "user.created"},
		{"missing event type", "user", "42", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := w.Append(context.Background(), tx, tc.aggregateType, tc.aggregateID, tc.eventType, nil)
			assert.Error(t, err)
		})
	}
	assert.Empty(t, rec.inserted)
}

func TestAppendInsertsEvent(t *testing.T) {
	rec := &recordingRepo{}
	w := NewWriter(rec)
	tx := &sqlx.Tx{}

	id, err := w.Append(context.Background(), tx, "user", "42", "user.created", map[string]string{"name": "a"})
	require.NoError(t, err)
	require.Len(t, rec.inserted, 1)

	ev := rec.inserted[0]
	assert.Equal(t, id, ev.ID)
	assert.Len(t, ev.ID, 26) // ULID
	assert.Equal(t, "user", ev.AggregateType)
	assert.Equal(t, "42", ev.AggregateID)
	assert.Equal(t, "user.created", ev.EventType)
	assert.JSONEq(t, `{"name":"a"}`, string(ev.Payload))
}

func TestAppendIDsAreOrdered(t *testing.T) {
	rec := &recordingRepo{}
	w := NewWriter(rec)
	tx := &sqlx.Tx{}

	first, err := w.Append(context.Background(), tx, "user", "1", "user.created", nil)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := w.Append(context.Background(), tx, "user", "1", "user.updated", nil)
	require.NoError(t, err)

	assert.Less(t, first, second)
}
