package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/novasocial/nova-consistency/internal/model"
)

func TestDispatchOrderCatchAllFirst(t *testing.T) {
	reg := NewRegistry()

	var order []string
	reg.On("user.created", func(ctx context.Context, env model.Envelope) error {
		order = append(order, "typed")
		return nil
	})
	reg.OnAny(func(ctx context.Context, env model.Envelope) error {
		order = append(order, "any")
		return nil
	})

	err := reg.Dispatch(context.Background(), model.Envelope{EventID: "e", EventType: "user.created"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"any", "typed"}, order)
}

func TestDispatchUnknownTypeRunsOnlyCatchAll(t *testing.T) {
	reg := NewRegistry()

	calls := 0
	reg.OnAny(func(ctx context.Context, env model.Envelope) error {
		calls++
		return nil
	})
	reg.On("user.created", func(ctx context.Context, env model.Envelope) error {
		t.Fatal("typed handler must not run")
		return nil
	})

	err := reg.Dispatch(context.Background(), model.Envelope{EventID: "e", EventType: "content.liked"})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDispatchFirstErrorAborts(t *testing.T) {
	reg := NewRegistry()
	boom := errors.New("boom")

	reg.OnAny(func(ctx context.Context, env model.Envelope) error { return boom })
	reg.On("user.created", func(ctx context.Context, env model.Envelope) error {
		t.Fatal("must not run after an earlier handler failed")
		return nil
	})

	err := reg.Dispatch(context.Background(), model.Envelope{EventID: "e", EventType: "user.created"})
	assert.ErrorIs(t, err, boom)
}
