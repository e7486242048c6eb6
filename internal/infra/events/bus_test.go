package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type testEvent struct {
	BaseEvent
}

func newTestEvent(eventType string) testEvent {
	return testEvent{BaseEvent: NewBaseEvent(eventType, "acct-1", time.Now())}
}

func TestBus_Publish(t *testing.T) {
	t.Run("dispatches to handlers in registration order", func(t *testing.T) {
		bus := NewBus(zap.NewNop())
		var calls []string

		bus.Register(NewHandlerFunc([]string{"A"}, func(ctx context.Context, e Event) error {
			calls = append(calls, "first")
			return nil
		}))
		bus.Register(NewHandlerFunc([]string{"A"}, func(ctx context.Context, e Event) error {
			calls = append(calls, "second")
			return nil
		}))

		bus.Publish(context.Background(), newTestEvent("A"))

		assert.Equal(t, []string{"first", "second"}, calls)
	})

	t.Run("failing handler does not stop others", func(t *testing.T) {
		bus := NewBus(zap.NewNop())
		called := false

		bus.Register(NewHandlerFunc([]string{"A"}, func(ctx context.Context, e Event) error {
			return errors.New("boom")
		}))
		bus.Register(NewHandlerFunc([]string{"A"}, func(ctx context.Context, e Event) error {
			called = true
			return nil
		}))

		bus.Publish(context.Background(), newTestEvent("A"))

		assert.True(t, called)
	})

	t.Run("ignores events without handlers", func(t *testing.T) {
		bus := NewBus(zap.NewNop())
		called := false
		bus.Register(NewHandlerFunc([]string{"A"}, func(ctx context.Context, e Event) error {
			called = true
			return nil
		}))

		bus.Publish(context.Background(), newTestEvent("B"))

		assert.False(t, called)
	})

	t.Run("handler sees account id", func(t *testing.T) {
		bus := NewBus(zap.NewNop())
		var seen string
		bus.Register(NewHandlerFunc([]string{"A", "B"}, func(ctx context.Context, e Event) error {
			seen = e.AccountID()
			return nil
		}))

		bus.Publish(context.Background(), newTestEvent("B"))

		assert.Equal(t, "acct-1", seen)
	})
}
