package event_bus

import (
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testPayload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestSessionEventBus(t *testing.T) {
	t.Run("delivers published payloads to subscribers", func(t *testing.T) {
		bus := NewSessionEventBus[testPayload, testPayload](EventBus.New(), zap.NewNop())
		received := make(chan testPayload, 1)
		require.NoError(t, bus.Subscribe("test_topic", func(input testPayload) error {
			received <- input
			return nil
		}, false))

		require.NoError(t, bus.Publish("test_topic", testPayload{Name: "batch", Count: 3}))

		select {
		case got := <-received:
			assert.Equal(t, testPayload{Name: "batch", Count: 3}, got)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for payload")
		}
	})

	t.Run("subscribers on other topics stay silent", func(t *testing.T) {
		bus := NewSessionEventBus[testPayload, testPayload](EventBus.New(), zap.NewNop())
		received := make(chan testPayload, 1)
		require.NoError(t, bus.Subscribe("other_topic", func(input testPayload) error {
			received <- input
			return nil
		}, false))

		require.NoError(t, bus.Publish("test_topic", testPayload{Name: "batch"}))

		select {
		case <-received:
			t.Fatal("unexpected delivery on unrelated topic")
		case <-time.After(100 * time.Millisecond):
		}
	})

	t.Run("handler errors do not break the subscription", func(t *testing.T) {
		bus := NewSessionEventBus[testPayload, testPayload](EventBus.New(), zap.NewNop())
		received := make(chan testPayload, 2)
		calls := 0
		require.NoError(t, bus.Subscribe("test_topic", func(input testPayload) error {
			calls++
			if calls == 1 {
				return assert.AnError
			}
			received <- input
			return nil
		}, true))

		require.NoError(t, bus.Publish("test_topic", testPayload{Count: 1}))
		require.NoError(t, bus.Publish("test_topic", testPayload{Count: 2}))

		select {
		case got := <-received:
			assert.Equal(t, 2, got.Count)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for second payload")
		}
	})
}
