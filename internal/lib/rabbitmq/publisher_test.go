package rabbitmq

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type ChannelMock struct{ mock.Mock }

func (m *ChannelMock) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return m.Called(exchange, key, mandatory, immediate, msg).Error(0)
}

func TestPublishMessage(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ch := new(ChannelMock)
	ch.On("Publish", "kuitter.events", "profile.updated", false, false,
		mock.MatchedBy(func(msg amqp.Publishing) bool {
			var got map[string]any
			if err := json.Unmarshal(msg.Body, &got); err != nil {
				return false
			}
			return msg.MessageId == "id-1" && msg.Timestamp.Equal(ts) &&
				msg.DeliveryMode == amqp.Persistent && got["ok"] == true
		})).Return(nil).Once()

	err := PublishMessage(ch, "kuitter.events", "profile.updated", "id-1", ts, map[string]any{"ok": true})
	require.NoError(t, err)
	ch.AssertExpectations(t)
}

func TestPublishMessage_Errors(t *testing.T) {
	t.Run("marshal error", func(t *testing.T) {
		badMsg := struct {
			Ch chan int `json:"ch"`
		}{Ch: make(chan int)}

		err := PublishMessage(new(ChannelMock), "", "q", "id", time.Now(), badMsg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rabbitmq.PublishMessage")
	})

	t.Run("channel error", func(t *testing.T) {
		ch := new(ChannelMock)
		ch.On("Publish", mock.Anything, mock.Anything, false, false, mock.Anything).Return(errors.New("channel closed")).Once()
		err := PublishMessage(ch, "x", "y", "id", time.Now(), 1)
		assert.ErrorContains(t, err, "channel closed")
	})
}

func TestEventQueues(t *testing.T) {
	queues := EventQueues()
	require.NotEmpty(t, queues)

	seen := map[string]bool{}
	for _, q := range queues {
		assert.NotEmpty(t, q.RoutingKey)
		assert.Falsef(t, seen[q.QueueName], "duplicate queue name: %s", q.QueueName)
		seen[q.QueueName] = true
	}
}
