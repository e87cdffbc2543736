package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishWritesKeyedJSON(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisher(w)

	p.Publish(context.Background(), Event{
		Type:       UserFollowed,
		Key:        "user-b",
		ActorID:    "user-a",
		Attributes: map[string]string{"followee_id": "user-b"},
	})

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "user-b", string(w.msgs[0].Key))
	assert.Equal(t, UserFollowed, string(w.msgs[0].Headers[0].Value))

	var evt Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &evt))
	assert.Equal(t, "user-a", evt.ActorID)
	assert.False(t, evt.OccurredAt.IsZero())
}

func TestPublishSwallowsWriterErrors(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := NewKafkaPublisher(w)

	assert.NotPanics(t, func() {
		p.Publish(context.Background(), Event{Type: PostCreated, Key: "p1"})
	})
	assert.Empty(t, w.msgs)
}

func TestNilWriterSkips(t *testing.T) {
	p := NewKafkaPublisher(nil)
	p.Publish(context.Background(), Event{Type: PostCreated})
	assert.NoError(t, p.Close())
}

func TestClose(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, NewKafkaPublisher(w).Close())
	assert.True(t, w.closed)
}
