// Package events publishes domain events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/zfogg/plaza/internal/logger"
	"github.com/zfogg/plaza/internal/metrics"
	"go.uber.org/zap"
)

// Event types
const (
	UserRegistered = "user.registered"
	UserFollowed   = "user.followed"
	UserUnfollowed = "user.unfollowed"
	PostCreated    = "post.created"
	PostDeleted    = "post.deleted"
	PostLiked      = "post.liked"
	CommentAdded   = "comment.added"
	StoryCreated   = "story.created"
)

// Event is the envelope written to the topic. Key is used as the Kafka
// message key so events about one entity stay ordered.
type Event struct {
	Type       string            `json:"type"`
	Key        string            `json:"key"`
	ActorID    string            `json:"actor_id,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Publisher emits domain events. Publishing is best-effort: failures are
// logged and counted, never returned to the caller's operation.
type Publisher interface {
	Publish(ctx context.Context, evt Event)
	Close() error
}

// KafkaWriter defines a Kafka writer abstraction
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events as JSON to one topic
type KafkaPublisher struct {
	writer KafkaWriter
}

// NewKafkaWriter builds an async batching writer for topic
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Log.Sugar().Errorf("kafka: "+msg, args...)
		}),
	}
}

func NewKafkaPublisher(writer KafkaWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt Event) {
	if p.writer == nil {
		logger.Log.Warn("Kafka writer not configured, skipping publishing", zap.String("type", evt.Type))
		return
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}

	data, err := json.Marshal(evt)
	if err != nil {
		logger.Log.Error("Failed to marshal event", zap.String("type", evt.Type), zap.Error(err))
		metrics.Get().EventsPublishedTotal.WithLabelValues(evt.Type, "error").Inc()
		return
	}

	msg := kafka.Message{
		Key:   []byte(evt.Key),
		Value: data,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(evt.Type)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		logger.Log.Error("Failed to publish event to Kafka", zap.String("type", evt.Type), zap.String("key", evt.Key), zap.Error(err))
		metrics.Get().EventsPublishedTotal.WithLabelValues(evt.Type, "error").Inc()
		return
	}
	metrics.Get().EventsPublishedTotal.WithLabelValues(evt.Type, "ok").Inc()
}

func (p *KafkaPublisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// Noop discards events. Used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(ctx context.Context, evt Event) {}
func (Noop) Close() error                           { return nil }
