package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-tracker-api/pkg/config"
)

// AttendanceMarked is emitted after a mark, correction or backfill commits.
type AttendanceMarked struct {
	UserID               string    `json:"user_id"`
	ClassroomID          string    `json:"classroom_id"`
	ClassID              string    `json:"class_id"`
	Date                 string    `json:"date"`
	Status               string    `json:"status"`
	Source               string    `json:"source"`
	AttendancePercentage float64   `json:"attendance_percentage"`
	CurrentStreak        *int      `json:"current_streak,omitempty"`
	OccurredAt           time.Time `json:"occurred_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes attendance events keyed by user so a consumer sees one user's events in order.
type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
	logger  *zap.Logger
}

// NewKafkaPublisher returns nil when no brokers are configured.
func NewKafkaPublisher(cfg config.KafkaConfig, logger *zap.Logger) *KafkaPublisher {
	if len(cfg.Brokers) == 0 {
		return nil
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		WriteTimeout: cfg.WriteTimeout,
	}
	return newKafkaPublisher(writer, cfg.WriteTimeout, logger)
}

func newKafkaPublisher(writer messageWriter, timeout time.Duration, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &KafkaPublisher{writer: writer, timeout: timeout, logger: logger.With(zap.String("component", "kafka-publisher"))}
}

// PublishAttendanceMarked writes one event. A nil publisher is a no-op.
func (p *KafkaPublisher) PublishAttendanceMarked(ctx context.Context, event AttendanceMarked) error {
	if p == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal attendance event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.UserID),
		Value: payload,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte("attendance.marked")},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write attendance event: %w", err)
	}
	p.logger.Debug("attendance event published", zap.String("user_id", event.UserID), zap.String("class_id", event.ClassID))
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
