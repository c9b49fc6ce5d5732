package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"todo-service/internal/entity"
)

const (
	TaskCreated = "created"
	TaskUpdated = "updated"
	TaskDeleted = "deleted"
)

// Publisher announces task lifecycle changes.
type Publisher interface {
	PublishTask(ctx context.Context, event string, task *entity.Task) error
}

// MessageWriter is the subset of *kafka.Writer used here.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type KafkaPublisher struct {
	writer MessageWriter
}

func NewKafkaPublisher(writer MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) PublishTask(ctx context.Context, event string, task *entity.Task) error {
	taskJSON, err := json.Marshal(task)
	if err != nil {
		return err
	}

	// task-created-1 or task-deleted-1
	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("task-%s-%d", event, task.ID)),
		Value: taskJSON,
		Headers: []kafka.Header{
			{Key: "user-id", Value: []byte(fmt.Sprint(task.UserID))},
		},
	}

	return p.writer.WriteMessages(ctx, msg)
}

// Nop drops every event. Used when no brokers are configured.
type Nop struct{}

func (Nop) PublishTask(context.Context, string, *entity.Task) error { return nil }
