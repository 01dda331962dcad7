// Package orchestrator implements C7: the three stage task entry
// points (Ingest, Transcribe, Summarize) and the Queue abstraction they
// hand off through. Grounded on internal/queue/queue.go's worker loop
// in the teacher repo, generalized from a single-stage DB-backed queue
// to a three-stage, filesystem-marker-backed pipeline.
package orchestrator

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/segmentio/kafka-go"

	"meetforge/pkg/logger"
)

// Task names the three enqueueable stage hand-offs.
type Task string

const (
	TaskTranscribe Task = "transcribe"
	TaskSummarize  Task = "summarize"
)

// Message is the payload carried across an enqueue/dequeue hop.
type Message struct {
	Task     Task   `json:"task"`
	JobID    string `json:"job_id"`
	JobDir   string `json:"job_dir"`
	Language string `json:"language,omitempty"`
	Prompt   string `json:"prompt,omitempty"`
}

// Queue is the broker-agnostic enqueue contract both the kafka-go- and
// in-memory-backed implementations satisfy.
type Queue interface {
	Enqueue(ctx context.Context, msg Message) error
}

// Consumer additionally supports draining messages, used by the worker
// entry point (cmd/worker) to dispatch to the stage task functions.
type Consumer interface {
	Queue
	Consume(ctx context.Context) (Message, error)
}

// KafkaQueue is a Queue/Consumer backed by a single kafka-go topic.
type KafkaQueue struct {
	writer *kafka.Writer
	reader *kafka.Reader
}

func NewKafkaQueue(brokerURL, topic string) *KafkaQueue {
	return &KafkaQueue{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokerURL),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: []string{brokerURL},
			Topic:   topic,
			GroupID: "meetforge-workers",
		}),
	}
}

func (q *KafkaQueue) Enqueue(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	logger.Info("enqueueing stage task", "task", msg.Task, "job_id", msg.JobID)
	return q.writer.WriteMessages(ctx, kafka.Message{Key: []byte(msg.JobID), Value: payload})
}

func (q *KafkaQueue) Consume(ctx context.Context) (Message, error) {
	kmsg, err := q.reader.ReadMessage(ctx)
	if err != nil {
		return Message{}, err
	}
	var msg Message
	if err := json.Unmarshal(kmsg.Value, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}

func (q *KafkaQueue) Close() error {
	writerErr := q.writer.Close()
	readerErr := q.reader.Close()
	if writerErr != nil {
		return writerErr
	}
	return readerErr
}

// InMemoryQueue is a single-process Queue/Consumer for tests and
// dev-mode operation without a broker.
type InMemoryQueue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	messages []Message
	closed   bool
}

func NewInMemoryQueue() *InMemoryQueue {
	q := &InMemoryQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *InMemoryQueue) Enqueue(ctx context.Context, msg Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = append(q.messages, msg)
	q.cond.Signal()
	return nil
}

func (q *InMemoryQueue) Consume(ctx context.Context) (Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.messages) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.messages) == 0 {
		return Message{}, context.Canceled
	}
	msg := q.messages[0]
	q.messages = q.messages[1:]
	return msg, nil
}

// Close unblocks any waiting Consume call.
func (q *InMemoryQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
