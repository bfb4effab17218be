// internal/messaging/memory.go
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryBus is an in-process message log with one partition per topic.
// Every stream opened on a topic reads it from the beginning.
type MemoryBus struct {
	mu     sync.Mutex
	topics map[string]*memoryTopic
}

type memoryTopic struct {
	msgs   []Message
	notify chan struct{}
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{topics: make(map[string]*memoryTopic)}
}

func (b *MemoryBus) topic(name string) *memoryTopic {
	t, ok := b.topics[name]
	if !ok {
		t = &memoryTopic{notify: make(chan struct{})}
		b.topics[name] = t
	}
	return t
}

// Publish appends a raw message to topic.
func (b *MemoryBus) Publish(ctx context.Context, topic string, key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.topic(topic)
	t.msgs = append(t.msgs, Message{
		Topic:  topic,
		Offset: int64(len(t.msgs)),
		Key:    key,
		Value:  value,
	})
	close(t.notify)
	t.notify = make(chan struct{})
	return nil
}

// PublishJSON encodes v and appends it to topic.
func (b *MemoryBus) PublishJSON(ctx context.Context, topic, key string, v any) error {
	value, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return b.Publish(ctx, topic, []byte(key), value)
}

// PublishGame makes the bus usable as the command side's Publisher.
func (b *MemoryBus) PublishGame(ctx context.Context, snapshot GameSnapshot) error {
	return b.PublishJSON(ctx, TopicGameSnapshots, snapshot.ID.String(), snapshot)
}

// Len returns the number of messages published to topic.
func (b *MemoryBus) Len(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.topic(topic).msgs)
}

// Stream opens a reader positioned at the start of topic.
func (b *MemoryBus) Stream(topic string) *MemoryStream {
	return &MemoryStream{bus: b, topic: topic}
}

type MemoryStream struct {
	bus       *MemoryBus
	topic     string
	mu        sync.Mutex
	cursor    int
	committed int64
}

func (s *MemoryStream) Fetch(ctx context.Context) (Message, error) {
	for {
		s.bus.mu.Lock()
		t := s.bus.topic(s.topic)
		s.mu.Lock()
		if s.cursor < len(t.msgs) {
			msg := t.msgs[s.cursor]
			s.cursor++
			s.mu.Unlock()
			s.bus.mu.Unlock()
			return msg, nil
		}
		s.mu.Unlock()
		wait := t.notify
		s.bus.mu.Unlock()

		select {
		case <-ctx.Done():
			return Message{}, ctx.Err()
		case <-wait:
		}
	}
}

func (s *MemoryStream) Commit(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.Offset+1 > s.committed {
		s.committed = msg.Offset + 1
	}
	return nil
}

// Committed returns the offset the next restart would resume from.
func (s *MemoryStream) Committed() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed
}

// Rewind moves the read position back to the committed offset, the way a
// consumer group member resumes after a restart.
func (s *MemoryStream) Rewind() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = int(s.committed)
}

func (s *MemoryStream) Close() error { return nil }
