package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeReader serves queued messages and then blocks until ctx ends.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) commits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

func encode(t *testing.T, e Event) kafka.Message {
	value, err := json.Marshal(e)
	require.NoError(t, err)
	return kafka.Message{Key: []byte(e.EntityID.String()), Value: value}
}

func TestConsumer(t *testing.T) {
	good := NewEvent(UserRegistered, uuid.New(), uuid.Nil, nil)
	failing := NewEvent(JobClosed, uuid.New(), uuid.New(), nil)
	reader := &fakeReader{queue: []kafka.Message{
		encode(t, good),
		{Value: []byte("not json")},
		encode(t, failing),
	}}

	consumer := newConsumer(reader, zaptest.NewLogger(t))
	var handled []EventType
	var mu sync.Mutex
	consumer.RegisterHandler(func(_ context.Context, e Event) error {
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, e.Type)
		if e.Type == JobClosed {
			return errors.New("handler failed")
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	consumer.Start(ctx)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(handled) == 2
	}, time.Second, 10*time.Millisecond)
	cancel()
	<-consumer.Done()

	assert.Equal(t, []EventType{UserRegistered, JobClosed}, handled)
	assert.Equal(t, 2, reader.commits(), "valid and undecodable messages are committed, failed ones are not")
}
