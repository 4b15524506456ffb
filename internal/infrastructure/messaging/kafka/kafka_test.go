package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/infrastructure/monitoring/logging"
)

type mockWriter struct {
	WriteFunc func(ctx context.Context, msgs ...kafka.Message) error
	closed    bool
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	return m.WriteFunc(ctx, msgs...)
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

func TestPublishIndexRebuilt(t *testing.T) {
	var got kafka.Message
	w := &mockWriter{WriteFunc: func(_ context.Context, msgs ...kafka.Message) error {
		require.Len(t, msgs, 1)
		got = msgs[0]
		return nil
	}}
	p := &Producer{writer: w, logger: logging.NewNopLogger()}

	ev := IndexRebuiltEvent{Collection: "drug_records", RecordCount: 120, SkippedRows: 3}
	require.NoError(t, p.PublishIndexRebuilt(context.Background(), ev))

	assert.Equal(t, TopicIndexRebuilt, got.Topic)
	assert.Equal(t, []byte("drug_records"), got.Key)

	var decoded IndexRebuiltEvent
	require.NoError(t, json.Unmarshal(got.Value, &decoded))
	assert.Equal(t, 120, decoded.RecordCount)
	assert.Equal(t, 3, decoded.SkippedRows)
	assert.False(t, decoded.RebuiltAt.IsZero(), "timestamp stamped when absent")
}

func TestPublishAfterCloseRefused(t *testing.T) {
	w := &mockWriter{WriteFunc: func(_ context.Context, _ ...kafka.Message) error { return nil }}
	p := &Producer{writer: w, logger: logging.NewNopLogger()}

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
	err := p.PublishIndexRebuilt(context.Background(), IndexRebuiltEvent{Collection: "c"})
	assert.ErrorIs(t, err, ErrProducerClosed)
	assert.NoError(t, p.Close(), "close is idempotent")
}

type mockReader struct {
	messages  chan kafka.Message
	committed []kafka.Message
}

func (m *mockReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case msg := <-m.messages:
		return msg, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (m *mockReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	m.committed = append(m.committed, msgs...)
	return nil
}

func (m *mockReader) Close() error { return nil }

func eventMessage(t *testing.T, ev IndexRebuiltEvent) kafka.Message {
	t.Helper()
	value, err := json.Marshal(ev)
	require.NoError(t, err)
	return kafka.Message{Topic: TopicIndexRebuilt, Value: value}
}

func TestConsumerDispatchesEvents(t *testing.T) {
	reader := &mockReader{messages: make(chan kafka.Message, 2)}
	handled := make(chan IndexRebuiltEvent, 2)

	c := &Consumer{
		reader: reader,
		handler: func(_ context.Context, ev IndexRebuiltEvent) error {
			handled <- ev
			return nil
		},
		logger: logging.NewNopLogger(),
	}
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	reader.messages <- eventMessage(t, IndexRebuiltEvent{Collection: "drug_records", RecordCount: 7})

	select {
	case ev := <-handled:
		assert.Equal(t, "drug_records", ev.Collection)
		assert.Equal(t, 7, ev.RecordCount)
	case <-time.After(2 * time.Second):
		t.Fatal("event not dispatched")
	}
}

func TestConsumerSkipsUndecodableAndContinues(t *testing.T) {
	reader := &mockReader{messages: make(chan kafka.Message, 2)}
	handled := make(chan IndexRebuiltEvent, 1)

	c := &Consumer{
		reader: reader,
		handler: func(_ context.Context, ev IndexRebuiltEvent) error {
			handled <- ev
			return nil
		},
		logger: logging.NewNopLogger(),
	}
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	reader.messages <- kafka.Message{Topic: TopicIndexRebuilt, Value: []byte("{broken")}
	reader.messages <- eventMessage(t, IndexRebuiltEvent{Collection: "ok"})

	select {
	case ev := <-handled:
		assert.Equal(t, "ok", ev.Collection, "bad payload skipped, next event processed")
	case <-time.After(2 * time.Second):
		t.Fatal("consumer stalled on undecodable payload")
	}
}

func TestConsumerHandlerErrorDoesNotStall(t *testing.T) {
	reader := &mockReader{messages: make(chan kafka.Message, 2)}
	calls := make(chan string, 2)

	c := &Consumer{
		reader: reader,
		handler: func(_ context.Context, ev IndexRebuiltEvent) error {
			calls <- ev.Collection
			if ev.Collection == "bad" {
				return fmt.Errorf("invalidation failed")
			}
			return nil
		},
		logger: logging.NewNopLogger(),
	}
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	reader.messages <- eventMessage(t, IndexRebuiltEvent{Collection: "bad"})
	reader.messages <- eventMessage(t, IndexRebuiltEvent{Collection: "good"})

	for _, want := range []string{"bad", "good"} {
		select {
		case got := <-calls:
			assert.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("did not reach event %q", want)
		}
	}
}

func TestNewConsumerValidation(t *testing.T) {
	log := logging.NewNopLogger()
	handler := func(context.Context, IndexRebuiltEvent) error { return nil }

	_, err := NewConsumer(ConsumerConfig{GroupID: "g"}, handler, log)
	assert.Error(t, err, "brokers required")

	_, err = NewConsumer(ConsumerConfig{Brokers: []string{"localhost:9092"}}, handler, log)
	assert.Error(t, err, "group id required")

	_, err = NewConsumer(ConsumerConfig{Brokers: []string{"localhost:9092"}, GroupID: "g"}, nil, log)
	assert.Error(t, err, "handler required")
}
