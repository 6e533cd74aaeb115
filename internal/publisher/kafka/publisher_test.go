package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
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
	t.Parallel()

	w := &fakeWriter{}
	p := newWithWriter(w, "global")

	id, err := p.Publish(context.Background(), "ignored", map[string]any{"type": "progress.reset"})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.Len(t, w.msgs, 1)
	require.Equal(t, []byte("global"), w.msgs[0].Key)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	require.Equal(t, "progress.reset", decoded["type"])

	require.NoError(t, p.Close(context.Background()))
	require.True(t, w.closed)
}

func TestPublishWrapsWriterError(t *testing.T) {
	t.Parallel()

	boom := errors.New("leader not available")
	p := newWithWriter(&fakeWriter{err: boom}, "global")

	_, err := p.Publish(context.Background(), "", "x")
	require.ErrorIs(t, err, boom)
}

func TestPublishRejectsUnmarshalablePayload(t *testing.T) {
	t.Parallel()

	p := newWithWriter(&fakeWriter{}, "global")
	_, err := p.Publish(context.Background(), "", make(chan int))
	require.Error(t, err)
}

func TestNewValidatesConfig(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Topic: "t"})
	require.Error(t, err)
	_, err = New(Config{Brokers: []string{"localhost:9092"}})
	require.Error(t, err)

	p, err := New(Config{Brokers: []string{"localhost:9092"}, Topic: "t", Key: "global"})
	require.NoError(t, err)
	require.NoError(t, p.Close(context.Background()))
}
