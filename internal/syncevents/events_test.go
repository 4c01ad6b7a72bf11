package syncevents

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed int
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("expected a deadline on emit")
	}
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed++
	return nil
}

func TestNewEvent(t *testing.T) {
	at := time.Date(2024, 1, 2, 9, 0, 0, 0, time.FixedZone("IST", 19800))

	ok := NewEvent("run-1", "D1", "10.0.0.5", at, "", false)
	failed := NewEvent("run-1", "D2", "", at, "Error syncing attendance for device D2: timeout", true)

	assert.Equal(t, TypeDeviceSynced, ok.Type)
	assert.Equal(t, TypeDeviceSyncFailed, failed.Type)
	assert.NotEmpty(t, ok.ID)
	assert.NotEqual(t, ok.ID, failed.ID)
	assert.Equal(t, time.UTC, ok.OccurredAt.Location())
	assert.True(t, ok.OccurredAt.Equal(at))
}

func TestKafkaProducer_EmitWritesJSONKeyedByDevice(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaProducer{writer: w, topic: "biosync-sync-events", log: zerolog.Nop()}
	ev := NewEvent("run-1", "D1", "10.0.0.5", time.Now(), "", false)

	require.NoError(t, p.Emit(context.Background(), ev))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("D1"), w.msgs[0].Key)
	var decoded Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, ev.ID, decoded.ID)
	assert.Equal(t, "device_synced", decoded.Type)
}

func TestKafkaProducer_EmitReturnsWriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := &KafkaProducer{writer: w, topic: "t", log: zerolog.Nop()}

	err := p.Emit(context.Background(), NewEvent("r", "D1", "", time.Now(), "", false))

	assert.EqualError(t, err, "broker down")
}

func TestNewKafkaProducer_NilWithoutBrokers(t *testing.T) {
	assert.Nil(t, NewKafkaProducer(nil, "topic", zerolog.Nop()))
	assert.Nil(t, NewKafkaProducer([]string{"localhost:9092"}, "", zerolog.Nop()))
	assert.IsType(t, Nop{}, FromBrokers(nil, "topic", zerolog.Nop()))
	assert.IsType(t, &KafkaProducer{}, FromBrokers([]string{"localhost:9092"}, "topic", zerolog.Nop()))
}

func TestNilProducerIsSafe(t *testing.T) {
	var p *KafkaProducer
	assert.NoError(t, p.Emit(context.Background(), Event{}))
	assert.NoError(t, p.Close())
}
