package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"crossbook/domain/orderbook"
	"crossbook/infra/sink"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestSinkPublishesEnvelopes(t *testing.T) {
	w := &fakeWriter{}
	s := newSink(w, nil)

	s.Trade(orderbook.Trade{
		First:  orderbook.Fill{ID: "a", Price: 10, Quantity: 1},
		Second: orderbook.Fill{ID: "b", Price: 9, Quantity: 1},
	})
	s.Snapshot(orderbook.Snapshot{})
	require.NoError(t, s.Close())

	require.Len(t, w.msgs, 2)
	assert.Equal(t, "1", string(w.msgs[0].Key))
	assert.Equal(t, "2", string(w.msgs[1].Key))

	e, err := sink.DecodeEvent(w.msgs[0].Value)
	require.NoError(t, err)
	assert.Equal(t, sink.TypeTrade, e.Type)
	assert.Equal(t, "a", e.Trade.First.ID)
	assert.True(t, w.closed)
}

func TestSinkLogsFailedWrites(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	s := newSink(&fakeWriter{err: errors.New("broker down")}, zap.New(core))

	s.Snapshot(orderbook.Snapshot{})

	require.Equal(t, 1, logs.FilterMessage("kafka publish failed").Len())
}
