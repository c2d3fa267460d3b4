package kafka

import (
	"context"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"crossbook/domain/orderbook"
	"crossbook/infra/sequence"
	"crossbook/infra/sink"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Sink publishes events straight to a topic, one synchronous write per
// event. Failed writes are logged and dropped; use the outbox for
// at-least-once delivery.
type Sink struct {
	writer  messageWriter
	seq     *sequence.Sequencer
	timeout time.Duration
	log     *zap.Logger
}

func NewSink(brokers []string, topic string, log *zap.Logger) *Sink {
	return newSink(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
	}, log)
}

func newSink(w messageWriter, log *zap.Logger) *Sink {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sink{
		writer:  w,
		seq:     sequence.New(0),
		timeout: 5 * time.Second,
		log:     log,
	}
}

func (s *Sink) Trade(t orderbook.Trade) {
	s.publish(sink.TradeEvent(s.seq.Next(), t))
}

func (s *Sink) Snapshot(snap orderbook.Snapshot) {
	s.publish(sink.SnapshotEvent(s.seq.Next(), snap))
}

func (s *Sink) publish(e sink.Event) {
	value, err := e.Marshal()
	if err != nil {
		s.log.Error("encode event", zap.Uint64("seq", e.Seq), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(e.Seq, 10)),
		Value: value,
	})
	if err != nil {
		s.log.Warn("kafka publish failed",
			zap.Uint64("seq", e.Seq),
			zap.String("type", e.Type),
			zap.Error(err),
		)
	}
}

func (s *Sink) Close() error {
	return s.writer.Close()
}
