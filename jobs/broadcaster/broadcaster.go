package broadcaster

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	exitwal "crossbook/infra/wal/exit"
)

// Broadcaster publishes outbox events to Kafka and records the outcome
// back in the outbox, so every event is delivered at least once.
type Broadcaster struct {
	outbox     *exitwal.Outbox
	producer   sarama.SyncProducer
	topic      string
	interval   time.Duration
	maxRetries uint32
	log        *zap.Logger
}

type Config struct {
	Brokers  []string
	Topic    string
	Interval time.Duration
	// MaxRetries caps redelivery of FAILED events; 0 retries forever.
	MaxRetries uint32
}

func New(outbox *exitwal.Outbox, cfg Config, log *zap.Logger) (*Broadcaster, error) {
	sc := sarama.NewConfig()
	sc.Producer.Return.Successes = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, errors.Wrap(err, "broadcaster: new producer")
	}
	return NewWithProducer(outbox, producer, cfg, log), nil
}

func NewWithProducer(outbox *exitwal.Outbox, producer sarama.SyncProducer, cfg Config, log *zap.Logger) *Broadcaster {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 250 * time.Millisecond
	}
	return &Broadcaster{
		outbox:     outbox,
		producer:   producer,
		topic:      cfg.Topic,
		interval:   cfg.Interval,
		maxRetries: cfg.MaxRetries,
		log:        log,
	}
}

// Run drains the outbox every interval until ctx is done, then makes one
// last pass so events emitted before shutdown are not left behind.
func (b *Broadcaster) Run(ctx context.Context) {
	b.log.Info("broadcaster started", zap.String("topic", b.topic), zap.Duration("interval", b.interval))

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if _, err := b.DrainOnce(); err != nil {
				b.log.Warn("final drain failed", zap.Error(err))
			}
			b.log.Info("broadcaster stopped")
			return
		case <-ticker.C:
			acked, err := b.DrainOnce()
			if err != nil {
				b.log.Warn("drain failed", zap.Error(err))
			}
			if acked > 0 {
				b.prune()
			}
		}
	}
}

// DrainOnce republishes events left SENT by an interrupted pass, retries
// FAILED events, then publishes NEW ones, each in sequence order. An event
// that fails in this pass waits for the next one. It returns the number of
// events acknowledged.
//
// A SENT event may already have reached Kafka; consumers deduplicate on the
// sequence key.
func (b *Broadcaster) DrainOnce() (int, error) {
	acked := 0
	publish := func(rec exitwal.Record) error {
		if rec.State == exitwal.StateFailed && b.maxRetries > 0 && rec.Retries >= b.maxRetries {
			return nil
		}
		ok, err := b.publish(rec)
		if ok {
			acked++
		}
		return err
	}

	if err := b.outbox.ScanByState(exitwal.StateSent, publish); err != nil {
		return acked, err
	}
	if err := b.outbox.ScanByState(exitwal.StateFailed, publish); err != nil {
		return acked, err
	}
	if err := b.outbox.ScanByState(exitwal.StateNew, publish); err != nil {
		return acked, err
	}
	return acked, nil
}

// prune drops acknowledged events; the outbox only needs undelivered ones.
func (b *Broadcaster) prune() {
	n, err := b.outbox.DeleteAckedUpTo(math.MaxUint64)
	if err != nil {
		b.log.Warn("outbox prune failed", zap.Error(err))
		return
	}
	b.log.Debug("outbox pruned", zap.Int("deleted", n))
}

func (b *Broadcaster) publish(rec exitwal.Record) (bool, error) {
	if err := b.outbox.MarkSent(rec.Seq); err != nil {
		return false, err
	}

	_, _, err := b.producer.SendMessage(&sarama.ProducerMessage{
		Topic: b.topic,
		Key:   sarama.StringEncoder(strconv.FormatUint(rec.Seq, 10)),
		Value: sarama.ByteEncoder(rec.Payload),
	})
	if err != nil {
		b.log.Warn("publish failed, will retry",
			zap.Uint64("seq", rec.Seq),
			zap.Uint32("retries", rec.Retries),
			zap.Error(err),
		)
		return false, b.outbox.MarkFailed(rec.Seq)
	}

	return true, b.outbox.MarkAcked(rec.Seq)
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
