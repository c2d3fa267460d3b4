package sink

import (
	"go.uber.org/zap"

	"crossbook/domain/orderbook"
	"crossbook/infra/sequence"
	exitwal "crossbook/infra/wal/exit"
)

// Outbox stores every event in the exit WAL for the broadcaster to publish.
type Outbox struct {
	outbox *exitwal.Outbox
	seq    *sequence.Sequencer
	log    *zap.Logger
}

func NewOutbox(outbox *exitwal.Outbox, seq *sequence.Sequencer, log *zap.Logger) *Outbox {
	if log == nil {
		log = zap.NewNop()
	}
	return &Outbox{outbox: outbox, seq: seq, log: log}
}

func (o *Outbox) Trade(t orderbook.Trade) {
	o.put(TradeEvent(o.seq.Next(), t))
}

func (o *Outbox) Snapshot(s orderbook.Snapshot) {
	o.put(SnapshotEvent(o.seq.Next(), s))
}

func (o *Outbox) put(e Event) {
	b, err := e.Marshal()
	if err == nil {
		err = o.outbox.PutNew(e.Seq, b)
	}
	if err != nil {
		o.log.Error("outbox write failed",
			zap.Uint64("seq", e.Seq),
			zap.String("type", e.Type),
			zap.Error(err),
		)
	}
}
