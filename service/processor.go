package service

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"crossbook/domain/command"
	"crossbook/domain/orderbook"
	"crossbook/infra/metrics"
)

// Sink receives everything the processor emits. Implementations must not
// call back into the processor.
type Sink interface {
	Trade(orderbook.Trade)
	Snapshot(orderbook.Snapshot)
}

// Journal records a command before it is applied.
type Journal interface {
	Record(command.Command) error
}

/*
Processor is the ONLY write entry point into the book.

It is not safe for concurrent use; hosts with several producers feed
commands through Run, whose channel is the single ordering point.
*/
type Processor struct {
	book    *orderbook.OrderBook
	sink    Sink
	journal Journal
	log     *zap.Logger
	metrics *metrics.Metrics
}

type Option func(*Processor)

func WithLogger(l *zap.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.log = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

// WithJournal records every command before it touches the book.
func WithJournal(j Journal) Option {
	return func(p *Processor) { p.journal = j }
}

func NewProcessor(book *orderbook.OrderBook, sink Sink, opts ...Option) *Processor {
	p := &Processor{
		book: book,
		sink: sink,
		log:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Apply runs one full command cycle. Rejected commands are no-ops; nothing
// is reported back to the caller.
func (p *Processor) Apply(cmd command.Command) {
	if cmd == nil {
		return
	}
	p.metrics.Command(cmd.Kind().String())

	if p.journal != nil {
		if err := p.journal.Record(cmd); err != nil {
			p.log.Warn("journal append failed", zap.Stringer("kind", cmd.Kind()), zap.Error(err))
		}
	}

	var (
		err      error
		ioc      string
		snapshot bool
	)

	switch c := cmd.(type) {
	case command.New:
		err = p.book.Insert(c.Order())
		if err == nil && c.TimeInForce == orderbook.IOC {
			ioc = c.ID
		}
	case command.Modify:
		err = p.book.Modify(c.ID, c.Side, c.Price, c.Quantity)
	case command.Cancel:
		err = p.book.Cancel(c.ID)
	case command.Print:
		snapshot = true
	default:
		p.log.Debug("ignoring unrecognized command", zap.Stringer("kind", cmd.Kind()))
	}
	if err != nil {
		p.reject(cmd, err)
	}

	p.book.Match(p.trade)

	// An IOC order gets exactly one cycle, evaluated after matching settles.
	if ioc != "" {
		if o, ok := p.book.FindByID(ioc); ok {
			remaining := o.Quantity
			if err := p.book.Cancel(ioc); err != nil {
				panic(errors.NewAssertionErrorWithWrappedErrf(err, "service: expiring resting IOC order %q", ioc))
			}
			p.metrics.IOCExpired()
			p.log.Debug("ioc order expired", zap.String("id", ioc), zap.Int64("remaining", remaining))
		}
	}

	p.observeBook()

	if snapshot {
		p.sink.Snapshot(orderbook.Levels(p.book))
	}
}

// Run applies commands from cmds in arrival order until the channel is
// closed or ctx is done. On cancellation, commands already queued in cmds
// are applied before Run returns.
func (p *Processor) Run(ctx context.Context, cmds <-chan command.Command) error {
	for {
		select {
		case <-ctx.Done():
			p.drain(cmds)
			return ctx.Err()
		case cmd, ok := <-cmds:
			if !ok {
				return nil
			}
			p.Apply(cmd)
		}
	}
}

func (p *Processor) drain(cmds <-chan command.Command) {
	for {
		select {
		case cmd, ok := <-cmds:
			if !ok {
				return
			}
			p.Apply(cmd)
		default:
			return
		}
	}
}

func (p *Processor) trade(t orderbook.Trade) {
	p.metrics.Trade(t.First.Quantity)
	p.sink.Trade(t)
}

func (p *Processor) reject(cmd command.Command, err error) {
	reason := rejectReason(err)
	p.metrics.Rejected(reason)
	p.log.Debug("command rejected",
		zap.Stringer("kind", cmd.Kind()),
		zap.String("reason", reason),
		zap.Error(err),
	)
}

func (p *Processor) observeBook() {
	if p.metrics == nil {
		return
	}
	var buys, sells int
	for o := range p.book.ActiveOrders() {
		if o.Side == orderbook.Buy {
			buys++
		} else {
			sells++
		}
	}
	p.metrics.Resting(buys, sells)
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, orderbook.ErrInvalidOrder):
		return "invalid_order"
	case errors.Is(err, orderbook.ErrDuplicateID):
		return "duplicate_id"
	case errors.Is(err, orderbook.ErrNotFound):
		return "not_found"
	case errors.Is(err, orderbook.ErrImmutableOrder):
		return "immutable_order"
	default:
		return "other"
	}
}
