package service

import (
	"strconv"
	"testing"

	"crossbook/domain/command"
	"crossbook/domain/orderbook"
	"crossbook/infra/memory"
	entrywal "crossbook/infra/wal/entry"
)

type discardSink struct{}

func (discardSink) Trade(orderbook.Trade)       {}
func (discardSink) Snapshot(orderbook.Snapshot) {}

func benchCommands(n int) []command.Command {
	cmds := make([]command.Command, n)
	for i := range cmds {
		side := orderbook.Buy
		if i%2 == 1 {
			side = orderbook.Sell
		}
		cmds[i] = command.New{
			ID:       strconv.Itoa(i),
			Side:     side,
			Price:    int64(95 + i%10),
			Quantity: 1 + int64(i%5),
		}
	}
	return cmds
}

func BenchmarkApply_Core(b *testing.B) {
	pool := memory.NewPool(func() *orderbook.Order {
		return &orderbook.Order{}
	}, nil)
	p := NewProcessor(orderbook.NewOrderBook(orderbook.WithAllocator(pool)), discardSink{})
	cmds := benchCommands(b.N)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Apply(cmds[i])
	}
}

func BenchmarkApply_Journal(b *testing.B) {
	w, err := entrywal.Open(entrywal.Config{
		Dir:         b.TempDir(),
		SegmentSize: 64 << 20,
	})
	if err != nil {
		b.Fatal(err)
	}
	defer w.Close()

	p := NewProcessor(orderbook.NewOrderBook(), discardSink{}, WithJournal(NewCommandJournal(w)))
	cmds := benchCommands(b.N)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Apply(cmds[i])
	}
}
