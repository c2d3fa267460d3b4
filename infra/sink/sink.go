// Package sink provides the event sinks that sit behind the processor:
// fan-out, in-memory collection and the durable outbox adapter.
package sink

import (
	"sync"

	"crossbook/domain/orderbook"
	"crossbook/service"
)

// Multi forwards every event to each sink in order.
type Multi []service.Sink

func (m Multi) Trade(t orderbook.Trade) {
	for _, s := range m {
		s.Trade(t)
	}
}

func (m Multi) Snapshot(s orderbook.Snapshot) {
	for _, sk := range m {
		sk.Snapshot(s)
	}
}

// Collector keeps every event in memory.
type Collector struct {
	mu        sync.Mutex
	trades    []orderbook.Trade
	snapshots []orderbook.Snapshot
}

func (c *Collector) Trade(t orderbook.Trade) {
	c.mu.Lock()
	c.trades = append(c.trades, t)
	c.mu.Unlock()
}

func (c *Collector) Snapshot(s orderbook.Snapshot) {
	c.mu.Lock()
	c.snapshots = append(c.snapshots, s)
	c.mu.Unlock()
}

func (c *Collector) Trades() []orderbook.Trade {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]orderbook.Trade(nil), c.trades...)
}

func (c *Collector) Snapshots() []orderbook.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]orderbook.Snapshot(nil), c.snapshots...)
}

// Reset drops everything collected so far.
func (c *Collector) Reset() {
	c.mu.Lock()
	c.trades = nil
	c.snapshots = nil
	c.mu.Unlock()
}
