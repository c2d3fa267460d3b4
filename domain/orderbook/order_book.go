package orderbook

import (
	"iter"

	"github.com/cockroachdb/errors"
)

// Allocator supplies Order structs to the book and takes them back once
// they leave it. memory.Pool[Order] satisfies it.
type Allocator interface {
	Get() *Order
	Put(*Order)
}

type heapAllocator struct{}

func (heapAllocator) Get() *Order { return &Order{} }
func (heapAllocator) Put(*Order)  {}

// OrderBook keeps active orders in priority order: the head arrived (or was
// last re-ranked) first. It is single-writer and deterministic.
type OrderBook struct {
	head *Order
	tail *Order

	index map[string]*Order
	alloc Allocator
}

type Option func(*OrderBook)

// WithAllocator makes the book recycle orders through a.
func WithAllocator(a Allocator) Option {
	return func(b *OrderBook) {
		if a != nil {
			b.alloc = a
		}
	}
}

func NewOrderBook(opts ...Option) *OrderBook {
	b := &OrderBook{
		index: make(map[string]*Order),
		alloc: heapAllocator{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Insert admits a copy of o at the lowest priority position.
func (b *OrderBook) Insert(o Order) error {
	if o.Price <= 0 || o.Quantity <= 0 {
		return errors.Wrapf(ErrInvalidOrder, "insert %q price=%d qty=%d", o.ID, o.Price, o.Quantity)
	}
	if _, ok := b.index[o.ID]; ok {
		return errors.Wrapf(ErrDuplicateID, "insert %q", o.ID)
	}

	n := b.alloc.Get()
	*n = Order{
		ID:          o.ID,
		Side:        o.Side,
		TimeInForce: o.TimeInForce,
		Price:       o.Price,
		Quantity:    o.Quantity,
	}
	b.index[n.ID] = n
	b.append(n)
	return nil
}

// Modify amends side, price and quantity of a GFD order and moves it to the
// tail, so the order loses its time priority even if nothing changed.
func (b *OrderBook) Modify(id string, side Side, price, qty int64) error {
	o, ok := b.index[id]
	if !ok {
		return errors.Wrapf(ErrNotFound, "modify %q", id)
	}
	if o.TimeInForce == IOC {
		return errors.Wrapf(ErrImmutableOrder, "modify %q: time in force %s", id, o.TimeInForce)
	}
	if price <= 0 || qty <= 0 {
		return errors.Wrapf(ErrInvalidOrder, "modify %q price=%d qty=%d", id, price, qty)
	}

	o.Side = side
	o.Price = price
	o.Quantity = qty

	b.unlink(o)
	b.append(o)
	return nil
}

func (b *OrderBook) Cancel(id string) error {
	o, ok := b.index[id]
	if !ok {
		return errors.Wrapf(ErrNotFound, "cancel %q", id)
	}
	b.remove(o)
	return nil
}

func (b *OrderBook) FindByID(id string) (*Order, bool) {
	o, ok := b.index[id]
	return o, ok
}

// PositionOf returns the priority rank of id, 0 being the highest.
func (b *OrderBook) PositionOf(id string) (int, bool) {
	if _, ok := b.index[id]; !ok {
		return 0, false
	}
	rank := 0
	for o := b.head; o != nil; o = o.next {
		if o.ID == id {
			return rank, true
		}
		rank++
	}
	return 0, false
}

// ActiveOrders walks the book in priority order. The sequence can be ranged
// over any number of times; it must not be used across a mutation.
func (b *OrderBook) ActiveOrders() iter.Seq[*Order] {
	return func(yield func(*Order) bool) {
		for o := b.head; o != nil; o = o.next {
			if !yield(o) {
				return
			}
		}
	}
}

// BestBid returns the highest priced buy; among equal prices the one with
// the lowest rank wins. nil when there are no buys.
func (b *OrderBook) BestBid() *Order {
	var best *Order
	for o := range b.ActiveOrders() {
		if o.Side == Buy && (best == nil || o.Price > best.Price) {
			best = o
		}
	}
	return best
}

// BestAsk returns the lowest priced sell, ties broken by rank.
func (b *OrderBook) BestAsk() *Order {
	var best *Order
	for o := range b.ActiveOrders() {
		if o.Side == Sell && (best == nil || o.Price < best.Price) {
			best = o
		}
	}
	return best
}

func (b *OrderBook) Len() int {
	return len(b.index)
}

func (b *OrderBook) append(o *Order) {
	o.next = nil
	o.prev = b.tail
	if b.tail == nil {
		b.head = o
	} else {
		b.tail.next = o
	}
	b.tail = o
}

func (b *OrderBook) unlink(o *Order) {
	if o.prev == nil {
		b.head = o.next
	} else {
		o.prev.next = o.next
	}
	if o.next == nil {
		b.tail = o.prev
	} else {
		o.next.prev = o.prev
	}
	o.next = nil
	o.prev = nil
}

func (b *OrderBook) remove(o *Order) {
	b.unlink(o)
	delete(b.index, o.ID)
	b.alloc.Put(o)
}
