package orderbook

import (
	"slices"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gfd(id string, side Side, price, qty int64) Order {
	return Order{ID: id, Side: side, TimeInForce: GFD, Price: price, Quantity: qty}
}

func ids(b *OrderBook) []string {
	var out []string
	for o := range b.ActiveOrders() {
		out = append(out, o.ID)
	}
	return out
}

func TestInsertAppendsAtTail(t *testing.T) {
	b := NewOrderBook()
	require.NoError(t, b.Insert(gfd("a", Buy, 100, 1)))
	require.NoError(t, b.Insert(gfd("b", Sell, 200, 1)))
	require.NoError(t, b.Insert(gfd("c", Buy, 90, 1)))

	assert.Equal(t, []string{"a", "b", "c"}, ids(b))
	assert.Equal(t, 3, b.Len())

	rank, ok := b.PositionOf("c")
	require.True(t, ok)
	assert.Equal(t, 2, rank)
}

func TestInsertRejectsNonPositive(t *testing.T) {
	b := NewOrderBook()

	err := b.Insert(gfd("zero-qty", Buy, 1000, 0))
	assert.True(t, errors.Is(err, ErrInvalidOrder))

	err = b.Insert(gfd("neg-price", Sell, -5, 10))
	assert.True(t, errors.Is(err, ErrInvalidOrder))

	assert.Zero(t, b.Len())
}

func TestInsertRejectsDuplicateID(t *testing.T) {
	b := NewOrderBook()
	require.NoError(t, b.Insert(gfd("a", Buy, 100, 1)))

	err := b.Insert(gfd("a", Sell, 200, 5))
	assert.True(t, errors.Is(err, ErrDuplicateID))

	o, ok := b.FindByID("a")
	require.True(t, ok)
	assert.Equal(t, Buy, o.Side)
	assert.Equal(t, int64(100), o.Price)
}

func TestModifyReRanksToTail(t *testing.T) {
	b := NewOrderBook()
	require.NoError(t, b.Insert(gfd("a", Buy, 100, 1)))
	require.NoError(t, b.Insert(gfd("b", Buy, 100, 1)))
	require.NoError(t, b.Insert(gfd("c", Buy, 100, 1)))

	// unchanged values still lose priority
	require.NoError(t, b.Modify("a", Buy, 100, 1))
	assert.Equal(t, []string{"b", "c", "a"}, ids(b))

	require.NoError(t, b.Modify("c", Sell, 120, 7))
	assert.Equal(t, []string{"b", "a", "c"}, ids(b))

	o, _ := b.FindByID("c")
	assert.Equal(t, Sell, o.Side)
	assert.Equal(t, int64(120), o.Price)
	assert.Equal(t, int64(7), o.Quantity)
}

func TestModifyRejections(t *testing.T) {
	b := NewOrderBook()
	require.NoError(t, b.Insert(gfd("a", Buy, 100, 1)))
	require.NoError(t, b.Insert(Order{ID: "i", Side: Buy, TimeInForce: IOC, Price: 100, Quantity: 1}))

	tests := []struct {
		name  string
		id    string
		price int64
		qty   int64
		want  error
	}{
		{"unknown id", "missing", 100, 1, ErrNotFound},
		{"ioc order", "i", 100, 2, ErrImmutableOrder},
		{"zero price", "a", 0, 1, ErrInvalidOrder},
		{"negative quantity", "a", 100, -1, ErrInvalidOrder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := b.Modify(tt.id, Buy, tt.price, tt.qty)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	// rejected modifies leave the order and its rank untouched
	assert.Equal(t, []string{"a", "i"}, ids(b))
	o, _ := b.FindByID("a")
	assert.Equal(t, int64(1), o.Quantity)
}

func TestCancel(t *testing.T) {
	b := NewOrderBook()
	require.NoError(t, b.Insert(gfd("a", Buy, 100, 1)))
	require.NoError(t, b.Insert(gfd("b", Buy, 100, 1)))
	require.NoError(t, b.Insert(gfd("c", Buy, 100, 1)))

	require.NoError(t, b.Cancel("b"))
	assert.Equal(t, []string{"a", "c"}, ids(b))

	err := b.Cancel("b")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, b.Cancel("a"))
	require.NoError(t, b.Cancel("c"))
	assert.Empty(t, ids(b))

	// the id is free again once cancelled
	require.NoError(t, b.Insert(gfd("a", Sell, 50, 2)))
	assert.Equal(t, []string{"a"}, ids(b))
}

func TestActiveOrdersIsRestartable(t *testing.T) {
	b := NewOrderBook()
	require.NoError(t, b.Insert(gfd("a", Buy, 100, 1)))
	require.NoError(t, b.Insert(gfd("b", Sell, 101, 1)))

	seq := b.ActiveOrders()
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, first, second)

	for range seq {
		break
	}
	assert.Len(t, slices.Collect(seq), 2)
}

func TestBestBidAskTieBreakByRank(t *testing.T) {
	b := NewOrderBook()
	require.NoError(t, b.Insert(gfd("b1", Buy, 100, 1)))
	require.NoError(t, b.Insert(gfd("b2", Buy, 105, 1)))
	require.NoError(t, b.Insert(gfd("b3", Buy, 105, 1)))
	require.NoError(t, b.Insert(gfd("s1", Sell, 110, 1)))
	require.NoError(t, b.Insert(gfd("s2", Sell, 108, 1)))
	require.NoError(t, b.Insert(gfd("s3", Sell, 108, 1)))

	assert.Equal(t, "b2", b.BestBid().ID)
	assert.Equal(t, "s2", b.BestAsk().ID)

	require.NoError(t, b.Modify("b2", Buy, 105, 1))
	assert.Equal(t, "b3", b.BestBid().ID)
}

func TestBestOnEmptySide(t *testing.T) {
	b := NewOrderBook()
	assert.Nil(t, b.BestBid())
	assert.Nil(t, b.BestAsk())

	require.NoError(t, b.Insert(gfd("a", Buy, 100, 1)))
	assert.NotNil(t, b.BestBid())
	assert.Nil(t, b.BestAsk())
}

type countingAllocator struct {
	gets, puts int
}

func (c *countingAllocator) Get() *Order { c.gets++; return &Order{} }
func (c *countingAllocator) Put(*Order)  { c.puts++ }

func TestAllocatorRecyclesRemovedOrders(t *testing.T) {
	alloc := &countingAllocator{}
	b := NewOrderBook(WithAllocator(alloc))

	require.NoError(t, b.Insert(gfd("a", Buy, 100, 5)))
	require.NoError(t, b.Insert(gfd("b", Sell, 100, 5)))
	require.Error(t, b.Insert(gfd("c", Sell, 0, 5)))
	assert.Equal(t, 2, alloc.gets)

	b.Match(nil)
	assert.Equal(t, 2, alloc.puts)

	require.NoError(t, b.Insert(gfd("d", Buy, 100, 5)))
	require.NoError(t, b.Cancel("d"))
	assert.Equal(t, 3, alloc.puts)
	assert.Zero(t, b.Len())
}
