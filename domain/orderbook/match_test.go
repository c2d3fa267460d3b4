package orderbook

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(b *OrderBook) []Trade {
	var trades []Trade
	b.Match(func(t Trade) { trades = append(trades, t) })
	return trades
}

func trade(id1 string, p1 int64, id2 string, p2 int64, qty int64) Trade {
	return Trade{
		First:  Fill{ID: id1, Price: p1, Quantity: qty},
		Second: Fill{ID: id2, Price: p2, Quantity: qty},
	}
}

func TestMatchEarlierOrderReportedFirst(t *testing.T) {
	b := NewOrderBook()
	require.NoError(t, b.Insert(gfd("order1", Buy, 1000, 10)))
	require.NoError(t, b.Insert(gfd("order2", Sell, 900, 10)))
	assert.Equal(t, []Trade{trade("order1", 1000, "order2", 900, 10)}, collect(b))
	assert.Zero(t, b.Len())

	require.NoError(t, b.Insert(gfd("order2", Sell, 900, 10)))
	require.NoError(t, b.Insert(gfd("order1", Buy, 1000, 10)))
	assert.Equal(t, []Trade{trade("order2", 900, "order1", 1000, 10)}, collect(b))
}

func TestMatchTimePriorityAtEqualPrice(t *testing.T) {
	b := NewOrderBook()
	require.NoError(t, b.Insert(gfd("order1", Buy, 1000, 10)))
	require.NoError(t, b.Insert(gfd("order2", Buy, 1000, 10)))
	require.NoError(t, b.Insert(gfd("order3", Sell, 900, 20)))

	assert.Equal(t, []Trade{
		trade("order1", 1000, "order3", 900, 10),
		trade("order2", 1000, "order3", 900, 10),
	}, collect(b))
	assert.Zero(t, b.Len())
}

func TestMatchPricePriorityBeforeTime(t *testing.T) {
	b := NewOrderBook()
	require.NoError(t, b.Insert(gfd("order1", Buy, 950, 10)))
	require.NoError(t, b.Insert(gfd("order2", Buy, 1000, 15)))
	require.NoError(t, b.Insert(gfd("order3", Sell, 900, 20)))

	assert.Equal(t, []Trade{
		trade("order2", 1000, "order3", 900, 15),
		trade("order1", 950, "order3", 900, 5),
	}, collect(b))

	o, ok := b.FindByID("order1")
	require.True(t, ok)
	assert.Equal(t, int64(5), o.Quantity)
}

func TestMatchPartialFillKeepsRank(t *testing.T) {
	b := NewOrderBook()
	require.NoError(t, b.Insert(gfd("big", Sell, 100, 30)))
	require.NoError(t, b.Insert(gfd("other", Sell, 100, 5)))
	require.NoError(t, b.Insert(gfd("buy1", Buy, 100, 10)))

	assert.Equal(t, []Trade{trade("big", 100, "buy1", 100, 10)}, collect(b))
	assert.Equal(t, []string{"big", "other"}, ids(b))

	require.NoError(t, b.Insert(gfd("buy2", Buy, 100, 25)))
	assert.Equal(t, []Trade{
		trade("big", 100, "buy2", 100, 20),
		trade("other", 100, "buy2", 100, 5),
	}, collect(b))
	assert.Zero(t, b.Len())
}

func TestMatchStopsWithoutCross(t *testing.T) {
	b := NewOrderBook()
	require.NoError(t, b.Insert(gfd("b", Buy, 99, 10)))
	require.NoError(t, b.Insert(gfd("s", Sell, 100, 10)))

	assert.Zero(t, b.Match(nil))
	assert.False(t, b.Crossed())
	assert.Equal(t, 2, b.Len())
}

// Random command streams must never leave a resting cross, and every unit of
// quantity must be accounted for as resting, traded or cancelled.
func TestMatchConservesQuantity(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	b := NewOrderBook()

	var admitted, traded, cancelled int64
	live := []string{}

	for i := 0; i < 2000; i++ {
		switch rng.Intn(4) {
		case 0:
			if len(live) == 0 {
				continue
			}
			id := live[rng.Intn(len(live))]
			if o, ok := b.FindByID(id); ok {
				cancelled += o.Quantity
				require.NoError(t, b.Cancel(id))
			}
		default:
			id := string(rune('a'+rng.Intn(26))) + string(rune('a'+rng.Intn(26))) + string(rune('0'+i%10))
			o := gfd(id, Side(rng.Intn(2)), int64(90+rng.Intn(20)), int64(1+rng.Intn(50)))
			if err := b.Insert(o); err != nil {
				continue
			}
			admitted += o.Quantity
			live = append(live, id)
		}

		b.Match(func(tr Trade) {
			require.Equal(t, tr.First.Quantity, tr.Second.Quantity)
			require.Positive(t, tr.First.Quantity)
			traded += tr.First.Quantity
		})
		require.False(t, b.Crossed())

		var resting int64
		for o := range b.ActiveOrders() {
			require.Positive(t, o.Quantity)
			resting += o.Quantity
		}
		// each trade consumes quantity from both sides
		require.Equal(t, admitted, resting+2*traded+cancelled)
	}
}
