package orderbook

import "github.com/tidwall/btree"

// Level is the total resting quantity at one price.
type Level struct {
	Price    int64
	Quantity int64
}

// Snapshot is the aggregated book. Both sides are ordered by descending
// price.
type Snapshot struct {
	Sells []Level
	Buys  []Level
}

// Levels aggregates the active orders of b by side and price.
func Levels(b *OrderBook) Snapshot {
	var sells, buys btree.Map[int64, int64]

	for o := range b.ActiveOrders() {
		side := &buys
		if o.Side == Sell {
			side = &sells
		}
		total, _ := side.Get(o.Price)
		side.Set(o.Price, total+o.Quantity)
	}

	return Snapshot{
		Sells: descending(&sells),
		Buys:  descending(&buys),
	}
}

func descending(m *btree.Map[int64, int64]) []Level {
	out := make([]Level, 0, m.Len())
	m.Reverse(func(price, qty int64) bool {
		out = append(out, Level{Price: price, Quantity: qty})
		return true
	})
	return out
}
