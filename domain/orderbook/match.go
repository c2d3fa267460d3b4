package orderbook

import "github.com/cockroachdb/errors"

// Fill is one side of a trade, reported at the order's own limit price.
type Fill struct {
	ID       string
	Price    int64
	Quantity int64
}

// Trade pairs the two fills of an execution. First is the order that
// arrived (or was last re-ranked) earlier, whatever its side.
type Trade struct {
	First  Fill
	Second Fill
}

// Match executes trades until the best bid no longer reaches the best ask,
// calling emit once per trade in discovery order. It returns the number of
// trades executed.
func (b *OrderBook) Match(emit func(Trade)) int {
	trades := 0
	for {
		bid, ask := b.BestBid(), b.BestAsk()
		if bid == nil || ask == nil || bid.Price < ask.Price {
			return trades
		}

		first, second := bid, ask
		if b.rankOf(ask) < b.rankOf(bid) {
			first, second = ask, bid
		}

		qty := min(bid.Quantity, ask.Quantity)
		t := Trade{
			First:  Fill{ID: first.ID, Price: first.Price, Quantity: qty},
			Second: Fill{ID: second.ID, Price: second.Price, Quantity: qty},
		}

		// Partial fills keep their rank.
		bid.Quantity -= qty
		ask.Quantity -= qty
		if bid.Quantity == 0 {
			b.remove(bid)
		}
		if ask.Quantity == 0 {
			b.remove(ask)
		}

		trades++
		if emit != nil {
			emit(t)
		}
	}
}

// Crossed reports whether a resting buy reaches a resting sell.
func (b *OrderBook) Crossed() bool {
	bid, ask := b.BestBid(), b.BestAsk()
	return bid != nil && ask != nil && bid.Price >= ask.Price
}

func (b *OrderBook) rankOf(o *Order) int {
	rank, ok := b.PositionOf(o.ID)
	if !ok {
		panic(errors.AssertionFailedf("orderbook: active order %q has no rank", o.ID))
	}
	return rank
}
