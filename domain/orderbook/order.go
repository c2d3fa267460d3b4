package orderbook

import "fmt"

type Side int
type TimeInForce int

const (
	Buy Side = iota
	Sell
)

const (
	// GFD orders rest until matched, cancelled or modified away.
	GFD TimeInForce = iota
	// IOC orders may match during the cycle that admits them and are
	// removed at the end of it.
	IOC
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

func (t TimeInForce) String() string {
	switch t {
	case GFD:
		return "GFD"
	case IOC:
		return "IOC"
	default:
		return fmt.Sprintf("TimeInForce(%d)", int(t))
	}
}

// Order is a resting limit order. The book owns every Order; pointers
// handed out by the book are only valid until the next mutation.
type Order struct {
	ID          string
	Side        Side
	TimeInForce TimeInForce
	Price       int64
	Quantity    int64

	next *Order
	prev *Order
}
