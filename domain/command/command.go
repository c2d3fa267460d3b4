// Package command defines the typed commands accepted by the processor.
package command

import "crossbook/domain/orderbook"

type Kind uint8

const (
	KindNew Kind = iota + 1
	KindModify
	KindCancel
	KindPrint
)

func (k Kind) String() string {
	switch k {
	case KindNew:
		return "new"
	case KindModify:
		return "modify"
	case KindCancel:
		return "cancel"
	case KindPrint:
		return "print"
	default:
		return "unknown"
	}
}

// Command is one decoded order-management instruction.
type Command interface {
	Kind() Kind
}

// New admits a limit order.
type New struct {
	ID          string
	Side        orderbook.Side
	TimeInForce orderbook.TimeInForce
	Price       int64
	Quantity    int64
}

// Modify amends an existing GFD order.
type Modify struct {
	ID       string
	Side     orderbook.Side
	Price    int64
	Quantity int64
}

type Cancel struct {
	ID string
}

// Print requests an aggregated book snapshot.
type Print struct{}

func (New) Kind() Kind    { return KindNew }
func (Modify) Kind() Kind { return KindModify }
func (Cancel) Kind() Kind { return KindCancel }
func (Print) Kind() Kind  { return KindPrint }

// Order returns the book entry the command describes.
func (n New) Order() orderbook.Order {
	return orderbook.Order{
		ID:          n.ID,
		Side:        n.Side,
		TimeInForce: n.TimeInForce,
		Price:       n.Price,
		Quantity:    n.Quantity,
	}
}
