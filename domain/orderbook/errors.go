package orderbook

import "github.com/cockroachdb/errors"

var (
	// ErrInvalidOrder is returned for a non-positive price or quantity.
	ErrInvalidOrder = errors.New("orderbook: price and quantity must be positive")
	// ErrDuplicateID is returned when inserting an ID that is already active.
	ErrDuplicateID = errors.New("orderbook: duplicate order id")
	// ErrNotFound is returned when an ID does not resolve to an active order.
	ErrNotFound = errors.New("orderbook: order not found")
	// ErrImmutableOrder is returned when modifying an IOC order.
	ErrImmutableOrder = errors.New("orderbook: order cannot be modified")
)
