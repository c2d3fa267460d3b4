// Package memory provides typed object reuse. The order book takes a
// Pool[orderbook.Order] as its allocator so removed orders are recycled
// instead of left to the collector.
package memory
