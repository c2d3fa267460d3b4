// Package service drives the order book one command at a time: it applies
// the command, runs matching to quiescence, expires the cycle's IOC order
// and hands trades and snapshots to an injected Sink.
//
// It is also where the command journal is written and replayed, so the
// orderbook package stays free of I/O.
package service
