// Package orderbook holds the single-instrument limit order book and its
// matching loop.
//
// Orders are kept in one list ordered by effective arrival: new orders and
// modified orders go to the tail, partial fills stay in place. Matching
// repeatedly pairs the highest priced buy with the lowest priced sell and
// stops once they no longer cross. Nothing in this package performs I/O or
// blocks; callers must serialize access.
package orderbook
