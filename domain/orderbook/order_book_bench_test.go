package orderbook

import (
	"strconv"
	"testing"
)

func benchIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = strconv.Itoa(i)
	}
	return ids
}

func BenchmarkInsert(b *testing.B) {
	book := NewOrderBook()
	ids := benchIDs(b.N)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = book.Insert(Order{ID: ids[i], Side: Buy, Price: 100, Quantity: 1000})
	}
}

func BenchmarkCancel(b *testing.B) {
	book := NewOrderBook()
	ids := benchIDs(b.N)
	for i := 0; i < b.N; i++ {
		_ = book.Insert(Order{ID: ids[i], Side: Buy, Price: 100, Quantity: 1000})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = book.Cancel(ids[i])
	}
}

// Each iteration rests one bid behind 64 others, then crosses it.
func BenchmarkMatch(b *testing.B) {
	book := NewOrderBook()
	for i := 0; i < 64; i++ {
		_ = book.Insert(Order{ID: "rest" + strconv.Itoa(i), Side: Buy, Price: 90, Quantity: 1})
	}
	ids := benchIDs(b.N)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = book.Insert(Order{ID: "b" + ids[i], Side: Buy, Price: 100, Quantity: 1})
		_ = book.Insert(Order{ID: "s" + ids[i], Side: Sell, Price: 100, Quantity: 1})
		book.Match(nil)
	}
}
