package text

import (
	"bufio"
	"io"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"crossbook/domain/orderbook"
)

// FormatTrade renders TRADE <id1> <price1> <qty> <id2> <price2> <qty>.
func FormatTrade(t orderbook.Trade) string {
	b := make([]byte, 0, 64)
	b = append(b, "TRADE "...)
	b = appendFill(b, t.First)
	b = append(b, ' ')
	b = appendFill(b, t.Second)
	return string(b)
}

func appendFill(b []byte, f orderbook.Fill) []byte {
	b = append(b, f.ID...)
	b = append(b, ' ')
	b = strconv.AppendInt(b, f.Price, 10)
	b = append(b, ' ')
	return strconv.AppendInt(b, f.Quantity, 10)
}

// FormatSnapshot renders the SELL: section followed by the BUY: section.
func FormatSnapshot(s orderbook.Snapshot) []string {
	lines := make([]string, 0, 2+len(s.Sells)+len(s.Buys))
	lines = append(lines, "SELL:")
	for _, l := range s.Sells {
		lines = append(lines, formatLevel(l))
	}
	lines = append(lines, "BUY:")
	for _, l := range s.Buys {
		lines = append(lines, formatLevel(l))
	}
	return lines
}

func formatLevel(l orderbook.Level) string {
	return strconv.FormatInt(l.Price, 10) + " " + strconv.FormatInt(l.Quantity, 10)
}

// Writer is a sink that writes protocol lines to an io.Writer, flushing
// after every event.
type Writer struct {
	mu  sync.Mutex
	w   *bufio.Writer
	log *zap.Logger
}

func NewWriter(w io.Writer, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{w: bufio.NewWriter(w), log: log}
}

func (w *Writer) Trade(t orderbook.Trade) {
	w.write(FormatTrade(t))
}

func (w *Writer) Snapshot(s orderbook.Snapshot) {
	w.write(FormatSnapshot(s)...)
}

func (w *Writer) write(lines ...string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, l := range lines {
		_, _ = w.w.WriteString(l)
		_ = w.w.WriteByte('\n')
	}
	if err := w.w.Flush(); err != nil {
		w.log.Error("output write failed", zap.Error(err))
	}
}
