package sequence

import "sync/atomic"

// Sequencer hands out strictly increasing sequence numbers. Journal records
// and published events are each stamped by their own Sequencer.
type Sequencer struct {
	last atomic.Uint64
}

// New starts the sequencer after start; the first Next returns start+1.
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.last.Store(start)
	return s
}

func (s *Sequencer) Next() uint64 {
	return s.last.Add(1)
}

// Current returns the last issued number, or the start value if none was.
func (s *Sequencer) Current() uint64 {
	return s.last.Load()
}
