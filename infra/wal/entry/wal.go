package entry

import (
	"encoding/binary"
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

type Config struct {
	Dir             string
	SegmentSize     int64
	SegmentDuration time.Duration
	// SyncEveryAppend fsyncs after each record.
	SyncEveryAppend bool
	// Retain keeps at least this many of the newest records; older closed
	// segments are removed on rotation. 0 keeps everything.
	Retain          uint64
}

// WAL is a segmented, append-only command journal.
type WAL struct {
	mu sync.Mutex

	dir         string
	segSize     int64
	segDuration time.Duration
	syncEvery   bool
	retain      uint64

	current    *segment
	segIndex   int
	lastRotate time.Time
	lastSeq    uint64
}

// Open continues the newest segment in cfg.Dir, creating the directory if
// needed.
func Open(cfg Config) (*WAL, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}

	paths, indexes, err := listSegments(cfg.Dir)
	if err != nil {
		return nil, err
	}

	var lastSeq uint64
	for i, p := range paths {
		if i == len(paths)-1 {
			break
		}
		segMax, err := maxSeqInSegment(p)
		if err != nil {
			return nil, errors.Wrapf(err, "entry: scan %s", p)
		}
		lastSeq = max(lastSeq, segMax)
	}

	index := 0
	if n := len(indexes); n > 0 {
		index = indexes[n-1]
		// A crash mid-append can leave a torn frame at the tail.
		tailMax, err := repairTail(paths[n-1])
		if err != nil {
			return nil, err
		}
		lastSeq = max(lastSeq, tailMax)
	}
	seg, err := openSegment(cfg.Dir, index)
	if err != nil {
		return nil, err
	}

	return &WAL{
		dir:         cfg.Dir,
		segSize:     cfg.SegmentSize,
		segDuration: cfg.SegmentDuration,
		syncEvery:   cfg.SyncEveryAppend,
		retain:      cfg.Retain,
		current:     seg,
		segIndex:    index,
		lastRotate:  time.Now(),
		lastSeq:     lastSeq,
	}, nil
}

// LastSeq is the highest sequence already in the journal.
func (w *WAL) LastSeq() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSeq
}

func (w *WAL) Append(r *Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if r.Seq <= w.lastSeq {
		return errors.Newf("entry: seq %d not after %d", r.Seq, w.lastSeq)
	}

	if len(r.Data) > maxPayloadLen {
		return errors.Newf("entry: payload of %d bytes exceeds %d", len(r.Data), maxPayloadLen)
	}
	payloadLen := uint32(len(r.Data))

	// Frame:
	// [type:1][seq:8][time:8][len:4][payload][crc:4]
	buf := make([]byte, frameHeaderLen+payloadLen+4)

	buf[0] = byte(r.Type)
	binary.BigEndian.PutUint64(buf[1:9], r.Seq)
	binary.BigEndian.PutUint64(buf[9:17], uint64(r.Time))
	binary.BigEndian.PutUint32(buf[17:21], payloadLen)
	copy(buf[frameHeaderLen:], r.Data)

	crc := CRC32(buf[:frameHeaderLen+payloadLen])
	binary.BigEndian.PutUint32(buf[frameHeaderLen+payloadLen:], crc)

	if err := w.current.append(buf); err != nil {
		return err
	}
	w.lastSeq = r.Seq

	if w.syncEvery {
		if err := w.current.sync(); err != nil {
			return err
		}
	}

	if w.shouldRotate() {
		return w.rotate()
	}
	return nil
}

func (w *WAL) shouldRotate() bool {
	if w.segSize > 0 && w.current.offset >= w.segSize {
		return true
	}
	return w.segDuration > 0 && time.Since(w.lastRotate) >= w.segDuration
}

func (w *WAL) rotate() error {
	if err := w.current.sync(); err != nil {
		return err
	}
	_ = w.current.close()
	w.segIndex++

	seg, err := openSegment(w.dir, w.segIndex)
	if err != nil {
		return err
	}

	w.current = seg
	w.lastRotate = time.Now()

	if w.retain > 0 && w.lastSeq > w.retain {
		if _, err := w.truncateBefore(w.lastSeq - w.retain); err != nil {
			return err
		}
	}
	return nil
}

func (w *WAL) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current.sync()
}

func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.current.sync(); err != nil {
		_ = w.current.close()
		return err
	}
	return w.current.close()
}

// TruncateBefore removes closed segments whose records all have
// Seq <= seq. The active segment is never removed.
func (w *WAL) TruncateBefore(seq uint64) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.truncateBefore(seq)
}

func (w *WAL) truncateBefore(seq uint64) (int, error) {
	paths, indexes, err := listSegments(w.dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	for i, path := range paths {
		if indexes[i] == w.segIndex {
			continue
		}
		maxSeq, err := maxSeqInSegment(path)
		if err != nil {
			continue
		}
		if maxSeq <= seq {
			if err := os.Remove(path); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

// repairTail cuts a segment back to its last intact frame and returns the
// highest sequence it still holds.
func repairTail(path string) (uint64, error) {
	end, maxSeq, err := validPrefix(path)
	if err != nil {
		return 0, errors.Wrapf(err, "entry: scan %s", path)
	}
	st, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if st.Size() > end {
		if err := os.Truncate(path, end); err != nil {
			return 0, errors.Wrapf(err, "entry: repair %s", path)
		}
	}
	return maxSeq, nil
}
