package exit

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Record is one outbound event and its delivery state.
type Record struct {
	Seq         uint64
	State       State
	Retries     uint32
	LastAttempt int64
	Payload     []byte
}

const headerLen = 1 + 4 + 8

// binary encoding: [state:1][retries:4][lastAttempt:8][payload]
func encodeRecord(r Record) []byte {
	buf := make([]byte, headerLen+len(r.Payload))
	buf[0] = byte(r.State)
	binary.BigEndian.PutUint32(buf[1:5], r.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(r.LastAttempt))
	copy(buf[headerLen:], r.Payload)
	return buf
}

func decodeRecord(seq uint64, b []byte) (Record, error) {
	if len(b) < headerLen {
		return Record{}, errors.Newf("exit: record %d too short (%d bytes)", seq, len(b))
	}
	payload := make([]byte, len(b)-headerLen)
	copy(payload, b[headerLen:])
	return Record{
		Seq:         seq,
		State:       State(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Payload:     payload,
	}, nil
}

// Outbox is a pebble-backed store of emitted events awaiting publication.
type Outbox struct {
	db  *pebble.DB
	now func() time.Time
}

type Options struct {
	// FS overrides the filesystem; tests use vfs.NewMem().
	FS vfs.FS
}

func Open(dir string, opts Options) (*Outbox, error) {
	po := &pebble.Options{}
	if opts.FS != nil {
		po.FS = opts.FS
	}
	db, err := pebble.Open(dir, po)
	if err != nil {
		return nil, errors.Wrapf(err, "exit: open outbox %s", dir)
	}
	return &Outbox{db: db, now: time.Now}, nil
}

func (o *Outbox) Close() error {
	return o.db.Close()
}

// PutNew stores a freshly emitted event and advances LastSeq.
func (o *Outbox) PutNew(seq uint64, payload []byte) error {
	batch := o.db.NewBatch()
	defer batch.Close()

	if err := batch.Set(keyFor(seq), encodeRecord(Record{Seq: seq, State: StateNew, Payload: payload}), nil); err != nil {
		return err
	}
	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], seq)
	if err := batch.Set([]byte(lastSeqKey), meta[:], nil); err != nil {
		return err
	}
	return batch.Commit(pebble.Sync)
}

// LastSeq is the highest sequence ever stored, surviving DeleteAckedUpTo.
func (o *Outbox) LastSeq() (uint64, error) {
	val, closer, err := o.db.Get([]byte(lastSeqKey))
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "exit: read last seq")
	}
	defer closer.Close()

	if len(val) != 8 {
		return 0, errors.Newf("exit: last seq is %d bytes", len(val))
	}
	return binary.BigEndian.Uint64(val), nil
}

func (o *Outbox) MarkSent(seq uint64) error {
	return o.transition(seq, StateSent, false)
}

func (o *Outbox) MarkAcked(seq uint64) error {
	return o.transition(seq, StateAcked, false)
}

// MarkFailed records a failed delivery attempt and bumps the retry count.
func (o *Outbox) MarkFailed(seq uint64) error {
	return o.transition(seq, StateFailed, true)
}

func (o *Outbox) Get(seq uint64) (Record, error) {
	val, closer, err := o.db.Get(keyFor(seq))
	if err != nil {
		return Record{}, errors.Wrapf(err, "exit: get %d", seq)
	}
	defer closer.Close()

	return decodeRecord(seq, val)
}

// ScanByState walks records in the given state in sequence order.
func (o *Outbox) ScanByState(state State, fn func(Record) error) error {
	return o.scan(func(r Record) error {
		if r.State != state {
			return nil
		}
		return fn(r)
	})
}

// DeleteAckedUpTo removes acknowledged records with Seq <= seq.
func (o *Outbox) DeleteAckedUpTo(seq uint64) (int, error) {
	batch := o.db.NewBatch()
	defer batch.Close()

	n := 0
	err := o.scan(func(r Record) error {
		if r.Seq > seq || r.State != StateAcked {
			return nil
		}
		n++
		return batch.Delete(keyFor(r.Seq), nil)
	})
	if err != nil {
		return 0, err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, errors.Wrap(err, "exit: commit deletes")
	}
	return n, nil
}

func (o *Outbox) put(r Record) error {
	return o.db.Set(keyFor(r.Seq), encodeRecord(r), pebble.Sync)
}

func (o *Outbox) transition(seq uint64, state State, retry bool) error {
	r, err := o.Get(seq)
	if err != nil {
		return err
	}
	r.State = state
	r.LastAttempt = o.now().UnixNano()
	if retry {
		r.Retries++
	}
	return o.put(r)
}

func (o *Outbox) scan(fn func(Record) error) error {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "~"),
	})
	if err != nil {
		return errors.Wrap(err, "exit: new iterator")
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		r, err := decodeRecord(seq, iter.Value())
		if err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return iter.Error()
}

const (
	keyPrefix  = "event/"
	lastSeqKey = "meta/last-seq"
)

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", keyPrefix, seq))
}

func parseKey(b []byte) (uint64, error) {
	var seq uint64
	if _, err := fmt.Sscanf(string(b[len(keyPrefix):]), "%d", &seq); err != nil {
		return 0, errors.Wrapf(err, "exit: parse key %q", b)
	}
	return seq, nil
}
