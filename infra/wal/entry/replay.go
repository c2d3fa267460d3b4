package entry

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/cockroachdb/errors"
)

// ErrCorrupt marks a frame that fails its checksum or is cut short.
var ErrCorrupt = errors.New("entry: corrupt record")

type ReplayHandler func(*Record) error

// Replay feeds every record in dir to fn in journal order and returns the
// last sequence seen. Sequences must strictly increase across segments.
func Replay(dir string, fn ReplayHandler) (lastSeq uint64, err error) {
	paths, _, err := listSegments(dir)
	if err != nil {
		return 0, err
	}

	for _, path := range paths {
		lastSeq, err = replaySegment(path, lastSeq, fn)
		if err != nil {
			return lastSeq, err
		}
	}
	return lastSeq, nil
}

func replaySegment(path string, lastSeq uint64, fn ReplayHandler) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return lastSeq, err
	}
	defer f.Close()

	for {
		rec, err := readRecord(f)
		if err == io.EOF {
			return lastSeq, nil
		}
		if err != nil {
			return lastSeq, errors.Wrapf(err, "entry: %s after seq %d", path, lastSeq)
		}

		if rec.Seq <= lastSeq {
			return lastSeq, errors.Newf("entry: non-monotonic seq %d after %d", rec.Seq, lastSeq)
		}
		lastSeq = rec.Seq

		if err := fn(rec); err != nil {
			return lastSeq, err
		}
	}
}

func readRecord(r io.Reader) (*Record, error) {
	header := make([]byte, frameHeaderLen)
	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, errors.Wrap(ErrCorrupt, "short header")
		}
		return nil, err
	}

	t := RecordType(header[0])
	seq := binary.BigEndian.Uint64(header[1:9])
	ts := binary.BigEndian.Uint64(header[9:17])
	l := binary.BigEndian.Uint32(header[17:21])
	if l > maxPayloadLen {
		return nil, errors.Wrapf(ErrCorrupt, "payload length %d for seq %d", l, seq)
	}

	data := make([]byte, l+4)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, errors.Wrapf(ErrCorrupt, "short payload for seq %d", seq)
	}

	payload := data[:l]
	crc := binary.BigEndian.Uint32(data[l:])

	if !CRC32Valid(append(header, payload...), crc) {
		return nil, errors.Wrapf(ErrCorrupt, "crc mismatch for seq %d", seq)
	}

	return &Record{
		Type: t,
		Seq:  seq,
		Time: int64(ts),
		Data: payload,
	}, nil
}
