package entry

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/cockroachdb/errors"
)

// Frame: [type:1][seq:8][time:8][len:4][payload][crc:4]
const frameHeaderLen = 1 + 8 + 8 + 4

// maxPayloadLen bounds a frame's payload. A larger length read from disk
// can only come from corruption.
const maxPayloadLen = 1 << 20

// maxSeqInSegment returns the highest sequence in a segment without
// decoding payloads. Used for truncation and for resuming numbering.
func maxSeqInSegment(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var max uint64
	header := make([]byte, frameHeaderLen)
	for {
		if _, err := io.ReadFull(f, header); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return max, nil
			}
			return max, err
		}

		if seq := binary.BigEndian.Uint64(header[1:9]); seq > max {
			max = seq
		}

		payloadLen := binary.BigEndian.Uint32(header[17:21])
		if _, err := f.Seek(int64(payloadLen)+4, io.SeekCurrent); err != nil {
			return max, err
		}
	}
}

// validPrefix returns the end offset of the last intact frame in a segment
// and the highest sequence before it. A torn or corrupt frame ends the
// prefix.
func validPrefix(path string) (end int64, maxSeq uint64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for {
		rec, err := readRecord(r)
		if err == io.EOF || errors.Is(err, ErrCorrupt) {
			return end, maxSeq, nil
		}
		if err != nil {
			return end, maxSeq, err
		}
		end += int64(frameHeaderLen + len(rec.Data) + 4)
		maxSeq = max(maxSeq, rec.Seq)
	}
}
