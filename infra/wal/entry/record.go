package entry

import "time"

type RecordType uint8

const (
	RecordNew RecordType = iota + 1
	RecordModify
	RecordCancel
	RecordPrint
)

// Record is one journaled command. Data is opaque to the WAL.
type Record struct {
	Type RecordType
	Seq  uint64
	Time int64
	Data []byte
}

func NewRecord(t RecordType, seq uint64, data []byte) *Record {
	return &Record{
		Type: t,
		Seq:  seq,
		Time: time.Now().UnixNano(),
		Data: data,
	}
}
