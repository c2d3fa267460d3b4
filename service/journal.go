package service

import (
	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/encoding/protowire"

	"crossbook/domain/command"
	"crossbook/domain/orderbook"
	"crossbook/infra/sequence"
	entrywal "crossbook/infra/wal/entry"
)

// CommandJournal appends every command to the entry WAL, stamped by its
// own sequencer.
type CommandJournal struct {
	wal *entrywal.WAL
	seq *sequence.Sequencer
}

// NewCommandJournal numbers new records after whatever w already holds.
func NewCommandJournal(w *entrywal.WAL) *CommandJournal {
	return &CommandJournal{wal: w, seq: sequence.New(w.LastSeq())}
}

func (j *CommandJournal) Record(cmd command.Command) error {
	typ, payload, err := encodeCommand(cmd)
	if err != nil {
		return err
	}
	return j.wal.Append(entrywal.NewRecord(typ, j.seq.Next(), payload))
}

// Payload fields, protobuf wire format:
//
//	1 id    (bytes)
//	2 side  (varint)
//	3 tif   (varint)
//	4 price (zigzag varint)
//	5 qty   (zigzag varint)
const (
	fieldID       protowire.Number = 1
	fieldSide     protowire.Number = 2
	fieldTIF      protowire.Number = 3
	fieldPrice    protowire.Number = 4
	fieldQuantity protowire.Number = 5
)

type wireCommand struct {
	id    string
	side  orderbook.Side
	tif   orderbook.TimeInForce
	price int64
	qty   int64
}

func encodeCommand(cmd command.Command) (entrywal.RecordType, []byte, error) {
	var b []byte
	switch c := cmd.(type) {
	case command.New:
		b = appendString(b, fieldID, c.ID)
		b = appendVarint(b, fieldSide, uint64(c.Side))
		b = appendVarint(b, fieldTIF, uint64(c.TimeInForce))
		b = appendVarint(b, fieldPrice, protowire.EncodeZigZag(c.Price))
		b = appendVarint(b, fieldQuantity, protowire.EncodeZigZag(c.Quantity))
		return entrywal.RecordNew, b, nil
	case command.Modify:
		b = appendString(b, fieldID, c.ID)
		b = appendVarint(b, fieldSide, uint64(c.Side))
		b = appendVarint(b, fieldPrice, protowire.EncodeZigZag(c.Price))
		b = appendVarint(b, fieldQuantity, protowire.EncodeZigZag(c.Quantity))
		return entrywal.RecordModify, b, nil
	case command.Cancel:
		return entrywal.RecordCancel, appendString(b, fieldID, c.ID), nil
	case command.Print:
		return entrywal.RecordPrint, nil, nil
	default:
		return 0, nil, errors.Newf("service: cannot journal %T", cmd)
	}
}

func decodeCommand(typ entrywal.RecordType, b []byte) (command.Command, error) {
	w, err := decodeFields(b)
	if err != nil {
		return nil, err
	}
	switch typ {
	case entrywal.RecordNew:
		return command.New{ID: w.id, Side: w.side, TimeInForce: w.tif, Price: w.price, Quantity: w.qty}, nil
	case entrywal.RecordModify:
		return command.Modify{ID: w.id, Side: w.side, Price: w.price, Quantity: w.qty}, nil
	case entrywal.RecordCancel:
		return command.Cancel{ID: w.id}, nil
	case entrywal.RecordPrint:
		return command.Print{}, nil
	default:
		return nil, errors.Newf("service: unknown record type %d", typ)
	}
}

func decodeFields(b []byte) (wireCommand, error) {
	var w wireCommand
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return w, protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case num == fieldID && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return w, protowire.ParseError(n)
			}
			w.id = v
			b = b[n:]
		case typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return w, protowire.ParseError(n)
			}
			switch num {
			case fieldSide:
				w.side = orderbook.Side(v)
			case fieldTIF:
				w.tif = orderbook.TimeInForce(v)
			case fieldPrice:
				w.price = protowire.DecodeZigZag(v)
			case fieldQuantity:
				w.qty = protowire.DecodeZigZag(v)
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return w, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return w, nil
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}
