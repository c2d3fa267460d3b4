package sink

import (
	"encoding/json"

	"github.com/cockroachdb/errors"

	"crossbook/domain/orderbook"
)

const eventVersion = 1

const (
	TypeTrade    = "trade"
	TypeSnapshot = "snapshot"
)

// Event is the JSON envelope published for every emitted trade or snapshot.
type Event struct {
	V        int           `json:"v"`
	Type     string        `json:"type"`
	Seq      uint64        `json:"seq"`
	Trade    *TradeBody    `json:"trade,omitempty"`
	Snapshot *SnapshotBody `json:"snapshot,omitempty"`
}

type FillBody struct {
	ID       string `json:"id"`
	Price    int64  `json:"price"`
	Quantity int64  `json:"qty"`
}

type TradeBody struct {
	First  FillBody `json:"first"`
	Second FillBody `json:"second"`
}

type LevelBody struct {
	Price    int64 `json:"price"`
	Quantity int64 `json:"qty"`
}

type SnapshotBody struct {
	Sells []LevelBody `json:"sells"`
	Buys  []LevelBody `json:"buys"`
}

func TradeEvent(seq uint64, t orderbook.Trade) Event {
	return Event{
		V:    eventVersion,
		Type: TypeTrade,
		Seq:  seq,
		Trade: &TradeBody{
			First:  FillBody(t.First),
			Second: FillBody(t.Second),
		},
	}
}

func SnapshotEvent(seq uint64, s orderbook.Snapshot) Event {
	return Event{
		V:    eventVersion,
		Type: TypeSnapshot,
		Seq:  seq,
		Snapshot: &SnapshotBody{
			Sells: levelBodies(s.Sells),
			Buys:  levelBodies(s.Buys),
		},
	}
}

func levelBodies(levels []orderbook.Level) []LevelBody {
	out := make([]LevelBody, len(levels))
	for i, l := range levels {
		out[i] = LevelBody(l)
	}
	return out
}

func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

func DecodeEvent(b []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return Event{}, errors.Wrap(err, "sink: decode event")
	}
	if e.V != eventVersion {
		return Event{}, errors.Newf("sink: unsupported event version %d", e.V)
	}
	return e, nil
}
