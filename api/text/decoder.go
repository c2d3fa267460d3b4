// Package text implements the line protocol: decoding command lines and
// writing trade and snapshot lines.
package text

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"crossbook/domain/command"
	"crossbook/domain/orderbook"
)

// ErrMalformed marks a line that does not decode into a command.
var ErrMalformed = errors.New("text: malformed command")

const (
	kwBuy    = "BUY"
	kwSell   = "SELL"
	kwModify = "MODIFY"
	kwCancel = "CANCEL"
	kwPrint  = "PRINT"
	kwGFD    = "GFD"
	kwIOC    = "IOC"
)

// Decode parses one command line. Keywords are case-sensitive and tokens are
// separated by whitespace.
func Decode(line string) (command.Command, error) {
	f := strings.Fields(line)
	if len(f) == 0 {
		return nil, errors.Wrap(ErrMalformed, "empty line")
	}

	switch f[0] {
	case kwBuy, kwSell:
		return decodeNew(f)
	case kwModify:
		return decodeModify(f)
	case kwCancel:
		if len(f) != 2 {
			return nil, arity(f, 2)
		}
		return command.Cancel{ID: f[1]}, nil
	case kwPrint:
		if len(f) != 1 {
			return nil, arity(f, 1)
		}
		return command.Print{}, nil
	default:
		return nil, errors.Wrapf(ErrMalformed, "unknown keyword %q", f[0])
	}
}

// BUY|SELL GFD|IOC <price> <quantity> <id>
func decodeNew(f []string) (command.Command, error) {
	if len(f) != 5 {
		return nil, arity(f, 5)
	}
	side, err := decodeSide(f[0])
	if err != nil {
		return nil, err
	}
	tif, err := decodeTimeInForce(f[1])
	if err != nil {
		return nil, err
	}
	price, err := decodeInt("price", f[2])
	if err != nil {
		return nil, err
	}
	qty, err := decodeInt("quantity", f[3])
	if err != nil {
		return nil, err
	}
	return command.New{ID: f[4], Side: side, TimeInForce: tif, Price: price, Quantity: qty}, nil
}

// MODIFY <id> BUY|SELL <price> <quantity>
func decodeModify(f []string) (command.Command, error) {
	if len(f) != 5 {
		return nil, arity(f, 5)
	}
	side, err := decodeSide(f[2])
	if err != nil {
		return nil, err
	}
	price, err := decodeInt("price", f[3])
	if err != nil {
		return nil, err
	}
	qty, err := decodeInt("quantity", f[4])
	if err != nil {
		return nil, err
	}
	return command.Modify{ID: f[1], Side: side, Price: price, Quantity: qty}, nil
}

func decodeSide(s string) (orderbook.Side, error) {
	switch s {
	case kwBuy:
		return orderbook.Buy, nil
	case kwSell:
		return orderbook.Sell, nil
	}
	return 0, errors.Wrapf(ErrMalformed, "side %q", s)
}

func decodeTimeInForce(s string) (orderbook.TimeInForce, error) {
	switch s {
	case kwGFD:
		return orderbook.GFD, nil
	case kwIOC:
		return orderbook.IOC, nil
	}
	return 0, errors.Wrapf(ErrMalformed, "time in force %q", s)
}

func decodeInt(field, s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrMalformed, "%s %q", field, s)
	}
	return v, nil
}

func arity(f []string, want int) error {
	return errors.Wrapf(ErrMalformed, "%s takes %d tokens, got %d", f[0], want, len(f))
}
