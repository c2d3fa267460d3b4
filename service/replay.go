package service

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	entrywal "crossbook/infra/wal/entry"
)

/*
Replay re-applies a recorded journal through p, reproducing the original
session's trades and snapshots in order.

p should be built on an empty book and without a journal, otherwise the
replayed commands are journaled a second time.
*/
func Replay(walDir string, p *Processor) (lastSeq uint64, applied int, err error) {
	lastSeq, err = entrywal.Replay(walDir, func(rec *entrywal.Record) error {
		cmd, err := decodeCommand(rec.Type, rec.Data)
		if err != nil {
			return errors.Wrapf(err, "service: decode record %d", rec.Seq)
		}
		p.Apply(cmd)
		applied++
		return nil
	})
	if err != nil {
		return lastSeq, applied, err
	}

	p.log.Info("journal replay completed",
		zap.String("dir", walDir),
		zap.Uint64("last_seq", lastSeq),
		zap.Int("commands", applied),
	)
	return lastSeq, applied, nil
}
