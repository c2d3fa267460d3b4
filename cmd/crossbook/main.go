package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"crossbook/api/text"
	"crossbook/config"
	"crossbook/domain/command"
	"crossbook/domain/orderbook"
	"crossbook/infra/kafka"
	"crossbook/infra/logging"
	"crossbook/infra/memory"
	"crossbook/infra/metrics"
	"crossbook/infra/sequence"
	"crossbook/infra/sink"
	entrywal "crossbook/infra/wal/entry"
	exitwal "crossbook/infra/wal/exit"
	"crossbook/jobs/broadcaster"
	"crossbook/service"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "crossbook: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, in io.Reader, out io.Writer) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---------------- Metrics ----------------

	m := metrics.New("crossbook")
	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server exited", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// ---------------- Domain ----------------

	pool := memory.NewPool(func() *orderbook.Order { return &orderbook.Order{} }, nil)
	book := orderbook.NewOrderBook(orderbook.WithAllocator(pool))
	stdout := text.NewWriter(out, log)

	if cfg.ReplayDir != "" {
		p := service.NewProcessor(book, stdout, service.WithLogger(log), service.WithMetrics(m))
		_, _, err := service.Replay(cfg.ReplayDir, p)
		return err
	}

	sinks := sink.Multi{stdout}
	opts := []service.Option{service.WithLogger(log), service.WithMetrics(m)}

	// ---------------- Entry WAL ----------------

	if cfg.JournalDir != "" {
		journal, err := entrywal.Open(entrywal.Config{
			Dir:             cfg.JournalDir,
			SegmentSize:     cfg.JournalSegmentSize,
			SegmentDuration: cfg.JournalSegmentDuration,
			SyncEveryAppend: cfg.JournalSync,
			Retain:          cfg.JournalRetain,
		})
		if err != nil {
			return errors.Wrap(err, "open journal")
		}
		defer journal.Close()
		opts = append(opts, service.WithJournal(service.NewCommandJournal(journal)))
		log.Info("journaling commands", zap.String("dir", cfg.JournalDir), zap.Uint64("last_seq", journal.LastSeq()))
	}

	// ---------------- Exit WAL + Broadcaster ----------------

	switch {
	case cfg.OutboxDir != "":
		outbox, err := exitwal.Open(cfg.OutboxDir, exitwal.Options{})
		if err != nil {
			return err
		}

		last, err := outbox.LastSeq()
		if err != nil {
			_ = outbox.Close()
			return err
		}
		sinks = append(sinks, sink.NewOutbox(outbox, sequence.New(last), log))

		bc, err := broadcaster.New(outbox, broadcaster.Config{
			Brokers:    cfg.KafkaBrokers,
			Topic:      cfg.KafkaTopic,
			Interval:   cfg.BroadcastInterval,
			MaxRetries: uint32(cfg.BroadcastRetries),
		}, log)
		if err != nil {
			_ = outbox.Close()
			return err
		}

		// Stopped only after the processor returns, so the final drain
		// sees every emitted event.
		bcCtx, stopBC := context.WithCancel(context.Background())
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			bc.Run(bcCtx)
		}()
		defer func() {
			stopBC()
			wg.Wait()
			_ = bc.Close()
			_ = outbox.Close()
		}()

	case len(cfg.KafkaBrokers) > 0:
		ks := kafka.NewSink(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		defer ks.Close()
		sinks = append(sinks, ks)
	}

	// ---------------- Service ----------------

	p := service.NewProcessor(book, sinks, opts...)

	cmds := make(chan command.Command, 64)
	go readCommands(ctx, in, cmds, m, log)

	log.Info("crossbook ready", zap.Int("sinks", len(sinks)))
	if err := p.Run(ctx, cmds); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("crossbook stopped")
	return nil
}

// readCommands decodes one command per input line. Malformed lines are
// dropped without output.
func readCommands(ctx context.Context, in io.Reader, cmds chan<- command.Command, m *metrics.Metrics, log *zap.Logger) {
	defer close(cmds)

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		cmd, err := text.Decode(sc.Text())
		if err != nil {
			m.Rejected("malformed")
			log.Debug("dropping malformed line", zap.Error(err))
			continue
		}
		select {
		case cmds <- cmd:
		case <-ctx.Done():
			return
		}
	}
	if err := sc.Err(); err != nil {
		log.Error("reading input failed", zap.Error(err))
	}
}
