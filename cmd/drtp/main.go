// Command drtp is the DRTP client/server CLI: it owns argument parsing,
// file I/O, the interrupt signal that cancels an in-flight transfer
// cleanly, and a per-strategy transfer summary printed when a run
// completes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/rvento/drtp/internal/config"
	"github.com/rvento/drtp/internal/drtperr"
	"github.com/rvento/drtp/internal/fileio"
	"github.com/rvento/drtp/pkg/drtp/connection"
	"github.com/rvento/drtp/pkg/drtp/framing"
	"github.com/rvento/drtp/pkg/drtp/log"
	"github.com/rvento/drtp/pkg/drtp/receiver"
	"github.com/rvento/drtp/pkg/drtp/sender"
	"github.com/rvento/drtp/pkg/drtp/strategy"
	"github.com/rvento/drtp/pkg/drtp/transport"
)

// version is the CLI's own version banner; DRTP has no release process of
// its own so this stays a fixed string rather than an -ldflags injection
// point.
const version = "0.1.0"

// acceptTimeout bounds how long the server waits for an initial SYN before
// retrying accept; it is not part of the handshake retry budget itself.
const acceptTimeout = 30 * time.Second

func main() {
	root := &cobra.Command{
		Use:           "drtp",
		Short:         "DRTP file transfer client/server",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	flags := config.Register(root.PersistentFlags())
	root.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Parse(flags)
		if err != nil {
			return err
		}
		if err := log.SetLevel(cfg.LogLevel); err != nil {
			return err
		}
		log.Banner("drtp", version)

		ctx, cancel := signalContext()
		defer cancel()

		switch cfg.Mode {
		case config.ModeClient:
			return runClient(ctx, cfg)
		case config.ModeServer:
			return runServer(ctx, cfg)
		default:
			return errors.New("unreachable: config.Parse validates mode")
		}
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "drtp:", err)
		os.Exit(1)
	}
}

// signalContext cancels its context on SIGINT/SIGTERM so an interrupted
// transfer releases its socket and exits cleanly instead of leaking it.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx, stop
}

func runClient(ctx context.Context, cfg *config.Config) error {
	data, err := fileio.ReadFile(cfg.File)
	if err != nil {
		return err
	}
	chunks, err := fileio.Chunk(filepath.Base(cfg.File), data, cfg.Window)
	if err != nil {
		return err
	}

	ep, err := transport.Dial(cfg.IP, cfg.Port)
	if err != nil {
		return err
	}
	defer ep.Close()

	conn, err := connection.OpenClient(ctx, ep, uint16(cfg.Window), cfg.Reliability)
	if err != nil {
		return exitErr(err)
	}

	sOpts := sender.Options{Window: cfg.SlidingWindow}
	if cfg.TestMode == strategy.TestModeLoss {
		sOpts.SkipOnce, sOpts.SkipIdx = true, 0
	}
	result, err := sender.Run(ctx, conn, chunks, sOpts)
	if err != nil {
		return exitErr(err)
	}
	if err := connection.CloseInitiator(ctx, conn); err != nil {
		return exitErr(err)
	}

	printSummary(conn.Strategy, len(data), result.Elapsed, result.Retransmits)
	return nil
}

func runServer(ctx context.Context, cfg *config.Config) error {
	ep, err := transport.Listen(cfg.IP, cfg.Port)
	if err != nil {
		return err
	}
	defer ep.Close()

	conn, err := connection.OpenServer(ctx, ep, cfg.Reliability, acceptTimeout)
	if err != nil {
		return exitErr(err)
	}

	rOpts := receiver.Options{Window: cfg.SlidingWindow}
	if cfg.TestMode == strategy.TestModeSkipAck {
		rOpts.SkipAckOnce, rOpts.SkipAckIdx = true, 0
	}
	result, err := receiver.Run(ctx, conn, rOpts)
	if err != nil {
		return exitErr(err)
	}
	if err := connection.CloseResponder(conn, result.Fin); err != nil {
		return exitErr(err)
	}

	filename, body, err := framing.Strip(result.Payload)
	if err != nil {
		return err
	}
	if err := fileio.WriteFile(cfg.File, filename, body); err != nil {
		return err
	}

	printSummary(conn.Strategy, result.BytesReceived, result.Elapsed, 0)
	return nil
}

// exitErr wraps a fatal *drtperr.Error with its kind so the message printed
// to stderr says what category of failure ended the run; recoverable
// kinds never reach this function since the engines absorb them internally.
func exitErr(err error) error {
	if derr, ok := err.(*drtperr.Error); ok {
		return errors.Wrapf(derr, "fatal (%s)", derr.Kind)
	}
	return err
}

// printSummary prints the throughput/elapsed/retransmit line at the end of
// a transfer. It reads only the byte counters the core already returns, so
// the core itself stays ignorant of throughput reporting.
func printSummary(st strategy.Kind, bytes int, elapsed time.Duration, retransmits int) {
	seconds := elapsed.Seconds()
	var throughput float64
	if seconds > 0 {
		throughput = float64(bytes) / seconds / (1 << 20)
	}
	log.Success("transfer complete: strategy=%s bytes=%d elapsed=%s throughput=%.2fMB/s retransmits=%d",
		st, bytes, elapsed.Round(time.Millisecond), throughput, retransmits)
}
