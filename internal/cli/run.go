package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/launchpad"
	"github.com/aretw0/launchpad/internal/presentation/tui"
	"github.com/aretw0/launchpad/pkg/ports"
)

// ShutdownTimeout bounds how long the CLI waits for sessions to terminate.
const ShutdownTimeout = 10 * time.Second

// Run executes a script from the CLI: output is streamed to stdout, daemon
// sessions are kept in the foreground until they exit or the user interrupts.
func Run(ctx context.Context, opts RunOptions, stdout, stderr io.Writer) error {
	logger := createLogger(opts.Options)

	params, err := ParseParams(opts.JSON, opts.Params)
	if err != nil {
		return err
	}

	ref := opts.Ref
	if ref == "" {
		ref = determineEntryPoint(opts.Dir)
	}

	var sink ports.OutputSink
	var console *tui.Console
	if !opts.Quiet {
		console = tui.NewConsole(stdout)
		sink = console
		tui.PrintBanner(stdout, ref)
	}

	engine, err := createEngine(opts.Options, logger, launchpad.WithOutputSink(sink))
	if err != nil {
		return err
	}

	sc := NewSignalContext(ctx)
	defer sc.Cancel()

	inv, res, err := engine.Run(sc, ref, params)
	if console != nil {
		defer console.Flush()
	}
	if err != nil {
		shutdown(inv, logger)
		return handleExecutionError(stderr, sc, err)
	}

	logger.Info("run finished", "run", res.RunID, "steps", res.Steps, "alive", len(res.Alive))
	if len(res.Alive) == 0 || opts.Detach {
		return nil
	}

	printSystemMessage(stderr, fmt.Sprintf("%d session(s) alive: %s (Ctrl+C to stop)", len(res.Alive), strings.Join(res.Alive, ", ")))
	if err := inv.Wait(sc); err != nil && sc.Signal() != nil {
		printSystemMessage(stderr, fmt.Sprintf("received %v, stopping sessions", sc.Signal()))
	}
	shutdown(inv, logger)
	return nil
}

func shutdown(inv *launchpad.Invocation, logger *slog.Logger) {
	if inv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := inv.Shutdown(ctx); err != nil {
		logger.Warn("shutdown incomplete", "err", err)
	}
}

// isInterrupted reports whether err came from a user signal.
func isInterrupted(sc *SignalContext, err error) bool {
	return sc.Signal() != nil && errors.Is(err, context.Canceled)
}

func handleExecutionError(w io.Writer, sc *SignalContext, err error) error {
	if isInterrupted(sc, err) {
		printSystemMessage(w, "interrupted")
		return nil
	}
	return err
}

func printSystemMessage(w io.Writer, msg string) {
	fmt.Fprintf(w, ">>> %s\n", msg)
}
