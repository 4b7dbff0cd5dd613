package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/aretw0/launchpad"
	"github.com/aretw0/launchpad/internal/logging"
	httpAdapter "github.com/aretw0/launchpad/pkg/adapters/http"
	mcpAdapter "github.com/aretw0/launchpad/pkg/adapters/mcp"
	"github.com/aretw0/launchpad/pkg/observability"
	"github.com/aretw0/launchpad/pkg/service"
)

// MCP transports.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// ServeOptions configures the HTTP operator API.
type ServeOptions struct {
	Options
	Addr    string
	Metrics bool
}

// serverLogger logs at info level unless Debug is set. Servers always log to stderr.
func serverLogger(opts Options) *slog.Logger {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	return logging.NewWriter(os.Stderr, level, opts.LogFormat == "json")
}

// newManager builds an engine whose session output is only retained, not printed.
func newManager(opts Options, logger *slog.Logger, extra ...launchpad.Option) (*service.Manager, error) {
	engine, err := createEngine(opts, logger, extra...)
	if err != nil {
		return nil, err
	}
	return service.NewManager(engine, service.WithLogger(logger)), nil
}

// Serve runs the HTTP operator API until ctx ends, then stops every run.
func Serve(ctx context.Context, opts ServeOptions, w io.Writer) error {
	logger := serverLogger(opts.Options)

	var extra []launchpad.Option
	var handlerOpts []httpAdapter.Option
	if opts.Metrics {
		metrics := observability.NewMetrics()
		extra = append(extra, launchpad.WithLifecycleHooks(metrics.Hooks()))
		handlerOpts = append(handlerOpts, httpAdapter.WithMetrics(metrics.Handler()))
	}
	runs, err := newManager(opts.Options, logger, extra...)
	if err != nil {
		return err
	}
	handlerOpts = append(handlerOpts, httpAdapter.WithLogger(logger))

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", opts.Addr, err)
	}
	srv := &http.Server{
		Handler:           httpAdapter.NewHandler(runs, handlerOpts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sc := NewSignalContext(ctx)
	defer sc.Cancel()

	serverErrors := make(chan error, 1)
	go func() {
		printSystemMessage(w, fmt.Sprintf("serving %s on http://%s", runs.Engine().Name, ln.Addr()))
		serverErrors <- srv.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		_ = runs.Close(context.Background())
		return err
	case <-sc.Done():
		if sig := sc.Signal(); sig != nil {
			printSystemMessage(w, fmt.Sprintf("received %v, shutting down", sig))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	if cerr := runs.Close(shutdownCtx); cerr != nil {
		err = errors.Join(err, cerr)
	}
	return err
}

// ServeMCP runs the MCP server on the given transport until ctx ends.
func ServeMCP(ctx context.Context, opts Options, transport string, port int) error {
	logger := serverLogger(opts)
	runs, err := newManager(opts, logger)
	if err != nil {
		return err
	}
	srv := mcpAdapter.NewServer(runs, mcpAdapter.WithLogger(logger))

	sc := NewSignalContext(ctx)
	defer sc.Cancel()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		_ = runs.Close(shutdownCtx)
	}()

	switch transport {
	case TransportStdio:
		logger.Info("starting MCP server (stdio)")
		return srv.ServeStdio()
	case TransportSSE:
		logger.Info("starting MCP server (SSE)", "port", port)
		if err := srv.ServeSSE(sc, port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	default:
		return fmt.Errorf("unknown transport %q (want %s or %s)", transport, TransportStdio, TransportSSE)
	}
}
