// Package mcp exposes launchpad runs as Model Context Protocol tools so that
// agents can start scripts, watch their sessions and answer prompts.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/launchpad"
	"github.com/aretw0/launchpad/internal/logging"
	"github.com/aretw0/launchpad/pkg/service"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RunsURI is the resource listing the runs known to the server.
const RunsURI = "launchpad://runs"

// RunArgs are the arguments of run_script.
type RunArgs struct {
	Ref    string         `json:"ref"`
	Params map[string]any `json:"params,omitempty"`
	// Wait blocks until the step list is done (daemon sessions stay alive).
	Wait bool `json:"wait,omitempty"`
	// Timeout bounds Wait, in seconds.
	Timeout float64 `json:"timeout,omitempty"`
}

// RunRef addresses a run.
type RunRef struct {
	Run string `json:"run"`
}

// SessionArgs addresses a session of a run.
type SessionArgs struct {
	Run     string `json:"run"`
	Session string `json:"session"`
	Input   string `json:"input,omitempty"`
	// Tail limits read_output to the last N bytes.
	Tail int `json:"tail,omitempty"`
}

// ScriptArgs names a script.
type ScriptArgs struct {
	Ref string `json:"ref"`
}

// OutputResponse is the result of read_output.
type OutputResponse struct {
	Run     string `json:"run"`
	Session string `json:"session"`
	Output  string `json:"output"`
}

// ValidationResponse is the result of validate_script.
type ValidationResponse struct {
	Valid   bool     `json:"valid"`
	Scripts []string `json:"scripts"`
	Dynamic []string `json:"dynamic,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// DefaultWaitTimeout bounds run_script when wait is set without a timeout.
const DefaultWaitTimeout = 5 * time.Minute

// Server wraps a run manager and exposes it as an MCP server.
type Server struct {
	runs      *service.Manager
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger. It must not write to stdout when serving stdio.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(runs *service.Manager, opts ...Option) *Server {
	s := &Server{
		runs:      runs,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("launchpad-mcp", strings.TrimSpace(launchpad.Version), server.WithToolCapabilities(false)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops it when ctx ends.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(fmt.Sprintf("http://localhost:%d", port)))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))
	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("run_script",
		mcp.WithDescription("Start a launchpad script. Returns the run with its live sessions."),
		mcp.WithString("ref", mcp.Required(), mcp.Description("Script reference, relative to the script root")),
		mcp.WithObject("params", mcp.Description("Arguments exposed to the script as args; path, venv and env seed its context")),
		mcp.WithBoolean("wait", mcp.Description("Block until the step list is done")),
		mcp.WithNumber("timeout", mcp.Description("Seconds to wait when wait is set")),
		mcp.WithOutputSchema[service.RunInfo](),
	), mcp.NewStructuredToolHandler(s.handleRun))

	s.mcpServer.AddTool(mcp.NewTool("get_run",
		mcp.WithDescription("Get the status and live sessions of a run."),
		mcp.WithString("run", mcp.Required(), mcp.Description("Run ID")),
		mcp.WithOutputSchema[service.RunInfo](),
	), mcp.NewStructuredToolHandler(func(ctx context.Context, _ mcp.CallToolRequest, args RunRef) (service.RunInfo, error) {
		return s.runs.Get(args.Run)
	}))

	s.mcpServer.AddTool(mcp.NewTool("list_runs",
		mcp.WithDescription("List the runs started through this server."),
	), func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultJSON(map[string]any{"runs": s.runs.List()})
	})

	s.mcpServer.AddTool(mcp.NewTool("stop_run",
		mcp.WithDescription("Abort a run and terminate all of its sessions, daemon ones included."),
		mcp.WithString("run", mcp.Required(), mcp.Description("Run ID")),
		mcp.WithOutputSchema[service.RunInfo](),
	), mcp.NewStructuredToolHandler(func(ctx context.Context, _ mcp.CallToolRequest, args RunRef) (service.RunInfo, error) {
		return s.runs.Stop(ctx, args.Run)
	}))

	s.mcpServer.AddTool(mcp.NewTool("read_output",
		mcp.WithDescription("Read the retained output of a live session."),
		mcp.WithString("run", mcp.Required(), mcp.Description("Run ID")),
		mcp.WithString("session", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithNumber("tail", mcp.Description("Only return the last N bytes")),
		mcp.WithOutputSchema[OutputResponse](),
	), mcp.NewStructuredToolHandler(s.handleOutput))

	s.mcpServer.AddTool(mcp.NewTool("send_input",
		mcp.WithDescription("Write input to a live session, one command per line."),
		mcp.WithString("run", mcp.Required(), mcp.Description("Run ID")),
		mcp.WithString("session", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithString("input", mcp.Required(), mcp.Description("Text to send")),
	), mcp.NewTypedToolHandler(func(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (*mcp.CallToolResult, error) {
		if err := s.runs.Send(args.Run, args.Session, args.Input); err != nil {
			s.logger.Warn("MCP send_input rejected", "run", args.Run, "session", args.Session, "err", err)
			return mcp.NewToolResultErrorFromErr("send failed", err), nil
		}
		return mcp.NewToolResultText("sent"), nil
	}))

	s.mcpServer.AddTool(mcp.NewTool("kill_session",
		mcp.WithDescription("Terminate one session of a run."),
		mcp.WithString("run", mcp.Required(), mcp.Description("Run ID")),
		mcp.WithString("session", mcp.Required(), mcp.Description("Session ID")),
	), mcp.NewTypedToolHandler(func(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (*mcp.CallToolResult, error) {
		if err := s.runs.Kill(ctx, args.Run, args.Session); err != nil {
			return mcp.NewToolResultErrorFromErr("kill failed", err), nil
		}
		return mcp.NewToolResultText("killed"), nil
	}))

	s.mcpServer.AddTool(mcp.NewTool("validate_script",
		mcp.WithDescription("Check a script and every script it statically references."),
		mcp.WithString("ref", mcp.Required(), mcp.Description("Script reference")),
		mcp.WithOutputSchema[ValidationResponse](),
	), mcp.NewStructuredToolHandler(func(ctx context.Context, _ mcp.CallToolRequest, args ScriptArgs) (ValidationResponse, error) {
		report := s.runs.Engine().Validate(ctx, args.Ref)
		resp := ValidationResponse{Valid: len(report.Errors) == 0, Scripts: report.Scripts, Dynamic: report.Dynamic}
		for _, err := range report.Errors {
			resp.Errors = append(resp.Errors, err.Error())
		}
		return resp, nil
	}))
}

func (s *Server) handleRun(ctx context.Context, _ mcp.CallToolRequest, args RunArgs) (service.RunInfo, error) {
	if args.Ref == "" {
		return service.RunInfo{}, errors.New("ref is required")
	}
	info, err := s.runs.Start(ctx, args.Ref, args.Params)
	if err != nil {
		return service.RunInfo{}, err
	}
	if !args.Wait {
		return info, nil
	}

	timeout := DefaultWaitTimeout
	if args.Timeout > 0 {
		timeout = time.Duration(args.Timeout * float64(time.Second))
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	info, err = s.runs.Wait(waitCtx, info.ID)
	if errors.Is(err, context.DeadlineExceeded) {
		// Still running: the caller polls with get_run.
		return info, nil
	}
	return info, err
}

func (s *Server) handleOutput(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (OutputResponse, error) {
	out, err := s.runs.Output(args.Run, args.Session)
	if err != nil {
		return OutputResponse{}, err
	}
	if args.Tail > 0 && len(out) > args.Tail {
		out = out[len(out)-args.Tail:]
	}
	return OutputResponse{Run: args.Run, Session: args.Session, Output: string(out)}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(RunsURI, "Launchpad runs",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(s.runs.List())
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: RunsURI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})
}
