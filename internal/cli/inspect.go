package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/aretw0/launchpad/internal/presentation/graph"
	"github.com/aretw0/launchpad/internal/presentation/tui"
	"github.com/aretw0/launchpad/pkg/domain"
	"github.com/aretw0/launchpad/pkg/schema"
)

// Describe output formats.
const (
	FormatMarkdown = "markdown"
	FormatMermaid  = "mermaid"
)

// Validate checks ref and the scripts it reaches. It reports what it
// visited and returns the aggregated errors.
func Validate(ctx context.Context, opts Options, ref string, w io.Writer) error {
	engine, err := createEngine(opts, createLogger(opts))
	if err != nil {
		return err
	}
	if ref == "" {
		ref = determineEntryPoint(opts.Dir)
	}

	report := engine.Validate(ctx, ref)
	for _, s := range report.Scripts {
		fmt.Fprintf(w, "ok   %s\n", s)
	}
	for _, d := range report.Dynamic {
		fmt.Fprintf(w, "skip %s (templated)\n", d)
	}
	return report.Err()
}

// Describe prints the script tree in the requested format.
func Describe(ctx context.Context, opts Options, ref, format string, w io.Writer) error {
	engine, err := createEngine(opts, createLogger(opts))
	if err != nil {
		return err
	}
	if ref == "" {
		ref = determineEntryPoint(opts.Dir)
	}
	report := engine.Validate(ctx, ref)

	switch format {
	case FormatMermaid:
		var overlay *graph.Overlay
		if records, err := engine.Sessions(ctx); err == nil && len(records) > 0 {
			overlay = &graph.Overlay{}
			for _, rec := range records {
				if rec.Status == domain.SessionRunning {
					overlay.LiveSessions = append(overlay.LiveSessions, rec.ID)
				}
			}
		}
		_, err = fmt.Fprintln(w, graph.GenerateMermaid(report, overlay))
		return err
	case FormatMarkdown, "":
		render, err := tui.NewRenderer(tui.IsTerminal(w))
		if err != nil {
			return err
		}
		out, err := render(tui.Describe(report))
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// Sessions lists persisted session records, optionally pruning ended ones first.
func Sessions(ctx context.Context, opts Options, prune bool, w io.Writer) error {
	if opts.Store == StoreNone {
		return fmt.Errorf("sessions requires --store")
	}
	engine, err := createEngine(opts, createLogger(opts))
	if err != nil {
		return err
	}

	if prune {
		n, err := engine.Records().Prune(ctx)
		if err != nil {
			return err
		}
		printSystemMessage(w, fmt.Sprintf("pruned %d ended session(s)", n))
	}

	records, err := engine.Sessions(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSESSION\tSCRIPT\tPID\tSTATUS\tSTARTED")
	for _, rec := range records {
		status := string(rec.Status)
		if rec.Status != domain.SessionRunning {
			status = fmt.Sprintf("%s (%d)", rec.Status, rec.ExitCode)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			rec.RunID, rec.ID, rec.Script, rec.PID, status, rec.StartedAt.Format(time.DateTime))
	}
	return tw.Flush()
}

// Scripts lists the scripts found under opts.Dir.
func Scripts(ctx context.Context, opts Options, w io.Writer) error {
	engine, err := createEngine(opts, createLogger(opts))
	if err != nil {
		return err
	}
	refs, err := engine.Scripts(ctx)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		fmt.Fprintln(w, ref)
	}
	return nil
}

// Schema writes the JSON Schema of the script format.
func Schema(w io.Writer) error {
	data, err := schema.JSON()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
