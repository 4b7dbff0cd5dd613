package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/launchpad/internal/validator"
	"github.com/aretw0/launchpad/pkg/domain"
)

// Describe summarizes a validated script tree as markdown.
func Describe(report *validator.Report) string {
	var b strings.Builder

	for _, ref := range report.Scripts {
		script := report.Loaded[ref]
		if script == nil {
			continue
		}
		fmt.Fprintf(&b, "# %s\n\n", ref)
		if script.Daemon {
			b.WriteString("**daemon**: sessions stay alive after the last step.\n\n")
		}

		for i, step := range script.Steps {
			switch s := step.(type) {
			case *domain.ShellStep:
				id := s.SessionID
				if id == "" {
					id = "(generated)"
				}
				fmt.Fprintf(&b, "%d. `shell.run` session **%s**", i+1, id)
				if ctx := contextSummary(s.Overrides); ctx != "" {
					fmt.Fprintf(&b, " (%s)", ctx)
				}
				b.WriteString("\n\n")
				b.WriteString("   ```sh\n")
				for _, cmd := range s.Commands {
					fmt.Fprintf(&b, "   %s\n", strings.TrimRight(cmd, "\n"))
				}
				b.WriteString("   ```\n\n")
				if !s.Awaits() {
					b.WriteString("   continues when the process exits\n\n")
				}
				for _, t := range s.Triggers {
					fmt.Fprintf(&b, "   - on `%s`: **%s**\n", t.Source, t.Mode)
				}
				if s.Awaits() {
					b.WriteString("\n")
				}
			case *domain.ScriptStep:
				fmt.Fprintf(&b, "%d. `script.start` %s", i+1, s.URI)
				if target, ok := report.Targets[validator.StepRef{Ref: ref, Index: i}]; ok && target != s.URI {
					fmt.Fprintf(&b, " → %s", target)
				}
				b.WriteString("\n\n")
				for _, k := range sortedKeys(s.Params) {
					fmt.Fprintf(&b, "   - %s: `%v`\n", k, s.Params[k])
				}
				if len(s.Params) > 0 {
					b.WriteString("\n")
				}
			}
		}
	}

	if len(report.Dynamic) > 0 {
		b.WriteString("## Dynamic references\n\n")
		for _, d := range report.Dynamic {
			fmt.Fprintf(&b, "- %s\n", d)
		}
		b.WriteString("\n")
	}
	if len(report.Errors) > 0 {
		b.WriteString("## Errors\n\n")
		for _, err := range report.Errors {
			fmt.Fprintf(&b, "- %s\n", err)
		}
	}
	return b.String()
}

func contextSummary(ov domain.Overrides) string {
	var parts []string
	if ov.Path != "" {
		parts = append(parts, "path "+ov.Path)
	}
	if ov.Venv != "" {
		parts = append(parts, "venv "+ov.Venv)
	}
	for _, k := range sortedKeys(ov.Env) {
		parts = append(parts, k+"="+ov.Env[k])
	}
	return strings.Join(parts, ", ")
}
