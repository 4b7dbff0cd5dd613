package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/launchpad/internal/validator"
	"github.com/aretw0/launchpad/pkg/domain"
)

// Overlay contains live state to visualize on the graph.
type Overlay struct {
	// LiveSessions are session ids currently running.
	LiveSessions []string
}

// GenerateMermaid produces a Mermaid flowchart of a validated script tree.
// Each script is a subgraph of its steps in order:
// - shell.run: [Rectangle] labelled with the session id
// - script.start: [[Subroutine]] with a dotted edge to the nested script
// Trigger edges are labelled with their pattern and mode.
func GenerateMermaid(report *validator.Report, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	live := map[string]bool{}
	if overlay != nil {
		for _, id := range overlay.LiveSessions {
			live[id] = true
		}
	}
	var liveNodes []string

	for _, ref := range report.Scripts {
		script := report.Loaded[ref]
		if script == nil {
			continue
		}
		title := ref
		if script.Daemon {
			title += " (daemon)"
		}
		fmt.Fprintf(&sb, "    subgraph %s[\"%s\"]\n", sanitizeMermaidID("s_"+ref), escape(title))

		for i, step := range script.Steps {
			id := stepID(ref, i)
			switch s := step.(type) {
			case *domain.ShellStep:
				name := s.SessionID
				if name == "" {
					name = "shell"
				}
				fmt.Fprintf(&sb, "        %s[\"%s\"]\n", id, escape(fmt.Sprintf("%d. %s", i+1, name)))
				if live[s.SessionID] {
					liveNodes = append(liveNodes, id)
				}
			case *domain.ScriptStep:
				fmt.Fprintf(&sb, "        %s[[\"%s\"]]\n", id, escape(fmt.Sprintf("%d. %s", i+1, s.URI)))
			}
		}
		sb.WriteString("    end\n")

		for i, step := range script.Steps {
			if i+1 < len(script.Steps) {
				fmt.Fprintf(&sb, "    %s %s %s\n", stepID(ref, i), arrow(step), stepID(ref, i+1))
			}
			if _, ok := step.(*domain.ScriptStep); ok {
				if target, ok := report.Targets[validator.StepRef{Ref: ref, Index: i}]; ok {
					fmt.Fprintf(&sb, "    %s -.-> %s\n", stepID(ref, i), sanitizeMermaidID("s_"+target))
				}
			}
		}
	}

	if len(liveNodes) > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef live fill:#c8e6c9,stroke:#2e7d32,stroke-width:3px,color:#000;\n")
		for _, id := range liveNodes {
			fmt.Fprintf(&sb, "    class %s live;\n", id)
		}
	}

	return sb.String()
}

// arrow labels the edge leaving step with its continuation rule.
func arrow(step domain.Step) string {
	s, ok := step.(*domain.ShellStep)
	if !ok || !s.Awaits() {
		return "-->"
	}
	labels := make([]string, 0, len(s.Triggers))
	for _, t := range s.Triggers {
		labels = append(labels, fmt.Sprintf("%s %s", t.Source, t.Mode))
	}
	return fmt.Sprintf("-- \"%s\" -->", escape(strings.Join(labels, " | ")))
}

func stepID(ref string, i int) string {
	return sanitizeMermaidID(fmt.Sprintf("%s_%d", ref, i))
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", ":", "_", " ", "_")
	return r.Replace(id)
}
