package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the launchpad banner and the script about to run.
func PrintBanner(w io.Writer, ref string) {
	out := termenv.NewOutput(w)
	title := out.String(" launchpad ").Bold().Foreground(out.Color("#0f172a")).Background(out.Color("#38bdf8"))
	target := out.String(ref).Foreground(out.Color("#7dd3fc"))
	fmt.Fprintf(w, "%s %s\n", title, target)
}
