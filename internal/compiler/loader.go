package compiler

import (
	"context"

	"github.com/aretw0/launchpad/pkg/domain"
	"github.com/aretw0/launchpad/pkg/ports"
)

// Loader resolves script references and parses them.
type Loader struct {
	source ports.ScriptLoader
	parser *Parser
}

// NewLoader creates a Loader over source.
func NewLoader(source ports.ScriptLoader) *Loader {
	return &Loader{source: source, parser: NewParser()}
}

// Source returns the underlying ports.ScriptLoader.
func (l *Loader) Source() ports.ScriptLoader { return l.source }

// Load resolves ref (relative to base, the Ref of the referencing script) and parses it.
// Resolution failures are reported as *domain.ScriptResolutionError.
func (l *Loader) Load(ctx context.Context, ref, base string) (*domain.Script, error) {
	src, err := l.source.Resolve(ctx, ref, base)
	if err != nil {
		return nil, &domain.ScriptResolutionError{Ref: ref, Err: err}
	}
	return l.parser.Parse(src)
}
