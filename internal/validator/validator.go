package validator

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/launchpad/internal/compiler"
	"github.com/aretw0/launchpad/pkg/domain"
)

// StepRef addresses one step of a loaded script.
type StepRef struct {
	Ref   string
	Index int
}

// Report is the outcome of a tree validation.
type Report struct {
	// Scripts lists every resolved reference, in visit order.
	Scripts []string
	// Loaded holds the parsed scripts by reference.
	Loaded map[string]*domain.Script
	// Targets maps script.start steps to the reference they resolved to.
	Targets map[StepRef]string
	// Dynamic lists nested references that depend on params and were not followed.
	Dynamic []string
	Errors  []error
}

// Err folds the collected errors into one, or returns nil.
func (r *Report) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	msgs := make([]string, len(r.Errors))
	for i, err := range r.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Errorf("found %d errors:\n- %s", len(r.Errors), strings.Join(msgs, "\n- "))
}

// ValidateTree loads ref and every script it statically reaches through
// script.start, reporting broken references, malformed documents and cycles.
func ValidateTree(ctx context.Context, loader *compiler.Loader, ref string) *Report {
	v := &walker{
		loader: loader,
		report: &Report{
			Loaded:  map[string]*domain.Script{},
			Targets: map[StepRef]string{},
		},
		visited: map[string]bool{},
	}
	v.visit(ctx, ref, "", nil)
	return v.report
}

type walker struct {
	loader  *compiler.Loader
	report  *Report
	visited map[string]bool
}

// visit returns the resolved reference of ref, or "" when it failed to load.
func (w *walker) visit(ctx context.Context, ref, base string, chain []string) string {
	if err := ctx.Err(); err != nil {
		w.report.Errors = append(w.report.Errors, err)
		return ""
	}

	script, err := w.loader.Load(ctx, ref, base)
	if err != nil {
		if base != "" {
			err = fmt.Errorf("referenced from %s: %w", base, err)
		}
		w.report.Errors = append(w.report.Errors, err)
		return ""
	}

	for _, seen := range chain {
		if seen == script.Ref {
			w.report.Errors = append(w.report.Errors, &domain.ScriptResolutionError{
				Ref: script.Ref,
				Err: fmt.Errorf("%w: %s", domain.ErrCyclicScript, strings.Join(append(chain, script.Ref), " -> ")),
			})
			return script.Ref
		}
	}
	if w.visited[script.Ref] {
		return script.Ref
	}
	w.visited[script.Ref] = true
	w.report.Scripts = append(w.report.Scripts, script.Ref)
	w.report.Loaded[script.Ref] = script

	chain = append(chain[:len(chain):len(chain)], script.Ref)
	for i, step := range script.Steps {
		nested, ok := step.(*domain.ScriptStep)
		if !ok {
			continue
		}
		if compiler.HasTemplate(nested.URI) {
			w.report.Dynamic = append(w.report.Dynamic, script.Ref+": "+nested.URI)
			continue
		}
		if target := w.visit(ctx, nested.URI, script.Ref, chain); target != "" {
			w.report.Targets[StepRef{Ref: script.Ref, Index: i}] = target
		}
	}
	return script.Ref
}
