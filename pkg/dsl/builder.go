package dsl

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/launchpad/pkg/adapters/memory"
	"github.com/aretw0/launchpad/pkg/domain"
	"github.com/aretw0/launchpad/pkg/schema"
)

// Builder collects scripts by reference.
type Builder struct {
	scripts map[string]*ScriptBuilder
}

// New creates an empty builder.
func New() *Builder {
	return &Builder{
		scripts: make(map[string]*ScriptBuilder),
	}
}

// Add creates the script ref.
// If the script already exists, it returns the existing builder.
func (b *Builder) Add(ref string) *ScriptBuilder {
	if sb, ok := b.scripts[ref]; ok {
		return sb
	}
	sb := &ScriptBuilder{builder: b}
	b.scripts[ref] = sb
	return sb
}

// Documents returns the scripts in their on-disk shape.
func (b *Builder) Documents() (map[string]schema.ScriptDocument, error) {
	docs := make(map[string]schema.ScriptDocument, len(b.scripts))
	for ref, sb := range b.scripts {
		doc, err := sb.Document()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ref, err)
		}
		docs[ref] = doc
	}
	return docs, nil
}

// Build compiles the scripts into a memory loader.
func (b *Builder) Build() (*memory.Loader, error) {
	docs, err := b.Documents()
	if err != nil {
		return nil, err
	}
	values := make(map[string]any, len(docs))
	for ref, doc := range docs {
		values[ref] = doc
	}
	loader, err := memory.NewFromDocuments(values)
	if err != nil {
		return nil, fmt.Errorf("failed to build memory loader: %w", err)
	}
	return loader, nil
}

// ScriptBuilder provides a fluent API for one script.
type ScriptBuilder struct {
	builder *Builder
	daemon  bool
	steps   []any // *schema.ShellParams or *schema.ScriptParams
}

// Daemon keeps the script's sessions alive after its last step.
func (s *ScriptBuilder) Daemon() *ScriptBuilder {
	s.daemon = true
	return s
}

// Shell appends a shell.run step feeding commands to session id.
func (s *ScriptBuilder) Shell(id string, commands ...string) *ShellBuilder {
	p := &schema.ShellParams{ID: id}
	if len(commands) == 1 {
		p.Message = commands[0]
	} else {
		p.Message = commands
	}
	s.steps = append(s.steps, p)
	return &ShellBuilder{script: s, params: p}
}

// Start appends a script.start step. uri is relative to this script.
func (s *ScriptBuilder) Start(uri string, params map[string]any) *ScriptBuilder {
	s.steps = append(s.steps, &schema.ScriptParams{URI: uri, Params: params})
	return s
}

// Add switches to another script of the same builder.
func (s *ScriptBuilder) Add(ref string) *ScriptBuilder {
	return s.builder.Add(ref)
}

// Document returns the script in its on-disk shape.
func (s *ScriptBuilder) Document() (schema.ScriptDocument, error) {
	doc := schema.ScriptDocument{Daemon: s.daemon, Run: make([]schema.StepDocument, 0, len(s.steps))}
	for _, step := range s.steps {
		method := domain.MethodShellRun
		if _, ok := step.(*schema.ScriptParams); ok {
			method = domain.MethodScriptStart
		}
		params, err := toParams(step)
		if err != nil {
			return schema.ScriptDocument{}, err
		}
		doc.Run = append(doc.Run, schema.StepDocument{Method: method, Params: params})
	}
	return doc, nil
}

func toParams(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var params map[string]any
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, err
	}
	return params, nil
}
