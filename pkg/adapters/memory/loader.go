package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/aretw0/launchpad/pkg/ports"
)

// Loader implements ports.ScriptLoader using an in-memory map.
// Keys are slash-separated references such as "install.json" or "app/torch.yaml".
type Loader struct {
	scripts map[string][]byte
}

// NewLoader creates a new Loader with the provided raw documents.
func NewLoader(data map[string]string) *Loader {
	scripts := make(map[string][]byte, len(data))
	for k, v := range data {
		scripts[path.Clean(k)] = []byte(v)
	}
	return &Loader{scripts: scripts}
}

// NewFromDocuments creates a Loader from Go values, marshaling each to JSON.
// This keeps tests free of hand-written JSON.
func NewFromDocuments(docs map[string]any) (*Loader, error) {
	scripts := make(map[string][]byte, len(docs))
	for ref, doc := range docs {
		if ref == "" {
			return nil, fmt.Errorf("document missing reference")
		}
		b, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal document %s: %w", ref, err)
		}
		scripts[path.Clean(ref)] = b
	}
	return &Loader{scripts: scripts}, nil
}

// Resolve implements ports.ScriptLoader.
func (l *Loader) Resolve(_ context.Context, ref, base string) (ports.Source, error) {
	key := ref
	if base != "" && !path.IsAbs(ref) {
		key = path.Join(path.Dir(base), ref)
	}
	key = path.Clean(key)

	content, ok := l.scripts[key]
	if !ok {
		return ports.Source{}, fmt.Errorf("script not found: %s", key)
	}
	return ports.Source{Ref: key, Data: content, Format: FormatOf(key)}, nil
}

// List returns all available references.
func (l *Loader) List(_ context.Context) ([]string, error) {
	keys := make([]string, 0, len(l.scripts))
	for k := range l.scripts {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order
	return keys, nil
}

// FormatOf infers the document format from a reference's extension.
func FormatOf(ref string) string {
	switch strings.ToLower(path.Ext(ref)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}
