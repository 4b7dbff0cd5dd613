package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/launchpad/pkg/ports"
)

// extensions probed, in order, when a reference names no existing file.
var extensions = []string{".json", ".yaml", ".yml"}

// config files that live next to scripts but are not scripts.
var config = map[string]bool{"launchpad.yaml": true, "launchpad.yml": true, "launchpad.json": true}

// Loader implements ports.ScriptLoader over the local filesystem.
// Top-level references are resolved against Root; nested ones against the
// directory of the referencing script.
type Loader struct {
	Root string
}

// NewLoader creates a Loader rooted at dir. Empty means the working directory.
func NewLoader(dir string) (*Loader, error) {
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve script root: %w", err)
	}
	return &Loader{Root: abs}, nil
}

// Resolve implements ports.ScriptLoader.
func (l *Loader) Resolve(ctx context.Context, ref, base string) (ports.Source, error) {
	if ref == "" {
		return ports.Source{}, errors.New("empty script reference")
	}

	target := filepath.FromSlash(ref)
	if !filepath.IsAbs(target) {
		dir := l.Root
		if base != "" {
			dir = filepath.Dir(base)
		}
		target = filepath.Join(dir, target)
	}
	target = filepath.Clean(target)

	found, err := probe(target)
	if err != nil {
		return ports.Source{}, err
	}

	data, err := os.ReadFile(found)
	if err != nil {
		return ports.Source{}, fmt.Errorf("failed to read script %s: %w", found, err)
	}
	return ports.Source{Ref: found, Data: data, Format: formatOf(found)}, nil
}

// List returns every script under Root, relative to it, in lexical order.
func (l *Loader) List(ctx context.Context) ([]string, error) {
	var refs []string
	err := filepath.WalkDir(l.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if p != l.Root && (strings.HasPrefix(name, ".") || name == "node_modules") {
				return filepath.SkipDir
			}
			return nil
		}
		if !isScript(p) {
			return nil
		}
		rel, err := filepath.Rel(l.Root, p)
		if err != nil {
			return err
		}
		refs = append(refs, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list scripts: %w", err)
	}
	sort.Strings(refs)
	return refs, nil
}

func probe(target string) (string, error) {
	if info, err := os.Stat(target); err == nil && !info.IsDir() {
		return target, nil
	}
	stem := strings.TrimSuffix(target, filepath.Ext(target))
	for _, ext := range extensions {
		for _, candidate := range []string{target + ext, stem + ext} {
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
	}
	return "", fmt.Errorf("script not found: %s", target)
}

func isScript(p string) bool {
	if config[filepath.Base(p)] {
		return false
	}
	ext := strings.ToLower(filepath.Ext(p))
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func formatOf(p string) string {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}
