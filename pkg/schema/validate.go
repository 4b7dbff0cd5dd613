package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// ID is the canonical identifier of the script schema.
const ID = "https://github.com/aretw0/launchpad/schemas/script.json"

const resourceName = "script.json"

// Generate reflects the script document types into a JSON Schema.
func Generate() *jsonschema.Schema {
	r := &jsonschema.Reflector{AllowAdditionalProperties: true}

	s := r.Reflect(&ScriptDocument{})
	s.ID = ID
	s.Title = "launchpad script"
	s.Description = "Ordered shell.run and script.start steps"

	// Params are free-form in StepDocument; the per-method shapes live beside it.
	for _, v := range []any{&ShellParams{}, &ScriptParams{}} {
		sub := r.Reflect(v)
		for name, def := range sub.Definitions {
			s.Definitions[name] = def
		}
	}
	return s
}

// JSON returns the indented schema document.
func JSON() ([]byte, error) {
	data, err := json.MarshalIndent(Generate(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}

var compiled = sync.OnceValues(func() (*sjsonschema.Schema, error) {
	raw, err := JSON()
	if err != nil {
		return nil, err
	}
	doc, err := sjsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	c := sjsonschema.NewCompiler()
	if err := c.AddResource(resourceName, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	sch, err := c.Compile(resourceName)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return sch, nil
})

// Validate checks a generic decoded document (maps, slices, scalars as produced
// by encoding/json) against the script schema.
// It returns an *AggregateError listing every failing location.
func Validate(doc any) error {
	sch, err := compiled()
	if err != nil {
		return err
	}

	err = sch.Validate(doc)
	if err == nil {
		return nil
	}

	var ve *sjsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &AggregateError{Errors: []error{err}}
	}

	leaves := flattenValidationErrors(ve)
	errs := make([]error, 0, len(leaves))
	seen := make(map[string]bool, len(leaves))
	for _, leaf := range leaves {
		v := &ValidationError{
			Path:   "/" + strings.Join(leaf.InstanceLocation, "/"),
			Reason: reason(leaf),
		}
		if v.Path == "/" {
			v.Path = ""
		}
		if key := v.Error(); !seen[key] {
			seen[key] = true
			errs = append(errs, v)
		}
	}
	sort.SliceStable(errs, func(i, j int) bool {
		return errs[i].(*ValidationError).Path < errs[j].(*ValidationError).Path
	})
	return &AggregateError{Errors: errs}
}

// flattenValidationErrors recursively collects all leaf validation errors.
func flattenValidationErrors(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenValidationErrors(cause)...)
	}
	return flat
}

// reason strips the "at '<location>': " prefix; the location is reported separately.
func reason(leaf *sjsonschema.ValidationError) string {
	msg := leaf.Error()
	if i := strings.Index(msg, "': "); i >= 0 && strings.HasPrefix(msg, "at '") {
		return msg[i+3:]
	}
	return msg
}
