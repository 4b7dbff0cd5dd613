package schema

import (
	"github.com/aretw0/launchpad/pkg/domain"
	"github.com/invopop/jsonschema"
)

// ScriptDocument is the on-disk shape of a script.
type ScriptDocument struct {
	Daemon bool           `json:"daemon,omitempty" jsonschema:"description=Keep sessions alive after the last step"`
	Run    []StepDocument `json:"run" jsonschema:"description=Ordered steps"`
}

// StepDocument is one entry of run.
type StepDocument struct {
	Method string         `json:"method" jsonschema:"enum=shell.run,enum=script.start"`
	Params map[string]any `json:"params,omitempty"`
}

// ShellParams are the params of a shell.run step.
type ShellParams struct {
	ID      string            `json:"id,omitempty" mapstructure:"id" jsonschema:"description=Session id; steps sharing it share a process"`
	Path    string            `json:"path,omitempty" mapstructure:"path" jsonschema:"description=Working directory relative to the inherited one"`
	Venv    string            `json:"venv,omitempty" mapstructure:"venv" jsonschema:"description=Virtual environment to activate"`
	Env     map[string]string `json:"env,omitempty" mapstructure:"env"`
	Message any               `json:"message" mapstructure:"message" jsonschema:"description=Command or list of commands"`
	On      []TriggerDocument `json:"on,omitempty" mapstructure:"on"`
}

// TriggerDocument is one entry of a shell.run step's on list.
type TriggerDocument struct {
	Event string `json:"event" mapstructure:"event" jsonschema:"minLength=1,description=Pattern as /body/flags or a bare regular expression"`
	Done  bool   `json:"done,omitempty" mapstructure:"done"`
	Kill  bool   `json:"kill,omitempty" mapstructure:"kill"`
}

// ScriptParams are the params of a script.start step.
type ScriptParams struct {
	URI    string         `json:"uri" mapstructure:"uri" jsonschema:"minLength=1,description=Nested script, relative to this one"`
	Params map[string]any `json:"params,omitempty" mapstructure:"params"`
}

// JSONSchemaExtend narrows params by method.
func (StepDocument) JSONSchemaExtend(s *jsonschema.Schema) {
	s.AllOf = []*jsonschema.Schema{
		paramsFor(domain.MethodShellRun, "#/$defs/ShellParams"),
		paramsFor(domain.MethodScriptStart, "#/$defs/ScriptParams"),
	}
}

// JSONSchemaExtend accepts message as a string or a list of strings.
func (ShellParams) JSONSchemaExtend(s *jsonschema.Schema) {
	s.Properties.Set("message", &jsonschema.Schema{
		Description: "Command or list of commands",
		AnyOf: []*jsonschema.Schema{
			{Type: "string"},
			{Type: "array", Items: &jsonschema.Schema{Type: "string"}, MinItems: uint64Ptr(1)},
		},
	})
}

func paramsFor(method, ref string) *jsonschema.Schema {
	when := jsonschema.NewProperties()
	when.Set("method", &jsonschema.Schema{Const: method})

	then := jsonschema.NewProperties()
	then.Set("params", &jsonschema.Schema{Ref: ref})

	return &jsonschema.Schema{
		If:   &jsonschema.Schema{Properties: when, Required: []string{"method"}},
		Then: &jsonschema.Schema{Properties: then, Required: []string{"params"}},
	}
}

func uint64Ptr(v uint64) *uint64 { return &v }
