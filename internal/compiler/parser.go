package compiler

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/launchpad/pkg/domain"
	"github.com/aretw0/launchpad/pkg/ports"
	"github.com/aretw0/launchpad/pkg/schema"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Parser is responsible for converting raw documents into Scripts.
type Parser struct{}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	return &Parser{}
}

// Decode turns raw JSON or YAML into generic JSON values (maps, slices, float64, string, bool).
func Decode(data []byte, format string) (any, error) {
	var doc any
	switch format {
	case "yaml":
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		// Round-trip so YAML and JSON documents validate identically.
		b, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("yaml document is not representable as json: %w", err)
		}
		if err := json.Unmarshal(b, &doc); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// Parse decodes, validates and compiles src into a Script.
func (p *Parser) Parse(src ports.Source) (*domain.Script, error) {
	doc, err := Decode(src.Data, src.Format)
	if err != nil {
		return nil, &domain.ScriptFormatError{Ref: src.Ref, Step: -1, Reason: "cannot decode " + src.Format, Err: err}
	}
	if _, ok := doc.(map[string]any); !ok {
		return nil, &domain.ScriptFormatError{Ref: src.Ref, Step: -1, Reason: "document must be an object with a run list"}
	}

	if err := schema.Validate(doc); err != nil {
		step := -1
		if errs := schema.ValidationErrors(err); len(errs) > 0 {
			var ve *schema.ValidationError
			if errors.As(errs[0], &ve) {
				step = ve.Step()
			}
		}
		return nil, &domain.ScriptFormatError{Ref: src.Ref, Step: step, Err: err}
	}

	var sd schema.ScriptDocument
	if err := mapstructure.Decode(doc, &sd); err != nil {
		return nil, &domain.ScriptFormatError{Ref: src.Ref, Step: -1, Err: err}
	}

	script := &domain.Script{
		Ref:    src.Ref,
		Daemon: sd.Daemon,
		Steps:  make([]domain.Step, 0, len(sd.Run)),
	}
	for i, step := range sd.Run {
		s, err := p.compileStep(step)
		if err != nil {
			return nil, &domain.ScriptFormatError{Ref: src.Ref, Step: i, Err: err}
		}
		script.Steps = append(script.Steps, s)
	}
	return script, nil
}

func (p *Parser) compileStep(sd schema.StepDocument) (domain.Step, error) {
	switch sd.Method {
	case domain.MethodShellRun:
		var params schema.ShellParams
		if err := mapstructure.Decode(sd.Params, &params); err != nil {
			return nil, err
		}
		return compileShell(params)
	case domain.MethodScriptStart:
		var params schema.ScriptParams
		if err := mapstructure.Decode(sd.Params, &params); err != nil {
			return nil, err
		}
		if params.URI == "" {
			return nil, errors.New("script.start requires uri")
		}
		return &domain.ScriptStep{URI: params.URI, Params: params.Params}, nil
	case "":
		return nil, errors.New("missing method")
	default:
		return nil, fmt.Errorf("unknown method %q", sd.Method)
	}
}

func compileShell(params schema.ShellParams) (*domain.ShellStep, error) {
	commands, err := messages(params.Message)
	if err != nil {
		return nil, err
	}

	triggers := make([]domain.Trigger, 0, len(params.On))
	for i, on := range params.On {
		// kill is authoritative when both are set.
		mode := domain.ModeDone
		if on.Kill {
			mode = domain.ModeKill
		}
		t, err := domain.NewTrigger(on.Event, mode)
		if err != nil {
			return nil, fmt.Errorf("on[%d]: %w", i, err)
		}
		triggers = append(triggers, t)
	}

	return &domain.ShellStep{
		SessionID: params.ID,
		Overrides: domain.Overrides{
			Path: params.Path,
			Venv: params.Venv,
			Env:  params.Env,
		},
		Commands: commands,
		Triggers: triggers,
	}, nil
}

// messages accepts a single command or a list of commands.
func messages(v any) ([]string, error) {
	switch m := v.(type) {
	case string:
		return []string{m}, nil
	case []any:
		if len(m) == 0 {
			return nil, errors.New("message list is empty")
		}
		out := make([]string, 0, len(m))
		for i, item := range m {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("message[%d] must be a string, got %T", i, item)
			}
			out = append(out, s)
		}
		return out, nil
	case []string:
		if len(m) == 0 {
			return nil, errors.New("message list is empty")
		}
		return m, nil
	case nil:
		return nil, errors.New("message is required")
	default:
		return nil, fmt.Errorf("message must be a string or a list of strings, got %T", v)
	}
}
