package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Mode is the continuation applied when a trigger fires.
type Mode string

const (
	// ModeDone advances to the next step and keeps the session alive.
	ModeDone Mode = "done"
	// ModeKill terminates the session, then advances.
	ModeKill Mode = "kill"
)

// Trigger is a pattern over newly produced session output.
type Trigger struct {
	// Source is the pattern as written in the definition (e.g. "/Enter the index/").
	Source  string
	Pattern *regexp.Regexp
	Mode    Mode
}

// NewTrigger compiles source into a Trigger with the given mode.
func NewTrigger(source string, mode Mode) (Trigger, error) {
	re, err := CompilePattern(source)
	if err != nil {
		return Trigger{}, err
	}
	if mode == "" {
		mode = ModeDone
	}
	return Trigger{Source: source, Pattern: re, Mode: mode}, nil
}

// MustTrigger is like NewTrigger but panics on an invalid pattern.
func MustTrigger(source string, mode Mode) Trigger {
	t, err := NewTrigger(source, mode)
	if err != nil {
		panic(err)
	}
	return t
}

// CompilePattern accepts either a literal of the form /body/flags or a bare
// regular expression. Supported flags are i and s; m, g and u are accepted and
// ignored. Output is a stream without a meaningful start or end, so ^ and $
// always anchor at line boundaries.
func CompilePattern(source string) (*regexp.Regexp, error) {
	body := source
	flags := ""

	if len(source) >= 2 && strings.HasPrefix(source, "/") {
		if end := strings.LastIndex(source, "/"); end > 0 {
			body = source[1:end]
			flags = source[end+1:]
		}
	}

	var inline strings.Builder
	inline.WriteByte('m')
	for _, f := range flags {
		switch f {
		case 'i', 's':
			inline.WriteRune(f)
		case 'm', 'g', 'u':
		default:
			return nil, fmt.Errorf("unsupported pattern flag %q in %s", f, source)
		}
	}
	body = "(?" + inline.String() + ")" + body

	re, err := regexp.Compile(body)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %s: %w", source, err)
	}
	return re, nil
}
