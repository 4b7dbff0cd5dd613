package domain_test

import (
	"errors"
	"testing"

	"github.com/aretw0/launchpad/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompilePattern(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		input   string
		matches bool
	}{
		{"Slash Literal", "/Enter the index/", "Please Enter the index: ", true},
		{"Bare Regex", "ready", "server ready\n", true},
		{"Case Insensitive Flag", "/READY/i", "ready", true},
		{"Case Sensitive By Default", "/READY/", "ready", false},
		{"Global Flag Ignored", "/run(ning)?/g", "running", true},
		{"URL Body", "/http:\\/\\/[0-9.:]+/", "Running on http://127.0.0.1:7860", true},
		{"Lone Slash Is Bare", "/", "a/b", true},
		{"Anchors Match Lines", "/^ready$/", "booting\nready\nlistening", true},
		{"Dot Stops At Newline", "/loaded.Enter/", "loaded\nEnter", false},
		{"Dot All Flag", "/loaded.Enter/s", "loaded\nEnter", true},
		{"Multiline Flag Accepted", "/^Enter/m", "Model loaded\nEnter the index", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re, err := domain.CompilePattern(tt.source)
			require.NoError(t, err)
			assert.Equal(t, tt.matches, re.MatchString(tt.input))
		})
	}
}

func TestCompilePattern_Errors(t *testing.T) {
	_, err := domain.CompilePattern("/abc/x")
	assert.ErrorContains(t, err, "unsupported pattern flag")

	_, err = domain.CompilePattern("/(unclosed/")
	assert.ErrorContains(t, err, "invalid pattern")
}

func TestNewTrigger_DefaultsToDone(t *testing.T) {
	tr, err := domain.NewTrigger("/x/", "")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeDone, tr.Mode)
	assert.Equal(t, "/x/", tr.Source)
}

func TestErrors_Unwrap(t *testing.T) {
	cause := errors.New("no such file")
	err := &domain.ScriptResolutionError{Ref: "torch.json", Err: cause}

	assert.ErrorIs(t, err, domain.ErrScriptResolution)
	assert.ErrorIs(t, err, cause)

	var target *domain.ScriptResolutionError
	assert.True(t, errors.As(err, &target))
	assert.Equal(t, "torch.json", target.Ref)

	format := &domain.ScriptFormatError{Ref: "install.json", Step: 2, Reason: "missing method"}
	assert.ErrorIs(t, format, domain.ErrScriptFormat)
	assert.Contains(t, format.Error(), "run[2]")
}

func TestExecutionContext_Clone(t *testing.T) {
	orig := domain.ExecutionContext{Dir: "app", Env: map[string]string{"A": "1"}}
	cp := orig.Clone()
	cp.Env["A"] = "2"
	assert.Equal(t, "1", orig.Env["A"])

	empty := domain.ExecutionContext{}.Clone()
	assert.NotNil(t, empty.Env)
}
