package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"Single Line", "1", []string{"1"}},
		{"Trailing Newline", "yes\n", []string{"yes"}},
		{"Multiple Lines", "cd app\r\nls\n", []string{"cd app", "ls"}},
		{"Escape Codes Dropped", "a\x1b[31mb\x00c\td", []string{"a[31mbc\td"}},
		{"Blank Line Kept", "\n", []string{""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InputLines(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInputLines_Rejects(t *testing.T) {
	_, err := InputLines("")
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = InputLines(strings.Repeat("a", DefaultMaxInputSize+1))
	assert.ErrorIs(t, err, ErrInputTooLarge)

	_, err = InputLines("\xff")
	assert.ErrorIs(t, err, ErrInvalidUTF8)

	t.Setenv(EnvMaxInputSize, "3")
	_, err = InputLines("abcd")
	assert.ErrorIs(t, err, ErrInputTooLarge)
}
