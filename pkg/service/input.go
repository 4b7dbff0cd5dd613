package service

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxInputSize bounds a single operator input.
	DefaultMaxInputSize = 4096
	// EnvMaxInputSize overrides DefaultMaxInputSize.
	EnvMaxInputSize = "LAUNCHPAD_MAX_INPUT_SIZE"
)

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
	ErrEmptyInput    = errors.New("input is empty")
)

// InputLines validates operator input and splits it into the command lines
// written to a session. Control characters other than tab are dropped so
// that nothing reaches the shell as a raw escape sequence.
func InputLines(input string) ([]string, error) {
	if input == "" {
		return nil, ErrEmptyInput
	}
	if limit := maxInputSize(); len(input) > limit {
		return nil, fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}
	if !utf8.ValidString(input) {
		return nil, ErrInvalidUTF8
	}

	input = strings.ReplaceAll(input, "\r\n", "\n")
	var lines []string
	for _, raw := range strings.Split(strings.TrimSuffix(input, "\n"), "\n") {
		lines = append(lines, strings.Map(func(r rune) rune {
			if unicode.IsControl(r) && r != '\t' {
				return -1
			}
			return r
		}, raw))
	}
	return lines, nil
}

func maxInputSize() int {
	if val := os.Getenv(EnvMaxInputSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxInputSize
}
