package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultMaxFileSize caps uploads at 20 MiB.
const DefaultMaxFileSize int64 = 20 << 20

var (
	ErrFileTooLarge = errors.New("file too large")
	ErrEmptyFile    = errors.New("empty file")
)

// ReadInput reads the whole export from r and returns it as UTF-8 text.
// Inputs larger than limit bytes fail with ErrFileTooLarge.
func ReadInput(r io.Reader, limit int64) (string, error) {
	if limit <= 0 {
		limit = DefaultMaxFileSize
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, limit)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return "", ErrEmptyFile
	}
	return DecodeText(data)
}

// DecodeText converts raw export bytes to a string.
//
// A UTF-8 or UTF-16 byte order mark selects that encoding and is dropped.
// Without one, valid UTF-8 passes through unchanged and anything else is
// read as Windows-1252, which is what Excel writes on Spanish-locale
// Windows machines.
func DecodeText(data []byte) (string, error) {
	fallback := encoding.Nop.NewDecoder()
	if !utf8.Valid(data) {
		fallback = charmap.Windows1252.NewDecoder()
	}

	out, _, err := transform.Bytes(unicode.BOMOverride(fallback), data)
	if err != nil {
		return "", fmt.Errorf("encoding error: %w", err)
	}
	return string(out), nil
}
