// Package codec converts raw port bytes to a displayable form and
// operator-typed input back into raw bytes, in either text or hex mode.
package codec

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
)

// Mode selects how bytes are rendered and how operator input is parsed.
// It is fixed for the whole session.
type Mode int

const (
	ModeText Mode = iota
	ModeHex
)

func (m Mode) String() string {
	switch m {
	case ModeText:
		return "text"
	case ModeHex:
		return "hex"
	default:
		return "unknown"
	}
}

// ChunkSize is the number of bytes rendered per hex-dump line.
const ChunkSize = 16

// hexWidth is the column width of the hex pane: two digits per byte plus
// one separating space between pairs.
const hexWidth = ChunkSize*3 - 1

// EncodingError reports operator input that could not be turned into
// bytes for the configured mode. It is recoverable: callers report it and
// discard the input.
type EncodingError struct {
	Input string
	Err   error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("cannot encode %q: %v", e.Input, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// Decode renders received bytes for display. Text mode interprets the
// bytes as UTF-8, replacing invalid sequences with U+FFFD. Hex mode
// renders a hex dump, one line per ChunkSize bytes. It never fails.
func Decode(data []byte, mode Mode) string {
	if mode == ModeHex {
		return hexDump(data)
	}
	return strings.ToValidUTF8(string(data), "�")
}

// Encode turns one line of operator input into bytes for the port. Text
// mode takes the UTF-8 bytes of the input as-is. Hex mode strips all
// whitespace and decodes the rest as hex digit pairs; odd length or a
// non-hex digit yields an *EncodingError.
func Encode(input string, mode Mode) ([]byte, error) {
	if mode != ModeHex {
		return []byte(input), nil
	}
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, input)
	data, err := hex.DecodeString(stripped)
	if err != nil {
		return nil, &EncodingError{Input: input, Err: err}
	}
	return data, nil
}

// hexDump renders data as space-separated lowercase hex pairs padded to a
// fixed width, a separator, and an ASCII gutter where non-printable bytes
// show as '.'. Chunking is presentation only; reads may split a logical
// unit across lines.
func hexDump(data []byte) string {
	var b strings.Builder
	for i := 0; i < len(data); i += ChunkSize {
		chunk := data[i:min(i+ChunkSize, len(data))]
		if i > 0 {
			b.WriteByte('\n')
		}

		var pairs strings.Builder
		gutter := make([]byte, len(chunk))
		for j, c := range chunk {
			if j > 0 {
				pairs.WriteByte(' ')
			}
			fmt.Fprintf(&pairs, "%02x", c)
			if c >= 0x20 && c <= 0x7e {
				gutter[j] = c
			} else {
				gutter[j] = '.'
			}
		}
		fmt.Fprintf(&b, "%-*s | %s", hexWidth, pairs.String(), gutter)
	}
	return b.String()
}
