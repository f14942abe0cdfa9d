package codec

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []byte
	}{
		{"empty", "", []byte{}},
		{"ascii", "hello", []byte("hello")},
		{"multibyte", "héllo wörld", []byte("héllo wörld")},
		{"whitespace preserved", "  a b  ", []byte("  a b  ")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.input, ModeText)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeHex(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []byte
	}{
		{"empty", "", []byte{}},
		{"plain pairs", "4869", []byte{0x48, 0x69}},
		{"space separated", "48 69 0a", []byte{0x48, 0x69, 0x0a}},
		{"mixed whitespace", " 48\t69\n0a ", []byte{0x48, 0x69, 0x0a}},
		{"uppercase digits", "DEADBEEF", []byte{0xde, 0xad, 0xbe, 0xef}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.input, ModeHex)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeHexInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"non-hex characters", "zz"},
		{"odd length", "abc"},
		{"odd length with spaces", "ab c"},
		{"trailing digit", "48 69 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.input, ModeHex)
			require.Error(t, err)
			assert.Nil(t, got)

			var encErr *EncodingError
			require.True(t, errors.As(err, &encErr))
			assert.Equal(t, tt.input, encErr.Input)
			assert.Contains(t, err.Error(), tt.input)
		})
	}
}

func TestDecodeText(t *testing.T) {
	assert.Equal(t, "", Decode(nil, ModeText))
	assert.Equal(t, "hello", Decode([]byte("hello"), ModeText))
	assert.Equal(t, "héllo", Decode([]byte("héllo"), ModeText))

	// invalid UTF-8 is replaced, never dropped and never a panic
	got := Decode([]byte{'a', 0xff, 'b'}, ModeText)
	assert.Equal(t, "a�b", got)
}

func TestTextRoundTrip(t *testing.T) {
	for _, s := range []string{"", "hi", "héllo wörld", "line with spaces", "日本語"} {
		data, err := Encode(s, ModeText)
		require.NoError(t, err)
		assert.Equal(t, s, Decode(data, ModeText))
	}
}

func TestDecodeHexSingleChunk(t *testing.T) {
	// exactly one chunk of printable ASCII: one line, 16 pairs, the
	// gutter equal to the original text
	text := "0123456789abcdef"
	require.Len(t, text, ChunkSize)

	got := Decode([]byte(text), ModeHex)
	lines := strings.Split(got, "\n")
	require.Len(t, lines, 1)

	hexPane, gutter, found := strings.Cut(lines[0], " | ")
	require.True(t, found)
	assert.Equal(t, text, gutter)
	assert.Len(t, hexPane, ChunkSize*3-1)
	assert.Len(t, strings.Fields(hexPane), ChunkSize)
	assert.Equal(t, "30", strings.Fields(hexPane)[0])
}

func TestDecodeHexRemainderChunk(t *testing.T) {
	// 17 bytes: two lines, the second with one pair and a one-char gutter
	data := append([]byte("0123456789abcdef"), 'X')
	got := Decode(data, ModeHex)
	lines := strings.Split(got, "\n")
	require.Len(t, lines, 2)

	hexPane, gutter, found := strings.Cut(lines[1], " | ")
	require.True(t, found)
	assert.Equal(t, "X", gutter)
	assert.Len(t, strings.Fields(hexPane), 1)
	assert.Equal(t, "58", strings.Fields(hexPane)[0])
	// the short hex pane is still padded to the full column width
	assert.Len(t, hexPane, ChunkSize*3-1)
}

func TestDecodeHexNonPrintable(t *testing.T) {
	got := Decode([]byte{0x00, 0x1f, 0x20, 0x7e, 0x7f, 0xff}, ModeHex)
	_, gutter, found := strings.Cut(got, " | ")
	require.True(t, found)
	assert.Equal(t, ".. ~..", gutter)
}

func TestDecodeHexEmpty(t *testing.T) {
	assert.Equal(t, "", Decode(nil, ModeHex))
	assert.Equal(t, "", Decode([]byte{}, ModeHex))
}

func TestHexRoundTrip(t *testing.T) {
	inputs := [][]byte{
		{0x00},
		[]byte("exactly sixteen!"),
		[]byte("seventeen bytes!!"),
		{0xde, 0xad, 0xbe, 0xef, 0x00, 0xff},
		[]byte("héllo"), // multi-byte UTF-8 split across the dump is display-only
		make([]byte, 3*ChunkSize+5),
	}
	for _, in := range inputs {
		rendered := Decode(in, ModeHex)

		// strip the formatting: keep only the fixed-width hex pane of
		// each line, then re-encode
		var hexText strings.Builder
		for _, line := range strings.Split(rendered, "\n") {
			hexText.WriteString(line[:ChunkSize*3-1])
			hexText.WriteByte(' ')
		}
		got, err := Encode(hexText.String(), ModeHex)
		require.NoError(t, err)
		assert.Equal(t, in, got)
	}
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "text", ModeText.String())
	assert.Equal(t, "hex", ModeHex.String())
	assert.Equal(t, "unknown", Mode(42).String())
}
