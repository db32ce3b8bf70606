package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"
)

// WriteJSON encodes v to w with the given indent and a trailing newline.
// HTML characters are not escaped.
func WriteJSON(w io.Writer, v any, indent string) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// MarshalJSON is [WriteJSON] into a byte slice.
func MarshalJSON(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, v, indent); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CanonicalJSON encodes v compactly with sorted object keys and every
// non-ASCII character escaped as \uXXXX, matching the byte layout of
// Python's json.dumps(sort_keys=True, separators=(",", ":")).
func CanonicalJSON(v any) ([]byte, error) {
	data, err := MarshalJSON(v, "")
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSuffix(data, []byte("\n"))
	return escapeNonASCII(data), nil
}

func escapeNonASCII(data []byte) []byte {
	var out []byte
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r < utf8.RuneSelf {
			out = append(out, data[i])
			i++
			continue
		}
		if r > 0xFFFF {
			r1, r2 := surrogates(r)
			out = appendEscape(out, r1)
			out = appendEscape(out, r2)
		} else {
			out = appendEscape(out, r)
		}
		i += size
	}
	return out
}

func surrogates(r rune) (rune, rune) {
	r -= 0x10000
	return 0xD800 + (r>>10)&0x3FF, 0xDC00 + r&0x3FF
}

func appendEscape(out []byte, r rune) []byte {
	hex := strconv.FormatInt(int64(r), 16)
	for len(hex) < 4 {
		hex = "0" + hex
	}
	return append(out, `\u`+hex...)
}
