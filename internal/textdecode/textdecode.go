// Package textdecode turns bytes from INF files and console tools into Go strings.
package textdecode

import (
	"bytes"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decode converts b to a string. A UTF-8 or UTF-16 byte order mark selects
// the encoding; BOM-less input that looks like UTF-16LE (NUL in every odd
// byte of the leading ASCII run) is decoded as such; anything else is
// taken as UTF-8.
func Decode(b []byte) string {
	if len(b) == 0 {
		return ""
	}

	if !hasBOM(b) && looksUTF16LE(b) {
		out, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(b)
		if err == nil {
			return string(out)
		}
	}

	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

func hasBOM(b []byte) bool {
	return bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}) ||
		bytes.HasPrefix(b, []byte{0xFF, 0xFE}) ||
		bytes.HasPrefix(b, []byte{0xFE, 0xFF})
}

func looksUTF16LE(b []byte) bool {
	n := min(len(b), 64) &^ 1
	if n < 2 {
		return false
	}
	for i := 0; i < n; i += 2 {
		if b[i] == 0 || b[i+1] != 0 {
			return false
		}
	}
	return true
}
