package devprop

import (
	"encoding/binary"
	"time"
	"unicode/utf16"

	"github.com/breeze-rmm/drvstore/internal/driverpkg"
)

func encodeVersion(v driverpkg.Version) uint64 {
	return uint64(v.Major)<<48 | uint64(v.Minor)<<32 | uint64(v.Build)<<16 | uint64(v.Revision)
}

func timeToFileTime(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}
	return uint64(t.UnixNano()/100 + fileTimeEpochDelta)
}

// encodeString returns the NUL-terminated UTF-16LE form of s.
func encodeString(s string) []byte {
	units := append(utf16.Encode([]rune(s)), 0)
	buf := make([]byte, len(units)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(buf[i*2:], u)
	}
	return buf
}
