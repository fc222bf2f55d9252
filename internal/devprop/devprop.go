// Package devprop decodes typed device and driver-store property values.
//
// Properties are addressed by a Key (format GUID plus numeric id) and come
// back as a Type tag and a raw little-endian buffer. Decoding is pure so it
// can be shared by every native caller and tested off Windows.
package devprop

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/breeze-rmm/drvstore/internal/driverpkg"
)

// GUID mirrors the Windows GUID layout.
type GUID struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

func (g GUID) String() string {
	return fmt.Sprintf("{%08x-%04x-%04x-%02x%02x-%02x%02x%02x%02x%02x%02x}",
		g.Data1, g.Data2, g.Data3,
		g.Data4[0], g.Data4[1], g.Data4[2], g.Data4[3],
		g.Data4[4], g.Data4[5], g.Data4[6], g.Data4[7])
}

// Key is a DEVPROPKEY.
type Key struct {
	FmtID GUID
	PID   uint32
}

// Type is a DEVPROPTYPE tag.
type Type uint32

// Base types. List variants carry the typeList modifier.
const (
	TypeEmpty          Type = 0x00
	TypeNull           Type = 0x01
	TypeUint32         Type = 0x07
	TypeUint64         Type = 0x09
	TypeGUID           Type = 0x0D
	TypeFileTime       Type = 0x10
	TypeBoolean        Type = 0x11
	TypeString         Type = 0x12
	TypeStringIndirect Type = 0x19
	TypeStringList          = TypeString | typeList

	typeList     Type = 0x2000
	typeMaskBase Type = 0x0FFF
)

// Value is a decoded property. Only the field matching Type is set.
type Value struct {
	Type    Type
	String  string
	Strings []string
	Bool    bool
	Uint    uint64
	GUID    GUID
	Time    time.Time
}

// Decode interprets buf according to typ. ok is false when the property is
// absent: empty/null type, zero-length buffer, or an unsupported tag.
func Decode(typ Type, buf []byte) (Value, bool) {
	if len(buf) == 0 || typ == TypeEmpty || typ == TypeNull {
		return Value{}, false
	}

	switch typ {
	case TypeString, TypeStringIndirect:
		return Value{Type: typ, String: utf16String(buf)}, true
	case TypeStringList:
		return Value{Type: typ, Strings: utf16MultiString(buf)}, true
	case TypeBoolean:
		// DEVPROP_BOOLEAN is a single byte, 0xFF for true.
		return Value{Type: typ, Bool: buf[0] != 0}, true
	case TypeUint32:
		if len(buf) < 4 {
			return Value{}, false
		}
		return Value{Type: typ, Uint: uint64(binary.LittleEndian.Uint32(buf))}, true
	case TypeUint64:
		if len(buf) < 8 {
			return Value{}, false
		}
		return Value{Type: typ, Uint: binary.LittleEndian.Uint64(buf)}, true
	case TypeFileTime:
		if len(buf) < 8 {
			return Value{}, false
		}
		ft := binary.LittleEndian.Uint64(buf)
		if ft == 0 {
			return Value{}, false
		}
		return Value{Type: typ, Uint: ft, Time: FileTimeToTime(ft)}, true
	case TypeGUID:
		if len(buf) < 16 {
			return Value{}, false
		}
		var g GUID
		g.Data1 = binary.LittleEndian.Uint32(buf[0:4])
		g.Data2 = binary.LittleEndian.Uint16(buf[4:6])
		g.Data3 = binary.LittleEndian.Uint16(buf[6:8])
		copy(g.Data4[:], buf[8:16])
		return Value{Type: typ, GUID: g}, true
	}
	return Value{}, false
}

// IsList reports whether the tag carries the list modifier.
func (t Type) IsList() bool { return t&typeList != 0 }

// Base strips modifiers from the tag.
func (t Type) Base() Type { return t & typeMaskBase }

// DecodeVersion unpacks a 64-bit driver version: major in bits 48-63, minor
// in 32-47, build in 16-31 and revision in 0-15.
func DecodeVersion(packed uint64) driverpkg.Version {
	return driverpkg.Version{
		Major:    uint16(packed >> 48),
		Minor:    uint16(packed >> 32),
		Build:    uint16(packed >> 16),
		Revision: uint16(packed),
	}
}

// 100ns intervals between 1601-01-01 and 1970-01-01.
const fileTimeEpochDelta = 116444736000000000

// FileTimeToTime converts a FILETIME count to UTC time.
func FileTimeToTime(ft uint64) time.Time {
	if ft == 0 {
		return time.Time{}
	}
	ns := (int64(ft) - fileTimeEpochDelta) * 100
	return time.Unix(0, ns).UTC()
}

func utf16Units(buf []byte) []uint16 {
	units := make([]uint16, len(buf)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(buf[i*2:])
	}
	return units
}

func utf16String(buf []byte) string {
	units := utf16Units(buf)
	for i, u := range units {
		if u == 0 {
			units = units[:i]
			break
		}
	}
	return string(utf16.Decode(units))
}

func utf16MultiString(buf []byte) []string {
	var out []string
	for _, s := range strings.Split(string(utf16.Decode(utf16Units(buf))), "\x00") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
