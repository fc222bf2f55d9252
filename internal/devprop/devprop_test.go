package devprop

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/breeze-rmm/drvstore/internal/driverpkg"
)

func TestDecodeVersionBitLayout(t *testing.T) {
	packed := uint64(10)<<48 | uint64(0)<<32 | uint64(19041)<<16 | uint64(3)
	got := DecodeVersion(packed)
	want := driverpkg.Version{Major: 10, Minor: 0, Build: 19041, Revision: 3}
	if got != want {
		t.Fatalf("DecodeVersion = %v, want %v", got, want)
	}
	if encodeVersion(got) != packed {
		t.Fatalf("encodeVersion(%v) = %x, want %x", got, encodeVersion(got), packed)
	}
}

func TestFileTimeRoundTrip(t *testing.T) {
	want := time.Date(2021, 6, 21, 0, 0, 0, 0, time.UTC)
	ft := timeToFileTime(want)
	if got := FileTimeToTime(ft); !got.Equal(want) {
		t.Fatalf("FileTimeToTime = %v, want %v", got, want)
	}
	if !FileTimeToTime(0).IsZero() {
		t.Fatal("zero FILETIME should map to zero time")
	}
}

func TestDecodeString(t *testing.T) {
	v, ok := Decode(TypeString, encodeString("Intel(R) Ethernet"))
	if !ok {
		t.Fatal("string should decode")
	}
	if v.String != "Intel(R) Ethernet" {
		t.Fatalf("String = %q", v.String)
	}
}

func TestDecodeStringList(t *testing.T) {
	buf := append(encodeString("PCI\\VEN_8086"), encodeString("PCI\\CC_0200")...)
	buf = append(buf, 0, 0)
	v, ok := Decode(TypeStringList, buf)
	if !ok {
		t.Fatal("string list should decode")
	}
	if diff := cmp.Diff([]string{"PCI\\VEN_8086", "PCI\\CC_0200"}, v.Strings); diff != "" {
		t.Fatalf("Strings diff (-want +got):\n%s", diff)
	}
	if !TypeStringList.IsList() || TypeStringList.Base() != TypeString {
		t.Fatal("list modifier not detected")
	}
}

func TestDecodeScalars(t *testing.T) {
	b, ok := Decode(TypeBoolean, []byte{0xFF})
	if !ok || !b.Bool {
		t.Fatalf("boolean decode = %+v, %v", b, ok)
	}

	u32 := make([]byte, 4)
	binary.LittleEndian.PutUint32(u32, 42)
	v, ok := Decode(TypeUint32, u32)
	if !ok || v.Uint != 42 {
		t.Fatalf("uint32 decode = %+v, %v", v, ok)
	}

	u64 := make([]byte, 8)
	binary.LittleEndian.PutUint64(u64, 1<<40)
	v, ok = Decode(TypeUint64, u64)
	if !ok || v.Uint != 1<<40 {
		t.Fatalf("uint64 decode = %+v, %v", v, ok)
	}

	ft := make([]byte, 8)
	when := time.Date(2019, 3, 12, 0, 0, 0, 0, time.UTC)
	binary.LittleEndian.PutUint64(ft, timeToFileTime(when))
	v, ok = Decode(TypeFileTime, ft)
	if !ok || !v.Time.Equal(when) {
		t.Fatalf("filetime decode = %+v, %v", v, ok)
	}
}

func TestDecodeGUID(t *testing.T) {
	g := GUID{0x4d36e972, 0xe325, 0x11ce, [8]byte{0xbf, 0xc1, 0x08, 0x00, 0x2b, 0xe1, 0x03, 0x18}}
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:], g.Data1)
	binary.LittleEndian.PutUint16(buf[4:], g.Data2)
	binary.LittleEndian.PutUint16(buf[6:], g.Data3)
	copy(buf[8:], g.Data4[:])

	v, ok := Decode(TypeGUID, buf)
	if !ok || v.GUID != g {
		t.Fatalf("guid decode = %+v, %v", v, ok)
	}
	if got := v.GUID.String(); got != "{4d36e972-e325-11ce-bfc1-08002be10318}" {
		t.Fatalf("GUID.String = %s", got)
	}
}

func TestDecodeAbsentValues(t *testing.T) {
	cases := []struct {
		name string
		typ  Type
		buf  []byte
	}{
		{"zero length", TypeString, nil},
		{"empty type", TypeEmpty, []byte{1}},
		{"null type", TypeNull, []byte{1}},
		{"short uint32", TypeUint32, []byte{1, 2}},
		{"zero filetime", TypeFileTime, make([]byte, 8)},
		{"unsupported", Type(0x0E), []byte{1, 2, 3, 4}},
	}
	for _, tc := range cases {
		if _, ok := Decode(tc.typ, tc.buf); ok {
			t.Errorf("%s: expected absent value", tc.name)
		}
	}
}
