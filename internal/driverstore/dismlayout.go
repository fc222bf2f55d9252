package driverstore

import (
	"encoding/binary"
	"time"

	"github.com/breeze-rmm/drvstore/internal/driverpkg"
)

// dismLayout locates DismDriverPackage fields. dismapi.h packs its structs
// to one byte, so offsets depend only on the pointer size.
type dismLayout struct {
	ptr  int
	size int

	publishedName, originalFileName, inbox, catalogFile       int
	className, classGUID, classDescription, bootCritical      int
	signature, providerName, date, major, minor, build, revis int
}

// Values of the DismDriverSignature enum.
const (
	dismSignatureUnknown  = 0
	dismSignatureUnsigned = 1
	dismSignatureSigned   = 2
)

func newDismLayout(ptrSize int) dismLayout {
	l := dismLayout{ptr: ptrSize}
	off := 0
	next := func(n int) int {
		at := off
		off += n
		return at
	}
	l.publishedName = next(ptrSize)
	l.originalFileName = next(ptrSize)
	l.inbox = next(4)
	l.catalogFile = next(ptrSize)
	l.className = next(ptrSize)
	l.classGUID = next(ptrSize)
	l.classDescription = next(ptrSize)
	l.bootCritical = next(4)
	l.signature = next(4)
	l.providerName = next(ptrSize)
	l.date = next(16) // SYSTEMTIME
	l.major = next(4)
	l.minor = next(4)
	l.build = next(4)
	l.revis = next(4)
	l.size = off
	return l
}

func (l dismLayout) pointer(b []byte, off int) uintptr {
	if l.ptr == 8 {
		return uintptr(binary.LittleEndian.Uint64(b[off:]))
	}
	return uintptr(binary.LittleEndian.Uint32(b[off:]))
}

// decode reads one packed element. str dereferences a PCWSTR. It returns
// the record without location and the INF's full store path.
func (l dismLayout) decode(b []byte, str func(uintptr) string) (driverpkg.PackageRecord, string) {
	u32 := func(off int) uint32 { return binary.LittleEndian.Uint32(b[off:]) }

	rec := driverpkg.PackageRecord{
		PublishedName: str(l.pointer(b, l.publishedName)),
		Provider:      str(l.pointer(b, l.providerName)),
		Class:         str(l.pointer(b, l.className)),
		Inbox:         u32(l.inbox) != 0,
		BootCritical:  driverpkg.TriStateOf(u32(l.bootCritical) != 0),
		Date:          systemTimeDate(b[l.date : l.date+16]),
		Version: driverpkg.Version{
			Major:    clampUint16(u32(l.major)),
			Minor:    clampUint16(u32(l.minor)),
			Build:    clampUint16(u32(l.build)),
			Revision: clampUint16(u32(l.revis)),
		},
	}
	if u32(l.signature) == dismSignatureSigned {
		// The servicing API reports that a package is signed, not by whom.
		rec.SignerName = "Signed"
	}
	return rec, str(l.pointer(b, l.originalFileName))
}

// systemTimeDate keeps the calendar date of a SYSTEMTIME.
func systemTimeDate(b []byte) time.Time {
	year := int(binary.LittleEndian.Uint16(b[0:]))
	month := int(binary.LittleEndian.Uint16(b[2:]))
	day := int(binary.LittleEndian.Uint16(b[6:]))
	if year == 0 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func clampUint16(v uint32) uint16 {
	if v > 0xFFFF {
		return 0xFFFF
	}
	return uint16(v)
}
