// Package devicemap correlates driver packages with the devices that use
// them.
package devicemap

import (
	"strings"
	"time"

	"github.com/breeze-rmm/drvstore/internal/driverpkg"
)

// Map indexes one device snapshot by driver reference. It is built once per
// enumeration and is read-only afterwards.
type Map struct {
	byRef map[string][]driverpkg.DeviceRecord
	size  int
}

// New builds a map from a device snapshot. Devices without a driver
// reference are ignored.
func New(devices []driverpkg.DeviceRecord) *Map {
	m := &Map{byRef: make(map[string][]driverpkg.DeviceRecord)}
	for _, d := range devices {
		key := refKey(d.DriverReference)
		if key == "" {
			continue
		}
		m.byRef[key] = append(m.byRef[key], d)
		m.size++
	}
	return m
}

// Len is the number of indexed devices.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return m.size
}

// Lookup finds the device driven by infName at exactly date and version.
// When several match, a present device wins; otherwise the first one does.
func (m *Map) Lookup(infName string, date time.Time, version driverpkg.Version) (driverpkg.DeviceRecord, bool) {
	if m == nil {
		return driverpkg.DeviceRecord{}, false
	}

	var (
		found driverpkg.DeviceRecord
		ok    bool
	)
	for _, d := range m.byRef[refKey(infName)] {
		if d.DriverVersion != version || !driverpkg.SameDay(d.DriverDate, date) {
			continue
		}
		if d.Present == driverpkg.True {
			return d, true
		}
		if !ok {
			found, ok = d, true
		}
	}
	return found, ok
}

// Annotate returns a copy of rec carrying its device correlation. A record
// with no matching device comes back with no device name and presence
// Unknown.
func (m *Map) Annotate(rec driverpkg.PackageRecord) driverpkg.PackageRecord {
	d, _ := m.Lookup(rec.PublishedName, rec.Date, rec.Version)
	return rec.WithDevice(d)
}

// AnnotateAll annotates every record into a new slice.
func (m *Map) AnnotateAll(recs []driverpkg.PackageRecord) []driverpkg.PackageRecord {
	out := make([]driverpkg.PackageRecord, len(recs))
	for i, r := range recs {
		out[i] = m.Annotate(r)
	}
	return out
}

// refKey reduces a driver reference such as `C:\Windows\INF\oem12.inf` to
// its lowercase file name.
func refKey(ref string) string {
	ref = strings.TrimSpace(ref)
	if i := strings.LastIndexAny(ref, `\/`); i >= 0 {
		ref = ref[i+1:]
	}
	return strings.ToLower(ref)
}
