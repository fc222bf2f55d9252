package driverpkg

import (
	"strings"
	"time"
)

// TriState is a three-valued flag. The zero value is Unknown.
type TriState int8

const (
	Unknown TriState = iota
	True
	False
)

// TriStateOf converts a known boolean.
func TriStateOf(b bool) TriState {
	if b {
		return True
	}
	return False
}

func (t TriState) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// IsTrue reports whether the value is known to be true.
func (t TriState) IsTrue() bool { return t == True }

// MarshalText renders the tri-state for json/yaml output.
func (t TriState) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// PackageRecord describes one driver package in a single enumeration snapshot.
//
// OriginalInfName, FolderLocation and Size are resolved together: either all
// three carry values or all three are zero (see Resolved).
type PackageRecord struct {
	PublishedName   string    `json:"publishedName" yaml:"publishedName"`
	OriginalInfName string    `json:"originalInfName,omitempty" yaml:"originalInfName,omitempty"`
	Provider        string    `json:"provider" yaml:"provider"`
	Class           string    `json:"class" yaml:"class"`
	ExtensionID     string    `json:"extensionId,omitempty" yaml:"extensionId,omitempty"`
	Date            time.Time `json:"date,omitzero" yaml:"date,omitempty"`
	Version         Version   `json:"version" yaml:"version"`
	SignerName      string    `json:"signerName,omitempty" yaml:"signerName,omitempty"`
	Inbox           bool      `json:"inbox" yaml:"inbox"`
	BootCritical    TriState  `json:"bootCritical" yaml:"bootCritical"`
	Size            int64     `json:"size" yaml:"size"`
	FolderLocation  string    `json:"folderLocation,omitempty" yaml:"folderLocation,omitempty"`

	DeviceID      string    `json:"deviceId,omitempty" yaml:"deviceId,omitempty"`
	DeviceName    string    `json:"deviceName,omitempty" yaml:"deviceName,omitempty"`
	DevicePresent TriState  `json:"devicePresent" yaml:"devicePresent"`
	InstallDate   time.Time `json:"installDate,omitzero" yaml:"installDate,omitempty"`
}

// Resolved reports whether the original name, folder and size are known.
func (r PackageRecord) Resolved() bool {
	return r.OriginalInfName != "" && r.FolderLocation != ""
}

// WithLocation returns a copy of r carrying the resolved source name, folder
// and size. An empty name or folder yields a copy with all three cleared.
func (r PackageRecord) WithLocation(originalInfName, folder string, size int64) PackageRecord {
	if originalInfName == "" || folder == "" {
		r.OriginalInfName, r.FolderLocation, r.Size = "", "", 0
		return r
	}
	r.OriginalInfName = originalInfName
	r.FolderLocation = folder
	r.Size = size
	return r
}

// WithDevice returns a copy of r annotated with the device that uses it.
func (r PackageRecord) WithDevice(d DeviceRecord) PackageRecord {
	r.DeviceID = d.ID
	r.DeviceName = d.Name
	r.DevicePresent = d.Present
	r.InstallDate = d.InstallDate
	return r
}

// BoundToDevice reports whether a device currently references the package.
func (r PackageRecord) BoundToDevice() bool {
	return strings.TrimSpace(r.DeviceName) != ""
}

// DeviceRecord is a snapshot of one device node.
type DeviceRecord struct {
	ID              string    `json:"id" yaml:"id"`
	Name            string    `json:"name" yaml:"name"`
	DriverReference string    `json:"driverReference" yaml:"driverReference"`
	DriverDate      time.Time `json:"driverDate,omitzero" yaml:"driverDate,omitempty"`
	DriverVersion   Version   `json:"driverVersion" yaml:"driverVersion"`
	Present         TriState  `json:"present" yaml:"present"`
	InstallDate     time.Time `json:"installDate,omitzero" yaml:"installDate,omitempty"`
}

// Capabilities lists what a backend can do. Callers branch on these flags
// instead of on the backend's identity.
type Capabilities struct {
	InstallOnAdd  bool `json:"installOnAdd" yaml:"installOnAdd"`
	ForceDelete   bool `json:"forceDelete" yaml:"forceDelete"`
	DeviceColumn  bool `json:"deviceColumn" yaml:"deviceColumn"`
	ExportPackage bool `json:"exportPackage" yaml:"exportPackage"`
	ExportAll     bool `json:"exportAll" yaml:"exportAll"`
}

// SameDay reports whether two timestamps fall on the same UTC calendar day.
// Two zero times are the same day.
func SameDay(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return a.IsZero() && b.IsZero()
	}
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
