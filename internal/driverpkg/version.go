package driverpkg

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Version is a four-component driver version. The zero value means unknown.
type Version struct {
	Major    uint16
	Minor    uint16
	Build    uint16
	Revision uint16
}

// ParseVersion parses "a.b", "a.b.c" or "a.b.c.d". Missing trailing
// components are zero; each component must fit in 16 bits.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ".")
	if len(parts) < 2 || len(parts) > 4 {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}

	var comps [4]uint16
	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, 16)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
		}
		comps[i] = uint16(n)
	}
	return Version{Major: comps[0], Minor: comps[1], Build: comps[2], Revision: comps[3]}, nil
}

// IsZero reports whether the version is the unknown sentinel.
func (v Version) IsZero() bool {
	return v == Version{}
}

// Compare returns -1, 0 or 1, comparing components left to right.
func (v Version) Compare(o Version) int {
	a := [4]uint16{v.Major, v.Minor, v.Build, v.Revision}
	b := [4]uint16{o.Major, o.Minor, o.Build, o.Revision}
	for i := range a {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Build, v.Revision)
}

// MarshalText renders the dotted form.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText parses the dotted form.
func (v *Version) UnmarshalText(b []byte) error {
	parsed, err := ParseVersion(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// CompareNewest orders two records newest first: higher version first, then
// later date. It returns a negative number when a sorts before b.
func CompareNewest(a, b PackageRecord) int {
	if c := a.Version.Compare(b.Version); c != 0 {
		return -c
	}
	return -compareDate(a.Date, b.Date)
}

func compareDate(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}
