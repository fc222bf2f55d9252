package driverstore

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/breeze-rmm/drvstore/internal/devprop"
	"github.com/breeze-rmm/drvstore/internal/driverpkg"
)

func TestNativeRecord(t *testing.T) {
	date := time.Date(2021, time.April, 2, 0, 0, 0, 0, time.UTC)
	props := map[devprop.Key]devprop.Value{
		devprop.DriverPackagePublishedName: {Type: devprop.TypeString, String: "oem9.inf"},
		devprop.DriverPackageProviderName:  {Type: devprop.TypeString, String: "Fabrikam"},
		devprop.DriverPackageClassName:     {Type: devprop.TypeString, String: "Extension"},
		devprop.DriverPackageDriverDate:    {Type: devprop.TypeFileTime, Time: date},
		devprop.DriverPackageDriverVersion: {Uint: uint64(3)<<48 | uint64(2)<<32 | uint64(1)<<16},
		devprop.DriverPackageSignerName:    {Type: devprop.TypeString, String: "Fabrikam Signing"},
		devprop.DriverPackageBootCritical:  {Type: devprop.TypeBoolean, Bool: false},
		devprop.DriverPackageExtensionID: {Type: devprop.TypeGUID, GUID: devprop.GUID{
			Data1: 0x12345678, Data2: 0x9abc, Data3: 0xdef0,
			Data4: [8]byte{1, 2, 3, 4, 5, 6, 7, 8},
		}},
	}
	get := func(k devprop.Key) (devprop.Value, bool) {
		v, ok := props[k]
		return v, ok
	}

	want := driverpkg.PackageRecord{
		PublishedName: "oem9.inf",
		Provider:      "Fabrikam",
		Class:         "Extension",
		ExtensionID:   "{12345678-9abc-def0-0102-030405060708}",
		Date:          date,
		Version:       driverpkg.Version{Major: 3, Minor: 2, Build: 1},
		SignerName:    "Fabrikam Signing",
		BootCritical:  driverpkg.False,
	}
	if diff := cmp.Diff(want, nativeRecord("", get)); diff != "" {
		t.Errorf("nativeRecord diff (-want +got): %v", diff)
	}
}

func TestNativeRecordMissingPropertiesStayUnknown(t *testing.T) {
	rec := nativeRecord("oem1.inf", func(devprop.Key) (devprop.Value, bool) { return devprop.Value{}, false })
	if rec.PublishedName != "oem1.inf" || rec.BootCritical != driverpkg.Unknown || !rec.Version.IsZero() {
		t.Fatalf("nativeRecord = %+v", rec)
	}
}

func TestSplitInfPath(t *testing.T) {
	tests := []struct {
		in, dir, name string
	}{
		{`C:\store\x.inf_amd64_1\x.inf`, `C:\store\x.inf_amd64_1`, "x.inf"},
		{"/mnt/store/y.inf_arm64_2/y.inf", "/mnt/store/y.inf_arm64_2", "y.inf"},
		{"x.inf", "", ""},
		{`C:\store\`, "", ""},
		{"", "", ""},
	}
	for _, tc := range tests {
		dir, name := splitInfPath(tc.in)
		if dir != tc.dir || name != tc.name {
			t.Errorf("splitInfPath(%q) = %q, %q; want %q, %q", tc.in, dir, name, tc.dir, tc.name)
		}
	}
}

func TestWithInfPath(t *testing.T) {
	base := driverpkg.PackageRecord{PublishedName: "oem3.inf"}
	sizes := func(dir string) (int64, error) {
		if dir == `C:\store\z.inf_amd64_3` {
			return 4096, nil
		}
		return 0, errors.New("access denied")
	}

	got := withInfPath(base, `C:\store\z.inf_amd64_3\z.inf`, sizes)
	if got.OriginalInfName != "z.inf" || got.FolderLocation != `C:\store\z.inf_amd64_3` || got.Size != 4096 {
		t.Fatalf("withInfPath = %+v", got)
	}

	denied := withInfPath(base, `C:\other\q.inf_amd64_4\q.inf`, sizes)
	if denied.Resolved() || denied.Size != 0 {
		t.Fatalf("size failure should leave the location unknown: %+v", denied)
	}
	if empty := withInfPath(base, "", sizes); empty.Resolved() {
		t.Fatalf("empty path should be unresolved: %+v", empty)
	}
}

func TestFolderSize(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.inf", 10)
	writeFile(t, dir, "sub/b.sys", 90)

	got, err := folderSize(dir)
	if err != nil {
		t.Fatalf("folderSize returned error: %v", err)
	}
	if got != 100 {
		t.Fatalf("folderSize = %d, want 100", got)
	}
}

func TestCheckOriginalName(t *testing.T) {
	base := withInfPath(driverpkg.PackageRecord{PublishedName: "oem5.inf"}, `C:\store\net.inf_amd64_5\net.inf`,
		func(string) (int64, error) { return 10, nil })
	prop := func(name string) propertyGetter {
		return func(k devprop.Key) (devprop.Value, bool) {
			if k != devprop.DriverPackageOriginalInfName || name == "" {
				return devprop.Value{}, false
			}
			return devprop.Value{Type: devprop.TypeString, String: name}, true
		}
	}

	if got := checkOriginalName(base, prop("NET.INF")); got != base {
		t.Errorf("matching name changed the record: %+v", got)
	}
	if got := checkOriginalName(base, prop("")); got != base {
		t.Errorf("absent property changed the record: %+v", got)
	}
	got := checkOriginalName(base, prop("other.inf"))
	if got.Resolved() || got.FolderLocation != "" || got.Size != 0 {
		t.Errorf("mismatch should leave the record unresolved: %+v", got)
	}
}
