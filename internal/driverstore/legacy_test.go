package driverstore

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/breeze-rmm/drvstore/internal/devicemap"
	"github.com/breeze-rmm/drvstore/internal/driverpkg"
	"github.com/breeze-rmm/drvstore/internal/executor"
	"github.com/breeze-rmm/drvstore/internal/obsolete"
	"github.com/breeze-rmm/drvstore/internal/pnputil"
)

type fakeRun struct {
	output string
	err    error
}

// fakeRunner answers by the joined argument list and records every call.
type fakeRunner struct {
	responses map[string]fakeRun
	calls     []string
}

func (f *fakeRunner) Run(_ context.Context, tool string, args ...string) (executor.Result, error) {
	key := strings.Join(args, " ")
	f.calls = append(f.calls, tool+" "+key)
	r, ok := f.responses[key]
	if !ok {
		return executor.Result{ExitCode: -1}, &driverpkg.ExternalProcessError{Tool: tool, ExitCode: -1, Err: errors.New("unexpected call")}
	}
	return executor.Result{Output: r.output}, r.err
}

const acmeEnum = `Microsoft PnP Utility

Published name :            oem1.inf
Driver package provider :   Acme
Class :                     System devices
Driver version and date :   01/01/2020 1.0.0.0
Signer name :               Acme Signing

Published name :            oem2.inf
Driver package provider :   Acme
Class :                     System devices
Driver version and date :   06/01/2022 2.0.0.0
Signer name :               Acme Signing

Published name :            OEM2.INF
Driver package provider :   Acme
Class :                     System devices
Driver version and date :   06/01/2022 2.0.0.0
Signer name :               Acme Signing
`

const legacyStoreRoot = `C:\Windows\System32\DriverStore\FileRepository`

func acmeStore() (mirror, store fstest.MapFS) {
	v1 := "[Version]\r\nDriverVer=01/01/2020,1.0.0.0\r\n"
	v2 := "[Version]\r\nDriverVer=06/01/2022,2.0.0.0\r\n"
	mirror = fstest.MapFS{
		"oem1.inf": {Data: []byte(v1)},
		"oem2.inf": {Data: []byte(v2)},
	}
	store = fstest.MapFS{
		"acme.inf_amd64_aaa/acme.inf": {Data: []byte(v1)},
		"acme.inf_amd64_aaa/acme.sys": {Data: make([]byte, 2000)},
		"acme.inf_amd64_bbb/acme.inf": {Data: []byte(v2)},
		"acme.inf_amd64_bbb/acme.sys": {Data: make([]byte, 3000)},
	}
	return mirror, store
}

func newAcmeLegacy(runner *fakeRunner, devices devicemap.Source) *Legacy {
	mirror, store := acmeStore()
	return NewLegacy(LegacyOptions{
		Runner:    runner,
		DateOrder: pnputil.MonthFirst,
		Mirror:    mirror,
		Store:     store,
		StoreRoot: legacyStoreRoot,
		Devices:   devices,
	})
}

func TestLegacyEnumerateReadsDatesInHostOrder(t *testing.T) {
	dayFirst := strings.ReplaceAll(acmeEnum, "06/01/2022", "01/06/2022")
	runner := &fakeRunner{responses: map[string]fakeRun{"-e": {output: dayFirst}}}
	devices := devicemap.StaticSource{{
		ID:              `PCI\VEN_ACME&DEV_0001`,
		Name:            "Acme Controller",
		DriverReference: "oem2.inf",
		DriverDate:      time.Date(2022, time.June, 1, 0, 0, 0, 0, time.UTC),
		DriverVersion:   driverpkg.Version{Major: 2},
		Present:         driverpkg.True,
	}}
	mirror, store := acmeStore()
	l := NewLegacy(LegacyOptions{
		Runner:    runner,
		DateOrder: pnputil.DayFirst,
		Mirror:    mirror,
		Store:     store,
		StoreRoot: legacyStoreRoot,
		Devices:   devices,
	})

	got, err := l.Enumerate(context.Background())
	if err != nil {
		t.Fatalf("Enumerate returned error: %v", err)
	}
	if len(got) != 2 || got[1].DeviceName != "Acme Controller" {
		t.Fatalf("oem2.inf should stay bound on a day-first host: %+v", got)
	}
	if cands := obsolete.Select(got); len(cands) != 1 || cands[0].PublishedName != "oem1.inf" {
		t.Fatalf("Select = %+v, want only oem1.inf", cands)
	}
}

func TestLegacyEnumerateResolvesAndAnnotates(t *testing.T) {
	runner := &fakeRunner{responses: map[string]fakeRun{"-e": {output: acmeEnum}}}
	devices := devicemap.StaticSource{{
		ID:              `PCI\VEN_ACME&DEV_0001`,
		Name:            "Acme Controller",
		DriverReference: "oem2.inf",
		DriverDate:      time.Date(2022, time.June, 1, 0, 0, 0, 0, time.UTC),
		DriverVersion:   driverpkg.Version{Major: 2},
		Present:         driverpkg.True,
	}}
	l := newAcmeLegacy(runner, devices)

	got, err := l.Enumerate(context.Background())
	if err != nil {
		t.Fatalf("Enumerate returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Enumerate returned %d records, want 2 after de-duplication", len(got))
	}

	old, current := got[0], got[1]
	if old.PublishedName != "oem1.inf" || old.OriginalInfName != "acme.inf" {
		t.Fatalf("unexpected first record: %+v", old)
	}
	if want := filepath.Join(legacyStoreRoot, "acme.inf_amd64_aaa"); old.FolderLocation != want {
		t.Errorf("FolderLocation = %q, want %q", old.FolderLocation, want)
	}
	if old.BoundToDevice() || old.DevicePresent != driverpkg.Unknown {
		t.Errorf("oem1.inf should not be bound: %+v", old)
	}
	if current.DeviceName != "Acme Controller" || current.DevicePresent != driverpkg.True {
		t.Errorf("oem2.inf should be bound to the present device: %+v", current)
	}
	if current.Size != int64(len("[Version]\r\nDriverVer=06/01/2022,2.0.0.0\r\n")+3000) {
		t.Errorf("Size = %d", current.Size)
	}
	if diff := cmp.Diff([]string{"pnputil.exe -e"}, runner.calls); diff != "" {
		t.Errorf("calls diff (-want +got): %v", diff)
	}
}

func TestLegacyEnumerateFeedsObsoleteSelection(t *testing.T) {
	runner := &fakeRunner{responses: map[string]fakeRun{"-e": {output: acmeEnum}}}
	l := newAcmeLegacy(runner, nil)

	records, err := l.Enumerate(context.Background())
	if err != nil {
		t.Fatalf("Enumerate returned error: %v", err)
	}
	candidates := obsolete.Select(records)
	if len(candidates) != 1 {
		t.Fatalf("obsolete.Select returned %d candidates, want 1: %+v", len(candidates), candidates)
	}
	if c := candidates[0]; c.PublishedName != "oem1.inf" || c.Version != (driverpkg.Version{Major: 1}) {
		t.Fatalf("candidate = %+v, want oem1.inf at 1.0.0.0", c)
	}
}

func TestLegacyEnumerateWithoutStoreLeavesLocationUnknown(t *testing.T) {
	runner := &fakeRunner{responses: map[string]fakeRun{"-e": {output: acmeEnum}}}
	l := NewLegacy(LegacyOptions{Runner: runner})

	got, err := l.Enumerate(context.Background())
	if err != nil {
		t.Fatalf("Enumerate returned error: %v", err)
	}
	for _, r := range got {
		if r.Resolved() || r.Size != 0 {
			t.Errorf("%s should be unresolved: %+v", r.PublishedName, r)
		}
	}
}

func TestLegacyEnumerateToolFailure(t *testing.T) {
	runner := &fakeRunner{}
	l := newAcmeLegacy(runner, nil)
	if _, err := l.Enumerate(context.Background()); err == nil {
		t.Fatal("Enumerate should fail when pnputil cannot run")
	}
}

func TestLegacyScanWrapperErrorFailsEnumerate(t *testing.T) {
	runner := &fakeRunner{responses: map[string]fakeRun{"-e": {output: acmeEnum}}}
	mirror, store := acmeStore()
	wrapErr := errors.New("privilege not held")
	l := NewLegacy(LegacyOptions{
		Runner: runner,
		Mirror: mirror,
		Store:  store,
		Scan:   func(func() error) error { return wrapErr },
	})
	if _, err := l.Enumerate(context.Background()); !errors.Is(err, wrapErr) {
		t.Fatalf("Enumerate error = %v, want %v", err, wrapErr)
	}
}

func TestLegacyDeleteClassification(t *testing.T) {
	exit1 := &driverpkg.ExternalProcessError{Tool: "pnputil.exe", ExitCode: 1}
	launch := &driverpkg.ExternalProcessError{Tool: "pnputil.exe", ExitCode: -1, Err: errors.New("file not found")}

	tests := []struct {
		desc      string
		run       fakeRun
		wantOK    bool
		wantErrIs error
	}{
		{desc: "success", run: fakeRun{output: "Microsoft PnP Utility\n\nDriver package deleted successfully.\n"}, wantOK: true},
		{desc: "success text wins over exit code", run: fakeRun{output: "Driver package deleted successfully.", err: exit1}, wantOK: true},
		{desc: "failure text", run: fakeRun{output: "Deleting the driver package failed : in use", err: exit1}, wantErrIs: exit1},
		{desc: "ambiguous text", run: fakeRun{output: "Le package a été supprimé."}, wantErrIs: driverpkg.ErrParseAmbiguous},
		{desc: "launch failure", run: fakeRun{err: launch}, wantErrIs: launch},
	}
	for _, tc := range tests {
		t.Run(tc.desc, func(t *testing.T) {
			runner := &fakeRunner{responses: map[string]fakeRun{"-d oem7.inf": tc.run}}
			l := NewLegacy(LegacyOptions{Runner: runner})

			r := l.Delete(context.Background(), driverpkg.PackageRecord{PublishedName: "oem7.inf"}, false)
			if r.OK != tc.wantOK {
				t.Fatalf("OK = %v, want %v (err %v)", r.OK, tc.wantOK, r.Err)
			}
			if tc.wantErrIs != nil && !errors.Is(r.Err, tc.wantErrIs) {
				t.Fatalf("Err = %v, want %v", r.Err, tc.wantErrIs)
			}
		})
	}
}

func TestLegacyDeleteForcePassesFlag(t *testing.T) {
	runner := &fakeRunner{responses: map[string]fakeRun{
		"-f -d oem7.inf": {output: "Driver package deleted successfully."},
	}}
	l := NewLegacy(LegacyOptions{Runner: runner})
	if r := l.Delete(context.Background(), driverpkg.PackageRecord{PublishedName: "oem7.inf"}, true); !r.OK {
		t.Fatalf("forced delete failed: %v", r.Err)
	}
}

func TestLegacyDeleteRejectsBadNameWithoutRunning(t *testing.T) {
	runner := &fakeRunner{}
	l := NewLegacy(LegacyOptions{Runner: runner})
	if r := l.Delete(context.Background(), driverpkg.PackageRecord{PublishedName: "x & calc"}, false); r.OK {
		t.Fatal("invalid published name should fail")
	}
	if len(runner.calls) != 0 {
		t.Fatalf("tool should not run, calls = %v", runner.calls)
	}
}

func TestLegacyAdd(t *testing.T) {
	path := `C:\drivers\net.inf`
	runner := &fakeRunner{responses: map[string]fakeRun{
		"-i -a " + path: {output: "Total attempted: 1\nNumber successfully imported: 1\n"},
		"-a " + path:    {output: "Total attempted: 1\nNumber successfully imported: 0\n"},
	}}
	l := NewLegacy(LegacyOptions{Runner: runner})

	if r := l.Add(context.Background(), path, true); !r.OK {
		t.Fatalf("install add failed: %v", r.Err)
	}
	r := l.Add(context.Background(), path, false)
	if r.OK {
		t.Fatal("zero imported should fail")
	}
	if !strings.Contains(r.Detail, "Number successfully imported: 0") {
		t.Errorf("Detail should carry tool output, got %q", r.Detail)
	}
}
