package audit

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/breeze-rmm/drvstore/internal/driverstore"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.jsonl"), 1, 2)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	return j
}

func sampleReport() driverstore.BatchReport {
	r := driverstore.NewBatchReport()
	r.Add("oem1.inf", driverstore.Succeeded(""))
	r.Add("oem2.inf", driverstore.Failed(errors.New("in use"), ""))
	return r
}

func readEntries(t *testing.T, path string) []Entry {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read journal: %v", err)
	}
	var out []Entry
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("unmarshal %q: %v", line, err)
		}
		out = append(out, e)
	}
	return out
}

func TestNilJournalIsNoop(t *testing.T) {
	var j *Journal
	j.Record(EventDelete, "native", "running system", sampleReport())
	if err := j.Close(); err != nil {
		t.Fatalf("nil Close returned error: %v", err)
	}
}

func TestRecordWritesOneEntryPerItem(t *testing.T) {
	j := newTestJournal(t)
	j.Record(EventDelete, "pnputil", "running system", sampleReport())
	j.Close()

	entries := readEntries(t, j.path)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	first, second := entries[0], entries[1]
	if first.Subject != "oem1.inf" || !first.OK || first.Backend != "pnputil" || first.Event != EventDelete {
		t.Errorf("first entry = %+v", first)
	}
	if second.OK || second.Error != "in use" {
		t.Errorf("second entry = %+v", second)
	}
	if first.PrevHash != genesisHash || second.PrevHash != first.EntryHash {
		t.Errorf("entries are not chained: %+v", entries)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	j := newTestJournal(t)
	j.Record(EventAdd, "dism", `offline image D:\mount`, sampleReport())
	j.Close()

	if n, err := Verify(j.path); err != nil || n != 2 {
		t.Fatalf("Verify = %d, %v; want 2, nil", n, err)
	}

	data, _ := os.ReadFile(j.path)
	tampered := strings.Replace(string(data), `"ok":false`, `"ok":true`, 1)
	if err := os.WriteFile(j.path, []byte(tampered), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Verify(j.path); err == nil {
		t.Fatal("Verify should detect the edited entry")
	}
}

func TestOpenContinuesExistingChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")

	j, err := Open(path, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	j.Record(EventDelete, "native", "running system", sampleReport())
	j.Close()

	j, err = Open(path, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	j.Record(EventExport, "native", "running system", sampleReport())
	j.Close()

	if n, err := Verify(path); err != nil || n != 4 {
		t.Fatalf("Verify = %d, %v; want 4, nil", n, err)
	}
}

func TestRotationLinksFiles(t *testing.T) {
	j := newTestJournal(t)
	j.maxSize = 600

	for i := 0; i < 4; i++ {
		j.Record(EventDelete, "native", "running system", sampleReport())
	}
	j.Close()

	if _, err := os.Stat(j.path + ".1"); err != nil {
		t.Fatalf("expected a rotated backup: %v", err)
	}
	old := readEntries(t, j.path+".1")
	current := readEntries(t, j.path)
	if current[0].Event != EventRotated {
		t.Fatalf("current file should start with a rotation entry, got %+v", current[0])
	}
	if current[0].PrevHash != old[len(old)-1].EntryHash {
		t.Fatal("rotation entry should link to the last entry of the previous file")
	}
	if _, err := Verify(j.path); err != nil {
		t.Fatalf("Verify(current) = %v", err)
	}
}
