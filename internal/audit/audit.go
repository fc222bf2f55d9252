// Package audit keeps a tamper-evident journal of driver store changes.
package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/breeze-rmm/drvstore/internal/driverstore"
	"github.com/breeze-rmm/drvstore/internal/logging"
)

var log = logging.L("audit")

// Journal event types.
const (
	EventDelete  = "package_delete"
	EventAdd     = "package_add"
	EventExport  = "package_export"
	EventRotated = "journal_rotated"
)

const genesisHash = "genesis"

// Entry is one journal line.
type Entry struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Backend   string `json:"backend,omitempty"`
	Target    string `json:"target,omitempty"`
	Subject   string `json:"subject,omitempty"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
	PrevHash  string `json:"prevHash"`
	EntryHash string `json:"entryHash"`
}

// Journal appends JSONL entries linked by a SHA-256 hash chain. When the
// file outgrows its limit it is rotated and the new file starts with an
// EventRotated entry chained to the last entry of the old one.
//
// A nil *Journal is valid and records nothing.
type Journal struct {
	mu         sync.Mutex
	file       *os.File
	path       string
	maxSize    int64
	maxBackups int
	written    int64
	prevHash   string
}

// Open appends to the journal at path, continuing the chain of any
// existing entries.
func Open(path string, maxSizeMB, maxBackups int) (*Journal, error) {
	if maxSizeMB <= 0 {
		maxSizeMB = 50
	}
	if maxBackups <= 0 {
		maxBackups = 3
	}
	j := &Journal{
		path:       path,
		maxSize:    int64(maxSizeMB) * 1024 * 1024,
		maxBackups: maxBackups,
		prevHash:   genesisHash,
	}
	if last, err := lastHash(path); err != nil {
		return nil, err
	} else if last != "" {
		j.prevHash = last
	}
	if err := j.openFile(); err != nil {
		return nil, err
	}
	log.Debug("journal opened", "path", path)
	return j, nil
}

// Record journals every item of a batch as one entry. Entries are synced
// to disk before Record returns.
func (j *Journal) Record(event, backend, target string, report driverstore.BatchReport) {
	if j == nil {
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	for _, it := range report.Items {
		j.append(Entry{
			Event:   event,
			Backend: backend,
			Target:  target,
			Subject: it.PublishedName,
			OK:      it.OK,
			Error:   it.Error(),
		})
	}
	if j.file != nil {
		if err := j.file.Sync(); err != nil {
			log.Error("journal sync failed", logging.KeyError, err)
		}
	}
}

// Close closes the journal file.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}

// append writes e and advances the chain only when the write succeeds.
func (j *Journal) append(e Entry) {
	e.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	e.PrevHash = j.prevHash
	e.EntryHash = entryHash(e)

	data, err := json.Marshal(e)
	if err != nil {
		log.Error("failed to marshal journal entry", logging.KeyError, err)
		return
	}
	data = append(data, '\n')

	if e.Event != EventRotated && j.written+int64(len(data)) > j.maxSize {
		if err := j.rotate(); err != nil {
			log.Error("journal rotation failed", logging.KeyError, err)
			return
		}
		// Relink to the rotation entry.
		e.PrevHash = j.prevHash
		e.EntryHash = entryHash(e)
		if data, err = json.Marshal(e); err != nil {
			return
		}
		data = append(data, '\n')
	}

	n, err := j.file.Write(data)
	if err != nil {
		log.Error("failed to write journal entry", "event", e.Event, logging.KeyError, err)
		return
	}
	j.written += int64(n)
	j.prevHash = e.EntryHash
}

// entryHash covers every field but EntryHash. Fields are length-prefixed
// so no field value can imitate a boundary.
func entryHash(e Entry) string {
	h := sha256.New()
	for _, f := range []string{e.Timestamp, e.Event, e.Backend, e.Target, e.Subject, strconv.FormatBool(e.OK), e.Error, e.PrevHash} {
		fmt.Fprintf(h, "%d:%s", len(f), f)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (j *Journal) openFile() error {
	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat journal: %w", err)
	}
	j.file = f
	j.written = info.Size()
	return nil
}

func (j *Journal) rotate() error {
	if j.file != nil {
		j.file.Close()
		j.file = nil
	}

	for i := j.maxBackups; i >= 2; i-- {
		src, dst := j.backupName(i-1), j.backupName(i)
		if i == j.maxBackups {
			if err := os.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
				log.Warn("failed to remove oldest journal backup", "path", dst, logging.KeyError, err)
			}
		}
		if err := os.Rename(src, dst); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("failed to rename journal backup", "src", src, "dst", dst, logging.KeyError, err)
		}
	}
	if err := os.Rename(j.path, j.backupName(1)); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("failed to rename current journal", logging.KeyError, err)
	}

	if err := j.openFile(); err != nil {
		return err
	}
	j.append(Entry{Event: EventRotated, Subject: j.backupName(1), OK: true})
	return nil
}

func (j *Journal) backupName(index int) string {
	return fmt.Sprintf("%s.%d", j.path, index)
}

// Verify checks the hash chain of one journal file and returns the number
// of entries. A file that starts with a rotation entry may link to a hash
// outside the file; any other first entry must link to genesis.
func Verify(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var (
		prev  string
		count int
	)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return count, fmt.Errorf("entry %d: %w", count+1, err)
		}
		switch {
		case count == 0 && e.Event != EventRotated && e.PrevHash != genesisHash:
			return count, fmt.Errorf("entry 1: chain does not start at genesis")
		case count > 0 && e.PrevHash != prev:
			return count, fmt.Errorf("entry %d: chain broken", count+1)
		}
		if entryHash(e) != e.EntryHash {
			return count, fmt.Errorf("entry %d: hash mismatch", count+1)
		}
		prev = e.EntryHash
		count++
	}
	return count, sc.Err()
}

// lastHash returns the EntryHash of the last line of an existing journal.
func lastHash(path string) (string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read journal: %w", err)
	}
	defer f.Close()

	var last string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Entry
		if json.Unmarshal(sc.Bytes(), &e) == nil && e.EntryHash != "" {
			last = e.EntryHash
		}
	}
	return last, sc.Err()
}
