// Package infcorrelate recovers a package's original INF name, store folder
// and size by matching descriptor content rather than names.
package infcorrelate

import (
	"errors"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/breeze-rmm/drvstore/internal/logging"
	"github.com/breeze-rmm/drvstore/internal/textdecode"
)

var log = logging.L("infcorrelate")

const readDirBatch = 32

// Location is a resolved package source.
type Location struct {
	OriginalInfName string
	Folder          string
	Size            int64
}

type cacheEntry struct {
	Location
	content string
}

// Index resolves published names against a package store in a single
// forward pass. Folders visited while looking for one name are cached for
// later names; a folder satisfies at most one request.
//
// An Index is owned by one enumeration: it is not safe for concurrent use
// and cannot be rewound, so build a fresh one per pass.
type Index struct {
	mirror    fs.FS
	store     fs.FS
	storeRoot string

	dir     fs.ReadDirFile
	pending []fs.DirEntry
	done    bool

	cache   []cacheEntry
	visited int
}

// New creates an index. mirror holds one descriptor per published name;
// store holds one folder per package. storeRoot is the OS path of store and
// is only used to report folder locations.
func New(mirror, store fs.FS, storeRoot string) *Index {
	return &Index{mirror: mirror, store: store, storeRoot: storeRoot}
}

// Resolve returns the location of publishedName, or false when it cannot
// be determined.
func (ix *Index) Resolve(publishedName string) (Location, bool) {
	raw, err := fs.ReadFile(ix.mirror, publishedName)
	if err != nil {
		log.Debug("descriptor stub unreadable", "publishedName", publishedName, "error", err)
		return Location{}, false
	}
	target := textdecode.Decode(raw)

	for i, entry := range ix.cache {
		if entry.content == target {
			ix.cache = slices.Delete(ix.cache, i, i+1)
			return entry.Location, true
		}
	}

	for {
		name, ok := ix.nextFolder()
		if !ok {
			return Location{}, false
		}

		entry, ok := ix.visit(name)
		if !ok {
			continue
		}
		if entry.content == target {
			return entry.Location, true
		}
		ix.cache = append(ix.cache, entry)
	}
}

// Visited is the number of store folders pulled from the iterator so far.
func (ix *Index) Visited() int { return ix.visited }

// Cached is the number of visited folders still waiting for a match.
func (ix *Index) Cached() int { return len(ix.cache) }

func (ix *Index) nextFolder() (string, bool) {
	for {
		if len(ix.pending) > 0 {
			entry := ix.pending[0]
			ix.pending = ix.pending[1:]
			if !entry.IsDir() {
				continue
			}
			ix.visited++
			return entry.Name(), true
		}
		if ix.done {
			return "", false
		}
		ix.fill()
	}
}

func (ix *Index) fill() {
	if ix.dir == nil {
		f, err := ix.store.Open(".")
		if err != nil {
			log.Warn("package store unreadable", "root", ix.storeRoot, "error", err)
			ix.done = true
			return
		}
		dir, ok := f.(fs.ReadDirFile)
		if !ok {
			f.Close()
			log.Warn("package store is not a directory", "root", ix.storeRoot)
			ix.done = true
			return
		}
		ix.dir = dir
	}

	entries, err := ix.dir.ReadDir(readDirBatch)
	ix.pending = append(ix.pending, entries...)
	if err != nil {
		if !errors.Is(err, io.EOF) {
			log.Warn("package store listing stopped", "root", ix.storeRoot, "error", err)
		}
		ix.done = true
		ix.dir.Close()
	}
}

// visit reads a folder's descriptor and size. Folders that cannot be read,
// including access-denied ones, are skipped.
func (ix *Index) visit(folder string) (cacheEntry, bool) {
	infName := DescriptorName(folder)
	if infName == "" {
		return cacheEntry{}, false
	}

	raw, err := fs.ReadFile(ix.store, path.Join(folder, infName))
	if err != nil {
		logSkip(folder, err)
		return cacheEntry{}, false
	}

	size, err := DirSize(ix.store, folder)
	if err != nil {
		logSkip(folder, err)
		return cacheEntry{}, false
	}

	return cacheEntry{
		Location: Location{
			OriginalInfName: infName,
			Folder:          filepath.Join(ix.storeRoot, folder),
			Size:            size,
		},
		content: textdecode.Decode(raw),
	}, true
}

func logSkip(folder string, err error) {
	if errors.Is(err, fs.ErrPermission) {
		log.Debug("access denied, skipping store folder", "folder", folder)
		return
	}
	log.Debug("skipping store folder", "folder", folder, "error", err)
}

// DescriptorName derives the INF file name from a store folder name such
// as "netfoo.inf_amd64_1a2b3c". The name ends at the first ".inf_" or at a
// trailing ".inf". It returns "" when the folder is not named after an INF.
func DescriptorName(folder string) string {
	lower := strings.ToLower(folder)
	idx := strings.Index(lower, ".inf_")
	if idx < 0 && strings.HasSuffix(lower, ".inf") {
		idx = len(lower) - len(".inf")
	}
	if idx <= 0 {
		return ""
	}
	return folder[:idx+len(".inf")]
}

// DirSize sums regular file sizes under root, recursively. The first error,
// such as a denied subdirectory, aborts the walk.
func DirSize(fsys fs.FS, root string) (int64, error) {
	var total int64
	err := fs.WalkDir(fsys, root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
