package driverpkg

import "github.com/dustin/go-humanize"

const (
	kb = int64(1024)
	mb = 1024 * kb
	gb = 1024 * mb
)

// sizeBuckets is ordered by upper bound; a size lands in the first bucket
// whose limit it is below.
var sizeBuckets = []struct {
	limit int64
	label string
}{
	{100 * kb, "< 100 KB"},
	{1 * mb, "100 KB - 1 MB"},
	{10 * mb, "1 MB - 10 MB"},
	{100 * mb, "10 MB - 100 MB"},
	{1 * gb, "100 MB - 1 GB"},
}

const (
	unknownSizeLabel = "Unknown"
	hugeSizeLabel    = "> 1 GB"
)

// SizeBucket returns the presentation bucket for a byte count.
// Non-positive sizes are Unknown.
func SizeBucket(size int64) string {
	_, label := sizeBucket(size)
	return label
}

// SizeBucketIndex returns the ordinal of the bucket; larger sizes never map
// to a smaller index. Unknown sizes are -1.
func SizeBucketIndex(size int64) int {
	idx, _ := sizeBucket(size)
	return idx
}

func sizeBucket(size int64) (int, string) {
	if size <= 0 {
		return -1, unknownSizeLabel
	}
	for i, b := range sizeBuckets {
		if size < b.limit {
			return i, b.label
		}
	}
	return len(sizeBuckets), hugeSizeLabel
}

// FormatSize renders an exact human-readable size such as "3.4 MiB".
func FormatSize(size int64) string {
	if size <= 0 {
		return unknownSizeLabel
	}
	return humanize.IBytes(uint64(size))
}
