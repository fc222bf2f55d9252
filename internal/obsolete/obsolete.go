// Package obsolete picks driver packages that are safe to propose for
// removal: superseded by a newer package of the same driver and not bound
// to any device.
package obsolete

import (
	"slices"
	"strings"

	"github.com/breeze-rmm/drvstore/internal/driverpkg"
)

type groupKey struct {
	class, provider, infName string
}

func keyOf(r driverpkg.PackageRecord) groupKey {
	return groupKey{
		class:    strings.ToLower(r.Class),
		provider: strings.ToLower(r.Provider),
		infName:  strings.ToLower(r.OriginalInfName),
	}
}

// grouped reports whether r takes part in grouping. Boot-critical records
// are never touched; records with an unknown original INF name cannot be
// grouped reliably.
func grouped(r driverpkg.PackageRecord) bool {
	return r.BootCritical != driverpkg.True && r.OriginalInfName != ""
}

// Select returns the removal candidates in input order.
func Select(records []driverpkg.PackageRecord) []driverpkg.PackageRecord {
	groups := make(map[groupKey][]int)
	var order []groupKey
	for i, r := range records {
		if !grouped(r) {
			continue
		}
		k := keyOf(r)
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}

	superseded := make([]bool, len(records))
	for _, k := range order {
		idx := groups[k]
		if len(idx) < 2 {
			continue
		}
		slices.SortStableFunc(idx, func(a, b int) int {
			return driverpkg.CompareNewest(records[a], records[b])
		})
		for _, i := range idx[1:] {
			superseded[i] = true
		}
	}

	var out []driverpkg.PackageRecord
	for i, r := range records {
		if superseded[i] && !r.BoundToDevice() {
			out = append(out, r)
		}
	}
	return out
}

// Newest returns the newest record of each group in first-seen order,
// the counterpart of Select used for reporting what is kept.
func Newest(records []driverpkg.PackageRecord) []driverpkg.PackageRecord {
	best := make(map[groupKey]int)
	var order []groupKey
	for i, r := range records {
		if !grouped(r) {
			continue
		}
		k := keyOf(r)
		j, seen := best[k]
		if !seen {
			order = append(order, k)
			best[k] = i
			continue
		}
		if driverpkg.CompareNewest(r, records[j]) < 0 {
			best[k] = i
		}
	}
	out := make([]driverpkg.PackageRecord, 0, len(order))
	for _, k := range order {
		out = append(out, records[best[k]])
	}
	return out
}
