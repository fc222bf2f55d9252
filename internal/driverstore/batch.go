package driverstore

import (
	"context"

	"github.com/breeze-rmm/drvstore/internal/driverpkg"
)

// BatchItem is one record's outcome within a batch.
type BatchItem struct {
	PublishedName string `json:"publishedName" yaml:"publishedName"`
	Result        `yaml:",inline"`
}

// BatchReport aggregates a batch: OK is the logical AND of every item.
type BatchReport struct {
	OK    bool        `json:"ok" yaml:"ok"`
	Items []BatchItem `json:"items" yaml:"items"`
}

// Failures returns the items that did not succeed.
func (r BatchReport) Failures() []BatchItem {
	var out []BatchItem
	for _, it := range r.Items {
		if !it.OK {
			out = append(out, it)
		}
	}
	return out
}

// NewBatchReport starts an empty report. An empty batch is OK.
func NewBatchReport() BatchReport {
	return BatchReport{OK: true}
}

// Add appends one outcome.
func (r *BatchReport) Add(publishedName string, res Result) {
	r.Items = append(r.Items, BatchItem{PublishedName: publishedName, Result: res})
	r.OK = r.OK && res.OK
}

// DeleteAll deletes every record in order and reports each outcome. It does
// not stop at the first failure. A cancelled context fails the remaining
// items without calling the backend.
func DeleteAll(ctx context.Context, b Backend, recs []driverpkg.PackageRecord, force bool) BatchReport {
	report := NewBatchReport()
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			report.Add(rec.PublishedName, Failed(err, ""))
			continue
		}
		report.Add(rec.PublishedName, b.Delete(ctx, rec, force))
	}
	return report
}
