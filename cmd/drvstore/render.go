package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/breeze-rmm/drvstore/internal/driverpkg"
	"github.com/breeze-rmm/drvstore/internal/driverstore"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func validateFormat(f string) error {
	switch f {
	case formatTable, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q (use table, json or yaml)", f)
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func renderRecords(w io.Writer, format string, recs []driverpkg.PackageRecord, caps driverpkg.Capabilities) error {
	if format != formatTable {
		if recs == nil {
			recs = []driverpkg.PackageRecord{}
		}
		return encode(w, format, recs)
	}

	headers := []string{"Published Name", "Original Name", "Provider", "Class", "Version", "Date", "Size", "Signer", "Boot Critical"}
	if caps.DeviceColumn {
		headers = append(headers, "Device", "Present")
	}
	t := newTable(headers...)
	for _, r := range recs {
		t.Row(recordRow(r, caps.DeviceColumn)...)
	}
	_, err := fmt.Fprintln(w, t.String())
	return err
}

func recordRow(r driverpkg.PackageRecord, deviceColumn bool) []string {
	row := []string{
		r.PublishedName,
		unknownIfEmpty(r.OriginalInfName),
		r.Provider,
		r.Class,
		versionCell(r.Version),
		dateCell(r),
		sizeCell(r.Size),
		r.SignerName,
		r.BootCritical.String(),
	}
	if deviceColumn {
		row = append(row, r.DeviceName, r.DevicePresent.String())
	}
	return row
}

func unknownIfEmpty(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func versionCell(v driverpkg.Version) string {
	if v.IsZero() {
		return "Unknown"
	}
	return v.String()
}

func dateCell(r driverpkg.PackageRecord) string {
	if r.Date.IsZero() {
		return "Unknown"
	}
	return r.Date.Format("2006-01-02")
}

// sizeCell shows the size bucket with the exact size next to it.
func sizeCell(size int64) string {
	if size <= 0 {
		return driverpkg.SizeBucket(size)
	}
	return fmt.Sprintf("%s (%s)", driverpkg.SizeBucket(size), driverpkg.FormatSize(size))
}

// prunePlan is the dry-run result of prune as one document.
type prunePlan struct {
	Candidates []driverpkg.PackageRecord `json:"candidates" yaml:"candidates"`
	Kept       []driverpkg.PackageRecord `json:"kept" yaml:"kept"`
}

func renderPrunePlan(w io.Writer, format string, plan prunePlan, caps driverpkg.Capabilities) error {
	if format != formatTable {
		if plan.Candidates == nil {
			plan.Candidates = []driverpkg.PackageRecord{}
		}
		if plan.Kept == nil {
			plan.Kept = []driverpkg.PackageRecord{}
		}
		return encode(w, format, plan)
	}

	fmt.Fprintf(w, "Would delete %d package(s):\n", len(plan.Candidates))
	if err := renderRecords(w, format, plan.Candidates, caps); err != nil {
		return err
	}
	fmt.Fprintln(w, "\nNewest package of each driver (kept):")
	return renderRecords(w, format, plan.Kept, caps)
}

func renderReport(w io.Writer, format string, report driverstore.BatchReport) error {
	if format != formatTable {
		return encode(w, format, newReportOutput(report))
	}

	t := newTable("Package", "Result", "Detail")
	for _, it := range report.Items {
		status, detail := "ok", it.Detail
		if !it.OK {
			status = "failed"
			detail = strings.TrimSpace(it.Error() + "\n" + it.Detail)
		}
		t.Row(it.PublishedName, status, detail)
	}
	_, err := fmt.Fprintln(w, t.String())
	return err
}

// itemOutput adds the rendered error, which Result keeps out of encodings.
type itemOutput struct {
	PublishedName string `json:"publishedName" yaml:"publishedName"`
	OK            bool   `json:"ok" yaml:"ok"`
	Detail        string `json:"detail,omitempty" yaml:"detail,omitempty"`
	Error         string `json:"error,omitempty" yaml:"error,omitempty"`
}

type reportOutput struct {
	OK    bool         `json:"ok" yaml:"ok"`
	Items []itemOutput `json:"items" yaml:"items"`
}

func newReportOutput(r driverstore.BatchReport) reportOutput {
	v := reportOutput{OK: r.OK, Items: make([]itemOutput, 0, len(r.Items))}
	for _, it := range r.Items {
		v.Items = append(v.Items, itemOutput{
			PublishedName: it.PublishedName,
			OK:            it.OK,
			Detail:        it.Detail,
			Error:         it.Error(),
		})
	}
	return v
}

type backendInfo struct {
	ID           string                 `json:"id" yaml:"id"`
	Name         string                 `json:"name" yaml:"name"`
	Target       driverstore.Target     `json:"target" yaml:"target"`
	Capabilities driverpkg.Capabilities `json:"capabilities" yaml:"capabilities"`
}

func describeBackend(b driverstore.Backend) backendInfo {
	return backendInfo{ID: b.ID(), Name: b.Name(), Target: b.Target(), Capabilities: b.Capabilities()}
}

func renderBackend(w io.Writer, format string, info backendInfo) error {
	if format != formatTable {
		return encode(w, format, info)
	}
	c := info.Capabilities
	t := newTable("Property", "Value").
		Row("Backend", fmt.Sprintf("%s (%s)", info.Name, info.ID)).
		Row("Target", info.Target.String()).
		Row("Install on add", yesNo(c.InstallOnAdd)).
		Row("Forced delete", yesNo(c.ForceDelete)).
		Row("Device column", yesNo(c.DeviceColumn)).
		Row("Export package", yesNo(c.ExportPackage)).
		Row("Export all", yesNo(c.ExportAll))
	_, err := fmt.Fprintln(w, t.String())
	return err
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
