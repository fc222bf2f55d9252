package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/breeze-rmm/drvstore/internal/driverpkg"
	"github.com/breeze-rmm/drvstore/internal/driverstore"
)

func sampleRecords() []driverpkg.PackageRecord {
	rec := driverpkg.PackageRecord{
		PublishedName: "oem3.inf",
		Provider:      "Contoso",
		Class:         "Net",
		Date:          time.Date(2022, time.March, 4, 0, 0, 0, 0, time.UTC),
		Version:       driverpkg.Version{Major: 1, Minor: 2, Build: 3, Revision: 4},
		BootCritical:  driverpkg.False,
	}.WithLocation("net.inf", `C:\store\net.inf_amd64_1`, 2*1024*1024)
	return []driverpkg.PackageRecord{
		rec.WithDevice(driverpkg.DeviceRecord{Name: "Contoso NIC", Present: driverpkg.True}),
		{PublishedName: "oem4.inf", Provider: "Fabrikam"},
	}
}

func TestRenderRecordsTable(t *testing.T) {
	var buf bytes.Buffer
	if err := renderRecords(&buf, formatTable, sampleRecords(), driverpkg.Capabilities{DeviceColumn: true}); err != nil {
		t.Fatalf("renderRecords returned error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"oem3.inf", "net.inf", "1.2.3.4", "2022-03-04", "1 MB - 10 MB (2.0 MiB)", "Contoso NIC", "Device"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "Unknown") {
		t.Errorf("unresolved record should render Unknown fields:\n%s", out)
	}
}

func TestRenderRecordsHidesDeviceColumn(t *testing.T) {
	var buf bytes.Buffer
	if err := renderRecords(&buf, formatTable, sampleRecords(), driverpkg.Capabilities{}); err != nil {
		t.Fatalf("renderRecords returned error: %v", err)
	}
	if strings.Contains(buf.String(), "Contoso NIC") {
		t.Errorf("device column should be hidden:\n%s", buf.String())
	}
}

func TestRenderRecordsJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := renderRecords(&buf, formatJSON, sampleRecords(), driverpkg.Capabilities{}); err != nil {
		t.Fatalf("renderRecords returned error: %v", err)
	}
	var got []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if len(got) != 2 {
		t.Fatalf("decoded %d records, want 2", len(got))
	}
	if got[0]["version"] != "1.2.3.4" || got[0]["bootCritical"] != "false" || got[1]["bootCritical"] != "unknown" {
		t.Errorf("unexpected JSON fields: %v", got)
	}
}

func TestRenderEmptyRecordsJSONIsArray(t *testing.T) {
	var buf bytes.Buffer
	if err := renderRecords(&buf, formatJSON, nil, driverpkg.Capabilities{}); err != nil {
		t.Fatalf("renderRecords returned error: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Fatalf("output = %q, want []", buf.String())
	}
}

func TestRenderReportYAML(t *testing.T) {
	report := driverstore.NewBatchReport()
	report.Add("oem1.inf", driverstore.Succeeded(""))
	report.Add("oem2.inf", driverstore.Failed(errors.New("in use"), "pnputil said no"))

	var buf bytes.Buffer
	if err := renderReport(&buf, formatYAML, report); err != nil {
		t.Fatalf("renderReport returned error: %v", err)
	}
	var got reportOutput
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, buf.String())
	}
	want := reportOutput{
		OK: false,
		Items: []itemOutput{
			{PublishedName: "oem1.inf", OK: true},
			{PublishedName: "oem2.inf", Detail: "pnputil said no", Error: "in use"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("report diff (-want +got): %v", diff)
	}
}

func TestRenderReportTable(t *testing.T) {
	report := driverstore.NewBatchReport()
	report.Add("oem9.inf", driverstore.Failed(driverpkg.ErrNotFound, ""))

	var buf bytes.Buffer
	if err := renderReport(&buf, formatTable, report); err != nil {
		t.Fatalf("renderReport returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "failed") || !strings.Contains(buf.String(), "not found") {
		t.Errorf("table output:\n%s", buf.String())
	}
}

func TestValidateFormat(t *testing.T) {
	for _, f := range []string{formatTable, formatJSON, formatYAML} {
		if err := validateFormat(f); err != nil {
			t.Errorf("validateFormat(%q) = %v", f, err)
		}
	}
	if validateFormat("csv") == nil {
		t.Error("csv should be rejected")
	}
}

func TestPickAndWithMissing(t *testing.T) {
	records := sampleRecords()
	found, missing := pick(records, []string{"OEM4.INF", "oem7.inf", "oem3.inf"})
	if len(found) != 2 || found[0].PublishedName != "oem4.inf" || found[1].PublishedName != "oem3.inf" {
		t.Fatalf("found = %+v", found)
	}
	if diff := cmp.Diff(map[string]bool{"oem7.inf": true}, missing); diff != "" {
		t.Errorf("missing diff (-want +got): %v", diff)
	}

	report := driverstore.NewBatchReport()
	report.Add("oem4.inf", driverstore.Succeeded(""))
	report.Add("oem3.inf", driverstore.Succeeded(""))
	merged := withMissing(report, []string{"OEM4.INF", "oem7.inf", "oem3.inf"}, missing)

	var names []string
	for _, it := range merged.Items {
		names = append(names, it.PublishedName)
	}
	if diff := cmp.Diff([]string{"oem4.inf", "oem7.inf", "oem3.inf"}, names); diff != "" {
		t.Errorf("merged order diff (-want +got): %v", diff)
	}
	if merged.OK || !errors.Is(merged.Items[1].Err, driverpkg.ErrNotFound) {
		t.Errorf("missing name should fail with ErrNotFound: %+v", merged.Items[1])
	}
}

func TestRenderPrunePlanIsOneDocument(t *testing.T) {
	recs := sampleRecords()
	plan := prunePlan{Candidates: recs[1:], Kept: recs[:1]}

	var buf bytes.Buffer
	if err := renderPrunePlan(&buf, formatJSON, plan, driverpkg.Capabilities{}); err != nil {
		t.Fatalf("renderPrunePlan returned error: %v", err)
	}
	var got struct {
		Candidates []map[string]any `json:"candidates"`
		Kept       []map[string]any `json:"kept"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not a single JSON document: %v\n%s", err, buf.String())
	}
	if len(got.Candidates) != 1 || got.Candidates[0]["publishedName"] != "oem4.inf" {
		t.Errorf("candidates = %v", got.Candidates)
	}
	if len(got.Kept) != 1 || got.Kept[0]["publishedName"] != "oem3.inf" {
		t.Errorf("kept = %v", got.Kept)
	}

	buf.Reset()
	if err := renderPrunePlan(&buf, formatYAML, prunePlan{}, driverpkg.Capabilities{}); err != nil {
		t.Fatalf("renderPrunePlan returned error: %v", err)
	}
	if strings.Contains(buf.String(), "Would delete") {
		t.Errorf("structured output must not carry headings:\n%s", buf.String())
	}
	var empty map[string][]any
	if err := yaml.Unmarshal(buf.Bytes(), &empty); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, buf.String())
	}
	if empty["candidates"] == nil || len(empty["candidates"]) != 0 {
		t.Errorf("candidates should be an empty list: %v", empty)
	}

	buf.Reset()
	if err := renderPrunePlan(&buf, formatTable, plan, driverpkg.Capabilities{}); err != nil {
		t.Fatalf("renderPrunePlan returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "Would delete 1 package(s)") {
		t.Errorf("table output missing heading:\n%s", buf.String())
	}
}
