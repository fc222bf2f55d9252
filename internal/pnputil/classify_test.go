package pnputil

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestClassifyDelete(t *testing.T) {
	tests := []struct {
		desc   string
		output string
		want   Outcome
	}{
		{desc: "success", output: readFixture(t, "delete_success.txt"), want: Succeeded},
		{desc: "failure", output: readFixture(t, "delete_failure.txt"), want: Failed},
		{desc: "localized output is ambiguous", output: "Utilitaire PnP Microsoft\n\nLe package de pilotes a été supprimé.", want: Ambiguous},
		{desc: "empty output", output: "", want: Ambiguous},
	}
	for _, tc := range tests {
		t.Run(tc.desc, func(t *testing.T) {
			if got := ClassifyDelete(tc.output); got != tc.want {
				t.Errorf("ClassifyDelete() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestClassifyAdd(t *testing.T) {
	tests := []struct {
		desc   string
		output string
		want   Outcome
	}{
		{desc: "all imported", output: readFixture(t, "add_success.txt"), want: Succeeded},
		{desc: "none imported", output: readFixture(t, "add_failure.txt"), want: Failed},
		{desc: "zero attempted", output: "Total attempted: 0\nNumber successfully imported: 0\n", want: Failed},
		{desc: "partial import", output: "Total attempted: 3\r\nNumber successfully imported: 2\r\n", want: Failed},
		{desc: "no summary", output: "Microsoft PnP Utility\n\nProcessing inf : foo.inf\n", want: Ambiguous},
		{desc: "empty", output: "", want: Ambiguous},
	}
	for _, tc := range tests {
		t.Run(tc.desc, func(t *testing.T) {
			if got := ClassifyAdd(tc.output); got != tc.want {
				t.Errorf("ClassifyAdd() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCommandArgs(t *testing.T) {
	args, err := DeleteArgs("oem12.inf", true)
	if err != nil {
		t.Fatalf("DeleteArgs returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"-f", "-d", "oem12.inf"}, args); diff != "" {
		t.Errorf("DeleteArgs diff (-want +got): %v", diff)
	}

	args, _ = DeleteArgs("oem12.inf", false)
	if diff := cmp.Diff([]string{"-d", "oem12.inf"}, args); diff != "" {
		t.Errorf("DeleteArgs diff (-want +got): %v", diff)
	}

	if _, err := DeleteArgs("oem1.inf & calc.exe", false); err == nil {
		t.Error("DeleteArgs should reject names outside the published-name pattern")
	}

	args, _ = AddArgs(`C:\drivers\net.inf`, true)
	if diff := cmp.Diff([]string{"-i", "-a", `C:\drivers\net.inf`}, args); diff != "" {
		t.Errorf("AddArgs diff (-want +got): %v", diff)
	}
	if _, err := AddArgs("", false); err == nil {
		t.Error("AddArgs should require a path")
	}
	if diff := cmp.Diff([]string{"-e"}, EnumerateArgs()); diff != "" {
		t.Errorf("EnumerateArgs diff (-want +got): %v", diff)
	}
}
