package executor

import (
	"bytes"
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/breeze-rmm/drvstore/internal/driverpkg"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}
}

func TestNewClampsTimeout(t *testing.T) {
	tests := []struct {
		in   int
		want time.Duration
	}{
		{0, DefaultTimeout * time.Second},
		{-5, DefaultTimeout * time.Second},
		{1, MinTimeout * time.Second},
		{120, 120 * time.Second},
		{99999, MaxTimeout * time.Second},
	}
	for _, tc := range tests {
		if got := New(tc.in).Timeout(); got != tc.want {
			t.Errorf("New(%d).Timeout() = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestRunCapturesCombinedOutput(t *testing.T) {
	skipOnWindows(t)

	res, err := New(30).Run(context.Background(), "sh", "-c", "echo out; echo err 1>&2")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !strings.Contains(res.Output, "out") || !strings.Contains(res.Output, "err") {
		t.Fatalf("Output = %q, want stdout and stderr", res.Output)
	}
	if res.ExitCode != 0 || res.Truncated {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestRunNonZeroExit(t *testing.T) {
	skipOnWindows(t)

	res, err := New(30).Run(context.Background(), "sh", "-c", "echo failing; exit 3")
	var procErr *driverpkg.ExternalProcessError
	if !errors.As(err, &procErr) {
		t.Fatalf("expected ExternalProcessError, got %v", err)
	}
	if procErr.ExitCode != 3 || res.ExitCode != 3 {
		t.Fatalf("exit code = %d / %d, want 3", procErr.ExitCode, res.ExitCode)
	}
	if !strings.Contains(res.Output, "failing") {
		t.Fatalf("output should be kept on failure, got %q", res.Output)
	}
}

func TestRunTimeout(t *testing.T) {
	skipOnWindows(t)

	e := New(30)
	e.timeout = 100 * time.Millisecond

	res, err := e.Run(context.Background(), "sh", "-c", "sleep 5")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if res.ExitCode != -1 {
		t.Fatalf("ExitCode = %d, want -1", res.ExitCode)
	}
}

func TestRunMissingTool(t *testing.T) {
	_, err := New(30).Run(context.Background(), "drvstore-no-such-tool")
	var procErr *driverpkg.ExternalProcessError
	if !errors.As(err, &procErr) || procErr.ExitCode != -1 {
		t.Fatalf("expected launch failure, got %v", err)
	}
}

func TestLimitedWriterTruncates(t *testing.T) {
	var buf bytes.Buffer
	w := &limitedWriter{buf: &buf, limit: 5}

	n, err := w.Write([]byte("abc"))
	if n != 3 || err != nil {
		t.Fatalf("Write = %d, %v", n, err)
	}
	n, _ = w.Write([]byte("defgh"))
	if n != 5 {
		t.Fatalf("short write reported: %d", n)
	}
	if buf.String() != "abcde" || !w.truncated {
		t.Fatalf("buf = %q truncated = %v", buf.String(), w.truncated)
	}
	w.Write([]byte("more"))
	if buf.String() != "abcde" {
		t.Fatalf("writes past the limit must be discarded, buf = %q", buf.String())
	}
}
