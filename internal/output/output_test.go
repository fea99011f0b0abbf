package output

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func newTestWriter() (*Writer, *bytes.Buffer, *bytes.Buffer) {
	var out, errBuf bytes.Buffer
	return NewWithWriters(&out, &errBuf, false), &out, &errBuf
}

func TestInfo_QuietMode(t *testing.T) {
	t.Parallel()
	w, out, _ := newTestWriter()
	w.SetQuiet(true)

	w.Info("hidden")
	if out.Len() != 0 {
		t.Errorf("Info() in quiet mode wrote %q, want nothing", out.String())
	}

	w.SetQuiet(false)
	w.Info("visible")
	if got := out.String(); got != "visible\n" {
		t.Errorf("Info() = %q, want %q", got, "visible\n")
	}
}

func TestWarning_WritesToStderr(t *testing.T) {
	t.Parallel()
	w, out, errBuf := newTestWriter()

	w.Warning("timer drift %d", 7)

	if out.Len() != 0 {
		t.Errorf("Warning() wrote to stdout: %q", out.String())
	}
	if got := errBuf.String(); got != "warning: timer drift 7\n" {
		t.Errorf("Warning() = %q", got)
	}
}

func TestErrorPrefix(t *testing.T) {
	t.Parallel()
	w, _, errBuf := newTestWriter()

	w.ErrorPrefix("bad profile %q", "ci")
	if got := errBuf.String(); got != "testyl: bad profile \"ci\"\n" {
		t.Errorf("ErrorPrefix() = %q", got)
	}
}

func TestTestLifecycle_NoColor(t *testing.T) {
	t.Parallel()
	w, out, errBuf := newTestWriter()

	w.TestPassed("estimator::test_fast", 1500*time.Millisecond)
	w.TestFailed("estimator::test_slow", "timed out", 2*time.Minute)
	w.TestRetry("estimator::test_flaky", 1, time.Second)
	w.SlowWarning("estimator::test_slow", time.Minute)

	stdout := out.String()
	if !strings.Contains(stdout, "+ estimator::test_fast 1.5s") {
		t.Errorf("TestPassed output missing: %q", stdout)
	}
	if !strings.Contains(stdout, "~ estimator::test_flaky attempt 1 failed, retrying in 1s") {
		t.Errorf("TestRetry output missing: %q", stdout)
	}

	stderr := errBuf.String()
	if !strings.Contains(stderr, "x estimator::test_slow 2m0s (timed out)") {
		t.Errorf("TestFailed output missing: %q", stderr)
	}
	if !strings.Contains(stderr, "slow: estimator::test_slow still running after 1m0s") {
		t.Errorf("SlowWarning output missing: %q", stderr)
	}
}

func TestTestStart_VerboseOnly(t *testing.T) {
	t.Parallel()
	w, out, _ := newTestWriter()

	w.TestStart("pkg::test_a")
	if out.Len() != 0 {
		t.Errorf("TestStart() without verbose wrote %q", out.String())
	}

	w.SetVerbose(true)
	w.TestStart("pkg::test_a")
	if got := out.String(); got != "> pkg::test_a\n" {
		t.Errorf("TestStart() = %q", got)
	}
}

func TestFailureOutput(t *testing.T) {
	t.Parallel()
	w, _, errBuf := newTestWriter()

	w.FailureOutput("pkg::test_a", 2, []byte("line one\nline two\n"))

	stderr := errBuf.String()
	if !strings.Contains(stderr, "--- output of pkg::test_a (attempt 2) ---") {
		t.Errorf("FailureOutput header missing: %q", stderr)
	}
	if !strings.Contains(stderr, "  line one\n  line two\n") {
		t.Errorf("FailureOutput body missing: %q", stderr)
	}
}

func TestFailureOutput_Empty(t *testing.T) {
	t.Parallel()
	w, _, errBuf := newTestWriter()

	w.FailureOutput("pkg::test_a", 1, nil)
	if errBuf.Len() != 0 {
		t.Errorf("FailureOutput(nil) wrote %q, want nothing", errBuf.String())
	}
}

func TestTable(t *testing.T) {
	t.Parallel()
	w, out, _ := newTestWriter()

	w.Table([]string{"PROFILE", "OVERRIDES"}, [][]string{
		{"default", "1"},
		{"ci", "2"},
	})

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("Table() produced %d lines, want 4: %q", len(lines), out.String())
	}
	if !strings.HasPrefix(lines[0], "PROFILE") {
		t.Errorf("header line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[2], "default") {
		t.Errorf("first row = %q", lines[2])
	}
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()
	tests := []struct {
		d    time.Duration
		want string
	}{
		{1234 * time.Millisecond, "1.234s"},
		{90 * time.Second, "1m30s"},
		{10 * time.Minute, "10m0s"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
