// Package integration contains integration tests for testyl.
package integration

import (
	"bytes"
	"context"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/AndreyAkinshin/testyl/internal/config"
	"github.com/AndreyAkinshin/testyl/internal/output"
	"github.com/AndreyAkinshin/testyl/internal/policy"
	"github.com/AndreyAkinshin/testyl/internal/report"
	"github.com/AndreyAkinshin/testyl/internal/runner"
	"github.com/AndreyAkinshin/testyl/internal/tests"
)

var (
	fixturesDirOnce sync.Once
	fixturesDirPath string
)

// fixturesDir returns the path to the test fixtures directory.
// The result is cached since runtime.Caller is relatively expensive.
func fixturesDir() string {
	fixturesDirOnce.Do(func() {
		_, filename, _, _ := runtime.Caller(0)
		fixturesDirPath = filepath.Join(filepath.Dir(filename), "..", "fixtures")
	})
	return fixturesDirPath
}

func loadProfile(t *testing.T, name string) *policy.Profile {
	t.Helper()
	cfg, err := config.LoadAndValidate(filepath.Join(fixturesDir(), "basic", "profiles.json"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	set, err := config.BuildProfiles(cfg)
	if err != nil {
		t.Fatalf("build profiles: %v", err)
	}
	profile, ok := set.Get(name)
	if !ok {
		t.Fatalf("profile %q not found", name)
	}
	return profile
}

func loadTests(t *testing.T) []tests.TestID {
	t.Helper()
	list, err := tests.LoadList(filepath.Join(fixturesDir(), "basic", "tests.json"))
	if err != nil {
		t.Fatalf("load tests: %v", err)
	}
	return list
}

func quietWriter() *output.Writer {
	var out, errOut bytes.Buffer
	return output.NewWithWriters(&out, &errOut, false)
}

// TestResolvedPolicyScenario walks the documented resolution example: the
// dedicated override patches the slow timeout and slot requirement of
// test_full_estimator while retry settings are inherited from the base.
func TestResolvedPolicyScenario(t *testing.T) {
	t.Parallel()
	profile := loadProfile(t, "default")
	resolver := policy.NewResolver(profile)

	var full tests.TestID
	found := false
	for _, id := range loadTests(t) {
		if id.Package == "estimator" && id.Name == "test_full_estimator" {
			full = id
			found = true
		}
	}
	if !found {
		t.Fatal("fixture test list is missing estimator::test_full_estimator")
	}

	pol := resolver.Resolve(full)
	if pol.ThreadsRequired != 4 {
		t.Errorf("threads-required = %d, want 4", pol.ThreadsRequired)
	}
	if pol.SlowTimeout.Period != 10*time.Minute {
		t.Errorf("period = %v, want 10m", pol.SlowTimeout.Period)
	}
	if pol.SlowTimeout.TerminateAfter != 3 {
		t.Errorf("terminate-after = %d, want 3", pol.SlowTimeout.TerminateAfter)
	}
	if pol.RetryCount != 3 {
		t.Errorf("retry count = %d, want 3 (inherited)", pol.RetryCount)
	}
	if pol.RetryDelay != time.Second {
		t.Errorf("retry delay = %v, want 1s (inherited)", pol.RetryDelay)
	}
}

// TestRunWithSubprocesses runs the fixture test list through real
// subprocesses end to end.
func TestRunWithSubprocesses(t *testing.T) {
	t.Parallel()
	profile := loadProfile(t, "default")
	list := loadTests(t)

	exec, err := runner.NewProcessExecutor([]string{"true"})
	if err != nil {
		t.Fatal(err)
	}

	rep, err := runner.New(exec, quietWriter()).Run(context.Background(), list, profile, 4)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if rep.Failed() {
		t.Errorf("all-true run failed: %s", rep.Counts())
	}
	c := rep.Counts()
	if c.Passed != len(list) {
		t.Errorf("passed = %d, want %d", c.Passed, len(list))
	}
}

// TestRunCapturesFailureOutput verifies that a failing subprocess's output
// lands in the attempt record.
func TestRunCapturesFailureOutput(t *testing.T) {
	t.Parallel()
	list := []tests.TestID{{Package: "chain", Name: "test_boom"}}
	profile := &policy.Profile{Name: "oneshot", Base: policy.Default()}

	exec, err := runner.NewProcessExecutor([]string{"sh", "-c", "echo boom for {id}; exit 1"})
	if err != nil {
		t.Fatal(err)
	}

	rep, err := runner.New(exec, quietWriter()).Run(context.Background(), list, profile, 1)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !rep.Failed() {
		t.Fatal("failing subprocess should fail the run")
	}

	results := rep.Results()
	if results[0].Status != report.StatusFailed {
		t.Fatalf("status = %s, want failed", results[0].Status)
	}
	if len(results[0].Attempts) != 1 {
		t.Fatalf("attempts = %d, want 1 (default retry count is 0)", len(results[0].Attempts))
	}
	got := string(results[0].Attempts[0].CapturedOutput)
	if want := "boom for chain::test_boom"; !bytes.Contains([]byte(got), []byte(want)) {
		t.Errorf("captured output = %q, want it to contain %q", got, want)
	}
}

// TestRunTerminatesHungSubprocess drives the slow-timeout escalation against
// a real sleeping process.
func TestRunTerminatesHungSubprocess(t *testing.T) {
	t.Parallel()
	list := []tests.TestID{{Package: "chain", Name: "test_sleepy"}}

	base := policy.Default()
	base.SlowTimeout.Period = 100 * time.Millisecond
	base.SlowTimeout.TerminateAfter = 1
	base.SlowTimeout.GracePeriod = 100 * time.Millisecond
	profile := &policy.Profile{Name: "impatient", Base: base}

	// The placeholder keeps the executor from appending the test id as an
	// extra argument sleep would reject.
	exec, err := runner.NewProcessExecutor([]string{"sh", "-c", "sleep 60 # {id}"})
	if err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	rep, err := runner.New(exec, quietWriter()).Run(context.Background(), list, profile, 1)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 30*time.Second {
		t.Fatalf("escalation took %v, hung process was not reaped", elapsed)
	}

	results := rep.Results()
	if results[0].Status != report.StatusTimedOut {
		t.Errorf("status = %s, want timed_out", results[0].Status)
	}
}
