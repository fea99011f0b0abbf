package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/AndreyAkinshin/testyl/internal/config"
	"github.com/AndreyAkinshin/testyl/internal/errors"
	"github.com/AndreyAkinshin/testyl/internal/output"
	"github.com/AndreyAkinshin/testyl/internal/policy"
	"github.com/AndreyAkinshin/testyl/internal/report"
	"github.com/AndreyAkinshin/testyl/internal/runner"
	"github.com/AndreyAkinshin/testyl/internal/tests"
)

// out is the shared output writer for CLI commands.
var out = output.New()

// Help text alignment widths for consistent formatting.
const (
	widthFlagWithValue = 20 // Width for flags like "-p, --profile <name>"
)

// timePrecision rounds summary durations to a readable grain.
const timePrecision = 10 * time.Millisecond

// loadProfileSet loads and validates the configuration, then builds the
// profile set. Returns nil and an exit code on failure.
func loadProfileSet(opts *GlobalOptions) (*policy.ProfileSet, int) {
	cfg, err := config.LoadAndValidate(opts.ConfigPath)
	if err != nil {
		out.ErrorPrefix("%v", err)
		return nil, errors.GetExitCode(err)
	}
	set, err := config.BuildProfiles(cfg)
	if err != nil {
		out.ErrorPrefix("%v", err)
		return nil, errors.GetExitCode(err)
	}
	return set, 0
}

// selectProfile picks the requested profile out of the set.
func selectProfile(set *policy.ProfileSet, name string) (*policy.Profile, int) {
	profile, ok := set.Get(name)
	if !ok {
		err := errors.NotFound("profile", name)
		out.ErrorPrefix("%v\n  available profiles: %s", err, strings.Join(set.Names(), ", "))
		return nil, errors.GetExitCode(err)
	}
	return profile, 0
}

// cmdRun executes the test list under the selected profile.
func cmdRun(args []string, opts *GlobalOptions) int {
	if wantsHelp(args) {
		printRunUsage()
		return 0
	}
	if len(args) > 0 {
		out.ErrorPrefix("run: unexpected argument %q\n  the test command goes after --", args[0])
		return errors.ExitConfigError
	}
	if len(opts.Command) == 0 {
		out.ErrorPrefix("run: no test command given\n  example: testyl run -- pytest {id}")
		return errors.ExitConfigError
	}

	set, exitCode := loadProfileSet(opts)
	if set == nil {
		return exitCode
	}
	profile, exitCode := selectProfile(set, opts.Profile)
	if profile == nil {
		return exitCode
	}

	list, err := tests.LoadList(opts.TestsPath)
	if err != nil {
		out.ErrorPrefix("%v", err)
		return errors.GetExitCode(err)
	}
	if len(list) == 0 {
		out.Warning("test list %s is empty, nothing to run", opts.TestsPath)
		return errors.ExitSuccess
	}

	exec, err := runner.NewProcessExecutor(opts.Command)
	if err != nil {
		out.ErrorPrefix("%v", err)
		return errors.GetExitCode(err)
	}

	threads := opts.Threads
	if threads == 0 {
		threads = runner.DefaultTotalSlots(out)
	}

	// Interrupts cancel the run; in-flight tests are escalated and the
	// report still covers whatever finished.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out.Info("running %d tests under profile %q with %d slots", len(list), profile.Name, threads)

	rep, runErr := runner.New(exec, out).Run(ctx, list, profile, threads)
	if runErr != nil {
		out.ErrorPrefix("%v", runErr)
		printSummary(rep)
		return errors.GetExitCode(runErr)
	}

	printSummary(rep)
	if rep.Failed() {
		return errors.ExitRuntimeError
	}
	return errors.ExitSuccess
}

func printSummary(rep *report.RunReport) {
	if rep == nil {
		return
	}
	c := rep.Counts()

	out.SummaryHeader("Run Summary")
	out.SummaryItem("Tests", fmt.Sprintf("%d", c.Total))
	out.SummaryPassed("Passed", fmt.Sprintf("%d", c.Passed))
	if failed := c.Total - c.Passed; failed > 0 {
		out.SummaryFailed("Failed", fmt.Sprintf("%d", failed))
	}
	out.SummaryItem("Duration", rep.Duration().Round(timePrecision).String())
	if aborted, reason := rep.Aborted(); aborted {
		out.SummaryItem("Aborted", reason)
	}

	var failures []string
	for _, tr := range rep.Results() {
		if tr.Status == report.StatusPassed {
			continue
		}
		line := fmt.Sprintf("%s (%s", tr.Test, tr.Status)
		if tr.Reason != "" {
			line += ": " + tr.Reason
		}
		line += ")"
		failures = append(failures, line)
	}
	if len(failures) > 0 {
		out.Println("")
		out.List(failures)
		out.FinalFailure("FAILED: %s", c)
		return
	}
	out.FinalSuccess("PASSED: %s", c)
}

// cmdResolve prints the effective policy for one test.
func cmdResolve(args []string, opts *GlobalOptions) int {
	if wantsHelp(args) {
		printResolveUsage()
		return 0
	}
	if len(args) != 1 {
		out.ErrorPrefix("resolve: exactly one test identifier required (package::name)")
		return errors.ExitConfigError
	}

	set, exitCode := loadProfileSet(opts)
	if set == nil {
		return exitCode
	}
	profile, exitCode := selectProfile(set, opts.Profile)
	if profile == nil {
		return exitCode
	}

	id, err := lookupTest(opts.TestsPath, args[0])
	if err != nil {
		out.ErrorPrefix("%v", err)
		return errors.GetExitCode(err)
	}

	pol := policy.NewResolver(profile).Resolve(id)

	out.SummaryHeader(fmt.Sprintf("Policy for %s (profile %q)", id, profile.Name))
	out.SummaryItem("slow-timeout.period", pol.SlowTimeout.Period.String())
	out.SummaryItem("slow-timeout.terminate-after", fmt.Sprintf("%d", pol.SlowTimeout.TerminateAfter))
	out.SummaryItem("slow-timeout.grace-period", pol.SlowTimeout.GracePeriod.String())
	out.SummaryItem("retries.backoff", string(pol.RetryBackoff))
	out.SummaryItem("retries.count", fmt.Sprintf("%d", pol.RetryCount))
	out.SummaryItem("retries.delay", pol.RetryDelay.String())
	out.SummaryItem("failure-output", string(pol.FailureOutput))
	out.SummaryItem("fail-fast", fmt.Sprintf("%t", pol.FailFast))
	out.SummaryItem("threads-required", fmt.Sprintf("%d", pol.ThreadsRequired))

	if matched := matchingOverrides(profile, id); len(matched) > 0 {
		out.Println("")
		out.Info("matching overrides, in declaration order:")
		out.List(matched)
	}
	return errors.ExitSuccess
}

// lookupTest finds a test in the test list by its package::name identifier.
// Resolving against the list (rather than parsing the identifier directly)
// keeps tag-based overrides honest: tags only exist in the list.
func lookupTest(testsPath, key string) (tests.TestID, error) {
	list, err := tests.LoadList(testsPath)
	if err != nil {
		return tests.TestID{}, err
	}
	for _, id := range list {
		if id.Key() == key {
			return id, nil
		}
	}
	return tests.TestID{}, errors.NotFound("test", key)
}

func matchingOverrides(profile *policy.Profile, id tests.TestID) []string {
	var matched []string
	for _, rule := range profile.Overrides {
		if rule.Filter.Matches(id) {
			matched = append(matched, rule.Source)
		}
	}
	return matched
}

// cmdProfiles lists profiles defined in the configuration.
func cmdProfiles(args []string, opts *GlobalOptions) int {
	if wantsHelp(args) {
		printProfilesUsage()
		return 0
	}

	set, exitCode := loadProfileSet(opts)
	if set == nil {
		return exitCode
	}

	headers := []string{"NAME", "OVERRIDES", "FAIL-FAST", "RETRIES"}
	var rows [][]string
	for _, name := range set.Names() {
		profile, _ := set.Get(name)
		rows = append(rows, []string{
			name,
			fmt.Sprintf("%d", len(profile.Overrides)),
			fmt.Sprintf("%t", profile.Base.FailFast),
			fmt.Sprintf("%d x %s", profile.Base.RetryCount, profile.Base.RetryDelay),
		})
	}
	out.Table(headers, rows)
	return errors.ExitSuccess
}

// cmdConfig handles configuration utilities.
func cmdConfig(args []string, opts *GlobalOptions) int {
	if len(args) == 0 {
		out.ErrorPrefix("config: subcommand required (validate)")
		return errors.ExitConfigError
	}

	switch args[0] {
	case "validate":
		return cmdConfigValidate(opts)
	case "-h", "--help":
		printConfigUsage()
		return 0
	default:
		out.ErrorPrefix("config: unknown subcommand %q", args[0])
		return errors.ExitConfigError
	}
}

func cmdConfigValidate(opts *GlobalOptions) int {
	set, exitCode := loadProfileSet(opts)
	if set == nil {
		return exitCode
	}

	overrides := 0
	for _, name := range set.Names() {
		profile, _ := set.Get(name)
		overrides += len(profile.Overrides)
	}

	out.Success("Configuration is valid.")
	out.SummaryItem("Config", opts.ConfigPath)
	out.SummaryItem("Profiles", strings.Join(set.Names(), ", "))
	out.SummaryItem("Overrides", fmt.Sprintf("%d", overrides))
	return errors.ExitSuccess
}

func printRunUsage() {
	w := output.New()
	w.HelpSection("Usage:")
	w.HelpUsage("testyl run [flags] -- <command template>")
	w.Println("")
	w.Println("The template runs once per attempt. {package}, {test}, and {id} are")
	w.Println("replaced with the test's package, name, and package::name; without a")
	w.Println("placeholder, package::name is appended as the last argument.")
	printGlobalFlags(w)
}

func printResolveUsage() {
	w := output.New()
	w.HelpSection("Usage:")
	w.HelpUsage("testyl resolve [flags] <package::name>")
	w.Println("")
	w.Println("Prints the effective policy for the test and the overrides that")
	w.Println("matched it, in declaration order.")
	printGlobalFlags(w)
}

func printProfilesUsage() {
	w := output.New()
	w.HelpSection("Usage:")
	w.HelpUsage("testyl profiles [flags]")
	printGlobalFlags(w)
}

func printConfigUsage() {
	w := output.New()
	w.HelpSection("Usage:")
	w.HelpUsage("testyl config validate [flags]")
	printGlobalFlags(w)
}
