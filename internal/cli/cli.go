// Package cli provides command-line interface functionality for testyl.
package cli

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/AndreyAkinshin/testyl/internal/errors"
	"github.com/AndreyAkinshin/testyl/internal/output"
	"github.com/AndreyAkinshin/testyl/internal/version"
)

// wantsHelp returns true if args contain -h or --help before any -- separator.
// Arguments after -- form the test command template, so help flags there are
// passed through untouched.
func wantsHelp(args []string) bool {
	for _, arg := range args {
		if arg == "-h" || arg == "--help" {
			return true
		}
		if arg == "--" {
			return false
		}
	}
	return false
}

// Run executes the CLI with the given arguments and returns an exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 0
	}

	switch args[0] {
	case "-h", "--help", "help":
		printUsage()
		return 0
	case "--version", "version":
		fmt.Printf("testyl %s\n", version.Version)
		return 0
	}

	opts, remaining, err := parseGlobalFlags(args)
	if err != nil {
		out.ErrorPrefix("%v", err)
		return errors.ExitConfigError
	}

	// Re-extract command after flag parsing
	if len(remaining) == 0 {
		printUsage()
		return 0
	}
	cmd := remaining[0]
	cmdArgs := remaining[1:]

	switch cmd {
	case "run":
		return cmdRun(cmdArgs, opts)
	case "resolve":
		return cmdResolve(cmdArgs, opts)
	case "profiles":
		return cmdProfiles(cmdArgs, opts)
	case "config":
		return cmdConfig(cmdArgs, opts)
	default:
		out.ErrorPrefix("unknown command %q\n  run 'testyl --help' for usage", cmd)
		return errors.ExitConfigError
	}
}

// GlobalOptions holds parsed global flags.
type GlobalOptions struct {
	ConfigPath string
	TestsPath  string
	Profile    string
	Threads    int
	Quiet      bool
	Verbose    bool

	// Command is everything after --, the per-test command template.
	Command []string
}

// Flag defaults.
const (
	defaultConfigPath = "testyl.json"
	defaultTestsPath  = "tests.json"
	defaultProfile    = "default"
)

// parseGlobalFlags manually parses global flags from arguments.
//
// Manual parsing is used instead of stdlib flag package because:
// - Flags can appear anywhere in the argument list, not just before the command
// - The command template after -- must be preserved verbatim
// - Custom error messages with usage hints are needed
func parseGlobalFlags(args []string) (*GlobalOptions, []string, error) {
	opts := &GlobalOptions{
		ConfigPath: defaultConfigPath,
		TestsPath:  defaultTestsPath,
		Profile:    defaultProfile,
	}
	var remaining []string

	takeValue := func(i int, name string) (string, int, error) {
		if i+1 >= len(args) {
			return "", 0, fmt.Errorf("%s requires a value", name)
		}
		return args[i+1], i + 2, nil
	}

	i := 0
	for i < len(args) {
		arg := args[i]

		var err error
		switch {
		case arg == "-q" || arg == "--quiet":
			opts.Quiet = true
			i++
		case arg == "-v" || arg == "--verbose":
			opts.Verbose = true
			i++
		case arg == "-c" || arg == "--config":
			opts.ConfigPath, i, err = takeValue(i, arg)
		case strings.HasPrefix(arg, "--config="):
			opts.ConfigPath = strings.TrimPrefix(arg, "--config=")
			i++
		case arg == "-p" || arg == "--profile":
			opts.Profile, i, err = takeValue(i, arg)
		case strings.HasPrefix(arg, "--profile="):
			opts.Profile = strings.TrimPrefix(arg, "--profile=")
			i++
		case arg == "-t" || arg == "--tests":
			opts.TestsPath, i, err = takeValue(i, arg)
		case strings.HasPrefix(arg, "--tests="):
			opts.TestsPath = strings.TrimPrefix(arg, "--tests=")
			i++
		case arg == "-j" || arg == "--threads":
			var v string
			v, i, err = takeValue(i, arg)
			if err == nil {
				err = parseThreads(v, opts)
			}
		case strings.HasPrefix(arg, "--threads="):
			err = parseThreads(strings.TrimPrefix(arg, "--threads="), opts)
			i++
		case arg == "--":
			opts.Command = args[i+1:]
			i = len(args)
		default:
			remaining = append(remaining, arg)
			i++
		}
		if err != nil {
			return nil, nil, err
		}
	}

	if err := validateGlobalOptions(opts); err != nil {
		return nil, nil, err
	}

	// Apply verbosity settings to the shared output writer so all commands
	// behave consistently.
	out.SetQuiet(opts.Quiet)
	out.SetVerbose(opts.Verbose)

	return opts, remaining, nil
}

func parseThreads(value string, opts *GlobalOptions) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return fmt.Errorf("invalid --threads value %q\n  expected a positive integer, e.g. --threads=8", value)
	}
	opts.Threads = n
	return nil
}

// validateGlobalOptions checks that global options are valid.
func validateGlobalOptions(opts *GlobalOptions) error {
	if opts.Quiet && opts.Verbose {
		return fmt.Errorf("--quiet and --verbose are mutually exclusive")
	}
	if opts.Profile == "" {
		return fmt.Errorf("--profile requires a non-empty profile name")
	}
	return nil
}

func printUsage() {
	w := output.New()

	w.HelpTitle("testyl - test-run scheduling and policy engine")

	w.HelpSection("Usage:")
	w.HelpUsage("testyl run [flags] -- <command template>   Execute tests under a profile")
	w.HelpUsage("testyl <command> [flags]")

	w.HelpSection("Commands:")
	w.HelpCommand("run", "Execute the test list under the selected profile", 15)
	w.HelpCommand("resolve <test>", "Show the effective policy for one test", 15)
	w.HelpCommand("profiles", "List profiles defined in the configuration", 15)
	w.HelpCommand("config validate", "Validate the profile configuration", 15)
	w.HelpCommand("version", "Show version information", 15)

	printGlobalFlags(w)

	w.HelpSection("Examples:")
	titleCase := cases.Title(language.English)
	w.HelpExample("testyl run -- pytest {id}",
		titleCase.String("run")+" every discovered test through pytest")
	w.HelpExample("testyl run -p ci -j 8 -- ./run-test {package} {test}",
		titleCase.String("run")+" under the ci profile with 8 slots")
	w.HelpExample("testyl resolve estimator::test_full_estimator",
		"Show which overrides apply to a test")
	w.Println("")
}

func printGlobalFlags(w *output.Writer) {
	w.HelpSection("Global Flags:")
	w.HelpFlag("-c, --config <path>", "Profile configuration file (default testyl.json)", widthFlagWithValue)
	w.HelpFlag("-t, --tests <path>", "Test list file (default tests.json)", widthFlagWithValue)
	w.HelpFlag("-p, --profile <name>", "Profile to run under (default \"default\")", widthFlagWithValue)
	w.HelpFlag("-j, --threads <n>", "Total concurrency slots (default: CPU count)", widthFlagWithValue)
	w.HelpFlag("-q, --quiet", "Minimal output (errors only)", widthFlagWithValue)
	w.HelpFlag("-v, --verbose", "Maximum detail", widthFlagWithValue)
	w.HelpFlag("-h, --help", "Show this help", widthFlagWithValue)
	w.HelpFlag("--version", "Show version", widthFlagWithValue)

	w.HelpSection("Environment:")
	w.HelpEnvVar("TESTYL_THREADS=<n>", "Default slot budget when -j is absent", 18)
}
