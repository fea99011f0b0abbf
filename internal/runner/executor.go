package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"

	testylerrors "github.com/AndreyAkinshin/testyl/internal/errors"
	"github.com/AndreyAkinshin/testyl/internal/tests"
)

// Executor starts one attempt of a test as a controllable process. The
// default implementation spawns subprocesses; tests substitute fakes.
type Executor interface {
	Start(ctx context.Context, test tests.TestID) (Process, error)
}

// Process is one running attempt. Wait must be called exactly once; it
// blocks until the process exits and reports whether the attempt passed
// together with the captured combined output. Terminate asks the process to
// stop; Kill forces it. Both are safe to call while Wait is blocked.
type Process interface {
	Wait() (passed bool, output []byte, err error)
	Terminate() error
	Kill() error
}

// Placeholders substituted into the executor's command template.
const (
	placeholderPackage = "{package}"
	placeholderTest    = "{test}"
	placeholderID      = "{id}"
)

// ProcessExecutor spawns a subprocess per attempt from a command template.
// Occurrences of {package}, {test}, and {id} in the template arguments are
// replaced with the test's package, name, and full identifier. If the
// template carries no placeholder, the full identifier is appended as the
// last argument.
type ProcessExecutor struct {
	Command []string
	Env     []string // extra environment entries, appended to os.Environ
}

// NewProcessExecutor creates an executor for the given command template.
func NewProcessExecutor(command []string) (*ProcessExecutor, error) {
	if len(command) == 0 {
		return nil, testylerrors.Config("test command must not be empty")
	}
	return &ProcessExecutor{Command: command}, nil
}

// Start spawns the subprocess for one attempt. The context bounds the spawn
// only; lifetime control afterwards goes through Terminate and Kill so the
// supervisor can escalate gracefully instead of an immediate kill on cancel.
func (e *ProcessExecutor) Start(ctx context.Context, test tests.TestID) (Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	argv := expandCommand(e.Command, test)
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(), e.Env...)

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &osProcess{cmd: cmd, output: &buf}, nil
}

func expandCommand(template []string, test tests.TestID) []string {
	argv := make([]string, len(template))
	substituted := false
	for i, arg := range template {
		if strings.Contains(arg, placeholderPackage) ||
			strings.Contains(arg, placeholderTest) ||
			strings.Contains(arg, placeholderID) {
			substituted = true
		}
		arg = strings.ReplaceAll(arg, placeholderPackage, test.Package)
		arg = strings.ReplaceAll(arg, placeholderTest, test.Name)
		arg = strings.ReplaceAll(arg, placeholderID, test.String())
		argv[i] = arg
	}
	if !substituted {
		argv = append(argv, test.String())
	}
	return argv
}

type osProcess struct {
	cmd    *exec.Cmd
	output *bytes.Buffer

	waitOnce sync.Once
	waitErr  error
}

func (p *osProcess) Wait() (bool, []byte, error) {
	p.waitOnce.Do(func() {
		p.waitErr = p.cmd.Wait()
	})
	err := p.waitErr

	// The output buffer is complete once Wait returned.
	out := p.output.Bytes()

	if err == nil {
		return true, out, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false, out, nil
	}
	return false, out, err
}

func (p *osProcess) Terminate() error {
	err := p.cmd.Process.Signal(syscall.SIGTERM)
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

func (p *osProcess) Kill() error {
	err := p.cmd.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}
