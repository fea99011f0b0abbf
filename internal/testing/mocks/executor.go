// Package mocks provides shared test doubles for testyl packages.
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/AndreyAkinshin/testyl/internal/runner"
	"github.com/AndreyAkinshin/testyl/internal/tests"
)

// Behavior scripts one attempt of one test.
type Behavior struct {
	Pass   bool          // exit status of the attempt
	Output []byte        // captured output reported by Wait
	Delay  time.Duration // how long the attempt runs before exiting on its own

	Hang            bool  // never exit until signalled
	IgnoreTerminate bool  // survive Terminate; only Kill stops it
	IgnoreKill      bool  // survive Kill too; drives the lost-control path
	SpawnErr        error // fail the spawn itself instead of running
}

// Executor implements runner.Executor for testing.
// Use NewExecutor() to create instances with a fluent builder API.
type Executor struct {
	mu        sync.Mutex
	scripts   map[string][]Behavior
	fallback  Behavior
	starts    map[string]int
	order     []string
	active    int
	maxActive int
}

// NewExecutor creates an executor whose unscripted attempts pass instantly.
func NewExecutor() *Executor {
	return &Executor{
		scripts:  make(map[string][]Behavior),
		fallback: Behavior{Pass: true},
		starts:   make(map[string]int),
	}
}

// WithScript sets the attempt-by-attempt behaviors for a test. Attempts
// beyond the script reuse its last behavior.
func (e *Executor) WithScript(id string, behaviors ...Behavior) *Executor {
	e.scripts[id] = behaviors
	return e
}

// WithFallback sets the behavior for tests without a script.
func (e *Executor) WithFallback(b Behavior) *Executor {
	e.fallback = b
	return e
}

// runner.Executor interface implementation

func (e *Executor) Start(ctx context.Context, test tests.TestID) (runner.Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := test.Key()
	e.mu.Lock()
	attempt := e.starts[key]
	e.starts[key] = attempt + 1
	e.order = append(e.order, key)

	b := e.fallback
	if script, ok := e.scripts[key]; ok && len(script) > 0 {
		if attempt < len(script) {
			b = script[attempt]
		} else {
			b = script[len(script)-1]
		}
	}

	if b.SpawnErr != nil {
		e.mu.Unlock()
		return nil, b.SpawnErr
	}

	e.active++
	if e.active > e.maxActive {
		e.maxActive = e.active
	}
	e.mu.Unlock()

	p := &process{exec: e, behavior: b, exited: make(chan struct{})}
	if !b.Hang {
		go p.exitAfter(b.Delay, b.Pass)
	}
	return p, nil
}

// Test inspection methods

// StartCount returns how many attempts were started for a test.
func (e *Executor) StartCount(id string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.starts[id]
}

// StartOrder returns test keys in the order attempts were started.
func (e *Executor) StartOrder() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	result := make([]string, len(e.order))
	copy(result, e.order)
	return result
}

// MaxActive returns the peak number of simultaneously running processes.
func (e *Executor) MaxActive() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxActive
}

func (e *Executor) release() {
	e.mu.Lock()
	e.active--
	e.mu.Unlock()
}

type process struct {
	exec     *Executor
	behavior Behavior

	once   sync.Once
	exited chan struct{}
	passed bool
}

func (p *process) exitAfter(d time.Duration, passed bool) {
	if d > 0 {
		time.Sleep(d)
	}
	p.exit(passed)
}

func (p *process) exit(passed bool) {
	p.once.Do(func() {
		p.passed = passed
		p.exec.release()
		close(p.exited)
	})
}

func (p *process) Wait() (bool, []byte, error) {
	<-p.exited
	return p.passed, p.behavior.Output, nil
}

func (p *process) Terminate() error {
	if !p.behavior.IgnoreTerminate {
		p.exit(false)
	}
	return nil
}

func (p *process) Kill() error {
	if !p.behavior.IgnoreKill {
		p.exit(false)
	}
	return nil
}
