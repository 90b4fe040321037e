package integration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/sitekit/internal/config"
	kerrors "git.home.luguber.info/inful/sitekit/internal/errors"
	"git.home.luguber.info/inful/sitekit/internal/logfields"
	"git.home.luguber.info/inful/sitekit/internal/metrics"
)

// IconMapIntegrationName is the stable name of the icon-map generator hook.
const IconMapIntegrationName = "icon-map-generator"

// State is the lifecycle state of a generator hook.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrAlreadyRan is returned when a generator hook is triggered a second time.
var ErrAlreadyRan = errors.New("generator hook already ran for this build")

// GeneratorFailedError reports a generator process that exited non-zero,
// could not start, or exceeded its timeout. It is fatal to the build.
type GeneratorFailedError struct {
	Integration string
	Command     []string
	ExitCode    int // -1 when the process did not exit on its own
	TimedOut    bool
	Timeout     time.Duration
	Err         error
}

func (e *GeneratorFailedError) Error() string {
	cmd := strings.Join(e.Command, " ")
	switch {
	case e.TimedOut:
		return fmt.Sprintf("%s: `%s` timed out after %s", e.Integration, cmd, e.Timeout)
	case e.ExitCode >= 0:
		return fmt.Sprintf("%s: `%s` exited with code %d", e.Integration, cmd, e.ExitCode)
	default:
		return fmt.Sprintf("%s: `%s` failed: %v", e.Integration, cmd, e.Err)
	}
}

func (e *GeneratorFailedError) Unwrap() error { return e.Err }

func (e *GeneratorFailedError) ErrorCategory() kerrors.ErrorCategory { return kerrors.CategoryGenerator }

// IconMapGenerator runs the external icon-map generator once per build. The
// run blocks until the process exits; there are no retries.
type IconMapGenerator struct {
	command  string
	script   string
	dir      string
	timeout  time.Duration
	stdout   io.Writer
	stderr   io.Writer
	recorder metrics.Recorder

	mu    sync.Mutex
	state State
}

// GeneratorOption customizes an IconMapGenerator.
type GeneratorOption func(*IconMapGenerator)

// WithOutput replaces the inherited stdout/stderr streams.
func WithOutput(stdout, stderr io.Writer) GeneratorOption {
	return func(g *IconMapGenerator) {
		g.stdout = stdout
		g.stderr = stderr
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r metrics.Recorder) GeneratorOption {
	return func(g *IconMapGenerator) {
		if r != nil {
			g.recorder = r
		}
	}
}

// NewIconMapGenerator builds the hook from configuration.
func NewIconMapGenerator(cfg config.GeneratorConfig, opts ...GeneratorOption) *IconMapGenerator {
	g := &IconMapGenerator{
		command:  cfg.Command,
		script:   cfg.Script,
		dir:      cfg.Dir,
		timeout:  cfg.Timeout,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		recorder: metrics.NoopRecorder{},
	}
	if g.command == "" {
		g.command = config.DefaultGeneratorCommand
	}
	if g.timeout <= 0 {
		g.timeout = config.DefaultGeneratorTimeout
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Integration exposes the generator as a config:setup participant.
func (g *IconMapGenerator) Integration() Integration {
	return Integration{
		Name: IconMapIntegrationName,
		Hooks: map[Event]Handler{
			EventConfigSetup: g.handleConfigSetup,
		},
	}
}

// State returns the current lifecycle state.
func (g *IconMapGenerator) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *IconMapGenerator) handleConfigSetup(ctx context.Context, hc HookContext) error {
	return g.Run(ctx, hc)
}

// Run launches the generator and waits for it. Exit code 0 moves the hook to
// StateSucceeded; anything else, including timeout expiry, moves it to
// StateFailed and returns a *GeneratorFailedError.
func (g *IconMapGenerator) Run(ctx context.Context, hc HookContext) error {
	g.mu.Lock()
	if g.state != StateIdle {
		g.mu.Unlock()
		return ErrAlreadyRan
	}
	g.state = StateRunning
	g.mu.Unlock()

	logger := hc.Logger
	if logger == nil {
		logger = slog.Default()
	}

	runCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	argv := []string{g.command, g.script}
	// #nosec G204 - command and script come from trusted project configuration
	cmd := exec.CommandContext(runCtx, g.command, g.script)
	cmd.Dir = g.dir
	cmd.Stdout = g.stdout
	cmd.Stderr = g.stderr
	// Grandchildren holding the output pipes must not block Wait after a kill.
	cmd.WaitDelay = time.Second
	killProcessGroup(cmd)

	logger.Info("Running icon map generator", "command", strings.Join(argv, " "), logfields.Path(g.dir))
	start := time.Now()
	err := cmd.Run()
	dur := time.Since(start)

	if err == nil {
		g.finish(StateSucceeded)
		g.recorder.ObserveGeneratorRun(dur, true)
		logger.Info("Icon map generated", logfields.DurationMS(float64(dur.Milliseconds())))
		return nil
	}

	g.finish(StateFailed)
	g.recorder.ObserveGeneratorRun(dur, false)

	if errors.Is(ctx.Err(), context.Canceled) {
		logger.Warn("Icon map generator canceled", logfields.DurationMS(float64(dur.Milliseconds())))
		return fmt.Errorf("icon map generator canceled: %w", ctx.Err())
	}

	fe := &GeneratorFailedError{
		Integration: IconMapIntegrationName,
		Command:     argv,
		ExitCode:    -1,
		Timeout:     g.timeout,
		Err:         err,
	}
	var exitErr *exec.ExitError
	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		fe.TimedOut = true
	case errors.As(err, &exitErr) && exitErr.ExitCode() >= 0:
		fe.ExitCode = exitErr.ExitCode()
	}
	return fe
}

func (g *IconMapGenerator) finish(s State) {
	g.mu.Lock()
	g.state = s
	g.mu.Unlock()
}
