// Package supervisor starts and supervises the system's child processes:
// one per data source, one per strategy, one per external driver (e.g. a
// browser driver for a quoting site). Each child's stdout/stderr is
// multiplexed onto the supervisor's own streams, line by line, prefixed
// with the child's name in its assigned color. A failing child does not
// tear down its siblings; the supervisor waits for every child and
// collects all results.
package supervisor

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/logrusorgru/aurora/v3"
	"github.com/rs/zerolog"

	"github.com/danimelchor/kalshi/internal/wxerr"
)

// ColorFunc renders name in some aurora color, e.g. aurora.Red or
// aurora.Green, passed as a value so Spec doesn't need to import aurora
// itself at every call site.
type ColorFunc func(arg interface{}) aurora.Value

// Spec describes one child process to supervise.
type Spec struct {
	Name       string
	Color      ColorFunc
	Executable string
	Args       []string
	// StartDelay staggers child startup, e.g. so a strategy process
	// starts only once its data sources are already listening.
	StartDelay time.Duration
}

// Result is one child's outcome once it exits.
type Result struct {
	Name string
	Err  error
}

// Supervisor runs a fixed set of child processes and multiplexes their
// output.
type Supervisor struct {
	specs  []Spec
	stdout io.Writer
	stderr io.Writer
	log    zerolog.Logger
}

// New constructs a Supervisor. stdout/stderr are where multiplexed child
// output is written; a nil value is treated as discarded output (tests
// pass buffers here instead of the process's real streams).
func New(specs []Spec, stdout, stderr io.Writer, log zerolog.Logger) *Supervisor {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	return &Supervisor{specs: specs, stdout: stdout, stderr: stderr, log: log}
}

// Run starts every spec's child process (respecting each spec's start
// delay), waits for all of them to exit, and returns one Result per
// spec, in spec order. Cancelling ctx sends every still-running child a
// termination signal and unblocks Run once they've all exited.
func (s *Supervisor) Run(ctx context.Context) []Result {
	runID, err := uuid.NewV4()
	if err != nil {
		// crypto/rand is unavailable; fall back to the zero UUID rather
		// than failing the whole run over a logging correlation id.
		runID = uuid.UUID{}
	}
	runLog := s.log.With().Str("run_id", runID.String()).Logger()
	runLog.Info().Int("children", len(s.specs)).Msg("starting supervised run")

	results := make([]Result, len(s.specs))
	var wg sync.WaitGroup

	for i, spec := range s.specs {
		i, spec := i, spec
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = Result{Name: spec.Name, Err: s.runChild(ctx, runLog, spec)}
		}()
	}

	wg.Wait()
	return results
}

func (s *Supervisor) runChild(ctx context.Context, log zerolog.Logger, spec Spec) error {
	if spec.StartDelay > 0 {
		select {
		case <-time.After(spec.StartDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	prefix := spec.Color(spec.Name).String()

	outWriter := newLogWriter(spec.Name, log, func(name string, line []byte) {
		fmt.Fprintf(s.stdout, "[%s] %s", prefix, line)
	})
	errWriter := newLogWriter(spec.Name, log, func(name string, line []byte) {
		fmt.Fprintf(s.stderr, "[%s] %s", prefix, line)
	})

	cmd := exec.CommandContext(ctx, spec.Executable, spec.Args...)
	cmd.Stdout = outWriter
	cmd.Stderr = errWriter

	log.Info().Str("name", spec.Name).Str("executable", spec.Executable).Msg("starting child")

	if err := cmd.Start(); err != nil {
		return wxerr.Wrap(err, wxerr.ChildFailed, "supervisor.runChild", "start child", map[string]any{"name": spec.Name})
	}

	err := cmd.Wait()
	outWriter.Flush()
	errWriter.Flush()

	if err != nil {
		code := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		}
		wrapped := wxerr.Wrap(err, wxerr.ChildFailed, "supervisor.runChild", "child exited non-zero", map[string]any{
			"name": spec.Name,
			"code": code,
		})
		log.Error().Str("name", spec.Name).Int("code", code).Msg("child failed")
		return wrapped
	}

	log.Info().Str("name", spec.Name).Msg("child exited cleanly")
	return nil
}
