package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	ErrRunNotStarted = errors.New("run not started")
	ErrRunInProgress = errors.New("run in progress")
	ErrEmptyCommand  = errors.New("empty command")
)

const (
	defaultWaitDelay = 5 * time.Second
	maxLineSize      = 1024 * 1024
	linesBuffer      = 64
)

// FinishFunc receives the terminal Result of a run. It's called exactly once
// per run, after all output lines were passed to the Sink.
type FinishFunc func(ctx context.Context, result Result)

type State int

const (
	StateNotStarted State = iota
	StateRunning
	StateDraining
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not started"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Command describes a process to run. Path and Args are passed to the
// operating system as they are, no shell is involved.
type Command struct {
	Path string
	Args []string
	// Dir is the working directory of the process, current directory if empty
	Dir string
	// Env of the process, inherits the environment if nil
	Env     []string
	Timeout time.Duration
	// WaitDelay bounds the wait for the process after it was signaled on
	// Stop or Timeout. After it the process is killed and its output pipes
	// are closed. It has no effect on a run which is not canceled.
	WaitDelay time.Duration
}

type Result struct {
	ID      uuid.UUID
	Path    string
	Args    []string
	Dir     string
	Started time.Time
	Stopped time.Time
	State   *os.ProcessState
	// number of lines delivered from stdout and stderr
	Stdout int
	Stderr int
	Err    error
}

// ExitCode returns the exit code of the process or -1 if it did not run
// or was terminated by a signal.
func (r Result) ExitCode() int {
	if r.State == nil {
		return -1
	}
	return r.State.ExitCode()
}

// Runner supervises a single process at a time. It streams both stdout and
// stderr to a Sink while the process is running and reports completion via
// FinishFunc and WaitChan.
type Runner struct {
	mx     sync.Mutex
	state  State
	cancel context.CancelFunc
	result Result
	waits  []chan Result
}

func NewRunner() *Runner {
	return &Runner{
		result: Result{Err: ErrRunNotStarted},
	}
}

// Start runs the process described by proto in the background and returns
// immediately. Returns ErrRunInProgress if the Runner already supervises
// a process. Any other failure, including a failure to start the process,
// is reported through onFinished.
// sink and onFinished are called from goroutines owned by the Runner; sink is
// never called concurrently. Both can be nil. The run is still active while
// onFinished executes, so Start called from it returns ErrRunInProgress.
func (r *Runner) Start(ctx context.Context, proto Command, sink Sink, onFinished FinishFunc) error {
	r.mx.Lock()
	defer r.mx.Unlock()
	if r.state == StateRunning || r.state == StateDraining {
		return ErrRunInProgress
	}

	r.state = StateRunning
	r.result = Result{
		ID:   uuid.New(),
		Path: proto.Path,
		Args: append([]string(nil), proto.Args...),
		Dir:  proto.Dir,
	}
	if proto.Timeout > 0 {
		ctx, r.cancel = context.WithTimeout(ctx, proto.Timeout)
	} else {
		ctx, r.cancel = context.WithCancel(ctx)
	}

	if sink == nil {
		sink = func(context.Context, Line) {}
	}
	go r.run(ctx, proto, sink, onFinished)
	return nil
}

// Stop terminates the running process. The output produced so far is still
// drained and onFinished is still called.
func (r *Runner) Stop() {
	r.mx.Lock()
	defer r.mx.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *Runner) State() State {
	r.mx.Lock()
	defer r.mx.Unlock()
	return r.state
}

func (r *Runner) setState(s State) {
	r.mx.Lock()
	r.state = s
	r.mx.Unlock()
}

func (r *Runner) run(ctx context.Context, proto Command, sink Sink, onFinished FinishFunc) {
	r.mx.Lock()
	result := r.result
	r.mx.Unlock()

	logger := slog.With("run_id", result.ID.String(), "path", proto.Path)
	result.Started = time.Now().UTC()

	if proto.Path == "" {
		result.Err = ErrEmptyCommand
		result.Stopped = result.Started
		r.setState(StateDraining)
		r.finish(ctx, result, onFinished)
		return
	}

	cmd := exec.CommandContext(ctx, proto.Path, proto.Args...)
	cmd.Dir = proto.Dir
	cmd.Env = proto.Env
	waitDelay := proto.WaitDelay
	if waitDelay == 0 {
		waitDelay = defaultWaitDelay
	}
	// only matters once ctx is done: kill after SIGTERM was ignored
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)

	outR, err := cmd.StdoutPipe()
	var errR io.ReadCloser
	if err == nil {
		errR, err = cmd.StderrPipe()
	}
	if err == nil {
		logger.DebugContext(ctx, "starting process", "args", proto.Args, "dir", proto.Dir)
		err = cmd.Start()
	}
	if err != nil {
		result.Err = err
		result.Stopped = time.Now().UTC()
		r.setState(StateDraining)
		r.finish(ctx, result, onFinished)
		return
	}

	lines := make(chan Line, linesBuffer)
	delivered := make(chan [2]int, 1)
	go func() {
		var counts [2]int
		for line := range lines {
			sink(ctx, line)
			counts[line.Stream-Stdout]++
		}
		delivered <- counts
	}()

	// A slow sink holds back the reads and so the process, nothing is dropped.
	// Reads end at EOF, or when the pipes are closed WaitDelay after ctx is
	// done, in case a descendant keeps them open.
	readsDone := make(chan struct{})
	go func() {
		select {
		case <-readsDone:
			return
		case <-ctx.Done():
		}
		t := time.NewTimer(waitDelay)
		defer t.Stop()
		select {
		case <-readsDone:
		case <-t.C:
			_ = outR.Close()
			_ = errR.Close()
		}
	}()

	var g errgroup.Group
	g.Go(func() error { return drain(ctx, logger, outR, Stdout, lines) })
	g.Go(func() error { return drain(ctx, logger, errR, Stderr, lines) })
	_ = g.Wait()
	close(readsDone)

	// all reads completed, Wait may close the pipes now
	err = cmd.Wait()
	result.State = cmd.ProcessState
	r.setState(StateDraining)

	close(lines)
	counts := <-delivered

	result.Stdout, result.Stderr = counts[0], counts[1]
	result.Err = err
	result.Stopped = time.Now().UTC()
	logger.DebugContext(ctx, "process finished",
		"exit_code", result.ExitCode(),
		"stdout_lines", result.Stdout,
		"stderr_lines", result.Stderr,
		"error", err,
	)
	r.finish(ctx, result, onFinished)
}

// finish reports the result. onFinished runs before the Runner
// leaves StateDraining, so WaitChan receivers observe its effects.
func (r *Runner) finish(ctx context.Context, result Result, onFinished FinishFunc) {
	if onFinished != nil {
		onFinished(ctx, result)
	}

	r.mx.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.result = result
	r.state = StateFinished
	waits := r.waits
	r.waits = nil
	r.mx.Unlock()

	for _, ch := range waits {
		ch <- result
		close(ch)
	}
}

// drain reads lines from r until EOF and sends them to lines. On a read error
// the rest of the stream is discarded, so the writing side never blocks.
func drain(ctx context.Context, logger *slog.Logger, r io.Reader, stream Stream, lines chan<- Line) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	scanner.Split(ScanLines)
	for scanner.Scan() {
		lines <- Line{Stream: stream, Text: scanner.Text() + "\n"}
	}
	err := scanner.Err()
	if err == nil {
		return nil
	}
	logger.ErrorContext(ctx, "reading process output", "stream", stream, "error", err)
	_, _ = io.Copy(io.Discard, r)
	return err
}

// WaitChan returns the channel obtaining the result of a running
// process. The channel is closed once the run ends. If no run is active,
// the last result is sent immediately.
func (r *Runner) WaitChan() <-chan Result {
	ch := make(chan Result, 1)
	r.mx.Lock()
	defer r.mx.Unlock()
	if r.state == StateRunning || r.state == StateDraining {
		r.waits = append(r.waits, ch)
		return ch
	}
	ch <- r.result
	close(ch)
	return ch
}

// LastResult returns a last run result
// or result with ErrRunNotStarted/ErrRunInProgress
// if no run has finished yet
func (r *Runner) LastResult() Result {
	r.mx.Lock()
	defer r.mx.Unlock()
	if r.state == StateRunning || r.state == StateDraining {
		return Result{ID: r.result.ID, Err: ErrRunInProgress}
	}
	return r.result
}
