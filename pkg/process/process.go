// Package process wraps os/exec with the shape every external command
// invocation in diskprep needs: a small functional-options constructor, a
// CommandError carrying argv/exit/stderr-tail, and combined-output or
// streaming-line readers. Nothing else in this module starts a command
// through os/exec (pkg/file only uses exec.LookPath).
package process

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// Process is the execution handle returned by New. Implementations must
// be safe to Close multiple times.
type Process interface {
	Start(ctx context.Context) error
	Started() bool

	// StartAndWaitForCombinedOutput starts the process (if not already
	// started) and blocks until it exits, returning combined stdout+stderr.
	StartAndWaitForCombinedOutput(ctx context.Context) ([]byte, error)

	Close(ctx context.Context) error
	Closed() bool

	Wait() <-chan error

	PID() int32
	ExitCode() int32

	StdoutReader() io.Reader
	StderrReader() io.Reader
}

// CommandError is returned whenever an external command exits non-zero or
// fails to start. It is the structured replacement for exception-driven
// subprocess error handling (spec §9).
type CommandError struct {
	Argv       []string
	Exit       int
	StderrTail string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q exited %d: %s", strings.Join(e.Argv, " "), e.Exit, e.StderrTail)
}

const stderrTailBytes = 4096

// NewCommandError builds a CommandError from argv, an exit code, and the
// captured stderr, truncating stderr to its trailing stderrTailBytes.
func NewCommandError(argv []string, exit int, stderr []byte) *CommandError {
	tail := string(stderr)
	if len(tail) > stderrTailBytes {
		tail = tail[len(tail)-stderrTailBytes:]
	}
	return &CommandError{Argv: argv, Exit: exit, StderrTail: strings.TrimSpace(tail)}
}

type process struct {
	op Op

	cmd *exec.Cmd

	runBashFile *os.File

	mu      sync.Mutex
	started bool
	closed  bool

	stdout *bytes.Buffer
	stderr *bytes.Buffer

	waitCh chan error
}

// New constructs a Process from the given options. It validates the
// configuration (command exists, envs well-formed, …) but does not start
// anything — call Start or StartAndWaitForCombinedOutput.
func New(opts ...OpOption) (Process, error) {
	op := Op{}
	if err := op.applyOpts(opts); err != nil {
		return nil, err
	}

	p := &process{
		op:     op,
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		waitCh: make(chan error, 1),
	}

	argv, bashFile, err := p.buildArgv()
	if err != nil {
		return nil, err
	}
	p.runBashFile = bashFile

	p.cmd = exec.Command(argv[0], argv[1:]...)
	if len(op.envs) > 0 {
		p.cmd.Env = append(os.Environ(), op.envs...)
	}
	p.cmd.Stdout = p.stdout
	p.cmd.Stderr = p.stderr
	if op.outputFile != nil {
		p.cmd.Stdout = io.MultiWriter(p.stdout, op.outputFile)
		p.cmd.Stderr = io.MultiWriter(p.stderr, op.outputFile)
	}

	return p, nil
}

func (p *process) buildArgv() (argv []string, bashFile *os.File, err error) {
	if !p.op.runAsBashScript {
		return p.op.commandsToRun[0], nil, nil
	}

	var script string
	if p.op.bashScriptContentsToRun != "" {
		script = p.op.bashScriptContentsToRun
	} else {
		parts := make([]string, 0, len(p.op.commandsToRun))
		for _, c := range p.op.commandsToRun {
			parts = append(parts, strings.Join(c, " "))
		}
		script = strings.Join(parts, " && ")
	}

	f, err := os.CreateTemp(p.op.bashScriptTmpDirectory, p.op.bashScriptFilePattern)
	if err != nil {
		return nil, nil, fmt.Errorf("process: creating bash script file: %w", err)
	}
	if _, err := f.WriteString(script); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, nil, fmt.Errorf("process: writing bash script file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return nil, nil, fmt.Errorf("process: closing bash script file: %w", err)
	}
	if err := os.Chmod(f.Name(), 0o700); err != nil {
		_ = os.Remove(f.Name())
		return nil, nil, fmt.Errorf("process: chmod bash script file: %w", err)
	}

	return []string{"/bin/bash", f.Name()}, f, nil
}

func (p *process) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return nil
	}

	if err := p.cmd.Start(); err != nil {
		p.waitCh <- err
		close(p.waitCh)
		return err
	}
	p.started = true

	go func() {
		err := p.cmd.Wait()
		p.waitCh <- err
		close(p.waitCh)
	}()

	return nil
}

func (p *process) Started() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

func (p *process) StartAndWaitForCombinedOutput(ctx context.Context) ([]byte, error) {
	if err := p.Start(ctx); err != nil {
		return nil, NewCommandError(p.cmd.Args, -1, []byte(err.Error()))
	}

	select {
	case err := <-p.Wait():
		combined := append(append([]byte{}, p.stdout.Bytes()...), p.stderr.Bytes()...)
		if err != nil {
			return combined, NewCommandError(p.cmd.Args, int(p.ExitCode()), p.stderr.Bytes())
		}
		return combined, nil
	case <-ctx.Done():
		_ = p.Close(context.Background())
		return nil, ctx.Err()
	}
}

func (p *process) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if p.started && p.cmd.Process != nil && p.ExitCode() < 0 {
		_ = p.cmd.Process.Kill()
	}

	if p.runBashFile != nil {
		_ = os.Remove(p.runBashFile.Name())
	}

	return nil
}

func (p *process) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *process) Wait() <-chan error { return p.waitCh }

func (p *process) PID() int32 {
	if p.cmd.Process == nil {
		return 0
	}
	return int32(p.cmd.Process.Pid)
}

func (p *process) ExitCode() int32 {
	if p.cmd.ProcessState == nil {
		return -1
	}
	return int32(p.cmd.ProcessState.ExitCode())
}

func (p *process) StdoutReader() io.Reader { return p.stdout }
func (p *process) StderrReader() io.Reader { return p.stderr }
