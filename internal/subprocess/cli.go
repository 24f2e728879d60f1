package subprocess

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/wagiedev/claude-control-go/internal/cli"
	"github.com/wagiedev/claude-control-go/internal/config"
	"github.com/wagiedev/claude-control-go/internal/errors"
	"github.com/wagiedev/claude-control-go/internal/framing"
)

// maxStderrBufferSize caps the stderr text kept for ProcessError. The
// callback still receives every line once the cap is reached.
const maxStderrBufferSize = 10 * 1024 * 1024 // 10MB

// CLITransport implements config.Transport by spawning the CLI.
type CLITransport struct {
	duplex

	options        *config.Options
	prompt         string
	isStreaming    bool
	stderrCallback func(string)

	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr io.ReadCloser

	stderrMu     sync.Mutex
	stderrBuffer strings.Builder
}

// Compile-time verification that CLITransport implements the Transport interface.
var _ config.Transport = (*CLITransport)(nil)

// NewCLITransport creates a transport for a one-shot prompt passed on the
// command line.
func NewCLITransport(log *slog.Logger, prompt string, options *config.Options) *CLITransport {
	return NewCLITransportWithMode(log, prompt, options, false)
}

// NewCLITransportWithMode creates a transport with explicit streaming mode.
//
// When isStreaming is true the CLI reads stream-json from stdin and the
// prompt is ignored; otherwise the prompt is passed after --print.
func NewCLITransportWithMode(
	log *slog.Logger,
	prompt string,
	options *config.Options,
	isStreaming bool,
) *CLITransport {
	if options == nil {
		options = &config.Options{}
	}

	return &CLITransport{
		duplex: duplex{
			log:       log.With("component", "cli_transport"),
			policy:    options.Framing,
			maxBuffer: options.MaxBufferSize,
		},
		options:        options,
		prompt:         prompt,
		isStreaming:    isStreaming,
		stderrCallback: options.Stderr,
	}
}

// Start discovers the CLI and launches it.
//
// Every failure to establish the channel, including a missing executable or
// an unusable working directory, is returned as *errors.ConnectionError.
func (t *CLITransport) Start(ctx context.Context) error {
	t.log.Info("Starting Claude CLI subprocess")

	cliPath, err := cli.Discover(&cli.Config{CliPath: t.options.CliPath, Logger: t.log})
	if err != nil {
		return &errors.ConnectionError{Err: err}
	}

	cwd := t.options.Cwd
	if cwd == "" {
		if cwd, err = os.Getwd(); err != nil {
			return &errors.ConnectionError{Err: fmt.Errorf("get working directory: %w", err)}
		}
	}

	if info, err := os.Stat(cwd); err != nil {
		return &errors.ConnectionError{Err: fmt.Errorf("working directory: %w", err)}
	} else if !info.IsDir() {
		return &errors.ConnectionError{Err: fmt.Errorf("working directory %s is not a directory", cwd)}
	}

	args := cli.BuildArgs(t.prompt, t.options, t.isStreaming)
	t.log.Debug("Built command arguments", "cli_path", cliPath, "args", args, "cwd", cwd)

	//nolint:gosec // G204: Subprocess launching with dynamic args is expected for CLI invocation
	cmd := exec.CommandContext(ctx, cliPath, args...)
	cmd.Dir = cwd
	cmd.Env = cli.BuildEnvironment(t.options)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return &errors.ConnectionError{Err: fmt.Errorf("stdin pipe: %w", err)}
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &errors.ConnectionError{Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &errors.ConnectionError{Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		t.log.Error("Failed to start CLI process", "error", err)

		return &errors.ConnectionError{Err: fmt.Errorf("start process: %w", err)}
	}

	t.mu.Lock()
	t.cmd = cmd
	t.stdin = stdin
	t.stdout = stdout
	t.stderr = stderr
	t.mu.Unlock()

	t.log.Info("Claude CLI subprocess started", "pid", cmd.Process.Pid)

	return nil
}

// ReadMessages returns the frames decoded from the CLI's stdout.
//
// The sequence ends when stdout closes. If the process then exits with a
// non-zero status outside of Close, a final *errors.ProcessError frame
// carries the exit code and cleaned stderr.
func (t *CLITransport) ReadMessages(ctx context.Context) <-chan framing.Frame {
	t.mu.Lock()
	stdout, stderr := t.stdout, t.stderr
	t.mu.Unlock()

	if stdout == nil {
		out := make(chan framing.Frame, 1)
		out <- framing.Frame{Err: errors.ErrTransportNotConnected}
		close(out)

		return out
	}

	var stderrWg sync.WaitGroup

	// Stderr must be drained before cmd.Wait; see exec.Cmd.StderrPipe.
	stderrWg.Go(func() {
		t.drainStderr(stderr)
	})

	return t.readFrames(ctx, stdout, func() error {
		stderrWg.Wait()

		return t.wait()
	})
}

func (t *CLITransport) drainStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 64*1024), framing.DefaultMaxBufferSize)

	for scanner.Scan() {
		line := scanner.Text()

		t.stderrMu.Lock()

		if t.stderrBuffer.Len() < maxStderrBufferSize {
			if t.stderrBuffer.Len() > 0 {
				t.stderrBuffer.WriteString("\n")
			}

			t.stderrBuffer.WriteString(line)
		}

		t.stderrMu.Unlock()

		if t.stderrCallback != nil {
			t.stderrCallback(line)
		}
	}

	if err := scanner.Err(); err != nil {
		t.log.Debug("Stderr scanner error", "error", err)
	}
}

// wait reaps the process and converts a failed exit into a ProcessError.
func (t *CLITransport) wait() error {
	t.log.Debug("Waiting for CLI process to exit")

	err := t.cmd.Wait()
	if err == nil {
		t.log.Info("CLI process exited successfully")

		return nil
	}

	if t.isClosing() {
		t.log.Debug("CLI process terminated during shutdown")

		return nil
	}

	t.stderrMu.Lock()
	stderrOutput := cleanStderr(t.stderrBuffer.String())
	t.stderrMu.Unlock()

	exitCode := -1
	if exitErr, ok := stderrors.AsType[*exec.ExitError](err); ok {
		exitCode = exitErr.ExitCode()
	}

	t.log.Error("CLI process exited with error", "exit_code", exitCode, "stderr", stderrOutput)

	return &errors.ProcessError{ExitCode: exitCode, Stderr: stderrOutput, Err: err}
}

// SendMessage writes one JSON line to the CLI's stdin.
func (t *CLITransport) SendMessage(ctx context.Context, data []byte) error {
	return t.send(ctx, data)
}

// IsReady reports whether the process is running and stdin is open.
func (t *CLITransport) IsReady() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.cmd != nil && t.cmd.Process != nil && t.stdin != nil && !t.stdinClosed && !t.closing
}

// EndInput closes stdin. The CLI finishes pending work and exits.
func (t *CLITransport) EndInput() error {
	return t.endInput()
}

// Close kills the CLI process. It's safe to call Close multiple times or on
// a transport that never started.
func (t *CLITransport) Close() error {
	if !t.markClosing() {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stdin != nil {
		_ = t.stdin.Close()
	}

	if t.cmd == nil || t.cmd.Process == nil {
		return nil
	}

	t.log.Debug("Killing CLI process", "pid", t.cmd.Process.Pid)

	if err := t.cmd.Process.Kill(); err != nil && !stderrors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill CLI process (pid %d): %w", t.cmd.Process.Pid, err)
	}

	return nil
}

// cleanStderr drops Bun's minified source context lines ("1234 | <code>")
// and keeps the error message and stack trace.
func cleanStderr(stderr string) string {
	if stderr == "" {
		return ""
	}

	kept := make([]string, 0, 16)

	for line := range strings.SplitSeq(stderr, "\n") {
		if isSourceContextLine(strings.TrimSpace(line)) {
			continue
		}

		kept = append(kept, line)
	}

	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func isSourceContextLine(line string) bool {
	prefix, _, found := strings.Cut(line, "|")
	prefix = strings.TrimSpace(prefix)

	if !found || prefix == "" {
		return false
	}

	return strings.Trim(prefix, "0123456789") == ""
}
