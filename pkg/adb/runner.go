// Package adb talks to an Android device through the adb binary. Device
// enumerates installed packages and streams their source archives.
package adb

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/glorpus-work/apkstash/pkg/errutils"
)

// Runner executes adb commands.
type Runner interface {
	// Run returns the standard output of a finished command.
	Run(ctx context.Context, args ...string) ([]byte, error)
	// Stream returns the standard output of a running command. Reading past
	// the end reports a failed exit; Close stops the command.
	Stream(ctx context.Context, args ...string) (io.ReadCloser, error)
}

// ExecRunner runs the adb binary at Path against the device Serial. An empty
// Serial lets adb pick the only connected device.
type ExecRunner struct {
	Path   string
	Serial string
}

var _ Runner = (*ExecRunner)(nil)

// Command builds the adb invocation for args, injecting "-s <serial>".
func (r *ExecRunner) Command(ctx context.Context, args ...string) *exec.Cmd {
	bin := r.Path
	if bin == "" {
		bin = "adb"
	}
	if strings.TrimSpace(r.Serial) != "" {
		args = append([]string{"-s", r.Serial}, args...)
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Env = os.Environ()
	return cmd
}

// Run executes adb and returns its standard output.
func (r *ExecRunner) Run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := r.Command(ctx, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, errutils.Classify(ctx.Err())
		}
		return nil, commandError(args, err, stderr.String())
	}
	return out, nil
}

// Stream starts adb and returns its standard output.
func (r *ExecRunner) Stream(ctx context.Context, args ...string) (io.ReadCloser, error) {
	ctx, cancel := context.WithCancel(ctx)
	cmd := r.Command(ctx, args...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, errutils.Wrapf(errutils.ErrIO, "failed to pipe adb output: %v", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, commandError(args, err, "")
	}
	return &stream{ctx: ctx, cancel: cancel, cmd: cmd, stdout: stdout, stderr: stderr, args: args}, nil
}

type stream struct {
	ctx    context.Context
	cancel context.CancelFunc
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *bytes.Buffer
	args   []string

	waited bool
	err    error
}

func (s *stream) Read(p []byte) (int, error) {
	n, err := s.stdout.Read(p)
	if err == io.EOF {
		if werr := s.wait(); werr != nil {
			return n, werr
		}
	}
	return n, err
}

func (s *stream) Close() error {
	s.cancel()
	_ = s.wait()
	return nil
}

func (s *stream) wait() error {
	if s.waited {
		return s.err
	}
	s.waited = true
	if err := s.cmd.Wait(); err != nil {
		if s.ctx.Err() != nil {
			s.err = errutils.Classify(s.ctx.Err())
		} else {
			s.err = commandError(s.args, err, s.stderr.String())
		}
	}
	return s.err
}

// commandError maps adb failures onto the error taxonomy.
func commandError(args []string, err error, stderr string) error {
	msg := strings.TrimSpace(stderr)
	sentinel := errutils.ErrIO
	switch {
	case strings.Contains(msg, "No such file"), strings.Contains(msg, "Unknown package"):
		sentinel = errutils.ErrNotFound
	case strings.Contains(msg, "Permission denied"):
		sentinel = errutils.ErrPermission
	}
	if msg == "" {
		return fmt.Errorf("adb %s: %w: %w", strings.Join(args, " "), sentinel, err)
	}
	return fmt.Errorf("adb %s: %w: %s: %w", strings.Join(args, " "), sentinel, msg, err)
}

// shellQuote quotes s for the device shell that adb hands commands to.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
