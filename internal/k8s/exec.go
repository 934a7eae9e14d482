package k8s

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ppiankov/flowmedic/internal/models"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/tools/remotecommand"
	kexec "k8s.io/client-go/util/exec"
)

// ExecResult is the outcome of one in-pod command.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Executor runs commands inside workspace pods.
type Executor struct {
	client      *Client
	rateLimiter *RateLimiter
	retry       retryConfig
}

// NewExecutor creates an executor with its own rate limiter. Exec streams are
// heavier than list calls, so they get a separate budget.
func NewExecutor(client *Client, rps int) *Executor {
	return &Executor{
		client:      client,
		rateLimiter: NewRateLimiter(rps),
		retry:       defaultRetryConfig(),
	}
}

// ExecInPod runs a command in the target container and captures its output.
// A nonzero remote exit code is not an error here; the caller decides what it
// means. Transport failures are retried, command failures never are.
func (e *Executor) ExecInPod(ctx context.Context, target models.Target, command []string) (string, string, int, error) {
	return e.exec(ctx, target, command, nil, nil)
}

// ExecInPodWithStdin runs a command feeding stdin from the reader. Not retried:
// the reader may be partially consumed after a failed attempt.
func (e *Executor) ExecInPodWithStdin(ctx context.Context, target models.Target, command []string, stdin io.Reader) (string, string, int, error) {
	return e.execOnce(ctx, target, command, stdin, nil)
}

// CopyFromPod streams a remote file into w.
func (e *Executor) CopyFromPod(ctx context.Context, target models.Target, remotePath string, w io.Writer) error {
	_, stderr, exitCode, err := e.execOnce(ctx, target, []string{"cat", remotePath}, nil, w)
	if err != nil {
		return err
	}
	if exitCode != 0 {
		return fmt.Errorf("failed to read %s: exit code %d: %s", remotePath, exitCode, stderr)
	}
	return nil
}

// ContainerLogs fetches recent logs from the target container.
func (e *Executor) ContainerLogs(ctx context.Context, target models.Target, tailLines int64) (string, error) {
	if err := e.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait failed: %w", err)
	}

	opts := &corev1.PodLogOptions{Container: target.Container}
	if tailLines > 0 {
		opts.TailLines = &tailLines
	}

	req := e.client.Clientset().CoreV1().Pods(target.Workspace).GetLogs(target.Pod, opts)
	stream, err := req.Stream(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to stream logs for %s/%s: %w", target.Workspace, target.Pod, err)
	}
	defer func() { _ = stream.Close() }()

	data, err := io.ReadAll(stream)
	if err != nil {
		return "", fmt.Errorf("failed to read logs for %s/%s: %w", target.Workspace, target.Pod, err)
	}
	return string(data), nil
}

func (e *Executor) exec(ctx context.Context, target models.Target, command []string, stdin io.Reader, stdoutSink io.Writer) (string, string, int, error) {
	var stdout, stderr string
	var exitCode int

	err := executeWithRetry(ctx, e.retry, func() error {
		var execErr error
		stdout, stderr, exitCode, execErr = e.execOnce(ctx, target, command, stdin, stdoutSink)
		return execErr
	})

	return stdout, stderr, exitCode, err
}

func (e *Executor) execOnce(ctx context.Context, target models.Target, command []string, stdin io.Reader, stdoutSink io.Writer) (string, string, int, error) {
	if err := e.rateLimiter.Wait(ctx); err != nil {
		return "", "", -1, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	slog.Debug("exec in pod",
		slog.String("workspace", target.Workspace),
		slog.String("pod", target.Pod),
		slog.String("container", target.Container),
		slog.Any("command", command),
	)

	req := e.client.Clientset().CoreV1().RESTClient().
		Post().
		Resource("pods").
		Namespace(target.Workspace).
		Name(target.Pod).
		SubResource("exec").
		VersionedParams(&corev1.PodExecOptions{
			Container: target.Container,
			Command:   command,
			Stdin:     stdin != nil,
			Stdout:    true,
			Stderr:    true,
			TTY:       false,
		}, scheme.ParameterCodec)

	executor, err := remotecommand.NewSPDYExecutor(e.client.RESTConfig(), "POST", req.URL())
	if err != nil {
		return "", "", -1, fmt.Errorf("failed to create exec transport: %w", err)
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	var stdout io.Writer = &stdoutBuf
	if stdoutSink != nil {
		stdout = stdoutSink
	}

	streamErr := executor.StreamWithContext(ctx, remotecommand.StreamOptions{
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: &stderrBuf,
	})

	if streamErr != nil {
		var exitErr kexec.ExitError
		if errors.As(streamErr, &exitErr) {
			// The command ran and failed; surface the code, not an error.
			return stdoutBuf.String(), stderrBuf.String(), exitErr.ExitStatus(), nil
		}
		return stdoutBuf.String(), stderrBuf.String(), -1, fmt.Errorf("exec stream failed: %w", streamErr)
	}

	return stdoutBuf.String(), stderrBuf.String(), 0, nil
}
