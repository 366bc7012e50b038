// Package docker runs code in sandboxed local containers, one warm pool
// per language runtime. Results use the same Judge0-style status codes as
// the remote compiler so the output panel treats both alike.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/sakif/code-studio/internal/apperror"
	"github.com/sakif/code-studio/internal/executor"
)

// timeoutExitCode mirrors the unix timeout(1) convention.
const timeoutExitCode = 124

var _ executor.Executor = (*Executor)(nil)

// Executor implements executor.Executor on the local Docker daemon.
type Executor struct {
	cli    *client.Client
	config Config
	logger *slog.Logger
	pools  map[string]*Pool
}

// New connects to the daemon, pulls every runtime image and starts the pools.
func New(cfg Config, logger *slog.Logger) (*Executor, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker: creating client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	e := &Executor{
		cli:    cli,
		config: cfg,
		logger: logger,
		pools:  make(map[string]*Pool, len(cfg.Runtimes)),
	}

	for lang, rt := range cfg.Runtimes {
		if err := e.pull(ctx, rt.Image); err != nil {
			e.Close()
			return nil, err
		}
		pool := NewPool(cli, rt.Image, cfg, logger)
		pool.Start()
		e.pools[lang] = pool
	}
	return e, nil
}

func (e *Executor) pull(ctx context.Context, ref string) error {
	e.logger.Info("ensuring docker image is available", slog.String("image", ref))
	reader, err := e.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("docker: pulling %s: %w", ref, err)
	}
	defer reader.Close()
	// Draining blocks until the pull completes.
	_, _ = io.Copy(io.Discard, reader)
	return nil
}

// Languages lists the runtimes this executor can run, sorted.
func (e *Executor) Languages() []string {
	out := make([]string, 0, len(e.config.Runtimes))
	for lang := range e.config.Runtimes {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// Close stops every pool and the docker client.
func (e *Executor) Close() error {
	for _, p := range e.pools {
		p.Stop()
	}
	return e.cli.Close()
}

// Execute runs req in a fresh warm container, which is discarded afterwards.
func (e *Executor) Execute(ctx context.Context, req executor.Request) (*executor.Result, error) {
	rt, ok := e.config.Runtimes[req.Language]
	pool := e.pools[req.Language]
	if !ok || pool == nil {
		return nil, apperror.ValidationFailed("language",
			fmt.Sprintf("language %q is not supported by the local sandbox", req.Language))
	}

	start := time.Now()

	containerID, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("docker: acquiring container: %w", err)
	}
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.cli.ContainerRemove(cleanupCtx, containerID, container.RemoveOptions{Force: true}); err != nil {
			e.logger.Error("failed to remove container", slog.String("id", containerID), slog.String("error", err.Error()))
		}
	}()

	executeCtx, executeCancel := context.WithTimeout(ctx, e.config.Timeout)
	defer executeCancel()

	execResp, err := e.cli.ContainerExecCreate(executeCtx, containerID, container.ExecOptions{
		AttachStdout: true,
		AttachStderr: true,
		Cmd:          rt.Command(req.SourceCode),
	})
	if err != nil {
		return nil, fmt.Errorf("docker: creating exec: %w", err)
	}

	attachResp, err := e.cli.ContainerExecAttach(executeCtx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return nil, fmt.Errorf("docker: attaching exec: %w", err)
	}
	defer attachResp.Close()

	var stdout, stderr bytes.Buffer
	done := make(chan struct{})
	go func() {
		_, _ = stdcopy.StdCopy(&stdout, &stderr, attachResp.Reader)
		close(done)
	}()

	exitCode := 0
	select {
	case <-done:
		inspectResp, err := e.cli.ContainerExecInspect(ctx, execResp.ID)
		if err == nil {
			exitCode = inspectResp.ExitCode
		}
	case <-executeCtx.Done():
		exitCode = timeoutExitCode
		stderr.WriteString("\nExecution timed out.\n")
	}

	return &executor.Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
		Status: statusFor(exitCode),
		Time:   executor.Seconds(time.Since(start).Seconds()),
	}, nil
}

// statusFor maps a process exit code to a compiler verdict.
func statusFor(exitCode int) executor.Status {
	switch exitCode {
	case 0:
		return executor.Status{ID: executor.StatusAccepted, Description: "Accepted"}
	case timeoutExitCode:
		return executor.Status{ID: executor.StatusTimeLimit, Description: "Time Limit Exceeded"}
	default:
		return executor.Status{ID: executor.StatusRuntimeError, Description: "Runtime Error (NZEC)"}
	}
}
