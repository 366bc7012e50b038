package docker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

// Pool keeps pre-warmed containers of one image ready for runs.
type Pool struct {
	cli        *client.Client
	image      string
	config     Config
	logger     *slog.Logger
	containers chan string
	done       chan struct{}
	wg         sync.WaitGroup
	startOnce  sync.Once
	stopOnce   sync.Once
}

// NewPool creates a pool for image; call Start to begin warming.
func NewPool(cli *client.Client, image string, cfg Config, logger *slog.Logger) *Pool {
	return &Pool{
		cli:        cli,
		image:      image,
		config:     cfg,
		logger:     logger.With(slog.String("image", image)),
		containers: make(chan string, cfg.PoolSize),
		done:       make(chan struct{}),
	}
}

// Start begins filling the pool in the background.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		p.logger.Info("starting container pool", slog.Int("poolSize", p.config.PoolSize))
		p.wg.Add(1)
		go p.manager()
	})
}

// Stop shuts down the manager and removes every warm container.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
		p.wg.Wait()

		for {
			select {
			case id := <-p.containers:
				p.removeContainer(id)
			default:
				return
			}
		}
	})
}

// Acquire blocks until a warm container is available or ctx ends. The
// caller owns the returned container and must remove it.
func (p *Pool) Acquire(ctx context.Context) (string, error) {
	select {
	case id := <-p.containers:
		return id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (p *Pool) manager() {
	defer p.wg.Done()

	for {
		select {
		case <-p.done:
			return
		default:
		}

		if len(p.containers) >= cap(p.containers) {
			select {
			case <-p.done:
				return
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}

		id, err := p.createContainer()
		if err != nil {
			p.logger.Error("failed to create warm container", slog.String("error", err.Error()))
			select {
			case <-p.done:
				return
			case <-time.After(time.Second):
			}
			continue
		}

		select {
		case p.containers <- id:
		case <-p.done:
			p.removeContainer(id)
			return
		}
	}
}

// createContainer starts an idle, network-less container as nobody.
func (p *Pool) createContainer() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hostConfig := &container.HostConfig{
		NetworkMode: "none",
		Resources: container.Resources{
			Memory:   p.config.MemoryLimit,
			NanoCPUs: int64(p.config.CPULimit * 1e9),
		},
		ReadonlyRootfs: true,
		Tmpfs:          map[string]string{"/tmp": "rw,size=16m"},
	}

	resp, err := p.cli.ContainerCreate(ctx, &container.Config{
		Image: p.image,
		Cmd:   []string{"sleep", "infinity"},
		User:  "nobody",
	}, hostConfig, nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("ContainerCreate failed: %w", err)
	}

	if err := p.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		p.removeContainer(resp.ID)
		return "", fmt.Errorf("ContainerStart failed: %w", err)
	}
	return resp.ID, nil
}

func (p *Pool) removeContainer(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		p.logger.Warn("failed to remove container", slog.String("id", id), slog.String("error", err.Error()))
	}
}
