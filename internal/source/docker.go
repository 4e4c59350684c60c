package source

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/containerd/errdefs"
	"github.com/moby/moby/client"

	"github.com/bassista/go_mirror/internal/config"
	"github.com/bassista/go_mirror/internal/payload"
)

// DockerClient is the subset of the Docker API the source needs.
type DockerClient interface {
	ContainerList(ctx context.Context, options client.ContainerListOptions) (client.ContainerListResult, error)
	ContainerInspect(ctx context.Context, containerID string, options client.ContainerInspectOptions) (client.ContainerInspectResult, error)
}

// DockerSource publishes container counts and names from the local Docker
// daemon. With a configured container name it publishes that single
// container's running state instead.
type DockerSource struct {
	name      string
	interval  time.Duration
	jitter    time.Duration
	container string
	cli       DockerClient
}

func NewDockerSource(cfg config.SourceConfig) (*DockerSource, error) {
	cli, err := client.New(client.FromEnv)
	if err != nil {
		return nil, fmt.Errorf("error creating Docker client: %w", err)
	}
	return NewDockerSourceWithClient(cfg, cli), nil
}

func NewDockerSourceWithClient(cfg config.SourceConfig, cli DockerClient) *DockerSource {
	return &DockerSource{
		name:      cfg.Key,
		interval:  cfg.Interval,
		jitter:    cfg.Jitter,
		container: cfg.Container,
		cli:       cli,
	}
}

func (s *DockerSource) Name() string { return s.name }

func (s *DockerSource) Interval() time.Duration { return s.interval }

func (s *DockerSource) Jitter() time.Duration { return s.jitter }

func (s *DockerSource) Fetch(ctx context.Context) (*payload.Payload, error) {
	if s.container != "" {
		return s.fetchContainer(ctx)
	}
	return s.fetchOverview(ctx)
}

func (s *DockerSource) fetchContainer(ctx context.Context) (*payload.Payload, error) {
	inspect, err := s.cli.ContainerInspect(ctx, s.container, client.ContainerInspectOptions{})
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil, fmt.Errorf("container %s not found", s.container)
		}
		return nil, fmt.Errorf("error inspecting container %s: %w", s.container, err)
	}

	running := inspect.Container.State != nil && inspect.Container.State.Running
	p := payload.New(running)
	p.Secondary = s.container
	return p, nil
}

func (s *DockerSource) fetchOverview(ctx context.Context) (*payload.Payload, error) {
	all, err := s.cli.ContainerList(ctx, client.ContainerListOptions{All: true})
	if err != nil {
		return nil, fmt.Errorf("error listing containers: %w", err)
	}
	// Without All the daemon only reports running containers.
	active, err := s.cli.ContainerList(ctx, client.ContainerListOptions{})
	if err != nil {
		return nil, fmt.Errorf("error listing containers: %w", err)
	}

	names := make([]string, 0, len(all.Items))
	for _, item := range all.Items {
		if len(item.Names) == 0 {
			continue
		}
		names = append(names, strings.TrimPrefix(item.Names[0], "/"))
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})

	p := payload.New(len(active.Items))
	p.Secondary = len(all.Items)
	p.Tertiary = names
	return p, nil
}
