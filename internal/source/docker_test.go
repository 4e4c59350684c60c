package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/containerd/errdefs"
	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/bassista/go_mirror/internal/config"
)

// MockDockerClient is a mock implementation of DockerClient interface
type MockDockerClient struct {
	mock.Mock
}

func (m *MockDockerClient) ContainerList(ctx context.Context, options client.ContainerListOptions) (client.ContainerListResult, error) {
	args := m.Called(ctx, options)
	return args.Get(0).(client.ContainerListResult), args.Error(1)
}

func (m *MockDockerClient) ContainerInspect(ctx context.Context, containerID string, options client.ContainerInspectOptions) (client.ContainerInspectResult, error) {
	args := m.Called(ctx, containerID, options)
	return args.Get(0).(client.ContainerInspectResult), args.Error(1)
}

func dockerConfig(containerName string) config.SourceConfig {
	return config.SourceConfig{
		Key:       "homelab",
		Type:      "docker",
		Interval:  time.Minute,
		Container: containerName,
	}
}

func TestDockerSource_FetchOverview(t *testing.T) {
	mockClient := &MockDockerClient{}
	s := NewDockerSourceWithClient(dockerConfig(""), mockClient)

	ctx := context.Background()

	allResult := client.ContainerListResult{
		Items: []container.Summary{
			{Names: []string{"/MyApp"}},
			{Names: []string{"/zeta"}},
			{Names: []string{"/another-container"}},
		},
	}
	activeResult := client.ContainerListResult{
		Items: []container.Summary{
			{Names: []string{"/MyApp"}},
		},
	}

	mockClient.On("ContainerList", ctx, client.ContainerListOptions{All: true}).Return(allResult, nil)
	mockClient.On("ContainerList", ctx, client.ContainerListOptions{}).Return(activeResult, nil)

	p, err := s.Fetch(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, p.Value)
	assert.Equal(t, 3, p.Secondary)
	// Names are sorted alphabetically, case-insensitive
	assert.Equal(t, []string{"another-container", "MyApp", "zeta"}, p.Tertiary)
	mockClient.AssertExpectations(t)
}

func TestDockerSource_FetchOverview_Empty(t *testing.T) {
	mockClient := &MockDockerClient{}
	s := NewDockerSourceWithClient(dockerConfig(""), mockClient)

	ctx := context.Background()

	mockClient.On("ContainerList", ctx, client.ContainerListOptions{All: true}).Return(client.ContainerListResult{}, nil)
	mockClient.On("ContainerList", ctx, client.ContainerListOptions{}).Return(client.ContainerListResult{}, nil)

	p, err := s.Fetch(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 0, p.Value)
	assert.Equal(t, 0, p.Secondary)
	assert.Empty(t, p.Tertiary)
	mockClient.AssertExpectations(t)
}

func TestDockerSource_FetchOverview_ListError(t *testing.T) {
	mockClient := &MockDockerClient{}
	s := NewDockerSourceWithClient(dockerConfig(""), mockClient)

	ctx := context.Background()

	mockClient.On("ContainerList", ctx, client.ContainerListOptions{All: true}).
		Return(client.ContainerListResult{}, errors.New("list failed"))

	_, err := s.Fetch(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "error listing containers")
	assert.Contains(t, err.Error(), "list failed")
	mockClient.AssertExpectations(t)
}

func TestDockerSource_FetchContainer_Running(t *testing.T) {
	mockClient := &MockDockerClient{}
	s := NewDockerSourceWithClient(dockerConfig("media-server"), mockClient)

	ctx := context.Background()

	inspectResult := client.ContainerInspectResult{
		Container: container.InspectResponse{
			State: &container.State{
				Running: true,
			},
		},
	}

	mockClient.On("ContainerInspect", ctx, "media-server", client.ContainerInspectOptions{}).Return(inspectResult, nil)

	p, err := s.Fetch(ctx)
	assert.NoError(t, err)
	assert.Equal(t, true, p.Value)
	assert.Equal(t, "media-server", p.Secondary)
	mockClient.AssertExpectations(t)
}

func TestDockerSource_FetchContainer_NotRunning(t *testing.T) {
	mockClient := &MockDockerClient{}
	s := NewDockerSourceWithClient(dockerConfig("media-server"), mockClient)

	ctx := context.Background()

	inspectResult := client.ContainerInspectResult{
		Container: container.InspectResponse{
			State: &container.State{
				Running: false,
			},
		},
	}

	mockClient.On("ContainerInspect", ctx, "media-server", client.ContainerInspectOptions{}).Return(inspectResult, nil)

	p, err := s.Fetch(ctx)
	assert.NoError(t, err)
	assert.Equal(t, false, p.Value)
	mockClient.AssertExpectations(t)
}

func TestDockerSource_FetchContainer_NotFound(t *testing.T) {
	mockClient := &MockDockerClient{}
	s := NewDockerSourceWithClient(dockerConfig("ghost"), mockClient)

	ctx := context.Background()

	mockClient.On("ContainerInspect", ctx, "ghost", client.ContainerInspectOptions{}).
		Return(client.ContainerInspectResult{}, errdefs.ErrNotFound)

	_, err := s.Fetch(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	mockClient.AssertExpectations(t)
}

func TestDockerSource_FetchContainer_InspectError(t *testing.T) {
	mockClient := &MockDockerClient{}
	s := NewDockerSourceWithClient(dockerConfig("media-server"), mockClient)

	ctx := context.Background()

	mockClient.On("ContainerInspect", ctx, "media-server", client.ContainerInspectOptions{}).
		Return(client.ContainerInspectResult{}, errors.New("daemon unavailable"))

	_, err := s.Fetch(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "error inspecting container")
	assert.Contains(t, err.Error(), "daemon unavailable")
	mockClient.AssertExpectations(t)
}

func TestDockerSource_Accessors(t *testing.T) {
	cfg := dockerConfig("")
	cfg.Jitter = 10 * time.Second
	s := NewDockerSourceWithClient(cfg, &MockDockerClient{})

	assert.Equal(t, "homelab", s.Name())
	assert.Equal(t, time.Minute, s.Interval())
	assert.Equal(t, 10*time.Second, s.Jitter())
}
