package docker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
)

// =============================================================================
// Client Interface
// =============================================================================

// Client is the slice of the Docker daemon API the introspection step needs.
type Client interface {
	InspectContainer(ctx context.Context, containerID string) (*Inspection, error)
	Ping(ctx context.Context) error
	Close() error
}

// =============================================================================
// Docker Client Implementation
// =============================================================================

// DockerClient implements Client using the Docker SDK.
type DockerClient struct {
	cli *client.Client
}

// NewClient creates a new Docker client. If host is empty, it uses the
// default Docker host from the environment.
func NewClient(host string) (*DockerClient, error) {
	var opts []client.Opt
	opts = append(opts, client.FromEnv)
	opts = append(opts, client.WithAPIVersionNegotiation())

	if host != "" {
		opts = append(opts, client.WithHost(host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, NewDockerError("NewClient", "", "failed to create client", ErrConnectionFailed)
	}

	return &DockerClient{cli: cli}, nil
}

// Ping checks if the Docker daemon is reachable.
func (d *DockerClient) Ping(ctx context.Context) error {
	if _, err := d.cli.Ping(ctx); err != nil {
		return NewDockerError("Ping", "", fmt.Sprintf("failed to ping docker: %v", err), ErrConnectionFailed)
	}
	return nil
}

// Close closes the Docker client connection.
func (d *DockerClient) Close() error {
	return d.cli.Close()
}

// =============================================================================
// Inspection
// =============================================================================

// InspectContainer returns the runtime identity of a container.
func (d *DockerClient) InspectContainer(ctx context.Context, containerID string) (*Inspection, error) {
	resp, err := d.cli.ContainerInspect(ctx, containerID)
	if err != nil {
		if client.IsErrNotFound(err) {
			return nil, NewDockerError("InspectContainer", containerID, "container not found", ErrContainerNotFound)
		}
		return nil, NewDockerError("InspectContainer", containerID, err.Error(), err)
	}

	createdAt, _ := time.Parse(time.RFC3339Nano, resp.Created)

	networks := make(map[string]NetworkAttachment)
	if resp.NetworkSettings != nil {
		for name, endpoint := range resp.NetworkSettings.Networks {
			if endpoint == nil {
				continue
			}
			networks[name] = NetworkAttachment{
				IPAddress:  endpoint.IPAddress,
				Gateway:    endpoint.Gateway,
				MacAddress: endpoint.MacAddress,
				Aliases:    endpoint.Aliases,
			}
		}
	}

	var ports []PortBinding
	if resp.NetworkSettings != nil {
		for containerPort, bindings := range resp.NetworkSettings.Ports {
			port, proto := nat.Port(containerPort).Port(), nat.Port(containerPort).Proto()
			var containerPortInt int
			fmt.Sscanf(port, "%d", &containerPortInt)
			if len(bindings) == 0 {
				ports = append(ports, PortBinding{
					ContainerPort: containerPortInt,
					Protocol:      proto,
				})
				continue
			}
			for _, binding := range bindings {
				var hostPort int
				if binding.HostPort != "" {
					fmt.Sscanf(binding.HostPort, "%d", &hostPort)
				}
				ports = append(ports, PortBinding{
					ContainerPort: containerPortInt,
					HostPort:      hostPort,
					Protocol:      proto,
					HostIP:        binding.HostIP,
				})
			}
		}
	}

	return &Inspection{
		ID:        resp.ID,
		Name:      strings.TrimPrefix(resp.Name, "/"),
		Image:     resp.Config.Image,
		Status:    Status(resp.State.Status),
		ExitCode:  resp.State.ExitCode,
		CreatedAt: createdAt,
		Networks:  networks,
		Ports:     ports,
		Labels:    resp.Config.Labels,
	}, nil
}
