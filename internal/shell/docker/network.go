package docker

import (
	"context"
	"strings"

	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
)

// =============================================================================
// Network Operations
// =============================================================================

// The staged spec declares the shared pipeline network as external, so
// somebody has to create it before "up". When this binary is the
// orchestration runtime, that somebody is us.

// EnsureNetwork creates the named bridge network if it does not already
// exist and returns its id.
func (d *DockerClient) EnsureNetwork(ctx context.Context, name string) (string, error) {
	existing, err := d.cli.NetworkList(ctx, network.ListOptions{
		Filters: filters.NewArgs(filters.Arg("name", name)),
	})
	if err != nil {
		return "", NewDockerError("EnsureNetwork", name, err.Error(), err)
	}
	for _, net := range existing {
		if net.Name == name {
			return net.ID, nil
		}
	}

	resp, err := d.cli.NetworkCreate(ctx, name, network.CreateOptions{
		Driver: "bridge",
	})
	if err != nil {
		// Lost a race against a concurrent create; the network is there.
		if strings.Contains(err.Error(), "already exists") {
			return name, nil
		}
		return "", NewDockerError("EnsureNetwork", name, err.Error(), err)
	}
	return resp.ID, nil
}

// RemoveNetwork removes the named network. Missing networks are not an
// error; teardown may run more than once.
func (d *DockerClient) RemoveNetwork(ctx context.Context, name string) error {
	if err := d.cli.NetworkRemove(ctx, name); err != nil {
		if client.IsErrNotFound(err) {
			return nil
		}
		return NewDockerError("RemoveNetwork", name, err.Error(), err)
	}
	return nil
}
