// Package introspect captures the runtime identity of compose-managed
// services after they start and persists it for later pipeline steps.
package introspect

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/MatrixManAtYrService/st2-docker/internal/core/inspect"
	"github.com/MatrixManAtYrService/st2-docker/internal/shell/docker"
	"github.com/MatrixManAtYrService/st2-docker/internal/shell/store"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrMissingInstanceID is returned when no pipeline instance identifier
	// was provided. Network matching is impossible without it.
	ErrMissingInstanceID = errors.New("pipeline instance identifier is not set")
)

// =============================================================================
// Examiner
// =============================================================================

// composeRunner is the slice of the deployment-tool wrapper the examiner
// uses to discover what is running under the staged spec.
type composeRunner interface {
	Services(ctx context.Context) ([]string, error)
	ContainerIDs(ctx context.Context) ([]string, error)
}

// Examiner discovers each service's container after "up", extracts its
// status and network identity, and writes the facts into the store.
type Examiner struct {
	compose    composeRunner
	docker     docker.Client
	store      store.Store
	instanceID string
	logger     *slog.Logger
}

// NewExaminer creates an examiner for one pipeline instance.
func NewExaminer(compose composeRunner, dockerClient docker.Client, kv store.Store, instanceID string, logger *slog.Logger) *Examiner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Examiner{
		compose:    compose,
		docker:     dockerClient,
		store:      kv,
		instanceID: instanceID,
		logger:     logger,
	}
}

// Examine associates every running container with its declared service and
// persists the inspection record, the status, and (for running containers)
// the IP partition. Writes are independent per key; a failed run leaves
// partial state that the next "up" cycle overwrites.
//
// Container names generated by the deployment tool look like
// <project>_<service>_<n>, so a service is matched by the first container
// whose name contains it as a substring. Two service names where one is a
// substring of the other make this ambiguous; the heuristic is kept as-is
// for compatibility with the tool's naming convention.
func (e *Examiner) Examine(ctx context.Context) error {
	if e.instanceID == "" {
		return ErrMissingInstanceID
	}

	serviceNames, err := e.compose.Services(ctx)
	if err != nil {
		return err
	}
	containerIDs, err := e.compose.ContainerIDs(ctx)
	if err != nil {
		return err
	}

	e.logger.Info("examining services",
		"services", len(serviceNames),
		"containers", len(containerIDs),
	)

	for _, containerID := range containerIDs {
		inspection, err := e.docker.InspectContainer(ctx, containerID)
		if err != nil {
			return err
		}

		service := matchService(serviceNames, inspection.Name)
		if service == "" {
			e.logger.Debug("container matches no declared service",
				"container", inspection.Name,
			)
			continue
		}

		if err := e.persist(ctx, service, inspection); err != nil {
			return err
		}
	}

	return nil
}

// matchService returns the first declared service name contained in the
// container name, or "" when none matches.
func matchService(serviceNames []string, containerName string) string {
	for _, name := range serviceNames {
		if strings.Contains(containerName, name) {
			return name
		}
	}
	return ""
}

// persist writes the facts for one matched service.
func (e *Examiner) persist(ctx context.Context, service string, inspection *docker.Inspection) error {
	record, err := json.Marshal(inspection)
	if err != nil {
		return err
	}
	if err := e.put(ctx, service, store.FactInspect, record); err != nil {
		return err
	}
	if err := e.put(ctx, service, store.FactStatus, []byte(inspection.Status)); err != nil {
		return err
	}

	// IPs are only meaningful while the container is up.
	if inspection.Status != docker.StatusRunning {
		return nil
	}

	part, err := inspect.Partition(inspection.NetworkIPs(), e.instanceID)
	if err != nil {
		return err
	}

	others, err := json.Marshal(part.Others)
	if err != nil {
		return err
	}
	if err := e.put(ctx, service, store.FactIPPrimary, []byte(part.Primary)); err != nil {
		return err
	}
	return e.put(ctx, service, store.FactIPOthers, others)
}

func (e *Examiner) put(ctx context.Context, service, kind string, value []byte) error {
	key := store.ServiceKey(service, kind)
	if err := e.store.Put(ctx, key, value); err != nil {
		return err
	}
	e.logger.Info("stored fact", "key", key, "bytes", len(value))
	return nil
}
