// Package directory is the read-side API over the fact store: later pipeline
// steps ask it for a service's persisted inspection, status, or IPs.
package directory

import (
	"context"
	"encoding/json"

	"github.com/MatrixManAtYrService/st2-docker/internal/core/inspect"
	"github.com/MatrixManAtYrService/st2-docker/internal/shell/docker"
	"github.com/MatrixManAtYrService/st2-docker/internal/shell/store"
)

// Directory retrieves facts persisted by an earlier examine step. There is no
// caching: facts can be rewritten between pipeline steps that execute at
// different times, so every call re-reads the store. A lookup for a fact that
// was never written fails with store.ErrNotFound.
type Directory struct {
	store store.Store
}

// New returns a directory over the given store.
func New(kv store.Store) *Directory {
	return &Directory{store: kv}
}

// Inspection returns the full inspection record for a service.
func (d *Directory) Inspection(ctx context.Context, service string) (*docker.Inspection, error) {
	raw, err := d.store.Get(ctx, store.ServiceKey(service, store.FactInspect))
	if err != nil {
		return nil, err
	}
	var inspection docker.Inspection
	if err := json.Unmarshal(raw, &inspection); err != nil {
		return nil, err
	}
	return &inspection, nil
}

// Status returns the service's lifecycle status string.
func (d *Directory) Status(ctx context.Context, service string) (string, error) {
	raw, err := d.store.Get(ctx, store.ServiceKey(service, store.FactStatus))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// IPs returns the service's IP partition. Only present when the service was
// running at examine time.
func (d *Directory) IPs(ctx context.Context, service string) (inspect.IPPartition, error) {
	primary, err := d.store.Get(ctx, store.ServiceKey(service, store.FactIPPrimary))
	if err != nil {
		return inspect.IPPartition{}, err
	}
	rawOthers, err := d.store.Get(ctx, store.ServiceKey(service, store.FactIPOthers))
	if err != nil {
		return inspect.IPPartition{}, err
	}

	var others []string
	if err := json.Unmarshal(rawOthers, &others); err != nil {
		return inspect.IPPartition{}, err
	}
	return inspect.IPPartition{Primary: string(primary), Others: others}, nil
}

// Facts returns the keys persisted for a service, in lexical order.
func (d *Directory) Facts(ctx context.Context, service string) ([]string, error) {
	return d.store.Keys(ctx, store.ServicePrefix(service))
}
