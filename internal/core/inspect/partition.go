// Package inspect contains pure functions over container inspection data.
// This is part of the Functional Core - all functions are pure with no I/O.
package inspect

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// IP Partition
// =============================================================================

var (
	// ErrNoPipelineNetwork is returned when none of a container's networks
	// matches the pipeline instance identifier.
	ErrNoPipelineNetwork = errors.New("no network matches the pipeline instance identifier")
)

// IPPartition splits a service's IP addresses into the one reachable from
// pipeline tasks (Primary) and everything else (Others).
type IPPartition struct {
	Primary string   `json:"primary"`
	Others  []string `json:"others"`
}

// IdentityError reports a failed identity resolution: a running service whose
// networks do not include one matching the pipeline instance identifier.
// A task that cannot resolve connectivity to a compose-managed service must
// not proceed as if it could, so this is surfaced rather than ignored.
type IdentityError struct {
	InstanceID string
	Networks   []string
}

func (e *IdentityError) Error() string {
	return fmt.Sprintf("%s = %s, but no matching network was found among [%s]",
		"PIPELINE_ID", e.InstanceID, strings.Join(e.Networks, ", "))
}

func (e *IdentityError) Unwrap() error {
	return ErrNoPipelineNetwork
}

// Partition examines a container's network name to IP address mapping and
// returns the partition for the given pipeline instance identifier. A network
// matches when its name contains the identifier; exactly one match is
// expected because the shared pipeline network name embeds the identifier.
func Partition(networks map[string]string, instanceID string) (IPPartition, error) {
	var part IPPartition
	names := make([]string, 0, len(networks))

	for name := range networks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if instanceID != "" && strings.Contains(name, instanceID) {
			part.Primary = networks[name]
		} else {
			part.Others = append(part.Others, networks[name])
		}
	}

	if part.Primary == "" {
		return IPPartition{}, &IdentityError{InstanceID: instanceID, Networks: names}
	}
	return part, nil
}
