// Package docker provides the Docker client used to inspect the containers
// that docker-compose brings up.
package docker

import "time"

// =============================================================================
// Container Status
// =============================================================================

// Status represents the container lifecycle status as reported by the daemon.
type Status string

const (
	StatusCreated    Status = "created"
	StatusRunning    Status = "running"
	StatusPaused     Status = "paused"
	StatusRestarting Status = "restarting"
	StatusRemoving   Status = "removing"
	StatusExited     Status = "exited"
	StatusDead       Status = "dead"
)

// =============================================================================
// Inspection Types
// =============================================================================

// NetworkAttachment is one network a container is attached to.
type NetworkAttachment struct {
	IPAddress  string   `json:"ip_address"`
	Gateway    string   `json:"gateway,omitempty"`
	MacAddress string   `json:"mac_address,omitempty"`
	Aliases    []string `json:"aliases,omitempty"`
}

// PortBinding is one published port of a container.
type PortBinding struct {
	ContainerPort int    `json:"container_port"`
	HostPort      int    `json:"host_port,omitempty"`
	Protocol      string `json:"protocol,omitempty"`
	HostIP        string `json:"host_ip,omitempty"`
}

// Inspection is the runtime identity of one container: who it is, what state
// it is in, and how it can be reached. Written once per "up" cycle and
// superseded, not merged, by the next one.
type Inspection struct {
	ID        string                       `json:"id"`
	Name      string                       `json:"name"`
	Image     string                       `json:"image,omitempty"`
	Status    Status                       `json:"status"`
	ExitCode  int                          `json:"exit_code,omitempty"`
	CreatedAt time.Time                    `json:"created_at,omitempty"`
	Networks  map[string]NetworkAttachment `json:"networks"`
	Ports     []PortBinding                `json:"ports,omitempty"`
	Labels    map[string]string            `json:"labels,omitempty"`
}

// NetworkIPs flattens the attachments into the network name to IP address
// mapping the partition logic consumes.
func (i *Inspection) NetworkIPs() map[string]string {
	ips := make(map[string]string, len(i.Networks))
	for name, att := range i.Networks {
		ips[name] = att.IPAddress
	}
	return ips
}
