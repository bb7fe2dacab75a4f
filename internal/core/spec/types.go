package spec

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Naming Conventions
// =============================================================================

const (
	// ReservedNetworkKey is the network key injected into every service so
	// that orchestrator-managed tasks can reach compose-managed containers.
	ReservedNetworkKey = "pipeline"

	// NetworkNameTemplate is the external name stored in the staged document.
	// It is written unsubstituted; docker-compose interpolates $PIPELINE_ID
	// from the environment when the staged file is consumed. Keeping the
	// template in the file makes the document reproducible across runs.
	NetworkNameTemplate = "pipeline_network_$PIPELINE_ID"

	// EnvPipelineID is the environment variable holding the pipeline
	// instance identifier.
	EnvPipelineID = "PIPELINE_ID"

	// StagedFilename is the generated compose file, stashed as a sibling of
	// the source docker-compose.yml.
	StagedFilename = ".docker-compose.yml.g"
)

// NetworkName substitutes a pipeline instance identifier into the external
// network name template. This happens at the orchestration layer, never in
// the staged document itself.
func NetworkName(instanceID string) string {
	return strings.Replace(NetworkNameTemplate, "$"+EnvPipelineID, instanceID, 1)
}

// =============================================================================
// Document Types
// =============================================================================

// Document represents a docker-compose document. Only the fields the
// transform touches are modeled; everything else round-trips untouched
// through the inline node maps.
type Document struct {
	Services map[string]*Service  `yaml:"services"`
	Networks map[string]*Network  `yaml:"networks,omitempty"`
	Extra    map[string]yaml.Node `yaml:",inline"`
}

// Service represents a single service definition. Volume entries are kept as
// raw "hostPath:containerPath[:options]" mount strings because the transform
// rewrites them textually.
type Service struct {
	Image    string               `yaml:"image,omitempty"`
	Volumes  []string             `yaml:"volumes,omitempty"`
	Networks []string             `yaml:"networks,omitempty"`
	Extra    map[string]yaml.Node `yaml:",inline"`
}

// Network represents a network definition.
type Network struct {
	Name     string               `yaml:"name,omitempty"`
	External bool                 `yaml:"external,omitempty"`
	Extra    map[string]yaml.Node `yaml:",inline"`
}

// =============================================================================
// Parse / Marshal
// =============================================================================

// Parse decodes a compose document from YAML.
func Parse(content []byte) (*Document, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, ErrEmptyInput
	}

	var doc Document
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, NewSpecError("", err.Error(), ErrInvalidYAML)
	}
	if len(doc.Services) == 0 {
		return nil, ErrNoServices
	}
	return &doc, nil
}

// Marshal encodes the document back to YAML. Map keys are emitted in sorted
// order, so encoding the same document always yields the same bytes.
func (d *Document) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, NewSpecError("", err.Error(), ErrInvalidYAML)
	}
	if err := enc.Close(); err != nil {
		return nil, NewSpecError("", err.Error(), ErrInvalidYAML)
	}
	return buf.Bytes(), nil
}

// Clone returns a copy of the document that shares no mutable state with the
// original. Inline extra nodes are carried over by reference; the transform
// never writes to them.
func (d *Document) Clone() *Document {
	out := &Document{
		Services: make(map[string]*Service, len(d.Services)),
		Extra:    copyNodeMap(d.Extra),
	}

	for name, svc := range d.Services {
		out.Services[name] = svc.clone()
	}
	if d.Networks != nil {
		out.Networks = make(map[string]*Network, len(d.Networks))
		for name, net := range d.Networks {
			out.Networks[name] = net.clone()
		}
	}
	return out
}

func (s *Service) clone() *Service {
	if s == nil {
		return nil
	}
	out := &Service{
		Image: s.Image,
		Extra: copyNodeMap(s.Extra),
	}
	if s.Volumes != nil {
		out.Volumes = append([]string(nil), s.Volumes...)
	}
	if s.Networks != nil {
		out.Networks = append([]string(nil), s.Networks...)
	}
	return out
}

func (n *Network) clone() *Network {
	if n == nil {
		return nil
	}
	return &Network{
		Name:     n.Name,
		External: n.External,
		Extra:    copyNodeMap(n.Extra),
	}
}

func copyNodeMap(in map[string]yaml.Node) map[string]yaml.Node {
	if in == nil {
		return nil
	}
	out := make(map[string]yaml.Node, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
