package spec

import (
	"path/filepath"
	"strings"
)

// =============================================================================
// Anchoring Transform
// =============================================================================

// Docker-in-docker quirk: the host side of a volume mount string refers to
// files on the outermost host, not in the container where the command runs.
// A compose file with relative mount paths stops working once it is read from
// inside a container. Anchor rewrites those paths against the directory the
// source file lives in on the host, so the staged file keeps pointing at the
// same files no matter where it is read from.
//
// Pipeline tasks also aren't networked such that they can reach arbitrary
// compose-managed containers, so Anchor attaches every service to a shared
// external network whose name is parameterized by the pipeline instance
// identifier.

// Anchor returns a transformed copy of doc. The input is never mutated, and
// anchoring an already-anchored document is a no-op.
//
// For every service, every mount string whose host side starts with "./" is
// rewritten to an absolute path under specDir. Already-absolute paths and
// named-volume references pass through untouched. A service without volumes
// is skipped.
//
// overrides maps a service name to an extra mount string that is appended
// as-is rather than rewritten; callers use it to inject already-absolute
// developer workstation paths.
func Anchor(doc *Document, specDir string, overrides map[string]string) *Document {
	out := doc.Clone()

	for name, svc := range out.Services {
		if svc == nil {
			continue
		}
		for i, mount := range svc.Volumes {
			svc.Volumes[i] = anchorMount(mount, specDir)
		}
		if extra, ok := overrides[name]; ok && !containsString(svc.Volumes, extra) {
			svc.Volumes = append(svc.Volumes, extra)
		}
	}

	ensurePipelineNetwork(out)
	return out
}

// anchorMount rewrites the host side of one "host:container[:options]" mount
// string when it is relative to the spec directory.
func anchorMount(mount, specDir string) string {
	parts := strings.SplitN(mount, ":", 2)
	if len(parts) != 2 {
		return mount
	}
	hostSide, containerSide := parts[0], parts[1]
	if !strings.HasPrefix(hostSide, "./") {
		return mount
	}
	return filepath.Join(specDir, hostSide[2:]) + ":" + containerSide
}

// ensurePipelineNetwork adds the reserved external network definition and
// attaches every service to it exactly once.
func ensurePipelineNetwork(doc *Document) {
	if doc.Networks == nil {
		doc.Networks = make(map[string]*Network)
	}
	if _, ok := doc.Networks[ReservedNetworkKey]; !ok {
		doc.Networks[ReservedNetworkKey] = &Network{}
	}
	net := doc.Networks[ReservedNetworkKey]
	net.External = true
	net.Name = NetworkNameTemplate

	for _, svc := range doc.Services {
		if svc == nil {
			continue
		}
		if !containsString(svc.Networks, ReservedNetworkKey) {
			svc.Networks = append(svc.Networks, ReservedNetworkKey)
		}
	}
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
