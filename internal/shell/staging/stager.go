// Package staging reads a docker-compose file, runs the anchoring transform,
// and writes the generated spec next to the source.
package staging

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MatrixManAtYrService/st2-docker/internal/core/spec"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrSpecNotFound is returned when the source compose file is missing.
	ErrSpecNotFound = errors.New("compose spec file not found")
)

// =============================================================================
// Staging
// =============================================================================

// Stage reads the compose file at sourcePath, anchors it against anchorPath's
// directory, and writes the result to the staged sibling of anchorPath,
// overwriting any previous staged file. It returns the staged file's path.
//
// anchorPath is the location of the compose file on the outermost host; it
// differs from sourcePath when the file being read was copied into an image
// but its volume mounts must still resolve on the host. Pass "" to anchor at
// sourcePath itself.
//
// overrides appends already-absolute mount strings per service; see
// spec.Anchor.
func Stage(sourcePath, anchorPath string, overrides map[string]string, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if anchorPath == "" {
		anchorPath = sourcePath
	}

	source, err := filepath.Abs(sourcePath)
	if err != nil {
		return "", err
	}
	anchor, err := filepath.Abs(anchorPath)
	if err != nil {
		return "", err
	}

	content, err := os.ReadFile(source)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrSpecNotFound, source)
		}
		return "", err
	}

	if err := spec.Validate(content); err != nil {
		return "", err
	}
	doc, err := spec.Parse(content)
	if err != nil {
		return "", err
	}

	anchored := spec.Anchor(doc, filepath.Dir(anchor), overrides)
	out, err := anchored.Marshal()
	if err != nil {
		return "", err
	}

	target := filepath.Join(filepath.Dir(source), spec.StagedFilename)
	if err := os.WriteFile(target, out, 0o644); err != nil {
		return "", err
	}

	logger.Info("wrote staged spec", "source", source, "target", target)
	return target, nil
}
