// Package pipeline composes the task trees that bring compose-managed
// services up, capture their runtime identity, run dependent tasks, and tear
// everything down again.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/MatrixManAtYrService/st2-docker/internal/core/graph"
	"github.com/MatrixManAtYrService/st2-docker/internal/core/spec"
	"github.com/MatrixManAtYrService/st2-docker/internal/shell/compose"
	"github.com/MatrixManAtYrService/st2-docker/internal/shell/directory"
	"github.com/MatrixManAtYrService/st2-docker/internal/shell/staging"
)

// =============================================================================
// Pipeline Instance Identity
// =============================================================================

var (
	// ErrMissingInstanceID is returned when PIPELINE_ID is absent from the
	// environment. Any step that scopes networks or matches them needs it.
	ErrMissingInstanceID = errors.New(spec.EnvPipelineID + " is not set")
)

// InstanceID reads the pipeline instance identifier from the environment.
func InstanceID() (string, error) {
	id := os.Getenv(spec.EnvPipelineID)
	if id == "" {
		return "", ErrMissingInstanceID
	}
	return id, nil
}

// NewInstanceID mints an identifier for a locally launched run.
func NewInstanceID() string {
	return uuid.NewString()
}

// =============================================================================
// Graph Composition
// =============================================================================

// Options configures an up-test-down pipeline.
type Options struct {
	// SourcePath is the docker-compose.yml to stage.
	SourcePath string

	// AnchorPath is the compose file's location on the outermost host.
	// Empty means SourcePath itself.
	AnchorPath string

	// DevPath is the root of an st2 checkout whose code is mounted into the
	// services at runtime. Empty disables dev mounts.
	DevPath string

	// GracePeriod is how long the pipeline waits after "up" before running
	// tests against the services.
	GracePeriod time.Duration

	// ExamineCommand re-invokes this binary's examine subcommand; it runs
	// as the "collect metadata" leaf right after services start.
	ExamineCommand string

	// Tests builds the subtrees to run between up and down, given the CLI
	// bound to the staged file.
	Tests func(cli *compose.CLI) []*graph.Node

	Logger *slog.Logger
}

// Up returns the serial subtree that starts services and collects their
// runtime metadata.
func Up(cli *compose.CLI, examineCommand string) *graph.Node {
	return graph.NewSerial("up",
		graph.NewExec("start services", cli.UpCommand()),
		graph.NewExec("collect metadata", examineCommand),
	)
}

// Down returns the teardown leaf.
func Down(cli *compose.CLI) *graph.Node {
	return graph.NewExec("down", cli.DownCommand())
}

// UpDown stages the compose file and returns the root of a pipeline tree
// that sets up, runs the tests, and tears down. Teardown runs even when
// tests fail, except when dev code was mounted: then the down node is
// skipped so the live environment can be inspected, and cleanup is a manual
// unskip or a docker-compose down against the staged file.
func UpDown(opts Options) (*graph.Node, *compose.CLI, error) {
	var overrides map[string]string
	if opts.DevPath != "" {
		mounts, err := DevMounts(opts.DevPath)
		if err != nil {
			return nil, nil, err
		}
		overrides = mounts
	}

	staged, err := staging.Stage(opts.SourcePath, opts.AnchorPath, overrides, opts.Logger)
	if err != nil {
		return nil, nil, err
	}
	cli := compose.New(staged, opts.Logger)

	root := graph.NewSerial("updown")
	root.Add(Up(cli, opts.ExamineCommand))
	if opts.GracePeriod > 0 {
		// TODO: watch service logs for the all-the-way-up state instead of
		// sleeping a fixed interval.
		root.Add(graph.NewExec("wait for actually up",
			fmt.Sprintf("sleep %d", int(opts.GracePeriod.Seconds()))))
	}

	run := graph.NewSerial("go").ContinueOnError()
	if opts.Tests != nil {
		run.Add(opts.Tests(cli)...)
	}

	down := Down(cli)
	if opts.DevPath != "" {
		down.Skip = true
	}
	run.Add(down)

	root.Add(run)
	return root, cli, nil
}

// PingTests returns a lazy subtree that pings each service's primary IP.
// The IPs are only known once examine has run, which is after the tree is
// built, so the subtree is materialized at execution time from the
// directory.
func PingTests(dir *directory.Directory, services ...string) *graph.Node {
	return graph.NewLazy("lazy tests", func() (*graph.Node, error) {
		node := graph.NewParallel("ping services")
		for _, service := range services {
			ips, err := dir.IPs(context.Background(), service)
			if err != nil {
				return nil, err
			}
			node.Add(graph.NewExec("ping "+service,
				fmt.Sprintf("ping -c 2 %s", ips.Primary)))
		}
		return node, nil
	})
}
