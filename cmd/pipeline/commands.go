package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/MatrixManAtYrService/st2-docker/internal/core/graph"
	"github.com/MatrixManAtYrService/st2-docker/internal/core/spec"
	"github.com/MatrixManAtYrService/st2-docker/internal/pipeline"
	"github.com/MatrixManAtYrService/st2-docker/internal/shell/compose"
	"github.com/MatrixManAtYrService/st2-docker/internal/shell/directory"
	"github.com/MatrixManAtYrService/st2-docker/internal/shell/docker"
	"github.com/MatrixManAtYrService/st2-docker/internal/shell/introspect"
	"github.com/MatrixManAtYrService/st2-docker/internal/shell/runner"
	"github.com/MatrixManAtYrService/st2-docker/internal/shell/staging"
	"github.com/MatrixManAtYrService/st2-docker/internal/shell/store"
)

// =============================================================================
// Shared Setup
// =============================================================================

// app carries the pieces every command needs.
type app struct {
	cfg        *Config
	logger     *slog.Logger
	configPath string
}

// setup parses the flag set (every command accepts -config) and loads
// configuration. Returns nil and an exit code on failure.
func setup(fs *flag.FlagSet, args []string) (*app, int) {
	configPath := fs.String("config", "", "Path to config file")
	if err := fs.Parse(args); err != nil {
		return nil, ExitUsageError
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return nil, ExitConfigError
	}

	logger := SetupLogger(cfg)
	slog.SetDefault(logger)

	return &app{cfg: cfg, logger: logger, configPath: *configPath}, ExitSuccess
}

// stagedDefault is where the staged file lands for the configured source.
func (a *app) stagedDefault() string {
	source, err := filepath.Abs(a.cfg.Compose.File)
	if err != nil {
		source = a.cfg.Compose.File
	}
	return filepath.Join(filepath.Dir(source), spec.StagedFilename)
}

// openStore opens the fact database scoped to one pipeline instance.
func (a *app) openStore(instanceID string) (*store.SQLiteStore, error) {
	if err := os.MkdirAll(a.cfg.Data.Dir, 0o755); err != nil {
		return nil, err
	}
	dsn := filepath.Join(a.cfg.Data.Dir, "pipeline-"+instanceID+".db")
	return store.NewSQLiteStore(dsn)
}

// requireInstanceID fails when PIPELINE_ID is absent.
func (a *app) requireInstanceID() (string, int) {
	id, err := pipeline.InstanceID()
	if err != nil {
		a.logger.Error("missing pipeline instance identifier", "error", err)
		return "", ExitConfigError
	}
	return id, ExitSuccess
}

// =============================================================================
// stage
// =============================================================================

func cmdStage(args []string) int {
	fs := flag.NewFlagSet("stage", flag.ContinueOnError)
	source := fs.String("f", "", "Source compose file (defaults to config)")
	anchor := fs.String("anchor", "", "Compose file location on the outermost host")
	st2Path := fs.String("st2", "", "Root of an st2 checkout to mount into the services")

	a, code := setup(fs, args)
	if a == nil {
		return code
	}
	if *source == "" {
		*source = a.cfg.Compose.File
	}

	var overrides map[string]string
	if *st2Path != "" {
		mounts, err := pipeline.DevMounts(*st2Path)
		if err != nil {
			a.logger.Error("invalid dev path", "error", err)
			return ExitConfigError
		}
		overrides = mounts
	}

	staged, err := staging.Stage(*source, *anchor, overrides, a.logger)
	if err != nil {
		a.logger.Error("staging failed", "error", err)
		return ExitConfigError
	}
	fmt.Println(staged)
	return ExitSuccess
}

// =============================================================================
// up / examine / down
// =============================================================================

func cmdUp(args []string) int {
	fs := flag.NewFlagSet("up", flag.ContinueOnError)
	staged := fs.String("f", "", "Staged compose file (defaults to sibling of config's compose file)")

	a, code := setup(fs, args)
	if a == nil {
		return code
	}
	if *staged == "" {
		*staged = a.stagedDefault()
	}

	ctx := context.Background()
	cli := compose.New(*staged, a.logger)
	if err := cli.Up(ctx); err != nil {
		a.logger.Error("up failed", "error", err)
		return ExitTaskError
	}
	return examine(ctx, a, cli)
}

func cmdExamine(args []string) int {
	fs := flag.NewFlagSet("examine", flag.ContinueOnError)
	staged := fs.String("f", "", "Staged compose file (defaults to sibling of config's compose file)")

	a, code := setup(fs, args)
	if a == nil {
		return code
	}
	if *staged == "" {
		*staged = a.stagedDefault()
	}

	return examine(context.Background(), a, compose.New(*staged, a.logger))
}

func examine(ctx context.Context, a *app, cli *compose.CLI) int {
	instanceID, code := a.requireInstanceID()
	if code != ExitSuccess {
		return code
	}

	dockerClient, err := docker.NewClient(a.cfg.Docker.Host)
	if err != nil {
		a.logger.Error("docker client error", "error", err)
		return ExitDockerError
	}
	defer dockerClient.Close()

	kv, err := a.openStore(instanceID)
	if err != nil {
		a.logger.Error("store error", "error", err)
		return ExitStoreError
	}
	defer kv.Close()

	examiner := introspect.NewExaminer(cli, dockerClient, kv, instanceID, a.logger)
	if err := examiner.Examine(ctx); err != nil {
		a.logger.Error("examine failed", "error", err)
		return ExitTaskError
	}
	return ExitSuccess
}

func cmdDown(args []string) int {
	fs := flag.NewFlagSet("down", flag.ContinueOnError)
	staged := fs.String("f", "", "Staged compose file (defaults to sibling of config's compose file)")

	a, code := setup(fs, args)
	if a == nil {
		return code
	}
	if *staged == "" {
		*staged = a.stagedDefault()
	}

	if err := compose.New(*staged, a.logger).Down(context.Background()); err != nil {
		a.logger.Error("down failed", "error", err)
		return ExitTaskError
	}
	return ExitSuccess
}

// =============================================================================
// run
// =============================================================================

// cmdRun stages the compose file and executes the full up-test-down tree
// with the local runner.
func cmdRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	source := fs.String("f", "", "Source compose file (defaults to config)")
	anchor := fs.String("anchor", "", "Compose file location on the outermost host")
	st2Path := fs.String("st2", "", "Root of an st2 checkout to mount into the services")

	a, code := setup(fs, args)
	if a == nil {
		return code
	}
	if *source == "" {
		*source = a.cfg.Compose.File
	}

	// A locally launched run mints its own instance id unless one was
	// handed down; exporting it lets docker-compose interpolate the
	// network name and lets the examine subprocess inherit it.
	instanceID, err := pipeline.InstanceID()
	if err != nil {
		instanceID = pipeline.NewInstanceID()
		os.Setenv(spec.EnvPipelineID, instanceID)
	}
	a.logger.Info("pipeline instance", "id", instanceID)

	ctx := context.Background()
	dockerClient, err := docker.NewClient(a.cfg.Docker.Host)
	if err != nil {
		a.logger.Error("docker client error", "error", err)
		return ExitDockerError
	}
	defer dockerClient.Close()

	networkName := spec.NetworkName(instanceID)
	if _, err := dockerClient.EnsureNetwork(ctx, networkName); err != nil {
		a.logger.Error("network setup failed", "error", err)
		return ExitDockerError
	}

	kv, err := a.openStore(instanceID)
	if err != nil {
		a.logger.Error("store error", "error", err)
		return ExitStoreError
	}
	defer kv.Close()
	facts := directory.New(kv)

	root, _, err := pipeline.UpDown(pipeline.Options{
		SourcePath:     *source,
		AnchorPath:     *anchor,
		DevPath:        *st2Path,
		GracePeriod:    a.cfg.Pipeline.GracePeriod,
		ExamineCommand: a.examineCommand(),
		Tests: func(cli *compose.CLI) []*graph.Node {
			return a.sanityTests(cli, facts)
		},
		Logger: a.logger,
	})
	if err != nil {
		a.logger.Error("pipeline build failed", "error", err)
		return ExitConfigError
	}

	runErr := runner.New(a.logger).Run(ctx, root)

	// The shared network only comes down with the services; a skipped
	// teardown keeps it alive for inspection.
	if *st2Path == "" {
		if err := dockerClient.RemoveNetwork(ctx, networkName); err != nil {
			a.logger.Warn("network cleanup failed", "error", err)
		}
	}

	if runErr != nil {
		a.logger.Error("pipeline failed", "error", runErr)
		return ExitTaskError
	}
	return ExitSuccess
}

// examineCommand renders the command line that re-invokes this binary's
// examine subcommand as the "collect metadata" leaf.
func (a *app) examineCommand() string {
	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}
	cmd := exe + " examine"
	if a.configPath != "" {
		cmd += " -config " + a.configPath
	}
	return cmd
}

// sanityTests builds the default in-between subtrees: one exec through the
// deployment tool, one asserting on its output, and a lazy parallel ping of
// the services' primary IPs.
func (a *app) sanityTests(cli *compose.CLI, facts *directory.Directory) []*graph.Node {
	tests := []*graph.Node{
		graph.NewExec("call "+a.cfg.Pipeline.SanityService+" via compose",
			cli.ExecCommand(a.cfg.Pipeline.SanityService, a.cfg.Pipeline.SanityCommand)),
	}
	if len(a.cfg.Pipeline.PingServices) > 0 {
		tests = append(tests, pipeline.PingTests(facts, a.cfg.Pipeline.PingServices...))
	}
	return tests
}

// =============================================================================
// status / ip / inspect
// =============================================================================

func cmdStatus(args []string) int {
	return factCommand("status", args, func(ctx context.Context, facts *directory.Directory, service string) (string, error) {
		return facts.Status(ctx, service)
	})
}

func cmdIP(args []string) int {
	return factCommand("ip", args, func(ctx context.Context, facts *directory.Directory, service string) (string, error) {
		part, err := facts.IPs(ctx, service)
		if err != nil {
			return "", err
		}
		out, err := json.MarshalIndent(part, "", "  ")
		return string(out), err
	})
}

func cmdInspect(args []string) int {
	return factCommand("inspect", args, func(ctx context.Context, facts *directory.Directory, service string) (string, error) {
		inspection, err := facts.Inspection(ctx, service)
		if err != nil {
			return "", err
		}
		out, err := json.MarshalIndent(inspection, "", "  ")
		return string(out), err
	})
}

// factCommand is the shared skeleton of the read-side commands.
func factCommand(name string, args []string, fetch func(context.Context, *directory.Directory, string) (string, error)) int {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	a, code := setup(fs, args)
	if a == nil {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: pipeline %s [flags] <service>\n", name)
		return ExitUsageError
	}
	service := strings.TrimSpace(fs.Arg(0))

	instanceID, code := a.requireInstanceID()
	if code != ExitSuccess {
		return code
	}

	kv, err := a.openStore(instanceID)
	if err != nil {
		a.logger.Error("store error", "error", err)
		return ExitStoreError
	}
	defer kv.Close()

	out, err := fetch(context.Background(), directory.New(kv), service)
	if err != nil {
		a.logger.Error("lookup failed", "service", service, "error", err)
		return ExitStoreError
	}
	fmt.Println(out)
	return ExitSuccess
}
