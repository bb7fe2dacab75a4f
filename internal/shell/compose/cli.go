// Package compose wraps invocations of the external docker-compose tool
// against a staged spec file. The tool is invoked, never reimplemented.
package compose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrCommandFailed is returned when docker-compose exits non-zero.
	ErrCommandFailed = errors.New("docker-compose command failed")
)

// ComposeError wraps a failed invocation with its arguments and output.
type ComposeError struct {
	Args   []string
	Output string
	Err    error
}

func (e *ComposeError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("docker-compose %s: %s", strings.Join(e.Args, " "), e.Output)
	}
	return fmt.Sprintf("docker-compose %s: %v", strings.Join(e.Args, " "), e.Err)
}

func (e *ComposeError) Unwrap() error {
	return e.Err
}

// =============================================================================
// CLI
// =============================================================================

// DefaultBinary is the deployment tool invoked for every operation.
const DefaultBinary = "docker-compose"

// CLI runs deployment-tool commands with the staged spec file pinned via -f.
type CLI struct {
	binary     string
	stagedPath string
	logger     *slog.Logger
}

// New returns a CLI bound to the staged spec file.
func New(stagedPath string, logger *slog.Logger) *CLI {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLI{
		binary:     DefaultBinary,
		stagedPath: stagedPath,
		logger:     logger,
	}
}

// StagedPath returns the spec file every invocation runs against.
func (c *CLI) StagedPath() string {
	return c.stagedPath
}

// args prefixes compose arguments with the staged file reference.
func (c *CLI) args(composeArgs ...string) []string {
	return append([]string{"-f", c.stagedPath}, composeArgs...)
}

// run executes one invocation and returns its combined output.
func (c *CLI) run(ctx context.Context, composeArgs ...string) (string, error) {
	args := c.args(composeArgs...)
	c.logger.Debug("running deployment tool", "binary", c.binary, "args", args)

	out, err := exec.CommandContext(ctx, c.binary, args...).CombinedOutput()
	if err != nil {
		return "", &ComposeError{Args: args, Output: strings.TrimSpace(string(out)), Err: ErrCommandFailed}
	}
	return string(out), nil
}

// Up starts the services in detached mode.
func (c *CLI) Up(ctx context.Context) error {
	_, err := c.run(ctx, "up", "-d")
	return err
}

// Down tears the services down.
func (c *CLI) Down(ctx context.Context) error {
	_, err := c.run(ctx, "down")
	return err
}

// Services returns the declared service names.
func (c *CLI) Services(ctx context.Context) ([]string, error) {
	out, err := c.run(ctx, "ps", "--services")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// ContainerIDs returns the ids of the currently-known containers.
func (c *CLI) ContainerIDs(ctx context.Context) ([]string, error) {
	out, err := c.run(ctx, "ps", "-q")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

func splitLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// =============================================================================
// Command Builders
// =============================================================================

// Exec leaves in a task tree carry command strings rather than function
// calls, so the builders below render canonical invocations against the
// staged file for the graph to execute later.

// UpCommand returns the detached start command for an exec leaf.
func (c *CLI) UpCommand() string {
	return fmt.Sprintf("%s -f %s up -d", c.binary, c.stagedPath)
}

// DownCommand returns the teardown command for an exec leaf.
func (c *CLI) DownCommand() string {
	return fmt.Sprintf("%s -f %s down", c.binary, c.stagedPath)
}

// ExecCommand returns a command that runs inside a service container.
// -T disables pseudo-tty allocation, which task workers do not have.
func (c *CLI) ExecCommand(service, command string) string {
	return fmt.Sprintf("%s -f %s exec -T %s %s", c.binary, c.stagedPath, service, command)
}
