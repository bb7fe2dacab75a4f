// Package runner is the local orchestration runtime: it interprets a task
// tree, honoring the scheduling contract the tree's node kinds declare.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"

	"github.com/MatrixManAtYrService/st2-docker/internal/core/graph"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrTaskFailed is returned when an exec leaf's command exits non-zero.
	ErrTaskFailed = errors.New("task failed")
)

// TaskError reports the failure of one node.
type TaskError struct {
	Node string
	Err  error
}

func (e *TaskError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("%s: %v", e.Node, e.Err)
	}
	return e.Err.Error()
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// =============================================================================
// Runner
// =============================================================================

// Runner executes task trees with subprocesses. Serial children are strictly
// ordered; parallel children each get their own goroutine and must not
// assume they can observe each other's intermediate state; a lazy node is a
// suspension point: its builder runs exactly once when the runner reaches
// the node, and the runner does not proceed past it until the built subtree
// completes.
type Runner struct {
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer
}

// New creates a runner. Leaf output goes to the process's stdout/stderr.
func New(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		logger: logger,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// Run executes the tree rooted at node. A skipped node is trivially
// successful without executing its body or children.
func (r *Runner) Run(ctx context.Context, node *graph.Node) error {
	if node == nil {
		return nil
	}
	if node.Skip {
		r.logger.Info("skipping node", "node", node.Name)
		return nil
	}

	switch node.Kind {
	case graph.KindExec:
		return r.runExec(ctx, node)
	case graph.KindSerial:
		return r.runSerial(ctx, node)
	case graph.KindParallel:
		return r.runParallel(ctx, node)
	case graph.KindLazy:
		return r.runLazy(ctx, node)
	default:
		return &TaskError{Node: node.Name, Err: fmt.Errorf("unknown node kind %q", node.Kind)}
	}
}

func (r *Runner) runExec(ctx context.Context, node *graph.Node) error {
	r.logger.Info("exec", "node", node.Name, "command", node.Command)

	cmd := exec.CommandContext(ctx, "sh", "-c", node.Command)
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr
	if err := cmd.Run(); err != nil {
		return &TaskError{Node: node.Name, Err: fmt.Errorf("%w: %v", ErrTaskFailed, err)}
	}
	return nil
}

// runSerial executes children in listed order. With StopOnError the first
// failing child aborts its remaining siblings; otherwise every child runs
// and the node fails iff any child failed, which is what a teardown
// sequence downstream of failed tests needs.
func (r *Runner) runSerial(ctx context.Context, node *graph.Node) error {
	var errs []error
	for _, child := range node.Children {
		if err := r.Run(ctx, child); err != nil {
			if node.StopOnError {
				return err
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Runner) runParallel(ctx context.Context, node *graph.Node) error {
	errs := make([]error, len(node.Children))
	var wg sync.WaitGroup

	for i, child := range node.Children {
		wg.Add(1)
		go func(i int, child *graph.Node) {
			defer wg.Done()
			errs[i] = r.Run(ctx, child)
		}(i, child)
	}
	wg.Wait()

	return errors.Join(errs...)
}

func (r *Runner) runLazy(ctx context.Context, node *graph.Node) error {
	if node.Build == nil {
		return &TaskError{Node: node.Name, Err: graph.ErrNilBuilder}
	}

	r.logger.Info("materializing lazy subtree", "node", node.Name)
	subtree, err := node.Build()
	if err != nil {
		return &TaskError{Node: node.Name, Err: err}
	}
	return r.Run(ctx, subtree)
}
