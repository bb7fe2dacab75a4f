// Package graph defines the task-node algebra the pipeline runtime executes.
// Trees are built up front and interpreted by a runner; parts of a tree that
// depend on values assigned after execution starts (the pipeline instance
// identifier, a just-discovered service IP) are expressed as Lazy nodes.
// This is part of the Functional Core - nodes carry no I/O of their own.
package graph

import "errors"

// =============================================================================
// Node Types
// =============================================================================

// Kind discriminates the node variants.
type Kind string

const (
	KindExec     Kind = "exec"
	KindSerial   Kind = "serial"
	KindParallel Kind = "parallel"
	KindLazy     Kind = "lazy"
)

// Builder produces a subtree at execution time. It is invoked exactly once,
// at the point the runner reaches the Lazy node that holds it.
type Builder func() (*Node, error)

// Node is one vertex in a task tree. A node is owned by exactly one parent;
// trees have no cycles and no shared subtrees.
type Node struct {
	Kind Kind

	// Name labels the node in logs. Optional.
	Name string

	// Command is the shell command for exec leaves.
	Command string

	// Children are the ordered children of serial and parallel nodes.
	Children []*Node

	// StopOnError controls serial semantics: when true (the default), the
	// first failing child aborts its remaining siblings. A teardown sequence
	// that must run even after failed tests clears it.
	StopOnError bool

	// Build materializes the subtree of a lazy node.
	Build Builder

	// Skip marks the node trivially successful: the runner must not execute
	// its body or children. Used to opt out of teardown when a human needs
	// to inspect a live environment after a failed run.
	Skip bool
}

var (
	// ErrNilBuilder is returned when a lazy node is constructed without a
	// builder function.
	ErrNilBuilder = errors.New("lazy node requires a builder")
)

// =============================================================================
// Constructors
// =============================================================================

// NewExec returns a leaf that runs command; success is the exit status.
func NewExec(name, command string) *Node {
	return &Node{Kind: KindExec, Name: name, Command: command}
}

// NewSerial returns a serial composite with stop-on-first-error semantics.
func NewSerial(name string, children ...*Node) *Node {
	return &Node{Kind: KindSerial, Name: name, Children: children, StopOnError: true}
}

// NewParallel returns a parallel composite. Children run with no ordering
// guarantee and must not observe each other's intermediate state; the node
// fails iff any child fails.
func NewParallel(name string, children ...*Node) *Node {
	return &Node{Kind: KindParallel, Name: name, Children: children}
}

// NewLazy returns a deferred subtree node.
func NewLazy(name string, build Builder) *Node {
	return &Node{Kind: KindLazy, Name: name, Build: build}
}

// =============================================================================
// Tree Building
// =============================================================================

// Add appends children to a composite node and returns the node for chaining.
func (n *Node) Add(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// ContinueOnError clears stop-on-first-error on a serial node and returns the
// node for chaining. All children run regardless of individual failure; the
// node still fails iff any child failed.
func (n *Node) ContinueOnError() *Node {
	n.StopOnError = false
	return n
}
