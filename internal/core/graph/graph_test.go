package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Constructor Tests
// =============================================================================

func TestNewExec(t *testing.T) {
	n := NewExec("start", "docker-compose -f x up -d")

	assert.Equal(t, KindExec, n.Kind)
	assert.Equal(t, "start", n.Name)
	assert.Equal(t, "docker-compose -f x up -d", n.Command)
	assert.False(t, n.Skip)
}

func TestNewSerial_StopsOnErrorByDefault(t *testing.T) {
	n := NewSerial("root", NewExec("a", "true"), NewExec("b", "true"))

	assert.Equal(t, KindSerial, n.Kind)
	assert.True(t, n.StopOnError)
	assert.Len(t, n.Children, 2)
}

func TestContinueOnError(t *testing.T) {
	n := NewSerial("teardown").ContinueOnError()

	assert.False(t, n.StopOnError)
}

func TestNewParallel(t *testing.T) {
	n := NewParallel("tests", NewExec("a", "true"))

	assert.Equal(t, KindParallel, n.Kind)
	assert.Len(t, n.Children, 1)
}

func TestNewLazy(t *testing.T) {
	called := false
	n := NewLazy("later", func() (*Node, error) {
		called = true
		return NewExec("x", "true"), nil
	})

	assert.Equal(t, KindLazy, n.Kind)
	require.NotNil(t, n.Build)
	// Construction must not invoke the builder.
	assert.False(t, called)
}

// =============================================================================
// Tree Building
// =============================================================================

func TestAdd_AppendsAndChains(t *testing.T) {
	root := NewSerial("root")
	got := root.Add(NewExec("a", "true")).Add(NewExec("b", "true"), NewExec("c", "true"))

	assert.Same(t, root, got)
	require.Len(t, root.Children, 3)
	assert.Equal(t, "a", root.Children[0].Name)
	assert.Equal(t, "c", root.Children[2].Name)
}
