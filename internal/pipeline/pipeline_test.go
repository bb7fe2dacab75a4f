package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MatrixManAtYrService/st2-docker/internal/core/graph"
	"github.com/MatrixManAtYrService/st2-docker/internal/core/spec"
	"github.com/MatrixManAtYrService/st2-docker/internal/shell/compose"
	"github.com/MatrixManAtYrService/st2-docker/internal/shell/directory"
	"github.com/MatrixManAtYrService/st2-docker/internal/shell/store"
)

// =============================================================================
// Test Fixtures
// =============================================================================

const composeFixture = `version: "3"
services:
  st2api:
    image: stackstorm/st2api
    volumes:
      - ./conf/st2.conf:/etc/st2/st2.conf
`

func writeCompose(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docker-compose.yml")
	require.NoError(t, os.WriteFile(path, []byte(composeFixture), 0o644))
	return path
}

// fakeSt2Repo lays out just enough of an st2 checkout to pass validation.
func fakeSt2Repo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "st2api"), 0o755))
	return root
}

// =============================================================================
// Instance Identity
// =============================================================================

func TestInstanceID_FromEnvironment(t *testing.T) {
	t.Setenv(spec.EnvPipelineID, "feedface")

	id, err := InstanceID()
	require.NoError(t, err)
	assert.Equal(t, "feedface", id)
}

func TestInstanceID_Missing(t *testing.T) {
	t.Setenv(spec.EnvPipelineID, "")

	_, err := InstanceID()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingInstanceID)
}

func TestNewInstanceID_Unique(t *testing.T) {
	assert.NotEqual(t, NewInstanceID(), NewInstanceID())
}

// =============================================================================
// Dev Mounts
// =============================================================================

func TestDevMounts_MapsEveryInjectableService(t *testing.T) {
	root := fakeSt2Repo(t)

	mounts, err := DevMounts(root)
	require.NoError(t, err)
	require.Len(t, mounts, 5)
	assert.Equal(t,
		root+"/st2api/st2api:/opt/stackstorm/st2/lib/python3.6/site-packages/st2api",
		mounts["st2api"])
	assert.Equal(t,
		root+"/st2client/st2client:/opt/stackstorm/st2/lib/python3.6/site-packages/st2client",
		mounts["st2client"])
}

func TestDevMounts_RejectsNonRepoPath(t *testing.T) {
	_, err := DevMounts(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "root of the st2 repo")
}

// =============================================================================
// Tree Composition
// =============================================================================

func TestUp_TreeShape(t *testing.T) {
	cli := compose.New("/work/.docker-compose.yml.g", nil)

	up := Up(cli, "/usr/local/bin/pipeline examine")
	require.Equal(t, graph.KindSerial, up.Kind)
	require.Len(t, up.Children, 2)
	assert.Equal(t, cli.UpCommand(), up.Children[0].Command)
	assert.Equal(t, "/usr/local/bin/pipeline examine", up.Children[1].Command)
	assert.True(t, up.StopOnError)
}

func TestUpDown_TreeShape(t *testing.T) {
	source := writeCompose(t)

	testLeaf := graph.NewExec("sanity", "true")
	root, cli, err := UpDown(Options{
		SourcePath:     source,
		GracePeriod:    20 * time.Second,
		ExamineCommand: "pipeline examine",
		Tests: func(c *compose.CLI) []*graph.Node {
			return []*graph.Node{testLeaf}
		},
	})
	require.NoError(t, err)
	require.NotNil(t, cli)
	assert.Equal(t, filepath.Join(filepath.Dir(source), spec.StagedFilename), cli.StagedPath())

	require.Equal(t, graph.KindSerial, root.Kind)
	require.Len(t, root.Children, 3)

	assert.Equal(t, "up", root.Children[0].Name)
	assert.Equal(t, "sleep 20", root.Children[1].Command)

	run := root.Children[2]
	assert.Equal(t, graph.KindSerial, run.Kind)
	// Teardown must still run after a failed test leaf.
	assert.False(t, run.StopOnError)
	require.Len(t, run.Children, 2)
	assert.Same(t, testLeaf, run.Children[0])

	down := run.Children[1]
	assert.Equal(t, cli.DownCommand(), down.Command)
	assert.False(t, down.Skip)
}

func TestUpDown_NoGracePeriod(t *testing.T) {
	source := writeCompose(t)

	root, _, err := UpDown(Options{
		SourcePath:     source,
		ExamineCommand: "pipeline examine",
	})
	require.NoError(t, err)
	// up and the run subtree only, no sleep leaf.
	require.Len(t, root.Children, 2)
	assert.Equal(t, "up", root.Children[0].Name)
	assert.Equal(t, "go", root.Children[1].Name)
}

func TestUpDown_DevPathSkipsTeardown(t *testing.T) {
	source := writeCompose(t)
	repo := fakeSt2Repo(t)

	root, cli, err := UpDown(Options{
		SourcePath:     source,
		DevPath:        repo,
		ExamineCommand: "pipeline examine",
	})
	require.NoError(t, err)

	run := root.Children[len(root.Children)-1]
	down := run.Children[len(run.Children)-1]
	assert.Equal(t, cli.DownCommand(), down.Command)
	assert.True(t, down.Skip)

	// The staged file carries the dev overlay for st2api.
	content, readErr := os.ReadFile(cli.StagedPath())
	require.NoError(t, readErr)
	doc, parseErr := spec.Parse(content)
	require.NoError(t, parseErr)
	assert.Contains(t, doc.Services["st2api"].Volumes,
		repo+"/st2api/st2api:/opt/stackstorm/st2/lib/python3.6/site-packages/st2api")
}

func TestUpDown_InvalidDevPath(t *testing.T) {
	source := writeCompose(t)

	_, _, err := UpDown(Options{
		SourcePath: source,
		DevPath:    t.TempDir(),
	})
	assert.Error(t, err)
}

// =============================================================================
// Lazy Test Subtrees
// =============================================================================

func TestPingTests_MaterializesFromDirectory(t *testing.T) {
	kv, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "facts.db"))
	require.NoError(t, err)
	defer kv.Close()
	ctx := context.Background()

	require.NoError(t, kv.Put(ctx, store.ServiceKey("st2api", store.FactIPPrimary), []byte("10.0.0.5")))
	require.NoError(t, kv.Put(ctx, store.ServiceKey("st2api", store.FactIPOthers), []byte(`["172.17.0.2"]`)))

	lazy := PingTests(directory.New(kv), "st2api")
	require.Equal(t, graph.KindLazy, lazy.Kind)

	subtree, err := lazy.Build()
	require.NoError(t, err)
	require.Equal(t, graph.KindParallel, subtree.Kind)
	require.Len(t, subtree.Children, 1)
	assert.Equal(t, "ping -c 2 10.0.0.5", subtree.Children[0].Command)
}

func TestPingTests_FailsWhenFactsAbsent(t *testing.T) {
	kv, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "facts.db"))
	require.NoError(t, err)
	defer kv.Close()

	lazy := PingTests(directory.New(kv), "st2api")
	_, err = lazy.Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
