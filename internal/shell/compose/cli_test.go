package compose

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Command Builders
// =============================================================================

func TestUpCommand(t *testing.T) {
	cli := New("/work/.docker-compose.yml.g", nil)

	assert.Equal(t,
		"docker-compose -f /work/.docker-compose.yml.g up -d",
		cli.UpCommand(),
	)
}

func TestDownCommand(t *testing.T) {
	cli := New("/work/.docker-compose.yml.g", nil)

	assert.Equal(t,
		"docker-compose -f /work/.docker-compose.yml.g down",
		cli.DownCommand(),
	)
}

func TestExecCommand(t *testing.T) {
	cli := New("/work/.docker-compose.yml.g", nil)

	assert.Equal(t,
		"docker-compose -f /work/.docker-compose.yml.g exec -T st2client st2 action list --pack=core",
		cli.ExecCommand("st2client", "st2 action list --pack=core"),
	)
}

func TestStagedPath(t *testing.T) {
	cli := New("/work/.docker-compose.yml.g", nil)

	assert.Equal(t, "/work/.docker-compose.yml.g", cli.StagedPath())
}

// =============================================================================
// Invocation
// =============================================================================

func TestRun_MissingBinaryReportsArgs(t *testing.T) {
	cli := New("/work/.docker-compose.yml.g", nil)
	cli.binary = "definitely-not-a-real-binary"

	err := cli.Up(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCommandFailed)

	var composeErr *ComposeError
	require.ErrorAs(t, err, &composeErr)
	assert.Equal(t, []string{"-f", "/work/.docker-compose.yml.g", "up", "-d"}, composeErr.Args)
}

// =============================================================================
// Output Parsing
// =============================================================================

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "service names",
			in:   "st2api\nst2auth\nst2client\n",
			want: []string{"st2api", "st2auth", "st2client"},
		},
		{
			name: "blank lines dropped",
			in:   "st2api\n\n  \nst2auth\n",
			want: []string{"st2api", "st2auth"},
		},
		{
			name: "empty output",
			in:   "\n",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitLines(tt.in))
		})
	}
}
