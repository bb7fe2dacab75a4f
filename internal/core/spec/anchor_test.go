package spec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Fixtures
// =============================================================================

const relativeMountSpec = `
services:
  web:
    image: nginx:latest
    volumes:
      - ./data:/data
`

const mixedMountSpec = `
services:
  web:
    image: nginx:latest
    volumes:
      - ./conf:/etc/nginx/conf.d
      - /var/log/web:/logs
      - shared:/shared
      - ./certs:/certs:ro
  db:
    image: postgres:15
    volumes:
      - pgdata:/var/lib/postgresql/data
volumes:
  pgdata:
  shared:
`

const noVolumesSpec = `
services:
  api:
    image: myapp:1.0
    environment:
      DB_HOST: db
  db:
    image: postgres:15
`

const preNetworkedSpec = `
services:
  web:
    image: nginx:latest
    networks:
      - frontend
      - pipeline
networks:
  frontend: {}
`

// =============================================================================
// Path Anchoring
// =============================================================================

func TestAnchor_RewritesRelativeMount(t *testing.T) {
	doc, err := Parse([]byte(relativeMountSpec))
	require.NoError(t, err)

	out := Anchor(doc, "/host/proj", nil)

	assert.Equal(t, []string{"/host/proj/data:/data"}, out.Services["web"].Volumes)
}

func TestAnchor_LeavesAbsoluteAndNamedMounts(t *testing.T) {
	doc, err := Parse([]byte(mixedMountSpec))
	require.NoError(t, err)

	out := Anchor(doc, "/host/proj", nil)

	assert.Equal(t, []string{
		"/host/proj/conf:/etc/nginx/conf.d",
		"/var/log/web:/logs",
		"shared:/shared",
		"/host/proj/certs:/certs:ro",
	}, out.Services["web"].Volumes)
	assert.Equal(t, []string{"pgdata:/var/lib/postgresql/data"}, out.Services["db"].Volumes)
}

func TestAnchor_ServiceWithoutVolumes(t *testing.T) {
	doc, err := Parse([]byte(noVolumesSpec))
	require.NoError(t, err)

	out := Anchor(doc, "/host/proj", nil)

	assert.Empty(t, out.Services["api"].Volumes)
	// The untouched fields survive the round trip.
	_, hasEnv := out.Services["api"].Extra["environment"]
	assert.True(t, hasEnv)
}

func TestAnchor_DoesNotMutateInput(t *testing.T) {
	doc, err := Parse([]byte(relativeMountSpec))
	require.NoError(t, err)
	before, err := doc.Marshal()
	require.NoError(t, err)

	_ = Anchor(doc, "/host/proj", map[string]string{"web": "/dev/x:/x"})

	after, err := doc.Marshal()
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestAnchor_Idempotent(t *testing.T) {
	doc, err := Parse([]byte(mixedMountSpec))
	require.NoError(t, err)

	once := Anchor(doc, "/host/proj", nil)
	onceBytes, err := once.Marshal()
	require.NoError(t, err)

	twice := Anchor(once, "/host/proj", nil)
	twiceBytes, err := twice.Marshal()
	require.NoError(t, err)

	assert.Equal(t, string(onceBytes), string(twiceBytes))
}

// =============================================================================
// Volume Overrides
// =============================================================================

func TestAnchor_AppendsOverrideMount(t *testing.T) {
	doc, err := Parse([]byte(relativeMountSpec))
	require.NoError(t, err)

	out := Anchor(doc, "/host/proj", map[string]string{
		"web": "/home/dev/src:/opt/app/src",
	})

	assert.Equal(t, []string{
		"/host/proj/data:/data",
		"/home/dev/src:/opt/app/src",
	}, out.Services["web"].Volumes)
}

func TestAnchor_OverrideForUnknownServiceIgnored(t *testing.T) {
	doc, err := Parse([]byte(relativeMountSpec))
	require.NoError(t, err)

	out := Anchor(doc, "/host/proj", map[string]string{
		"nope": "/home/dev/src:/opt/app/src",
	})

	assert.Equal(t, []string{"/host/proj/data:/data"}, out.Services["web"].Volumes)
}

// =============================================================================
// Network Injection
// =============================================================================

func TestAnchor_InjectsPipelineNetwork(t *testing.T) {
	doc, err := Parse([]byte(noVolumesSpec))
	require.NoError(t, err)

	out := Anchor(doc, "/host/proj", nil)

	require.Contains(t, out.Networks, ReservedNetworkKey)
	net := out.Networks[ReservedNetworkKey]
	assert.True(t, net.External)
	assert.Equal(t, NetworkNameTemplate, net.Name)

	for name, svc := range out.Services {
		assert.Equal(t, 1, countString(svc.Networks, ReservedNetworkKey), "service %s", name)
	}
}

func TestAnchor_PipelineNetworkNotDuplicated(t *testing.T) {
	doc, err := Parse([]byte(preNetworkedSpec))
	require.NoError(t, err)

	out := Anchor(doc, "/host/proj", nil)

	assert.Equal(t, []string{"frontend", ReservedNetworkKey}, out.Services["web"].Networks)
	assert.Contains(t, out.Networks, "frontend")
}

func TestNetworkName_SubstitutesInstanceID(t *testing.T) {
	assert.Equal(t, "pipeline_network_abc123", NetworkName("abc123"))
}

// =============================================================================
// Parse Errors
// =============================================================================

func TestParse_Empty(t *testing.T) {
	_, err := Parse([]byte("   \n"))
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestParse_NoServices(t *testing.T) {
	_, err := Parse([]byte("networks:\n  x: {}\n"))
	assert.ErrorIs(t, err, ErrNoServices)
}

func TestParse_BadYAML(t *testing.T) {
	_, err := Parse([]byte("services: ["))
	assert.ErrorIs(t, err, ErrInvalidYAML)
}

func countString(list []string, want string) int {
	n := 0
	for _, s := range list {
		if s == want {
			n++
		}
	}
	return n
}
