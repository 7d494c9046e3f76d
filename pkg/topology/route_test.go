package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeClientCirculator(t *testing.T, state string) *System {
	t.Helper()

	doc := `{
		"nodes": [
			{"id": 1, "model": "client"},
			{"id": 2, "model": "client"},
			{"id": 3, "model": "client"},
			{"id": 4, "model": "circulator_switch", "portCount": 3, "ports": [1, 2, 3]}
		],
		"connections": []
	}`

	sys, err := Parse([]byte(doc))
	require.NoError(t, err)

	sw, err := sys.FindNode(4)
	require.NoError(t, err)
	require.NoError(t, sw.SetStateFromString(state))

	return sys
}

func TestTraverseClockwise(t *testing.T) {
	sys := threeClientCirculator(t, "cw")

	endpoint, err := sys.Traverse(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), endpoint)
}

func TestTraverseCounterClockwise(t *testing.T) {
	sys := threeClientCirculator(t, "ccw")

	endpoint, err := sys.Traverse(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), endpoint)
}

func TestTraverseNullEndpointDrop(t *testing.T) {
	doc := `{
		"nodes": [
			{"id": 1, "model": "client"},
			{"id": 2, "model": "null_endpoint"}
		],
		"connections": [{"endpoints": [1, 2]}]
	}`

	sys, err := Parse([]byte(doc))
	require.NoError(t, err)

	endpoint, err := sys.Traverse(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), endpoint)

	n2, err := sys.FindNode(2)
	require.NoError(t, err)
	assert.Equal(t, KindNull, n2.Kind())
}

func TestTraverseTrap(t *testing.T) {
	sys := NewSystem()
	self, err := Instantiate(ModelClient, 1)
	require.NoError(t, err)
	require.NoError(t, sys.addNode(self))
	self.addPeer(1)

	_, err = sys.Traverse(1)
	assert.Error(t, err)
}

func TestRouteSwitchDirect(t *testing.T) {
	sys := threeClientCirculator(t, "cw")

	egress, ok, err := sys.RouteSwitch(4, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(2), egress)
}
