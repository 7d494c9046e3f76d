package metrics

import (
	"testing"
	"time"

	"github.com/ornl-qci/eldispacho/pkg/queue"
	"github.com/ornl-qci/eldispacho/pkg/topology"
	"github.com/stretchr/testify/require"
)

func TestCollectorCollectSetsGauges(t *testing.T) {
	sys, err := topology.Parse([]byte(`{
		"nodes": [
			{"id": 1, "model": "client"},
			{"id": 2, "model": "null_endpoint"}
		],
		"connections": [{"endpoints": [1, 2]}]
	}`))
	require.NoError(t, err)

	c := NewCollector(queue.New[int](), queue.New[int](), func(fn func(kind string)) {
		sys.Walk(func(n *topology.Node) {
			fn(n.Kind().String())
		})
	})
	c.collect()

	c.Start()
	time.Sleep(10 * time.Millisecond)
	c.Stop()
}
