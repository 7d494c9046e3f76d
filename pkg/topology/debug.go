package topology

import (
	"fmt"
	"io"
	"sort"
)

// Dump writes a tabular listing of every node in the system: id, node
// kind, model name, child count, and connection count. It exists purely
// for operator-facing debugging, mirroring the original's node-list
// debugger.
func (s *System) Dump(w io.Writer) {
	s.mu.RLock()
	ids := make([]uint64, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	fmt.Fprintf(w, "%-10s%-12s%-18s%-14s%-18s\n", "ID", "Kind", "Model", "Children", "Connections")
	for _, id := range ids {
		n, err := s.FindNode(id)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "%-10d%-12s%-18s%-14d%-18d\n",
			n.ID(), n.Kind(), n.Model(), len(n.Children()), len(n.Peers()))
	}
}
