package topology

import "fmt"

// Traverse walks a transmission starting at fromID until it reaches an
// endpoint (or null sink), following the algorithm in the route-resolution
// design: at each switch, the current node routes the traversal onward
// based on which peer it arrived from; a leaf (a node whose single peer is
// the node the traversal just came from) terminates the walk.
//
// fromID is always the originating endpoint and, by construction, has
// exactly one peer; the walk begins by stepping to that peer so the loop
// body only ever needs to reason about switches and leaves.
func (s *System) Traverse(fromID uint64) (endpointID uint64, err error) {
	from, err := s.FindNode(fromID)
	if err != nil {
		return 0, err
	}

	peers := from.Peers()
	if len(peers) != 1 {
		return 0, fmt.Errorf("topology: tx origin %d must have exactly one peer, has %d", fromID, len(peers))
	}
	if peers[0] == fromID {
		return 0, fmt.Errorf("topology: trap at node %d", fromID)
	}

	previousID := fromID
	current, err := s.FindNode(peers[0])
	if err != nil {
		return 0, err
	}

	for {
		currentPeers := current.Peers()

		if len(currentPeers) == 1 {
			if currentPeers[0] == current.ID() {
				return 0, fmt.Errorf("topology: trap at node %d", current.ID())
			}
			if currentPeers[0] == previousID {
				return current.ID(), nil
			}
		}

		if current.Kind() != KindSwitch {
			return 0, fmt.Errorf("topology: traversal reached non-switch node %d with no leaf condition satisfied", current.ID())
		}

		nextID, ok := current.route(previousID)
		if !ok {
			return 0, fmt.Errorf("topology: switch %d has no route from %d", current.ID(), previousID)
		}

		next, err := s.FindNode(nextID)
		if err != nil {
			return 0, err
		}

		previousID = current.ID()
		current = next
	}
}
