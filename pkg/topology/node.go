// Package topology models the in-memory network of nodes (endpoints,
// switches, and null sinks), their adjacency, and the route-resolution
// algorithm used to traverse a transmission across the network.
//
// The original design uses virtual dispatch and self-owning pointer
// adjacency with back-references. Here the whole topology lives in one
// arena (System) keyed by node id; every cross-reference is an id rather
// than a pointer, and node-type-specific behavior is a tagged Kind rather
// than a class hierarchy, per the design note about eliminating
// dynamic_cast from the node API.
package topology

import (
	"fmt"
	"sync"

	"github.com/ornl-qci/eldispacho/pkg/simulator"
)

// Kind tags a Node's concrete variant.
type Kind int

const (
	KindEndpoint Kind = iota
	KindSwitch
	KindNull
)

// String names a Kind, used by diagnostics dumps.
func (k Kind) String() string {
	switch k {
	case KindEndpoint:
		return "endpoint"
	case KindSwitch:
		return "switch"
	case KindNull:
		return "null"
	default:
		return "unknown"
	}
}

// Chirality is a circulator switch's routing direction.
type Chirality int

const (
	ChiralityCCW Chirality = iota
	ChiralityCW
)

type switchPort struct {
	bound bool
	peer  uint64
}

// Node is one element of the topology: an endpoint, a switch, or a null
// sink. Every Node lives inside a System's arena and is referenced by id;
// Node itself guards only its own mutable fields, not the arena structure.
type Node struct {
	mu sync.RWMutex

	id    uint64
	kind  Kind
	model string

	hasParent bool
	parentID  uint64
	children  []uint64
	peers     []uint64

	// Endpoint-only.
	receiver *simulator.Unit

	// Switch-only.
	ports     []switchPort
	chirality Chirality
}

// ID returns the node's unique id.
func (n *Node) ID() uint64 { return n.id }

// Kind returns the node's variant tag.
func (n *Node) Kind() Kind { return n.kind }

// Model returns the registry model name this node was instantiated from.
func (n *Node) Model() string { return n.model }

// Peers returns a snapshot of the node's connected peer ids.
func (n *Node) Peers() []uint64 {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]uint64, len(n.peers))
	copy(out, n.peers)
	return out
}

// Children returns a snapshot of the node's owned child ids.
func (n *Node) Children() []uint64 {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]uint64, len(n.children))
	copy(out, n.children)
	return out
}

// Parent returns the parent id and whether one is set.
func (n *Node) Parent() (uint64, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return n.parentID, n.hasParent
}

// SetParent records id as this node's parent.
func (n *Node) SetParent(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.parentID = id
	n.hasParent = true
}

func (n *Node) hasPeerLocked(id uint64) bool {
	for _, p := range n.peers {
		if p == id {
			return true
		}
	}
	return false
}

// HasPeer reports whether id is already a connected peer.
func (n *Node) HasPeer(id uint64) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return n.hasPeerLocked(id)
}

func (n *Node) addPeer(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.hasPeerLocked(id) {
		return
	}
	n.peers = append(n.peers, id)
}

func (n *Node) removePeer(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, p := range n.peers {
		if p == id {
			n.peers = append(n.peers[:i], n.peers[i+1:]...)
			return
		}
	}
}

func (n *Node) addChild(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.children = append(n.children, id)
}

func (n *Node) removeChild(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, c := range n.children {
		if c == id {
			n.children = append(n.children[:i], n.children[i+1:]...)
			return
		}
	}
}

// Receiver returns the endpoint's configured simulator unit, if any.
func (n *Node) Receiver() (simulator.Unit, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.receiver == nil {
		return simulator.Unit{}, false
	}
	return *n.receiver, true
}

// SetReceiver installs unit as the endpoint's receiver configuration. It
// fails on any node that is not an endpoint.
func (n *Node) SetReceiver(unit simulator.Unit) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.kind != KindEndpoint {
		return fmt.Errorf("topology: node %d is not an endpoint", n.id)
	}
	n.receiver = &unit
	return nil
}

// SetStateFromString updates a switch's routing state, e.g. chirality
// "cw"/"ccw" for a circulator switch.
func (n *Node) SetStateFromString(state string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.kind != KindSwitch {
		return fmt.Errorf("topology: node %d is not a switch", n.id)
	}

	switch state {
	case "cw":
		n.chirality = ChiralityCW
	case "ccw":
		n.chirality = ChiralityCCW
	default:
		return fmt.Errorf("topology: unknown switch state %q", state)
	}
	return nil
}

// PortCount returns the number of port slots on a switch node.
func (n *Node) PortCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return len(n.ports)
}

func (n *Node) resizePorts(newSize int) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if newSize <= len(n.ports) {
		n.ports = n.ports[:newSize]
		return
	}
	n.ports = append(n.ports, make([]switchPort, newSize-len(n.ports))...)
}

// portsSnapshot returns a copy of the current port bindings, used by the
// resize-shrink path to discover which ports need disconnecting.
func (n *Node) portsSnapshot() []switchPort {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]switchPort, len(n.ports))
	copy(out, n.ports)
	return out
}

func (n *Node) bindPort(port int, peerID uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if port < 0 || port >= len(n.ports) {
		return fmt.Errorf("topology: port %d out of range (switch %d has %d ports)", port, n.id, len(n.ports))
	}
	if n.ports[port].bound {
		return fmt.Errorf("topology: port %d of switch %d is already bound", port, n.id)
	}
	n.ports[port] = switchPort{bound: true, peer: peerID}
	return nil
}

func (n *Node) unbindPort(port int) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if port < 0 || port >= len(n.ports) {
		return 0, fmt.Errorf("topology: port %d out of range (switch %d has %d ports)", port, n.id, len(n.ports))
	}
	if !n.ports[port].bound {
		return 0, fmt.Errorf("topology: port %d of switch %d is not bound", port, n.id)
	}
	peer := n.ports[port].peer
	n.ports[port] = switchPort{}
	return peer, nil
}

// route resolves the egress peer for a transmission arriving from
// fromPeerID, rotating the ingress port index by ±1 according to
// chirality. ok is false if fromPeerID is not bound to any port, or the
// resulting port is empty.
func (n *Node) route(fromPeerID uint64) (uint64, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	idx := -1
	for i, p := range n.ports {
		if p.bound && p.peer == fromPeerID {
			idx = i
			break
		}
	}
	if idx == -1 || len(n.ports) == 0 {
		return 0, false
	}

	count := len(n.ports)
	var next int
	switch n.chirality {
	case ChiralityCW:
		next = (idx + 1) % count
	default:
		next = (idx - 1 + count) % count
	}

	if !n.ports[next].bound {
		return 0, false
	}
	return n.ports[next].peer, true
}
