package topology

import (
	"encoding/json"
	"fmt"
)

type nodeDoc struct {
	ID        uint64            `json:"id"`
	Model     string            `json:"model"`
	PortCount *int              `json:"portCount,omitempty"`
	Ports     []json.RawMessage `json:"ports,omitempty"`
	Nodes     []nodeDoc         `json:"nodes,omitempty"`
}

type connectionDoc struct {
	Endpoints [2]uint64 `json:"endpoints"`
}

type topologyDoc struct {
	Nodes       []nodeDoc       `json:"nodes"`
	Connections []connectionDoc `json:"connections"`
}

type pendingPorts struct {
	switchID uint64
	ports    []json.RawMessage
}

// Parse consumes a topology JSON document and produces a fully wired
// System. Nodes are instantiated and indexed first (recursing into nested
// "nodes" child arrays); switch port wirings are resolved in a second pass
// once every referenced node exists; "connections" entries are applied in a
// third pass. Any malformed input, unknown model, duplicate id, or
// out-of-range port reference is a hard error.
func Parse(data []byte) (*System, error) {
	var doc topologyDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("topology: invalid JSON: %w", err)
	}

	sys := NewSystem()
	var pending []pendingPorts

	var walk func(docs []nodeDoc, parentID uint64, hasParent bool) error
	walk = func(docs []nodeDoc, parentID uint64, hasParent bool) error {
		for _, d := range docs {
			node, err := Instantiate(d.Model, d.ID)
			if err != nil {
				return fmt.Errorf("topology: node %d: %w", d.ID, err)
			}
			if err := sys.addNode(node); err != nil {
				return err
			}

			if hasParent {
				node.SetParent(parentID)
				parent, err := sys.FindNode(parentID)
				if err != nil {
					return err
				}
				parent.addChild(d.ID)
			}

			if node.Kind() == KindSwitch {
				if d.PortCount == nil {
					return fmt.Errorf("topology: switch %d missing portCount", d.ID)
				}
				if err := sys.ResizeSwitch(d.ID, *d.PortCount); err != nil {
					return err
				}
				if len(d.Ports) > 0 {
					pending = append(pending, pendingPorts{switchID: d.ID, ports: d.Ports})
				}
			}

			if len(d.Nodes) > 0 {
				if err := walk(d.Nodes, d.ID, true); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := walk(doc.Nodes, 0, false); err != nil {
		return nil, err
	}

	for _, p := range pending {
		for port, raw := range p.ports {
			var asString string
			if err := json.Unmarshal(raw, &asString); err == nil {
				if asString == "null" {
					continue
				}
				return nil, fmt.Errorf("topology: switch %d port %d: invalid string value %q", p.switchID, port, asString)
			}

			var peerID uint64
			if err := json.Unmarshal(raw, &peerID); err != nil {
				return nil, fmt.Errorf("topology: switch %d port %d: invalid port entry", p.switchID, port)
			}

			if err := sys.ConnectPort(p.switchID, port, peerID); err != nil {
				return nil, err
			}
		}
	}

	for _, c := range doc.Connections {
		if err := sys.AddConnection(c.Endpoints[0], c.Endpoints[1]); err != nil {
			return nil, err
		}
	}

	return sys, nil
}
