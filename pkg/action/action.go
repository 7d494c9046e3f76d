// Package action defines the closed set of dispatchable operations shared
// across the ingress protocol, the diagnostics topics, and the internal
// work-queue item tags. The string table is part of the external wire
// contract: ordering and spelling are fixed.
package action

import "fmt"

// Action is a closed enumeration of dispatchable operation kinds.
type Action int

const (
	ConfigureDetector Action = iota
	Tx
	ConfigureQswitch
	ConfigureNode
	Rx
	SimulatorRequest
	SimulatorResponse

	count
)

var names = [count]string{
	ConfigureDetector: "configure_detector",
	Tx:                "tx",
	ConfigureQswitch:  "configure_qswitch",
	ConfigureNode:     "configure_node",
	Rx:                "rx",
	SimulatorRequest:  "simulator_request",
	SimulatorResponse: "simulator_response",
}

// String returns the canonical ASCII name for an action. It is used both as
// a diagnostics topic and, where applicable, as an ingress method selector.
func (a Action) String() string {
	if a < 0 || a >= count {
		return "unknown"
	}
	return names[a]
}

var byName = func() map[string]Action {
	m := make(map[string]Action, count)
	for i := Action(0); i < count; i++ {
		m[names[i]] = i
	}
	return m
}()

// Parse maps a wire method/topic string back to its Action. Matching is
// exact: case-sensitive, no whitespace tolerance. A name outside the table
// is a protocol error for the caller to handle.
func Parse(name string) (Action, error) {
	a, ok := byName[name]
	if !ok {
		return 0, fmt.Errorf("action: unknown name %q", name)
	}
	return a, nil
}
