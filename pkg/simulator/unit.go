// Package simulator implements the client-side protocol for talking to the
// downstream quantum-simulator backend: the circuit "unit" value, a
// request/reply client, a fixed-capacity client pool, and the typed RPC
// adapter built on top of them.
package simulator

import (
	"fmt"
	"sync"
)

// dialectPoolCapacity bounds the shared dialect-string intern pool.
const dialectPoolCapacity = 8

// dialectPool interns dialect strings so repeated units referencing the
// same dialect share one copy, mirroring the bounded pool in the original
// simulator unit implementation.
type dialectPool struct {
	mu      sync.Mutex
	entries [dialectPoolCapacity]string
}

var globalDialectPool = &dialectPool{}

func (p *dialectPool) intern(dialect string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	firstEmpty := -1
	for i, d := range p.entries {
		if d == dialect {
			return d, nil
		}
		if d == "" && firstEmpty == -1 {
			firstEmpty = i
		}
	}

	if firstEmpty == -1 {
		return "", fmt.Errorf("simulator: dialect pool exhausted (capacity %d)", dialectPoolCapacity)
	}

	p.entries[firstEmpty] = dialect
	return dialect, nil
}

// Unit describes a circuit to submit to the simulator: a dialect naming the
// circuit language, an opaque description (the circuit body), and a
// line-delimiter used when concatenating circuit fragments.
type Unit struct {
	Dialect     string
	Description string
	Delimiter   byte
}

// NewUnit interns dialect in the shared pool and returns a Unit. An empty
// description is valid and represents "no circuit configured".
func NewUnit(dialect, description string, delimiter byte) (Unit, error) {
	interned, err := globalDialectPool.intern(dialect)
	if err != nil {
		return Unit{}, err
	}

	return Unit{
		Dialect:     interned,
		Description: description,
		Delimiter:   delimiter,
	}, nil
}

// IsConfigured reports whether the unit carries a non-empty description. An
// unconfigured unit means "no receiver configured; transmissions directed
// here are dropped."
func (u Unit) IsConfigured() bool {
	return u.Description != ""
}

// Concat joins a transmitter's circuit and a receiver's description with
// the receiver's configured delimiter: the transmitter's circuit, the
// delimiter, then the receiver's description. The processor's tx path does
// not call it; it always joins the two with a newline.
func Concat(txDescription string, receiver Unit) string {
	return txDescription + string(receiver.Delimiter) + receiver.Description
}
