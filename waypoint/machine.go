// Package waypoint implements a generic finite-state automaton driven by an
// adjacency map of permitted transitions. States are plain strings compared
// by equality; there is no hierarchy between them.
package waypoint

import (
	"sync"

	"github.com/pkg/errors"
)

// ErrIllegalTransition is returned by Goto when the requested transition is
// not present in the machine's adjacency map. The machine's state is left
// unchanged.
var ErrIllegalTransition = errors.New("waypoint: illegal transition")

// Edges lists, for each state, the states reachable from it in one Goto.
type Edges map[string][]string

// Machine holds a current state label and the adjacency map it was built
// with. The zero value is not usable; use New.
type Machine struct {
	mu      sync.Mutex
	state   string
	allowed map[string]map[string]bool
}

// New returns a Machine starting at initial, with transitions permitted per edges.
func New(initial string, edges Edges) *Machine {
	allowed := make(map[string]map[string]bool, len(edges))
	for from, tos := range edges {
		set := make(map[string]bool, len(tos))
		for _, to := range tos {
			set[to] = true
		}
		allowed[from] = set
	}
	return &Machine{state: initial, allowed: allowed}
}

// State returns the machine's current state label.
func (m *Machine) State() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Is reports whether the machine is currently in state.
func (m *Machine) Is(state string) bool {
	return m.State() == state
}

// Goto transitions to next if it is permitted from the current state.
// On failure the state is left unchanged and ErrIllegalTransition is returned.
func (m *Machine) Goto(next string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.allowed[m.state][next] {
		return errors.Wrapf(ErrIllegalTransition, "%s -> %s", m.state, next)
	}
	m.state = next
	return nil
}
