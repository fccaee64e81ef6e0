/*
state.go - Room state registration and lookup

PURPOSE:
  Room states form a closed enumeration for the policy table, but hosts
  may need extra states (e.g. "maintenance"). The registry lets them add
  one at init time so that storage and JSON can round-trip it.

USAGE:
  func init() {
      generic.RegisterState("maintenance")
  }

  state, err := generic.ParseState("booked") // StateBooked

SEE ALSO:
  - policy.go: Which transitions are allowed between states
*/
package generic

import (
	"fmt"
	"sort"
	"sync"
)

// RoomState is the state of a room over a run of days.
type RoomState string

const (
	StateAvailable RoomState = "available"
	StateBooked    RoomState = "booked"
	StateClosed    RoomState = "closed"
	StatePending   RoomState = "pending"
)

// DefaultState is the implicit state of any day the ledger does not track.
const DefaultState = StateAvailable

// =============================================================================
// STATE REGISTRY
// =============================================================================

var (
	stateRegistry = map[RoomState]bool{
		StateAvailable: true,
		StateBooked:    true,
		StateClosed:    true,
		StatePending:   true,
	}
	registryMu sync.RWMutex
)

// RegisterState adds a state to the global registry.
// Call this from package init() functions.
func RegisterState(s RoomState) {
	registryMu.Lock()
	defer registryMu.Unlock()
	stateRegistry[s] = true
}

// ParseState finds a registered state by name.
func ParseState(s string) (RoomState, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if stateRegistry[RoomState(s)] {
		return RoomState(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownState, s)
}

// IsRegistered reports whether the state is known.
func (s RoomState) IsRegistered() bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return stateRegistry[s]
}

// ListStates returns all registered states, sorted by name.
func ListStates() []RoomState {
	registryMu.RLock()
	defer registryMu.RUnlock()
	states := make([]RoomState, 0, len(stateRegistry))
	for s := range stateRegistry {
		states = append(states, s)
	}
	sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })
	return states
}

func (s RoomState) String() string { return string(s) }
