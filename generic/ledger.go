/*
ledger.go - Availability ledger: per-room normalized state intervals

PURPOSE:
  The ledger is the source of truth for what state a room is in on any
  day. It stores, per room, an ordered set of StateIntervals and applies
  range-scoped transitions to it.

CRITICAL INVARIANTS (per room):
  1. ORDERED:        intervals sorted by start
  2. NON-OVERLAPPING: no day belongs to two intervals
  3. MAXIMAL:        no two touching intervals share a state
  4. NON-EMPTY:      every interval covers at least one day

  Days outside every interval are implicitly available (DefaultState).

SET STATE ALGORITHM:
  1. Locate every interval overlapping the period
  2. Check each overlap (and each untracked gap) against the policy
  3. Split boundary intervals at period.Start / period.End
  4. Replace the covered middle with one interval in the new state
  5. Merge with neighbours that now share that state

  Steps 1-2 happen before anything is written (validate-then-commit), so
  a refused change leaves the stored set untouched.

EXAMPLE:
  [AVAILABLE Jan1-Jan31)
  SetState([Jan10, Jan15), BOOKED)
  => [AVAILABLE Jan1-Jan10) [BOOKED Jan10-Jan15) [AVAILABLE Jan15-Jan31)
  SetState([Jan10, Jan15), AVAILABLE, force)
  => [AVAILABLE Jan1-Jan31)

SEE ALSO:
  - policy.go: Transition table
  - store.go:  IntervalStore
*/
package generic

import (
	"context"
	"fmt"
	"sort"
)

// SetStateOptions tune a state transition.
type SetStateOptions struct {
	// Force relabels the period regardless of the transition policy.
	Force bool

	// Owned declares that every held (booked/pending) day in the period
	// belongs to the caller's own booking. Set by the concierge only.
	Owned bool
}

// =============================================================================
// LEDGER
// =============================================================================

// Ledger applies state transitions to a room's intervals.
// It does no locking: callers serialize access per room (see lock.go).
type Ledger struct {
	Store  IntervalStore
	Policy *TransitionPolicy
}

// NewLedger creates a ledger over the store. A nil policy means
// DefaultTransitionPolicy.
func NewLedger(store IntervalStore, policy *TransitionPolicy) *Ledger {
	if policy == nil {
		policy = DefaultTransitionPolicy()
	}
	return &Ledger{Store: store, Policy: policy}
}

// SetState relabels period as state for the room and persists the result.
// An empty period is a no-op. Returns *ConflictError when the policy refuses.
func (l *Ledger) SetState(ctx context.Context, roomID RoomID, period Period, state RoomState, opts SetStateOptions) error {
	next, changed, err := l.Plan(ctx, roomID, period, state, opts)
	if err != nil || !changed {
		return err
	}
	return l.Store.SaveIntervals(ctx, roomID, next)
}

// Plan validates a transition and returns the resulting interval set
// without persisting it. changed is false when the set would not change.
func (l *Ledger) Plan(ctx context.Context, roomID RoomID, period Period, state RoomState, opts SetStateOptions) (next []StateInterval, changed bool, err error) {
	if period.IsEmpty() {
		return nil, false, nil
	}
	if !state.IsRegistered() {
		return nil, false, fmt.Errorf("%w: %q", ErrUnknownState, state)
	}

	current, err := l.Store.LoadIntervals(ctx, roomID)
	if err != nil {
		return nil, false, fmt.Errorf("load intervals for room %s: %w", roomID, err)
	}
	if err := l.Check(roomID, current, period, state, opts); err != nil {
		return nil, false, err
	}

	next = ApplyState(current, roomID, period, state)
	return next, !sameIntervals(current, next), nil
}

// Check validates a transition against the current intervals.
// Untracked gaps inside the period are checked as DefaultState.
func (l *Ledger) Check(roomID RoomID, current []StateInterval, period Period, state RoomState, opts SetStateOptions) error {
	conflict := func(p Period, existing RoomState) error {
		return &ConflictError{
			Kind:      ConflictTransition,
			RoomID:    roomID,
			Period:    p,
			Existing:  existing,
			Requested: state,
		}
	}

	cursor := period.Start
	for _, iv := range current {
		overlap, ok := iv.Period.Intersect(period)
		if !ok {
			continue
		}
		if cursor.Before(overlap.Start) && !l.Policy.Permits(DefaultState, state, opts) {
			return conflict(Period{Start: cursor, End: overlap.Start}, DefaultState)
		}
		if !l.Policy.Permits(iv.State, state, opts) {
			return conflict(overlap, iv.State)
		}
		cursor = MaxDate(cursor, overlap.End)
	}
	if cursor.Before(period.End) && !l.Policy.Permits(DefaultState, state, opts) {
		return conflict(Period{Start: cursor, End: period.End}, DefaultState)
	}
	return nil
}

// Intervals returns the room's stored intervals.
func (l *Ledger) Intervals(ctx context.Context, roomID RoomID) ([]StateInterval, error) {
	return l.Store.LoadIntervals(ctx, roomID)
}

// StateAt returns the room's state on a day.
func (l *Ledger) StateAt(ctx context.Context, roomID RoomID, day Date) (RoomState, error) {
	intervals, err := l.Store.LoadIntervals(ctx, roomID)
	if err != nil {
		return "", err
	}
	// Binary search: first interval ending after day
	i := sort.Search(len(intervals), func(i int) bool {
		return intervals[i].Period.End.After(day)
	})
	if i < len(intervals) && intervals[i].Period.Contains(day) {
		return intervals[i].State, nil
	}
	return DefaultState, nil
}

// Availability returns the room's states over period, clipped to it, with
// untracked gaps filled in as DefaultState.
func (l *Ledger) Availability(ctx context.Context, roomID RoomID, period Period) ([]StateInterval, error) {
	if period.IsEmpty() {
		return nil, nil
	}
	intervals, err := l.Store.LoadIntervals(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return Clip(intervals, roomID, period), nil
}

// IsFree reports whether every day of period is in DefaultState.
func (l *Ledger) IsFree(ctx context.Context, roomID RoomID, period Period) (bool, error) {
	view, err := l.Availability(ctx, roomID, period)
	if err != nil {
		return false, err
	}
	for _, iv := range view {
		if iv.State != DefaultState {
			return false, nil
		}
	}
	return true, nil
}

// Purge removes every interval of the room.
func (l *Ledger) Purge(ctx context.Context, roomID RoomID) (int, error) {
	return l.Store.PurgeIntervals(ctx, roomID)
}

// =============================================================================
// INTERVAL ALGEBRA (pure functions)
// =============================================================================

// ApplyState returns the normalized set obtained by relabelling period as
// state. current must already be normalized.
func ApplyState(current []StateInterval, roomID RoomID, period Period, state RoomState) []StateInterval {
	if period.IsEmpty() {
		return append([]StateInterval(nil), current...)
	}

	next := make([]StateInterval, 0, len(current)+2)
	for _, iv := range current {
		if !iv.Period.Overlaps(period) {
			next = append(next, iv)
			continue
		}
		// Keep the parts outside the period (split at the boundaries)
		for _, rest := range iv.Period.Subtract(period) {
			next = append(next, StateInterval{RoomID: iv.RoomID, Period: rest, State: iv.State})
		}
	}
	next = append(next, StateInterval{RoomID: roomID, Period: period, State: state})

	sortIntervals(next)
	return Normalize(next)
}

// Normalize merges touching intervals that share a state and drops empty
// ones. Input must be sorted and non-overlapping.
func Normalize(intervals []StateInterval) []StateInterval {
	out := make([]StateInterval, 0, len(intervals))
	for _, iv := range intervals {
		if iv.Period.IsEmpty() {
			continue
		}
		if n := len(out); n > 0 {
			last := &out[n-1]
			if last.State == iv.State && last.Period.End.Equal(iv.Period.Start) {
				last.Period.End = iv.Period.End
				continue
			}
		}
		out = append(out, iv)
	}
	return out
}

// Clip restricts intervals to period and fills untracked days with
// DefaultState. The result covers period exactly.
func Clip(intervals []StateInterval, roomID RoomID, period Period) []StateInterval {
	var out []StateInterval
	cursor := period.Start
	for _, iv := range intervals {
		overlap, ok := iv.Period.Intersect(period)
		if !ok {
			continue
		}
		if cursor.Before(overlap.Start) {
			out = append(out, StateInterval{RoomID: roomID, Period: Period{Start: cursor, End: overlap.Start}, State: DefaultState})
		}
		out = append(out, StateInterval{RoomID: roomID, Period: overlap, State: iv.State})
		cursor = overlap.End
	}
	if cursor.Before(period.End) {
		out = append(out, StateInterval{RoomID: roomID, Period: Period{Start: cursor, End: period.End}, State: DefaultState})
	}
	return Normalize(out)
}

// CheckPartition verifies the ledger invariants on a room's interval set.
func CheckPartition(intervals []StateInterval) error {
	for i, iv := range intervals {
		if iv.Period.IsEmpty() {
			return fmt.Errorf("interval %d %s is empty", i, iv.Period)
		}
		if i == 0 {
			continue
		}
		prev := intervals[i-1]
		if iv.Period.Start.Before(prev.Period.End) {
			return fmt.Errorf("interval %d %s overlaps or precedes %s", i, iv.Period, prev.Period)
		}
		if prev.State == iv.State && prev.Period.End.Equal(iv.Period.Start) {
			return fmt.Errorf("intervals %s and %s touch with the same state %s", prev.Period, iv.Period, iv.State)
		}
	}
	return nil
}

func sortIntervals(intervals []StateInterval) {
	sort.Slice(intervals, func(i, j int) bool {
		return intervals[i].Period.Start.Before(intervals[j].Period.Start)
	})
}

func sameIntervals(a, b []StateInterval) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].State != b[i].State || !a[i].Period.Equal(b[i].Period) {
			return false
		}
	}
	return true
}
