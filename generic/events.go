/*
events.go - Booking event registry

PURPOSE:
  Tracks which booking holds which nights on a room, independently of the
  ledger's state labels. The registry is what detects double booking: two
  different bookings can never hold overlapping nights on the same room.

INVARIANTS (per room):
  1. No two events of DIFFERENT bookings overlap.
  2. AddEvent refuses a booking that already has an event on the room.

  Partial clears may split an event in two; both fragments keep the
  booking id, so invariant 1 still holds and AddEvent still treats the
  booking as present.

  The link "every event lies inside a BOOKED run of the ledger" is held by
  the concierge, which is the only caller allowed to mutate both stores.

CLEARING:
  ClearOptions.Clear = true   remove every event intersecting the period
  ClearOptions.Clear = false  cut exactly the intersecting nights out,
                              keeping what lies outside the period

SEE ALSO:
  - ledger.go: State intervals
  - store.go:  EventStore
*/
package generic

import (
	"context"
	"fmt"
	"sort"
)

// ClearOptions tune ClearEvents.
type ClearOptions struct {
	// Clear removes whole events instead of trimming them.
	Clear bool

	// BookingID restricts the operation to one booking's events.
	// Empty means every booking on the room.
	BookingID BookingID
}

// =============================================================================
// EVENT REGISTRY
// =============================================================================

// EventRegistry validates and applies booking event changes.
// Like Ledger, it does no locking of its own.
type EventRegistry struct {
	Store EventStore
}

func NewEventRegistry(store EventStore) *EventRegistry {
	return &EventRegistry{Store: store}
}

// Events returns the room's events ordered by start.
func (r *EventRegistry) Events(ctx context.Context, roomID RoomID) ([]BookingEvent, error) {
	return r.Store.LoadEvents(ctx, roomID)
}

// EventsFor returns the booking's events (fragments) on the room.
func (r *EventRegistry) EventsFor(ctx context.Context, roomID RoomID, bookingID BookingID) ([]BookingEvent, error) {
	events, err := r.Store.LoadEvents(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return FilterBooking(events, bookingID), nil
}

// AddEvent records that bookingID holds period on the room.
func (r *EventRegistry) AddEvent(ctx context.Context, roomID RoomID, bookingID BookingID, period Period) error {
	next, err := r.PlanAdd(ctx, roomID, bookingID, period)
	if err != nil {
		return err
	}
	return r.Store.SaveEvents(ctx, roomID, next)
}

// PlanAdd validates an AddEvent and returns the resulting set without saving.
func (r *EventRegistry) PlanAdd(ctx context.Context, roomID RoomID, bookingID BookingID, period Period) ([]BookingEvent, error) {
	if period.IsEmpty() {
		return nil, &InvalidRangeError{Start: period.Start, End: period.End}
	}
	events, err := r.Store.LoadEvents(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("load events for room %s: %w", roomID, err)
	}
	if err := CheckAdd(events, roomID, bookingID, period); err != nil {
		return nil, err
	}
	next := append(append([]BookingEvent(nil), events...), BookingEvent{RoomID: roomID, BookingID: bookingID, Period: period})
	SortEvents(next)
	return next, nil
}

// ClearEvents removes or trims events intersecting period and returns the
// number of events removed or materially changed.
func (r *EventRegistry) ClearEvents(ctx context.Context, roomID RoomID, period Period, opts ClearOptions) (int, error) {
	next, count, err := r.PlanClear(ctx, roomID, period, opts)
	if err != nil || count == 0 {
		return 0, err
	}
	if err := r.Store.SaveEvents(ctx, roomID, next); err != nil {
		return 0, err
	}
	return count, nil
}

// PlanClear computes a ClearEvents without saving.
func (r *EventRegistry) PlanClear(ctx context.Context, roomID RoomID, period Period, opts ClearOptions) ([]BookingEvent, int, error) {
	if period.IsEmpty() {
		return nil, 0, nil
	}
	events, err := r.Store.LoadEvents(ctx, roomID)
	if err != nil {
		return nil, 0, fmt.Errorf("load events for room %s: %w", roomID, err)
	}
	next, count := ClearFrom(events, period, opts)
	return next, count, nil
}

// Conflicts returns events of bookings other than except that overlap period.
func (r *EventRegistry) Conflicts(ctx context.Context, roomID RoomID, period Period, except BookingID) ([]BookingEvent, error) {
	events, err := r.Store.LoadEvents(ctx, roomID)
	if err != nil {
		return nil, err
	}
	var out []BookingEvent
	for _, e := range events {
		if e.BookingID != except && e.Period.Overlaps(period) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Purge removes every event of the room.
func (r *EventRegistry) Purge(ctx context.Context, roomID RoomID) (int, error) {
	return r.Store.PurgeEvents(ctx, roomID)
}

// =============================================================================
// EVENT ALGEBRA (pure functions)
// =============================================================================

// CheckAdd validates a new event against the room's existing events.
func CheckAdd(events []BookingEvent, roomID RoomID, bookingID BookingID, period Period) error {
	for _, e := range events {
		if e.BookingID == bookingID {
			return &ConflictError{Kind: ConflictDuplicateEvent, RoomID: roomID, BookingID: bookingID, Period: e.Period}
		}
	}
	for _, e := range events {
		if overlap, ok := e.Period.Intersect(period); ok {
			return &ConflictError{Kind: ConflictDoubleBooking, RoomID: roomID, BookingID: e.BookingID, Period: overlap}
		}
	}
	return nil
}

// ClearFrom applies a clear to an event set. See ClearOptions.
func ClearFrom(events []BookingEvent, period Period, opts ClearOptions) ([]BookingEvent, int) {
	next := make([]BookingEvent, 0, len(events))
	count := 0
	for _, e := range events {
		if !e.Period.Overlaps(period) || (opts.BookingID != "" && e.BookingID != opts.BookingID) {
			next = append(next, e)
			continue
		}
		count++
		if opts.Clear {
			continue
		}
		for _, rest := range e.Period.Subtract(period) {
			next = append(next, BookingEvent{RoomID: e.RoomID, BookingID: e.BookingID, Period: rest})
		}
	}
	SortEvents(next)
	return next, count
}

// FilterBooking returns the events belonging to one booking.
func FilterBooking(events []BookingEvent, bookingID BookingID) []BookingEvent {
	var out []BookingEvent
	for _, e := range events {
		if e.BookingID == bookingID {
			out = append(out, e)
		}
	}
	return out
}

// CheckNoDoubleBooking verifies invariant 1 on an event set.
func CheckNoDoubleBooking(events []BookingEvent) error {
	for i := range events {
		for j := i + 1; j < len(events); j++ {
			a, b := events[i], events[j]
			if a.BookingID != b.BookingID && a.Period.Overlaps(b.Period) {
				return fmt.Errorf("bookings %s %s and %s %s overlap", a.BookingID, a.Period, b.BookingID, b.Period)
			}
		}
	}
	return nil
}

// SortEvents orders events by start, then booking id.
func SortEvents(events []BookingEvent) {
	sort.Slice(events, func(i, j int) bool {
		if c := events[i].Period.Start.Compare(events[j].Period.Start); c != 0 {
			return c < 0
		}
		return events[i].BookingID < events[j].BookingID
	})
}
