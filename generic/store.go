/*
store.go - Persistence boundary for state intervals and booking events

PURPOSE:
  Defines the interface between the availability engine and whatever keeps
  its data. The engine loads a room's whole set, computes the next set in
  memory and saves it back; stores only need per-room load/save/purge.
  Different implementations can use SQLite or in-memory maps.

KEY INTERFACES:
  IntervalStore: State intervals of the availability ledger
  EventStore:    Booking events
  Store:         Both, plus a listing of rooms that have data
  TxStore:       Store with atomic multi-write transactions
  RateStore:     Room-type rate rows (purged by the room-type cascade)

VISIBILITY CONTRACT:
  Reads must observe the writes of any previous holder of the room's lock.
  Save* replaces the room's full set; implementations may diff internally.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - ledger.go: Uses IntervalStore
  - events.go: Uses EventStore
  - lock.go:   Per-room mutual exclusion around load/save cycles
*/
package generic

import "context"

// =============================================================================
// STORE - Interfaces for per-room persistence
// =============================================================================

// IntervalStore persists the availability ledger.
type IntervalStore interface {
	// LoadIntervals returns the room's intervals ordered by start.
	LoadIntervals(ctx context.Context, roomID RoomID) ([]StateInterval, error)

	// SaveIntervals replaces the room's intervals.
	SaveIntervals(ctx context.Context, roomID RoomID, intervals []StateInterval) error

	// PurgeIntervals deletes every interval of the room and returns how many
	// were removed. Purging an empty room is a no-op.
	PurgeIntervals(ctx context.Context, roomID RoomID) (int, error)
}

// EventStore persists booking events.
type EventStore interface {
	// LoadEvents returns the room's events ordered by start.
	LoadEvents(ctx context.Context, roomID RoomID) ([]BookingEvent, error)

	// SaveEvents replaces the room's events.
	SaveEvents(ctx context.Context, roomID RoomID, events []BookingEvent) error

	// PurgeEvents deletes every event of the room.
	PurgeEvents(ctx context.Context, roomID RoomID) (int, error)

	// RoomsForBooking returns the rooms holding an event for the booking.
	RoomsForBooking(ctx context.Context, bookingID BookingID) ([]RoomID, error)
}

// Store is the full persistence boundary of the engine.
type Store interface {
	IntervalStore
	EventStore

	// TrackedRooms lists rooms that have at least one interval or event.
	TrackedRooms(ctx context.Context) ([]RoomID, error)
}

// =============================================================================
// TRANSACTIONAL STORE - For atomic writes across both record sets
// =============================================================================

// TxStore wraps Store with transaction support.
// Use this when ledger and events must change together (saving a booking).
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// RunInTx runs fn inside a transaction when the store supports one, and
// directly against the store otherwise.
func RunInTx(ctx context.Context, store Store, fn func(Store) error) error {
	if ts, ok := store.(TxStore); ok {
		return ts.WithTx(ctx, fn)
	}
	return fn(store)
}

// =============================================================================
// RATE STORE
// =============================================================================

// RateStore keeps room-type rates. The engine never prices anything; it
// only has to remove a deleted room-type's rates.
type RateStore interface {
	SaveRate(ctx context.Context, rate Rate) error
	ListRates(ctx context.Context, roomTypeID RoomTypeID) ([]Rate, error)
	PurgeRates(ctx context.Context, roomTypeID RoomTypeID) (int, error)
}
