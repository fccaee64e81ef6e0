/*
Package generic provides the core room-availability engine.

PURPOSE:
  This package contains the storage-agnostic types and algorithms for
  tracking what state every room is in over time, and which booking holds
  which nights. It knows nothing about HTTP, SQL or the host application.

KEY CONCEPTS IN THIS FILE (types.go):
  - Identifiers:   RoomID, RoomTypeID, BookingID (type-safe strings)
  - StateInterval: one maximal run of days in a single RoomState
  - BookingEvent:  the nights a booking holds on a room
  - Room, Booking: read-only views supplied by external providers
  - Rate:          a room-type price row, kept only so it can be purged

DESIGN PRINCIPLES:
  1. Half-open periods everywhere: [check-in, check-out)
  2. Normalized ledgers: no overlaps, no two touching runs with equal state
  3. Validate-then-commit: a rejected change leaves nothing behind
  4. Type Safety: strong typing for IDs prevents mixing rooms and bookings

SEE ALSO:
  - ledger.go: Availability ledger (state intervals)
  - events.go: Booking event registry
  - store.go:  Persistence boundary
*/
package generic

import "github.com/shopspring/decimal"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type RoomID string
type RoomTypeID string
type BookingID string

// =============================================================================
// LEDGER RECORDS
// =============================================================================

// StateInterval is one run of days during which a room is in a single state.
// Only the ledger creates them; callers read them.
type StateInterval struct {
	RoomID RoomID
	Period Period
	State  RoomState
}

// BookingEvent records the nights a booking reserves on a room.
type BookingEvent struct {
	RoomID    RoomID
	BookingID BookingID
	Period    Period
}

// =============================================================================
// EXTERNAL AGGREGATES (read-only views)
// =============================================================================

// Room is a bookable unit belonging to a room type.
type Room struct {
	ID         RoomID
	RoomTypeID RoomTypeID
	Name       string
}

// Booking is the slice of a reservation the engine cares about.
// CheckOut is exclusive: the guest leaves that morning.
type Booking struct {
	ID       BookingID
	RoomID   RoomID
	CheckIn  Date
	CheckOut Date
}

// Period returns the nights the booking occupies.
func (b Booking) Period() (Period, error) {
	return NewPeriod(b.CheckIn, b.CheckOut, false)
}

// Rate is a nightly price for a room type over a period.
type Rate struct {
	ID         string
	RoomTypeID RoomTypeID
	Period     Period
	Amount     decimal.Decimal
	Currency   string
}
