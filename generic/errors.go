/*
errors.go - Centralized error types for the availability engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The concierge and the transports (api) classify failures with errors.Is
  against the sentinels below; the structured types carry the details.

ERROR CATEGORIES:
  1. Range errors    - Malformed periods, rejected before any mutation
  2. Conflict errors - State or event change collides with existing data
  3. Lock errors     - Per-room mutual exclusion not acquired in time
  4. Lookup errors   - Room or booking no longer exists
  5. Cascade errors  - Room-type purge completed for some rooms only

USAGE:
  if errors.Is(err, generic.ErrConflict) {
      var conflict *generic.ConflictError
      errors.As(err, &conflict)
      ...
  }

SEE ALSO:
  - ledger.go: ConflictError on state transitions
  - events.go: ConflictError on double booking
  - lock.go:   LockTimeoutError
*/
package generic

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidRange is returned when a period is empty or inverted.
	ErrInvalidRange = errors.New("invalid range")

	// ErrConflict is returned when a state or event change collides with
	// existing data and force was not requested.
	ErrConflict = errors.New("conflict")

	// ErrLockTimeout is returned when a room lock is not acquired in time.
	ErrLockTimeout = errors.New("room lock timeout")

	// ErrNotFound is returned when a referenced room or booking doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrPartialCascade is returned when a room-type purge failed for some rooms.
	ErrPartialCascade = errors.New("partial cascade")

	// ErrUnknownState is returned when parsing an unregistered room state.
	ErrUnknownState = errors.New("unknown room state")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidRangeError describes a rejected period.
type InvalidRangeError struct {
	Start        Date
	End          Date
	InclusiveEnd bool
}

func (e *InvalidRangeError) Error() string {
	closing := ")"
	if e.InclusiveEnd {
		closing = "]"
	}
	return fmt.Sprintf("invalid range: [%s, %s%s is empty or inverted", e.Start, e.End, closing)
}

func (e *InvalidRangeError) Unwrap() error { return ErrInvalidRange }

// ConflictKind tells which invariant a conflict protects.
type ConflictKind string

const (
	ConflictTransition     ConflictKind = "transition"      // ledger policy refused the state change
	ConflictDoubleBooking  ConflictKind = "double_booking"  // another booking's event overlaps
	ConflictDuplicateEvent ConflictKind = "duplicate_event" // booking already has an event on the room
)

// ConflictError describes a collision with existing data.
type ConflictError struct {
	Kind      ConflictKind
	RoomID    RoomID
	Period    Period    // the colliding sub-range
	Existing  RoomState // for transitions
	Requested RoomState // for transitions
	BookingID BookingID // the other booking, for event conflicts
}

func (e *ConflictError) Error() string {
	switch e.Kind {
	case ConflictTransition:
		return fmt.Sprintf("conflict: room %s cannot go from %s to %s over %s",
			e.RoomID, e.Existing, e.Requested, e.Period)
	case ConflictDuplicateEvent:
		return fmt.Sprintf("conflict: booking %s already has an event on room %s (%s)",
			e.BookingID, e.RoomID, e.Period)
	default:
		return fmt.Sprintf("conflict: room %s is booked by %s over %s",
			e.RoomID, e.BookingID, e.Period)
	}
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// LockTimeoutError reports a bounded wait that expired.
type LockTimeoutError struct {
	RoomID RoomID
	Waited time.Duration
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("room %s: lock not acquired after %s", e.RoomID, e.Waited.Round(time.Millisecond))
}

func (e *LockTimeoutError) Unwrap() error { return ErrLockTimeout }

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind string // "room" or "booking"
	ID   string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %s not found", e.Kind, e.ID) }

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// PartialCascadeError lists the rooms a room-type purge could not clean.
type PartialCascadeError struct {
	RoomTypeID RoomTypeID
	Failed     map[RoomID]error
	RatesErr   error // non-nil if purging the room-type's rates failed
}

// FailedRooms returns the failed room ids, sorted.
func (e *PartialCascadeError) FailedRooms() []RoomID {
	ids := make([]RoomID, 0, len(e.Failed))
	for id := range e.Failed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (e *PartialCascadeError) Error() string {
	parts := make([]string, 0, len(e.Failed)+1)
	for _, id := range e.FailedRooms() {
		parts = append(parts, fmt.Sprintf("room %s: %v", id, e.Failed[id]))
	}
	if e.RatesErr != nil {
		parts = append(parts, fmt.Sprintf("rates: %v", e.RatesErr))
	}
	return fmt.Sprintf("partial cascade for room type %s: %s", e.RoomTypeID, strings.Join(parts, "; "))
}

func (e *PartialCascadeError) Unwrap() error { return ErrPartialCascade }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockTimeout)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrUnknownState)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
