package concierge

import (
	"context"
	"errors"
	"fmt"

	"github.com/warp/room-concierge/generic"
)

// =============================================================================
// SAVE BOOKING - Reconcile ledger and events with a booking's current dates
// =============================================================================

// SaveResult describes what SaveBooking changed.
type SaveResult struct {
	BookingID generic.BookingID `json:"booking_id"`
	RoomID    generic.RoomID    `json:"room_id"`
	Period    generic.Period    `json:"period"`

	// Changed is false when ledger and events already matched the booking.
	Changed bool `json:"changed"`

	// Released lists other rooms the booking was moved away from.
	Released []generic.RoomID `json:"released,omitempty"`
}

// SaveBooking makes the ledger and the event store reflect the booking's
// current room and dates. It replaces the booking's event on its room,
// marks the period booked, and frees any night the booking held before but
// no longer covers. If the booking moved, its previous rooms are released
// first, each under its own lock.
//
// Both stores change in one transaction when the store supports it.
// Overlap with another booking or a closed night yields *ConflictError and
// leaves everything untouched.
func (c *Concierge) SaveBooking(ctx context.Context, bookingID generic.BookingID) (res SaveResult, err error) {
	defer func() { c.metrics.observe("save_booking", err) }()

	booking, err := c.requireBooking(ctx, bookingID)
	if err != nil {
		return res, err
	}
	period, err := booking.Period()
	if err != nil {
		return res, err
	}
	if _, err := c.requireRoom(ctx, booking.RoomID); err != nil {
		return res, err
	}
	res = SaveResult{BookingID: bookingID, RoomID: booking.RoomID, Period: period}

	previous, err := c.store.RoomsForBooking(ctx, bookingID)
	if err != nil {
		return res, fmt.Errorf("rooms for booking %s: %w", bookingID, err)
	}
	for _, roomID := range previous {
		if roomID == booking.RoomID {
			continue
		}
		if err := c.withRoom(ctx, roomID, func(ctx context.Context) error {
			return c.releaseBooking(ctx, roomID, bookingID)
		}); err != nil {
			return res, fmt.Errorf("release room %s: %w", roomID, err)
		}
		res.Released = append(res.Released, roomID)
	}

	err = c.withRoom(ctx, booking.RoomID, func(ctx context.Context) error {
		return generic.RunInTx(ctx, c.store, func(s generic.Store) error {
			changed, err := c.reconcileBooking(ctx, s, booking.RoomID, bookingID, period)
			res.Changed = changed
			return err
		})
	})
	if err != nil {
		return res, err
	}

	c.logger.Info().
		Str("booking", string(bookingID)).
		Str("room", string(booking.RoomID)).
		Stringer("period", period).
		Bool("changed", res.Changed).
		Int("released_rooms", len(res.Released)).
		Msg("booking saved")
	return res, nil
}

// reconcileBooking computes and writes the room's next intervals and events
// for the booking. Runs under the room lock.
func (c *Concierge) reconcileBooking(ctx context.Context, s generic.Store, roomID generic.RoomID, bookingID generic.BookingID, period generic.Period) (bool, error) {
	intervals, err := s.LoadIntervals(ctx, roomID)
	if err != nil {
		return false, fmt.Errorf("load intervals for room %s: %w", roomID, err)
	}
	events, err := s.LoadEvents(ctx, roomID)
	if err != nil {
		return false, fmt.Errorf("load events for room %s: %w", roomID, err)
	}

	own := generic.FilterBooking(events, bookingID)
	others := exceptBooking(events, bookingID)
	if err := generic.CheckAdd(others, roomID, bookingID, period); err != nil {
		return false, err
	}

	// Nights the booking held before and no longer covers go back to available.
	released := intervals
	for _, e := range own {
		for _, gone := range e.Period.Subtract(period) {
			released = releaseHeld(released, roomID, gone)
		}
	}

	ledger := generic.NewLedger(s, c.policy)
	opts := generic.SetStateOptions{Owned: heldDaysCovered(released, period, own)}
	if err := ledger.Check(roomID, released, period, generic.StateBooked, opts); err != nil {
		return false, err
	}
	nextIntervals := generic.ApplyState(released, roomID, period, generic.StateBooked)

	nextEvents := append(others, generic.BookingEvent{RoomID: roomID, BookingID: bookingID, Period: period})
	generic.SortEvents(nextEvents)

	intervalsChanged := !equalIntervals(intervals, nextIntervals)
	eventsChanged := !(len(own) == 1 && own[0].Period.Equal(period))
	if intervalsChanged {
		if err := s.SaveIntervals(ctx, roomID, nextIntervals); err != nil {
			return false, fmt.Errorf("save intervals for room %s: %w", roomID, err)
		}
	}
	if eventsChanged {
		if err := s.SaveEvents(ctx, roomID, nextEvents); err != nil {
			return false, fmt.Errorf("save events for room %s: %w", roomID, err)
		}
	}
	return intervalsChanged || eventsChanged, nil
}

// releaseBooking frees every held night of the booking's events on the room
// and drops those events. Runs under the room lock.
func (c *Concierge) releaseBooking(ctx context.Context, roomID generic.RoomID, bookingID generic.BookingID) error {
	return generic.RunInTx(ctx, c.store, func(s generic.Store) error {
		intervals, err := s.LoadIntervals(ctx, roomID)
		if err != nil {
			return err
		}
		events, err := s.LoadEvents(ctx, roomID)
		if err != nil {
			return err
		}
		own := generic.FilterBooking(events, bookingID)
		if len(own) == 0 {
			return nil
		}
		next := intervals
		for _, e := range own {
			next = releaseHeld(next, roomID, e.Period)
		}
		if !equalIntervals(intervals, next) {
			if err := s.SaveIntervals(ctx, roomID, next); err != nil {
				return err
			}
		}
		return s.SaveEvents(ctx, roomID, exceptBooking(events, bookingID))
	})
}

// releaseHeld relabels the held days of period as available. Closed days
// stay closed.
func releaseHeld(intervals []generic.StateInterval, roomID generic.RoomID, period generic.Period) []generic.StateInterval {
	next := intervals
	for _, iv := range intervals {
		if !generic.IsHeld(iv.State) {
			continue
		}
		if overlap, ok := iv.Period.Intersect(period); ok {
			next = generic.ApplyState(next, roomID, overlap, generic.StateAvailable)
		}
	}
	return next
}

func exceptBooking(events []generic.BookingEvent, bookingID generic.BookingID) []generic.BookingEvent {
	out := make([]generic.BookingEvent, 0, len(events))
	for _, e := range events {
		if e.BookingID != bookingID {
			out = append(out, e)
		}
	}
	return out
}

func equalIntervals(a, b []generic.StateInterval) bool {
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

// =============================================================================
// DELETE BOOKING - Restore availability, then clear events
// =============================================================================

// RestoreResult reports the booking-deletion transaction. It is returned
// instead of an error for the fail-open second step.
type RestoreResult struct {
	BookingID generic.BookingID `json:"booking_id"`
	RoomID    generic.RoomID    `json:"room_id,omitempty"`
	Period    generic.Period    `json:"period"`

	// Skipped is set when neither the booking's room nor any stored event of
	// the booking was left to restore.
	Skipped bool `json:"skipped"`

	// Restored is set when the ledger changed.
	Restored bool `json:"restored"`

	EventsCleared int `json:"events_cleared"`

	// Released lists rooms other than RoomID where the booking still held
	// nights, e.g. after an edit the save hook refused.
	Released []generic.RoomID `json:"released,omitempty"`

	// Inconsistency holds the event-clearing failure, if any. The room is
	// available again but the booking's events remain until the next audit.
	Inconsistency error `json:"-"`
}

// DeleteBooking frees the booking's nights and then clears its events,
// both under one hold of each room's lock.
//
// The record's period is forced to available on the record's room, except
// nights another booking's events cover. Every room the booking still holds
// events on, per the event store, has those nights released and the events
// cleared whatever their period, so a refused edit cannot leave the old
// nights behind.
//
// A booking with no record and no stored events is a no-op, so running the
// deletion twice ends in the same state as running it once. A failure of
// the first step is returned. A failure of the second step is logged and
// reported in RestoreResult.Inconsistency; the room is not re-booked.
func (c *Concierge) DeleteBooking(ctx context.Context, bookingID generic.BookingID) (res RestoreResult, err error) {
	defer func() { c.metrics.observe("delete_booking", err) }()

	res.BookingID = bookingID
	var forced *generic.Period
	booking, ok, err := c.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return res, err
	}
	if ok {
		res.RoomID = booking.RoomID
		period, err := booking.Period()
		if err != nil {
			return res, err
		}
		res.Period = period

		_, roomExists, err := c.rooms.GetRoom(ctx, booking.RoomID)
		if err != nil {
			return res, err
		}
		if roomExists {
			forced = &period
		}
	}

	held, err := c.store.RoomsForBooking(ctx, bookingID)
	if err != nil {
		return res, fmt.Errorf("rooms for booking %s: %w", bookingID, err)
	}

	rooms := held
	if forced != nil && !containsRoom(held, booking.RoomID) {
		rooms = append([]generic.RoomID{booking.RoomID}, held...)
	}
	if len(rooms) == 0 {
		res.Skipped = true
		return res, nil
	}

	var inconsistencies []error
	for _, roomID := range rooms {
		var restore *generic.Period
		if forced != nil && roomID == booking.RoomID {
			restore = forced
		}
		var restored bool
		var cleared int
		var failed error
		err := c.withRoom(ctx, roomID, func(ctx context.Context) error {
			var err error
			restored, cleared, failed, err = c.restoreRoom(ctx, roomID, bookingID, restore)
			return err
		})
		if err != nil {
			return res, err
		}
		res.Restored = res.Restored || restored
		res.EventsCleared += cleared
		if roomID != res.RoomID {
			res.Released = append(res.Released, roomID)
		}
		if failed != nil {
			inconsistencies = append(inconsistencies, failed)
			c.metrics.incInconsistency()
			c.logger.Warn().Err(failed).
				Str("booking", string(bookingID)).
				Str("room", string(roomID)).
				Stringer("period", res.Period).
				Msg("room restored but booking events not cleared")
		}
	}
	res.Inconsistency = errors.Join(inconsistencies...)

	c.logger.Info().
		Str("booking", string(bookingID)).
		Str("room", string(res.RoomID)).
		Bool("restored", res.Restored).
		Int("events_cleared", res.EventsCleared).
		Int("released_rooms", len(res.Released)).
		Msg("booking deleted")
	return res, nil
}

// restoreRoom frees the booking's nights on one room and drops its events.
// forced, when set, is relabelled available except where another booking's
// events lie. The intervals are written first; an event write failure is
// returned as failed, not err. Runs under the room lock.
func (c *Concierge) restoreRoom(ctx context.Context, roomID generic.RoomID, bookingID generic.BookingID, forced *generic.Period) (restored bool, cleared int, failed, err error) {
	intervals, err := c.store.LoadIntervals(ctx, roomID)
	if err != nil {
		return false, 0, nil, fmt.Errorf("load intervals for room %s: %w", roomID, err)
	}
	events, err := c.store.LoadEvents(ctx, roomID)
	if err != nil {
		return false, 0, nil, fmt.Errorf("load events for room %s: %w", roomID, err)
	}
	own := generic.FilterBooking(events, bookingID)
	others := exceptBooking(events, bookingID)

	next := intervals
	for _, e := range own {
		next = releaseHeld(next, roomID, e.Period)
	}
	if forced != nil {
		for _, free := range uncoveredBy(*forced, others) {
			next = generic.ApplyState(next, roomID, free, generic.StateAvailable)
		}
	}
	if !equalIntervals(intervals, next) {
		if err := c.store.SaveIntervals(ctx, roomID, next); err != nil {
			return false, 0, nil, fmt.Errorf("save intervals for room %s: %w", roomID, err)
		}
		restored = true
	}

	if len(own) == 0 {
		return restored, 0, nil, nil
	}
	if err := c.store.SaveEvents(ctx, roomID, others); err != nil {
		return restored, 0, fmt.Errorf("clear events of booking %s on room %s: %w", bookingID, roomID, err), nil
	}
	return restored, len(own), nil, nil
}

// uncoveredBy returns the parts of period no event overlaps.
func uncoveredBy(period generic.Period, events []generic.BookingEvent) []generic.Period {
	parts := []generic.Period{period}
	for _, e := range events {
		var next []generic.Period
		for _, part := range parts {
			next = append(next, part.Subtract(e.Period)...)
		}
		parts = next
	}
	return parts
}

func containsRoom(rooms []generic.RoomID, roomID generic.RoomID) bool {
	for _, r := range rooms {
		if r == roomID {
			return true
		}
	}
	return false
}
