package concierge

import (
	"context"
	"fmt"

	"github.com/warp/room-concierge/generic"
)

// =============================================================================
// READ SIDE
// =============================================================================

// Availability returns the room's states over period, gaps filled as available.
func (c *Concierge) Availability(ctx context.Context, roomID generic.RoomID, period generic.Period) ([]generic.StateInterval, error) {
	if _, err := c.requireRoom(ctx, roomID); err != nil {
		return nil, err
	}
	return generic.NewLedger(c.store, c.policy).Availability(ctx, roomID, period)
}

// Events returns the room's booking events.
func (c *Concierge) Events(ctx context.Context, roomID generic.RoomID) ([]generic.BookingEvent, error) {
	if _, err := c.requireRoom(ctx, roomID); err != nil {
		return nil, err
	}
	return generic.NewEventRegistry(c.store).Events(ctx, roomID)
}

// FindAvailableRooms returns the rooms of a type that are available on
// every night of period and hold no booking event in it.
// Reads take no lock: the answer is advisory until a booking is saved.
func (c *Concierge) FindAvailableRooms(ctx context.Context, roomTypeID generic.RoomTypeID, period generic.Period) ([]generic.Room, error) {
	if period.IsEmpty() {
		return nil, &generic.InvalidRangeError{Start: period.Start, End: period.End}
	}
	rooms, err := c.rooms.ListRoomsByType(ctx, roomTypeID)
	if err != nil {
		return nil, fmt.Errorf("list rooms of type %s: %w", roomTypeID, err)
	}

	ledger := generic.NewLedger(c.store, c.policy)
	registry := generic.NewEventRegistry(c.store)
	var free []generic.Room
	for _, room := range rooms {
		ok, err := ledger.IsFree(ctx, room.ID, period)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		conflicts, err := registry.Conflicts(ctx, room.ID, period, "")
		if err != nil {
			return nil, err
		}
		if len(conflicts) == 0 {
			free = append(free, room)
		}
	}
	return free, nil
}

// =============================================================================
// AUDIT
// =============================================================================

// Inconsistency is a booking event whose nights are not all held in the
// ledger. The fail-open deletion path and forced relabels leave these behind.
type Inconsistency struct {
	RoomID    generic.RoomID    `json:"room_id"`
	BookingID generic.BookingID `json:"booking_id"`
	Event     generic.Period    `json:"event"`

	// Uncovered lists the event's nights not in a booked or pending run.
	Uncovered []generic.Period `json:"uncovered"`
}

// Audit checks every tracked room and returns the events not covered by a
// held interval. Each room is read under its lock.
func (c *Concierge) Audit(ctx context.Context) (found []Inconsistency, err error) {
	defer func() { c.metrics.observe("audit", err) }()

	rooms, err := c.store.TrackedRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("tracked rooms: %w", err)
	}
	for _, roomID := range rooms {
		err := c.withRoom(ctx, roomID, func(ctx context.Context) error {
			intervals, err := c.store.LoadIntervals(ctx, roomID)
			if err != nil {
				return err
			}
			events, err := c.store.LoadEvents(ctx, roomID)
			if err != nil {
				return err
			}
			found = append(found, auditRoom(roomID, intervals, events)...)
			return nil
		})
		if err != nil {
			return found, err
		}
	}

	c.metrics.setAuditFindings(len(found))
	if len(found) > 0 {
		c.logger.Warn().Int("findings", len(found)).Int("rooms", len(rooms)).Msg("audit found uncovered booking events")
	} else {
		c.logger.Debug().Int("rooms", len(rooms)).Msg("audit clean")
	}
	return found, nil
}

func auditRoom(roomID generic.RoomID, intervals []generic.StateInterval, events []generic.BookingEvent) []Inconsistency {
	var found []Inconsistency
	for _, e := range events {
		rest := []generic.Period{e.Period}
		for _, iv := range intervals {
			if !generic.IsHeld(iv.State) {
				continue
			}
			var next []generic.Period
			for _, r := range rest {
				next = append(next, r.Subtract(iv.Period)...)
			}
			rest = next
		}
		if len(rest) > 0 {
			found = append(found, Inconsistency{RoomID: roomID, BookingID: e.BookingID, Event: e.Period, Uncovered: rest})
		}
	}
	return found
}
