package concierge

import (
	"context"

	"github.com/warp/room-concierge/generic"
)

// =============================================================================
// LIFECYCLE TRIGGERS
// =============================================================================
//
// One typed entry point per host lifecycle event. Hosts call these from
// their save/delete callbacks; each returns when the change is applied.

// OnBookingSaved reconciles the ledger and events after a booking was
// created or edited.
func (c *Concierge) OnBookingSaved(ctx context.Context, bookingID generic.BookingID) error {
	_, err := c.SaveBooking(ctx, bookingID)
	if err != nil {
		c.logger.Error().Err(err).Str("booking", string(bookingID)).Str("outcome", Outcome(err)).Msg("booking save hook failed")
	}
	return err
}

// OnBookingDeleting releases a booking's room before the host deletes the
// record. The restore result is logged and discarded; only a failure to
// free the room is returned.
func (c *Concierge) OnBookingDeleting(ctx context.Context, bookingID generic.BookingID) error {
	res, err := c.DeleteBooking(ctx, bookingID)
	if err != nil {
		c.logger.Error().Err(err).Str("booking", string(bookingID)).Str("outcome", Outcome(err)).Msg("booking delete hook failed")
		return err
	}
	event := c.logger.Debug()
	if res.Inconsistency != nil {
		event = c.logger.Warn().AnErr("inconsistency", res.Inconsistency)
	}
	event.Str("booking", string(bookingID)).
		Bool("skipped", res.Skipped).
		Bool("restored", res.Restored).
		Int("events_cleared", res.EventsCleared).
		Msg("booking delete hook done")
	return nil
}

// OnRoomTypeDeleted purges everything that belonged to a deleted room type.
// A partial purge is returned as *generic.PartialCascadeError.
func (c *Concierge) OnRoomTypeDeleted(ctx context.Context, roomTypeID generic.RoomTypeID) error {
	_, err := c.PurgeRoomType(ctx, roomTypeID)
	if err != nil {
		c.logger.Error().Err(err).Str("room_type", string(roomTypeID)).Msg("room type delete hook failed")
	}
	return err
}
