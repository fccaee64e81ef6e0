package concierge

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/warp/room-concierge/generic"
)

// =============================================================================
// ROOM-TYPE CASCADE
// =============================================================================

// CascadeReport summarizes a room-type purge.
type CascadeReport struct {
	RunID      uuid.UUID          `json:"run_id"`
	RoomTypeID generic.RoomTypeID `json:"room_type_id"`
	Rooms      []generic.RoomID   `json:"rooms"`
	Purged     []generic.RoomID   `json:"purged"`
	Failed     []generic.RoomID   `json:"failed,omitempty"`

	IntervalsRemoved int `json:"intervals_removed"`
	EventsRemoved    int `json:"events_removed"`
	RatesRemoved     int `json:"rates_removed"`

	Duration time.Duration `json:"duration"`
}

// PurgeRoomType removes every state interval and booking event of every
// room of the type, the room records (when the room provider is a
// RoomRemover), and the type's rates.
//
// Each room is purged under its own lock, one at a time. The purge is best
// effort: a failing room does not stop the rest, and failures come back
// together as *generic.PartialCascadeError alongside the report. Every step
// is idempotent, so running it again retries exactly what failed.
func (c *Concierge) PurgeRoomType(ctx context.Context, roomTypeID generic.RoomTypeID) (report CascadeReport, err error) {
	defer func() { c.metrics.observe("purge_room_type", err) }()

	start := time.Now()
	report = CascadeReport{RunID: uuid.New(), RoomTypeID: roomTypeID}
	log := c.logger.With().
		Str("run_id", report.RunID.String()).
		Str("room_type", string(roomTypeID)).
		Logger()

	rooms, err := c.rooms.ListRoomsByType(ctx, roomTypeID)
	if err != nil {
		return report, fmt.Errorf("list rooms of type %s: %w", roomTypeID, err)
	}

	failed := make(map[generic.RoomID]error)
	for _, room := range rooms {
		report.Rooms = append(report.Rooms, room.ID)

		var intervals, events int
		err := c.withRoom(ctx, room.ID, func(ctx context.Context) error {
			var err error
			intervals, events, err = c.purgeRoom(ctx, room.ID)
			return err
		})
		c.metrics.incCascadeRoom(err)
		if err != nil {
			failed[room.ID] = err
			report.Failed = append(report.Failed, room.ID)
			log.Error().Err(err).Str("room", string(room.ID)).Msg("room purge failed")
			continue
		}
		report.Purged = append(report.Purged, room.ID)
		report.IntervalsRemoved += intervals
		report.EventsRemoved += events
	}

	var ratesErr error
	if c.rates != nil {
		n, err := c.rates.PurgeRates(ctx, roomTypeID)
		if err != nil {
			ratesErr = err
			log.Error().Err(err).Msg("rate purge failed")
		}
		report.RatesRemoved = n
	}
	report.Duration = time.Since(start)

	log.Info().
		Int("rooms", len(report.Rooms)).
		Int("purged", len(report.Purged)).
		Int("failed", len(report.Failed)).
		Int("intervals_removed", report.IntervalsRemoved).
		Int("events_removed", report.EventsRemoved).
		Int("rates_removed", report.RatesRemoved).
		Dur("duration", report.Duration).
		Msg("room type purged")

	if len(failed) > 0 || ratesErr != nil {
		return report, &generic.PartialCascadeError{RoomTypeID: roomTypeID, Failed: failed, RatesErr: ratesErr}
	}
	return report, nil
}

// purgeRoom deletes the room's intervals, then its events, then the room
// record. The record goes last so a failed purge can be found and retried.
func (c *Concierge) purgeRoom(ctx context.Context, roomID generic.RoomID) (intervals, events int, err error) {
	intervals, err = c.store.PurgeIntervals(ctx, roomID)
	if err != nil {
		return 0, 0, fmt.Errorf("purge intervals: %w", err)
	}
	events, err = c.store.PurgeEvents(ctx, roomID)
	if err != nil {
		return intervals, 0, fmt.Errorf("purge events: %w", err)
	}
	if remover, ok := c.rooms.(RoomRemover); ok {
		if err := remover.DeleteRoom(ctx, roomID); err != nil {
			return intervals, events, fmt.Errorf("delete room: %w", err)
		}
	}
	return intervals, events, nil
}
