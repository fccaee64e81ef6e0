package concierge

import (
	"context"

	"github.com/warp/room-concierge/generic"
)

// BookingProvider looks bookings up in the host application.
// A record that was already deleted is reported as (zero, false, nil),
// never as an error.
type BookingProvider interface {
	GetBooking(ctx context.Context, id generic.BookingID) (generic.Booking, bool, error)
}

// RoomProvider looks rooms up in the host application.
type RoomProvider interface {
	GetRoom(ctx context.Context, id generic.RoomID) (generic.Room, bool, error)
	ListRoomsByType(ctx context.Context, roomTypeID generic.RoomTypeID) ([]generic.Room, error)
}

// RoomRemover is implemented by providers that own room records; the
// room-type cascade deletes them once their ledger and events are gone.
type RoomRemover interface {
	DeleteRoom(ctx context.Context, id generic.RoomID) error
}
