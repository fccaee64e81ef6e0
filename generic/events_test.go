package generic_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/room-concierge/generic"
	"github.com/warp/room-concierge/generic/store"
)

func ev(booking, start, end string) generic.BookingEvent {
	return generic.BookingEvent{RoomID: "101", BookingID: generic.BookingID(booking), Period: p(start, end)}
}

func TestEventRegistry_AddRefusesDoubleBooking(t *testing.T) {
	reg := generic.NewEventRegistry(store.NewMemory())
	ctx := context.Background()

	require.NoError(t, reg.AddEvent(ctx, "101", "B1", p("2025-01-10", "2025-01-15")))

	err := reg.AddEvent(ctx, "101", "B2", p("2025-01-14", "2025-01-16"))
	require.Error(t, err)
	var ce *generic.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, generic.ConflictDoubleBooking, ce.Kind)
	assert.Equal(t, generic.BookingID("B1"), ce.BookingID)
	assert.True(t, p("2025-01-14", "2025-01-15").Equal(ce.Period))

	// Back-to-back stays are fine.
	require.NoError(t, reg.AddEvent(ctx, "101", "B2", p("2025-01-15", "2025-01-18")))

	events, err := reg.Events(ctx, "101")
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.NoError(t, generic.CheckNoDoubleBooking(events))
}

func TestEventRegistry_AddRefusesDuplicate(t *testing.T) {
	reg := generic.NewEventRegistry(store.NewMemory())
	ctx := context.Background()
	require.NoError(t, reg.AddEvent(ctx, "101", "B1", p("2025-01-10", "2025-01-15")))

	err := reg.AddEvent(ctx, "101", "B1", p("2025-02-10", "2025-02-15"))
	var ce *generic.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, generic.ConflictDuplicateEvent, ce.Kind)
}

func TestEventRegistry_AddEmptyPeriod(t *testing.T) {
	reg := generic.NewEventRegistry(store.NewMemory())
	err := reg.AddEvent(context.Background(), "101", "B1", generic.Period{})
	assert.True(t, errors.Is(err, generic.ErrInvalidRange))
}

func TestClearFrom(t *testing.T) {
	events := []generic.BookingEvent{
		ev("B1", "2025-01-10", "2025-01-15"),
		ev("B2", "2025-01-20", "2025-01-25"),
	}

	t.Run("trim splits and keeps booking id", func(t *testing.T) {
		next, n := generic.ClearFrom(events, p("2025-01-12", "2025-01-13"), generic.ClearOptions{})
		assert.Equal(t, 1, n)
		require.Len(t, next, 3)
		assert.Equal(t, ev("B1", "2025-01-10", "2025-01-12"), next[0])
		assert.Equal(t, ev("B1", "2025-01-13", "2025-01-15"), next[1])
		assert.Equal(t, ev("B2", "2025-01-20", "2025-01-25"), next[2])
	})

	t.Run("clear removes whole events", func(t *testing.T) {
		next, n := generic.ClearFrom(events, p("2025-01-14", "2025-01-21"), generic.ClearOptions{Clear: true})
		assert.Equal(t, 2, n)
		assert.Empty(t, next)
	})

	t.Run("booking filter", func(t *testing.T) {
		next, n := generic.ClearFrom(events, p("2025-01-01", "2025-02-01"), generic.ClearOptions{Clear: true, BookingID: "B2"})
		assert.Equal(t, 1, n)
		assert.Equal(t, []generic.BookingEvent{events[0]}, next)
	})

	t.Run("no overlap", func(t *testing.T) {
		next, n := generic.ClearFrom(events, p("2025-03-01", "2025-03-05"), generic.ClearOptions{})
		assert.Equal(t, 0, n)
		assert.Equal(t, events, next)
	})
}

func TestEventRegistry_FragmentsStillCountAsPresent(t *testing.T) {
	reg := generic.NewEventRegistry(store.NewMemory())
	ctx := context.Background()
	require.NoError(t, reg.AddEvent(ctx, "101", "B1", p("2025-01-10", "2025-01-15")))

	n, err := reg.ClearEvents(ctx, "101", p("2025-01-12", "2025-01-13"), generic.ClearOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	frags, err := reg.EventsFor(ctx, "101", "B1")
	require.NoError(t, err)
	assert.Len(t, frags, 2)

	err = reg.AddEvent(ctx, "101", "B1", p("2025-01-12", "2025-01-13"))
	assert.True(t, errors.Is(err, generic.ErrConflict))
}

func TestEventRegistry_Conflicts(t *testing.T) {
	mem := store.NewMemory()
	reg := generic.NewEventRegistry(mem)
	ctx := context.Background()
	require.NoError(t, reg.AddEvent(ctx, "101", "B1", p("2025-01-10", "2025-01-15")))
	require.NoError(t, reg.AddEvent(ctx, "101", "B2", p("2025-01-15", "2025-01-18")))

	got, err := reg.Conflicts(ctx, "101", p("2025-01-14", "2025-01-16"), "B1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, generic.BookingID("B2"), got[0].BookingID)

	rooms, err := mem.RoomsForBooking(ctx, "B2")
	require.NoError(t, err)
	assert.Equal(t, []generic.RoomID{"101"}, rooms)

	n, err := reg.Purge(ctx, "101")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
