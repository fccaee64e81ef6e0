package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/room-concierge/generic"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_IntervalsReplacePerRoom(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := []generic.StateInterval{
		{RoomID: "101", Period: generic.MustPeriod("2025-01-01", "2025-01-10"), State: generic.StateAvailable},
		{RoomID: "101", Period: generic.MustPeriod("2025-01-10", "2025-01-15"), State: generic.StateBooked},
	}
	require.NoError(t, store.SaveIntervals(ctx, "101", first))
	require.NoError(t, store.SaveIntervals(ctx, "102", first[:1]))

	got, err := store.LoadIntervals(ctx, "101")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, first[1].Period.Equal(got[1].Period))
	assert.Equal(t, generic.StateBooked, got[1].State)

	require.NoError(t, store.SaveIntervals(ctx, "101", first[1:]))
	got, err = store.LoadIntervals(ctx, "101")
	require.NoError(t, err)
	require.Len(t, got, 1)

	rooms, err := store.TrackedRooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, []generic.RoomID{"101", "102"}, rooms)

	n, err := store.PurgeIntervals(ctx, "101")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = store.PurgeIntervals(ctx, "101")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestStore_EventsAndRoomsForBooking(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveEvents(ctx, "101", []generic.BookingEvent{
		{RoomID: "101", BookingID: "B1", Period: generic.MustPeriod("2025-01-10", "2025-01-12")},
		{RoomID: "101", BookingID: "B1", Period: generic.MustPeriod("2025-01-13", "2025-01-15")},
		{RoomID: "101", BookingID: "B2", Period: generic.MustPeriod("2025-01-15", "2025-01-18")},
	}))
	require.NoError(t, store.SaveEvents(ctx, "102", []generic.BookingEvent{
		{RoomID: "102", BookingID: "B1", Period: generic.MustPeriod("2025-02-01", "2025-02-03")},
	}))

	events, err := store.LoadEvents(ctx, "101")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, generic.BookingID("B2"), events[2].BookingID)

	rooms, err := store.RoomsForBooking(ctx, "B1")
	require.NoError(t, err)
	assert.Equal(t, []generic.RoomID{"101", "102"}, rooms)

	n, err := store.PurgeEvents(ctx, "101")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestStore_WithTxRollsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	booked := []generic.StateInterval{
		{RoomID: "101", Period: generic.MustPeriod("2025-01-10", "2025-01-15"), State: generic.StateBooked},
	}

	err := store.WithTx(ctx, func(s generic.Store) error {
		if err := s.SaveIntervals(ctx, "101", booked); err != nil {
			return err
		}
		return errors.New("event write failed")
	})
	require.Error(t, err)

	got, err := store.LoadIntervals(ctx, "101")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, store.WithTx(ctx, func(s generic.Store) error {
		if err := s.SaveIntervals(ctx, "101", booked); err != nil {
			return err
		}
		return s.SaveEvents(ctx, "101", []generic.BookingEvent{
			{RoomID: "101", BookingID: "B1", Period: booked[0].Period},
		})
	}))
	rooms, err := store.TrackedRooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, []generic.RoomID{"101"}, rooms)
}

func TestStore_RatesKeepDecimalPrecision(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rate := generic.Rate{
		ID:         "r1",
		RoomTypeID: "suite",
		Period:     generic.MustPeriod("2025-01-01", "2025-03-01"),
		Amount:     decimal.RequireFromString("319.995"),
		Currency:   "EUR",
	}
	require.NoError(t, store.SaveRate(ctx, rate))
	rate.Amount = decimal.RequireFromString("320.10")
	require.NoError(t, store.SaveRate(ctx, rate))

	rates, err := store.ListRates(ctx, "suite")
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.True(t, decimal.RequireFromString("320.10").Equal(rates[0].Amount))
	assert.True(t, rate.Period.Equal(rates[0].Period))

	n, err := store.PurgeRates(ctx, "suite")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_RoomsAndBookings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRoom(ctx, generic.Room{ID: "302", RoomTypeID: "suite", Name: "Garden"}))
	require.NoError(t, store.SaveRoom(ctx, generic.Room{ID: "301", RoomTypeID: "suite"}))
	require.NoError(t, store.SaveRoom(ctx, generic.Room{ID: "101", RoomTypeID: "double"}))

	rooms, err := store.ListRoomsByType(ctx, "suite")
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, generic.RoomID("301"), rooms[0].ID)

	room, ok, err := store.GetRoom(ctx, "302")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Garden", room.Name)

	require.NoError(t, store.DeleteRoom(ctx, "302"))
	_, ok, err = store.GetRoom(ctx, "302")
	require.NoError(t, err)
	assert.False(t, ok)

	b := generic.Booking{ID: "B1", RoomID: "101", CheckIn: generic.MustParseDate("2025-01-10"), CheckOut: generic.MustParseDate("2025-01-15")}
	require.NoError(t, store.SaveBooking(ctx, b))
	got, ok, err := store.GetBooking(ctx, "B1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, b.CheckIn.Equal(got.CheckIn))
	assert.True(t, b.CheckOut.Equal(got.CheckOut))

	require.NoError(t, store.DeleteBooking(ctx, "B1"))
	_, ok, err = store.GetBooking(ctx, "B1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_AuditRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	started := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveAuditRun(ctx, AuditRun{ID: "a1", Status: "running", StartedAt: started}))
	done := started.Add(time.Minute)
	require.NoError(t, store.SaveAuditRun(ctx, AuditRun{ID: "a1", Status: "completed", Findings: 2, StartedAt: started, CompletedAt: &done}))
	require.NoError(t, store.SaveAuditRun(ctx, AuditRun{ID: "a2", Status: "running", StartedAt: started.Add(time.Hour)}))

	runs, err := store.ListAuditRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "a2", runs[0].ID)
	assert.Equal(t, "completed", runs[1].Status)
	assert.Equal(t, 2, runs[1].Findings)
	require.NotNil(t, runs[1].CompletedAt)
	assert.True(t, done.Equal(*runs[1].CompletedAt))

	runs, err = store.ListAuditRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestStore_ResetAndFilePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "concierge.db")
	ctx := context.Background()

	store, err := New(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveRoom(ctx, generic.Room{ID: "101", RoomTypeID: "double"}))
	require.NoError(t, store.Close())

	store, err = New(path)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Ping(ctx))

	_, ok, err := store.GetRoom(ctx, "101")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Reset(ctx))
	_, ok, err = store.GetRoom(ctx, "101")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_ListAuditRunsRejectsCorruptTimestamps(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.db.ExecContext(ctx,
		"INSERT INTO audit_runs (id, status, started_at) VALUES (?, ?, ?)",
		"bad", "completed", "yesterday")
	require.NoError(t, err)

	_, err = store.ListAuditRuns(ctx, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "started_at")

	_, err = store.db.ExecContext(ctx,
		"UPDATE audit_runs SET started_at = ?, completed_at = ? WHERE id = ?",
		"2025-01-01T10:00:00Z", "later", "bad")
	require.NoError(t, err)

	_, err = store.ListAuditRuns(ctx, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "completed_at")
}
