/*
scenarios_test.go - Tests for demo scenarios

PURPOSE:
	Tests that each scenario leaves the ledger and events in the state its
	description promises. They double as integration tests of the hooks
	against the SQLite store.
*/
package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/room-concierge/concierge"
	"github.com/warp/room-concierge/generic"
	"github.com/warp/room-concierge/store/sqlite"
)

func setupTestHandler(t *testing.T) *Handler {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewHandler(store, concierge.New(store, store, store), zerolog.Nop())
}

func stateAt(t *testing.T, h *Handler, room string, day string) generic.RoomState {
	t.Helper()
	d := generic.MustParseDate(day)
	view, err := h.Concierge.Availability(context.Background(), generic.RoomID(room), generic.Period{Start: d, End: d.AddDays(1)})
	require.NoError(t, err)
	require.Len(t, view, 1)
	return view[0].State
}

func TestScenario_JanuaryStay(t *testing.T) {
	h := setupTestHandler(t)
	ctx := context.Background()
	require.NoError(t, h.loadJanuaryStayScenario(ctx))

	assert.Equal(t, generic.StateAvailable, stateAt(t, h, "101", "2025-01-10"))
	assert.Equal(t, generic.StateAvailable, stateAt(t, h, "101", "2025-01-11"))
	assert.Equal(t, generic.StateBooked, stateAt(t, h, "101", "2025-01-12"))
	assert.Equal(t, generic.StateBooked, stateAt(t, h, "101", "2025-01-16"))
	assert.Equal(t, generic.StateAvailable, stateAt(t, h, "101", "2025-01-17"))

	events, err := h.Concierge.Events(ctx, "101")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, generic.MustPeriod("2025-01-12", "2025-01-17"), events[0].Period)
}

func TestScenario_DoubleBooking(t *testing.T) {
	h := setupTestHandler(t)
	ctx := context.Background()
	require.NoError(t, h.loadDoubleBookingScenario(ctx))

	e101, err := h.Concierge.Events(ctx, "101")
	require.NoError(t, err)
	require.Len(t, e101, 1)
	assert.Equal(t, generic.BookingID("B-2001"), e101[0].BookingID)

	e102, err := h.Concierge.Events(ctx, "102")
	require.NoError(t, err)
	require.Len(t, e102, 1)
	assert.Equal(t, generic.BookingID("B-2002"), e102[0].BookingID)
}

func TestScenario_MaintenanceClosure(t *testing.T) {
	h := setupTestHandler(t)
	ctx := context.Background()
	require.NoError(t, h.loadMaintenanceClosureScenario(ctx))

	assert.Equal(t, generic.StateClosed, stateAt(t, h, "201", "2025-01-22"))
	assert.Equal(t, generic.StateBooked, stateAt(t, h, "202", "2025-01-22"))

	e201, err := h.Concierge.Events(ctx, "201")
	require.NoError(t, err)
	assert.Empty(t, e201)
}

func TestScenario_RoomTypeCascade(t *testing.T) {
	h := setupTestHandler(t)
	ctx := context.Background()
	require.NoError(t, h.loadRoomTypeCascadeScenario(ctx))

	rates, err := h.Store.ListRates(ctx, "suite")
	require.NoError(t, err)
	assert.Len(t, rates, 2)

	require.NoError(t, h.Concierge.OnRoomTypeDeleted(ctx, "suite"))

	tracked, err := h.Store.TrackedRooms(ctx)
	require.NoError(t, err)
	assert.Empty(t, tracked)
	rates, err = h.Store.ListRates(ctx, "suite")
	require.NoError(t, err)
	assert.Empty(t, rates)
	rooms, err := h.Store.ListRoomsByType(ctx, "suite")
	require.NoError(t, err)
	assert.Empty(t, rooms)
}

func TestScenario_OrphanedEvent(t *testing.T) {
	h := setupTestHandler(t)
	ctx := context.Background()
	require.NoError(t, h.loadOrphanedEventScenario(ctx))

	found, err := h.Concierge.Audit(ctx)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, []generic.Period{generic.MustPeriod("2025-01-12", "2025-01-14")}, found[0].Uncovered)
}

func TestLoadScenario_Endpoint(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "january-stay"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	current := decode[ScenarioDTO](t, ts.do(t, http.MethodGet, "/api/scenarios/current", nil))
	assert.Equal(t, "january-stay", current.ID)

	// Loading another scenario starts from an empty database.
	resp = ts.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "maintenance-closure"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/rooms/101", nil).StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	list := decode[[]ScenarioDTO](t, ts.do(t, http.MethodGet, "/api/scenarios/", nil))
	assert.Len(t, list, len(scenarios))

	resp = ts.do(t, http.MethodPost, "/api/scenarios/reset", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
