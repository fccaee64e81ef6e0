/*
handlers_test.go - HTTP tests for the concierge API

Tests for:
- Lifecycle hooks (saved, deleting, room type deleted)
- Error status mapping (400, 404, 409, 503)
- Ledger endpoints (availability, state, events, search)
- Probes and audit history
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/room-concierge/concierge"
	"github.com/warp/room-concierge/generic"
	"github.com/warp/room-concierge/store/sqlite"
)

type testServer struct {
	*httptest.Server
	handler *Handler
	store   *sqlite.Store
}

func newTestServer(t *testing.T, opts ...concierge.Option) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	c := concierge.New(store, store, store, opts...)
	h := NewHandler(store, c, zerolog.Nop())
	srv := httptest.NewServer(NewRouter(h, RouterOptions{}))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, handler: h, store: store}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (ts *testServer) seedRoom(t *testing.T, id, roomType string) {
	t.Helper()
	resp := ts.do(t, http.MethodPut, "/api/rooms/"+id, SaveRoomRequest{RoomTypeID: roomType, Name: "Room " + id})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func (ts *testServer) seedBooking(t *testing.T, id, room, in, out string) {
	t.Helper()
	resp := ts.do(t, http.MethodPut, "/api/bookings/"+id, SaveBookingRequest{RoomID: room, CheckIn: in, CheckOut: out})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBookingSavedHook_BooksNights(t *testing.T) {
	// GIVEN: A room and a booking record for Jan 10-15
	ts := newTestServer(t)
	ts.seedRoom(t, "101", "double")
	ts.seedBooking(t, "B1", "101", "2025-01-10", "2025-01-15")

	// WHEN: The host reports the booking as saved
	resp := ts.do(t, http.MethodPost, "/api/hooks/bookings/B1/saved", nil)

	// THEN: The five nights are booked and one event exists
	require.Equal(t, http.StatusOK, resp.StatusCode)
	hook := decode[HookResponse](t, resp)
	assert.Equal(t, "booking_saved", hook.Hook)

	resp = ts.do(t, http.MethodGet, "/api/rooms/101/availability?from=2025-01-01&to=2025-02-01", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	av := decode[AvailabilityDTO](t, resp)
	require.Len(t, av.Intervals, 3)
	assert.Equal(t, "available", av.Intervals[0].State)
	assert.Equal(t, "2025-01-10", av.Intervals[1].Start)
	assert.Equal(t, "2025-01-15", av.Intervals[1].End)
	assert.Equal(t, 5, av.Intervals[1].Nights)
	assert.Equal(t, "booked", av.Intervals[1].State)
	assert.Equal(t, "available", av.Intervals[2].State)
	assert.Equal(t, 31, av.Period.Nights)

	resp = ts.do(t, http.MethodGet, "/api/rooms/101/events", nil)
	events := decode[[]EventDTO](t, resp)
	require.Len(t, events, 1)
	assert.Equal(t, "B1", events[0].BookingID)
}

func TestBookingSavedHook_DoubleBookingIsConflict(t *testing.T) {
	ts := newTestServer(t)
	ts.seedRoom(t, "101", "double")
	ts.seedBooking(t, "B1", "101", "2025-01-10", "2025-01-15")
	ts.seedBooking(t, "B2", "101", "2025-01-14", "2025-01-16")

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/hooks/bookings/B1/saved", nil).StatusCode)

	resp := ts.do(t, http.MethodPost, "/api/hooks/bookings/B2/saved", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decode[ErrorResponse](t, resp)
	assert.NotEmpty(t, body.Details)
}

func TestBookingSavedHook_UnknownBookingIsNotFound(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, http.MethodPost, "/api/hooks/bookings/nope/saved", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBookingDeletingHook_RestoresAvailability(t *testing.T) {
	ts := newTestServer(t)
	ts.seedRoom(t, "101", "double")
	ts.seedBooking(t, "B1", "101", "2025-01-10", "2025-01-15")
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/hooks/bookings/B1/saved", nil).StatusCode)

	resp := ts.do(t, http.MethodPost, "/api/hooks/bookings/B1/deleting", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/rooms/101/availability?from=2025-01-01&to=2025-02-01", nil)
	av := decode[AvailabilityDTO](t, resp)
	for _, iv := range av.Intervals {
		assert.Equal(t, "available", iv.State)
	}
	events := decode[[]EventDTO](t, ts.do(t, http.MethodGet, "/api/rooms/101/events", nil))
	assert.Empty(t, events)

	// Deleting again is a no-op.
	resp = ts.do(t, http.MethodPost, "/api/hooks/bookings/B1/deleting", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRoomTypeDeletedHook_PurgesRoomsAndRates(t *testing.T) {
	ts := newTestServer(t)
	ts.seedRoom(t, "301", "suite")
	ts.seedRoom(t, "302", "suite")
	ts.seedRoom(t, "101", "double")
	ts.seedBooking(t, "B1", "301", "2025-02-01", "2025-02-05")
	ts.seedBooking(t, "B2", "101", "2025-02-01", "2025-02-05")
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/hooks/bookings/B1/saved", nil).StatusCode)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/hooks/bookings/B2/saved", nil).StatusCode)

	resp := ts.do(t, http.MethodPost, "/api/rates", CreateRateRequest{
		RoomTypeID: "suite", Start: "2025-01-01", End: "2025-03-01", Amount: "320",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	rate := decode[RateDTO](t, resp)
	assert.NotEmpty(t, rate.ID)
	assert.Equal(t, "320.00", rate.Amount)
	assert.Equal(t, "EUR", rate.Currency)

	resp = ts.do(t, http.MethodPost, "/api/hooks/room-types/suite/deleted", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/rooms/301", nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/rooms/302", nil).StatusCode)
	rates := decode[[]RateDTO](t, ts.do(t, http.MethodGet, "/api/room-types/suite/rates", nil))
	assert.Empty(t, rates)

	// Other room types are untouched.
	events := decode[[]EventDTO](t, ts.do(t, http.MethodGet, "/api/rooms/101/events", nil))
	assert.Len(t, events, 1)
}

func TestSetRoomState_PolicyAndForce(t *testing.T) {
	ts := newTestServer(t)
	ts.seedRoom(t, "101", "double")
	ts.seedBooking(t, "B1", "101", "2025-01-10", "2025-01-15")
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/hooks/bookings/B1/saved", nil).StatusCode)

	// Closing booked nights is refused.
	resp := ts.do(t, http.MethodPost, "/api/rooms/101/state", SetStateRequest{
		Start: "2025-01-12", End: "2025-01-13", State: "closed",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Unless forced.
	resp = ts.do(t, http.MethodPost, "/api/rooms/101/state", SetStateRequest{
		Start: "2025-01-12", End: "2025-01-13", State: "closed", Force: true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	av := decode[AvailabilityDTO](t, resp)
	require.Len(t, av.Intervals, 1)
	assert.Equal(t, "closed", av.Intervals[0].State)
}

func TestSetRoomState_InclusiveEnd(t *testing.T) {
	ts := newTestServer(t)
	ts.seedRoom(t, "101", "double")

	resp := ts.do(t, http.MethodPost, "/api/rooms/101/state", SetStateRequest{
		Start: "2025-01-20", End: "2025-01-24", InclusiveEnd: true, State: "closed",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	av := decode[AvailabilityDTO](t, resp)
	require.Len(t, av.Intervals, 1)
	assert.Equal(t, "2025-01-25", av.Intervals[0].End)
}

func TestSetRoomState_BadInput(t *testing.T) {
	ts := newTestServer(t)
	ts.seedRoom(t, "101", "double")

	tests := []struct {
		name   string
		req    SetStateRequest
		status int
	}{
		{"inverted range", SetStateRequest{Start: "2025-01-20", End: "2025-01-10", State: "closed"}, http.StatusBadRequest},
		{"empty range", SetStateRequest{Start: "2025-01-20", End: "2025-01-20", State: "closed"}, http.StatusBadRequest},
		{"bad date", SetStateRequest{Start: "20/01/2025", End: "2025-01-21", State: "closed"}, http.StatusBadRequest},
		{"unknown state", SetStateRequest{Start: "2025-01-20", End: "2025-01-21", State: "haunted"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(t, http.MethodPost, "/api/rooms/101/state", tt.req)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	resp := ts.do(t, http.MethodPost, "/api/rooms/999/state", SetStateRequest{Start: "2025-01-20", End: "2025-01-21", State: "closed"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSetBookingEvent_AddAndClear(t *testing.T) {
	ts := newTestServer(t)
	ts.seedRoom(t, "101", "double")
	ts.seedBooking(t, "B1", "101", "2025-01-10", "2025-01-15")

	resp := ts.do(t, http.MethodPost, "/api/bookings/B1/events", BookingEventRequest{Start: "2025-01-10", End: "2025-01-15"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decode[BookingEventResult](t, resp).Changed)

	resp = ts.do(t, http.MethodPost, "/api/bookings/B1/events", BookingEventRequest{Start: "2025-01-01", End: "2025-02-01", Clear: true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decode[BookingEventResult](t, resp).Changed)

	events := decode[[]EventDTO](t, ts.do(t, http.MethodGet, "/api/rooms/101/events", nil))
	assert.Empty(t, events)
}

func TestFindAvailableRooms(t *testing.T) {
	ts := newTestServer(t)
	ts.seedRoom(t, "101", "double")
	ts.seedRoom(t, "102", "double")
	ts.seedBooking(t, "B1", "101", "2025-01-10", "2025-01-15")
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/hooks/bookings/B1/saved", nil).StatusCode)

	rooms := decode[[]RoomDTO](t, ts.do(t, http.MethodGet, "/api/room-types/double/available?from=2025-01-12&to=2025-01-14", nil))
	require.Len(t, rooms, 1)
	assert.Equal(t, "102", rooms[0].ID)

	rooms = decode[[]RoomDTO](t, ts.do(t, http.MethodGet, "/api/room-types/double/available?from=2025-01-15&to=2025-01-17", nil))
	assert.Len(t, rooms, 2)

	resp := ts.do(t, http.MethodGet, "/api/room-types/double/available?from=2025-01-15", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestParsePeriod_KeepsDateError(t *testing.T) {
	_, err := parsePeriod("2025-13-01", "2025-01-20", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, generic.ErrInvalidRange))
	assert.Contains(t, err.Error(), `"2025-13-01"`)
	assert.NotContains(t, err.Error(), "0001-01-01")

	_, err = parsePeriod("2025-01-10", "", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "end")

	ts := newTestServer(t)
	resp := ts.do(t, http.MethodGet, "/api/rooms/101/availability?from=10-01-2025&to=2025-01-20", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[ErrorResponse](t, resp)
	assert.Contains(t, body.Details, `"10-01-2025"`)
}

func TestLockTimeoutIsServiceUnavailable(t *testing.T) {
	locks := generic.NewRoomLocks()
	ts := newTestServer(t, concierge.WithLocker(locks), concierge.WithLockTimeout(30*time.Millisecond))
	ts.seedRoom(t, "101", "double")

	unlock, err := locks.Lock(context.Background(), "101")
	require.NoError(t, err)
	defer unlock()

	resp := ts.do(t, http.MethodPost, "/api/rooms/101/state", SetStateRequest{Start: "2025-01-20", End: "2025-01-21", State: "closed"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{&generic.InvalidRangeError{}, http.StatusBadRequest},
		{&generic.ConflictError{}, http.StatusConflict},
		{&generic.NotFoundError{Kind: "room", ID: "x"}, http.StatusNotFound},
		{&generic.LockTimeoutError{RoomID: "x"}, http.StatusServiceUnavailable},
		{&generic.PartialCascadeError{}, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, statusFor(tt.err), "%T", tt.err)
	}
}

func TestProbes(t *testing.T) {
	ts := newTestServer(t)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/healthz", nil).StatusCode)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/readyz", nil).StatusCode)

	ts.handler.ReadyChecks = append(ts.handler.ReadyChecks, func(context.Context) error {
		return errors.New("redis down")
	})
	assert.Equal(t, http.StatusServiceUnavailable, ts.do(t, http.MethodGet, "/readyz", nil).StatusCode)
}

func TestRunAudit_ReportsOrphanedEvent(t *testing.T) {
	ts := newTestServer(t)
	ts.seedRoom(t, "101", "double")
	ts.seedBooking(t, "B1", "101", "2025-01-10", "2025-01-15")
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/hooks/bookings/B1/saved", nil).StatusCode)

	found := decode[[]InconsistencyDTO](t, ts.do(t, http.MethodGet, "/api/audit", nil))
	assert.Empty(t, found)

	resp := ts.do(t, http.MethodPost, "/api/rooms/101/state", SetStateRequest{
		Start: "2025-01-12", End: "2025-01-14", State: "available", Force: true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	found = decode[[]InconsistencyDTO](t, ts.do(t, http.MethodGet, "/api/audit", nil))
	require.Len(t, found, 1)
	assert.Equal(t, "B1", found[0].BookingID)
	require.Len(t, found[0].Uncovered, 1)
	assert.Equal(t, "2025-01-12", found[0].Uncovered[0].Start)
	assert.Equal(t, "2025-01-14", found[0].Uncovered[0].End)
}

func TestListAuditRuns_BadLimit(t *testing.T) {
	ts := newTestServer(t)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/audit/runs?limit=zero", nil).StatusCode)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/audit/runs?limit=5", nil).StatusCode)
}

func TestSaveBookingRecord_Validation(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPut, "/api/bookings/B1", SaveBookingRequest{RoomID: "101", CheckIn: "2025-01-15", CheckOut: "2025-01-10"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodPut, "/api/bookings/B1", SaveBookingRequest{RoomID: "101", CheckIn: "tomorrow", CheckOut: "2025-01-10"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	ts.seedBooking(t, "B1", "101", "2025-01-10", "2025-01-15")
	b := decode[BookingDTO](t, ts.do(t, http.MethodGet, "/api/bookings/B1", nil))
	assert.Equal(t, "2025-01-10", b.CheckIn)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/bookings/B2", nil).StatusCode)
}
