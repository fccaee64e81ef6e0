/*
handlers.go - HTTP transport for the concierge

PURPOSE:
  Exposes the lifecycle hooks and the concierge's read side over HTTP, so a
  host application in another process can drive it. Handles HTTP
  request/response and JSON serialization, and delegates to the concierge.

ENDPOINTS:
  Hooks:
    POST   /api/hooks/bookings/{id}/saved       Booking created or edited
    POST   /api/hooks/bookings/{id}/deleting    Booking about to be deleted
    POST   /api/hooks/room-types/{id}/deleted   Room type deleted (cascade)

  Records (feed the room/booking providers):
    PUT    /api/rooms/{id}                      Save room
    GET    /api/rooms/{id}                      Get room
    PUT    /api/bookings/{id}                   Save booking record
    GET    /api/bookings/{id}                   Get booking record
    POST   /api/rates                           Add rate to a room type
    GET    /api/room-types/{id}/rates           List rates

  Ledger:
    GET    /api/rooms/{id}/availability         States over ?from=&to=
    GET    /api/rooms/{id}/events               Booking events
    POST   /api/rooms/{id}/state                Relabel days
    POST   /api/bookings/{id}/events            Add or clear a booking event
    GET    /api/room-types/{id}/available       Free rooms over ?from=&to=

  Audit:
    GET    /api/audit                           Run an audit now
    GET    /api/audit/runs                      Scheduled audit history

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid range, unknown state, malformed input
  - 404: Room or booking not found
  - 409: Conflict (policy refusal, double booking)
  - 503: Room lock not acquired in time (Retry-After set)
  - 500: Internal errors, partial cascades (with failed room ids)

SECURITY NOTE:
  No authentication. Run behind the host application's network boundary.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/room-concierge/concierge"
	"github.com/warp/room-concierge/generic"
	"github.com/warp/room-concierge/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Concierge *concierge.Concierge
	Logger    zerolog.Logger

	// Checks run by /readyz besides the database ping (e.g. Redis).
	ReadyChecks []func(ctx context.Context) error

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler over the store and concierge.
func NewHandler(store *sqlite.Store, c *concierge.Concierge, logger zerolog.Logger) *Handler {
	return &Handler{
		Store:     store,
		Concierge: c,
		Logger:    logger.With().Str("component", "api").Logger(),
	}
}

// =============================================================================
// LIFECYCLE HOOKS
// =============================================================================

// BookingSaved runs the booking-saved hook.
func (h *Handler) BookingSaved(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Concierge.OnBookingSaved(r.Context(), generic.BookingID(id)); err != nil {
		writeDomainError(w, "Booking save hook failed", err)
		return
	}
	writeJSON(w, http.StatusOK, HookResponse{Status: "ok", Hook: "booking_saved", ID: id})
}

// BookingDeleting runs the booking-deleting hook. Deleting the record
// itself is left to the caller.
func (h *Handler) BookingDeleting(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Concierge.OnBookingDeleting(r.Context(), generic.BookingID(id)); err != nil {
		writeDomainError(w, "Booking delete hook failed", err)
		return
	}
	writeJSON(w, http.StatusOK, HookResponse{Status: "ok", Hook: "booking_deleting", ID: id})
}

// RoomTypeDeleted runs the room-type cascade.
func (h *Handler) RoomTypeDeleted(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Concierge.OnRoomTypeDeleted(r.Context(), generic.RoomTypeID(id)); err != nil {
		writeDomainError(w, "Room type cascade incomplete", err)
		return
	}
	writeJSON(w, http.StatusOK, HookResponse{Status: "ok", Hook: "room_type_deleted", ID: id})
}

// =============================================================================
// RECORDS
// =============================================================================

// SaveRoom creates or updates a room.
func (h *Handler) SaveRoom(w http.ResponseWriter, r *http.Request) {
	var req SaveRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.RoomTypeID == "" {
		writeError(w, http.StatusBadRequest, "room_type_id is required", nil)
		return
	}

	room := generic.Room{
		ID:         generic.RoomID(chi.URLParam(r, "id")),
		RoomTypeID: generic.RoomTypeID(req.RoomTypeID),
		Name:       req.Name,
	}
	if err := h.Store.SaveRoom(r.Context(), room); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save room", err)
		return
	}
	writeJSON(w, http.StatusOK, toRoomDTO(room))
}

// GetRoom returns a room.
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	room, ok, err := h.Store.GetRoom(r.Context(), generic.RoomID(id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get room", err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Room not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toRoomDTO(room))
}

// SaveBooking creates or updates a booking record.
func (h *Handler) SaveBooking(w http.ResponseWriter, r *http.Request) {
	var req SaveBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	checkIn, err := generic.ParseDate(req.CheckIn)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid check_in", err)
		return
	}
	checkOut, err := generic.ParseDate(req.CheckOut)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid check_out", err)
		return
	}

	booking := generic.Booking{
		ID:       generic.BookingID(chi.URLParam(r, "id")),
		RoomID:   generic.RoomID(req.RoomID),
		CheckIn:  checkIn,
		CheckOut: checkOut,
	}
	if _, err := booking.Period(); err != nil {
		writeDomainError(w, "Invalid stay", err)
		return
	}
	if err := h.Store.SaveBooking(r.Context(), booking); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save booking", err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(booking))
}

// GetBooking returns a booking record.
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	booking, ok, err := h.Store.GetBooking(r.Context(), generic.BookingID(id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get booking", err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Booking not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(booking))
}

func toBookingDTO(b generic.Booking) BookingDTO {
	return BookingDTO{ID: string(b.ID), RoomID: string(b.RoomID), CheckIn: b.CheckIn.String(), CheckOut: b.CheckOut.String()}
}

// CreateRate adds a rate to a room type.
func (h *Handler) CreateRate(w http.ResponseWriter, r *http.Request) {
	var req CreateRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.RoomTypeID == "" {
		writeError(w, http.StatusBadRequest, "room_type_id is required", nil)
		return
	}
	period, err := parsePeriod(req.Start, req.End, false)
	if err != nil {
		writeDomainError(w, "Invalid rate period", err)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	if amount.IsNegative() {
		writeError(w, http.StatusBadRequest, "Amount must not be negative", nil)
		return
	}

	rate := generic.Rate{
		ID:         req.ID,
		RoomTypeID: generic.RoomTypeID(req.RoomTypeID),
		Period:     period,
		Amount:     amount,
		Currency:   req.Currency,
	}
	if rate.ID == "" {
		rate.ID = uuid.NewString()
	}
	if rate.Currency == "" {
		rate.Currency = "EUR"
	}
	if err := h.Store.SaveRate(r.Context(), rate); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save rate", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRateDTO(rate))
}

// ListRates returns a room type's rates.
func (h *Handler) ListRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.Store.ListRates(r.Context(), generic.RoomTypeID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rates", err)
		return
	}
	dtos := make([]RateDTO, len(rates))
	for i, rate := range rates {
		dtos[i] = toRateDTO(rate)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// LEDGER
// =============================================================================

// GetAvailability returns a room's states over ?from=&to=.
func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	period, err := parsePeriod(r.URL.Query().Get("from"), r.URL.Query().Get("to"), false)
	if err != nil {
		writeDomainError(w, "Invalid period", err)
		return
	}

	intervals, err := h.Concierge.Availability(r.Context(), generic.RoomID(roomID), period)
	if err != nil {
		writeDomainError(w, "Failed to read availability", err)
		return
	}
	writeJSON(w, http.StatusOK, AvailabilityDTO{
		RoomID:    roomID,
		Period:    toPeriodDTO(period),
		Intervals: toIntervalDTOs(intervals),
	})
}

// GetEvents returns a room's booking events.
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Concierge.Events(r.Context(), generic.RoomID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to read events", err)
		return
	}
	writeJSON(w, http.StatusOK, toEventDTOs(events))
}

// SetRoomState relabels a room's days.
func (h *Handler) SetRoomState(w http.ResponseWriter, r *http.Request) {
	var req SetStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	period, err := parsePeriod(req.Start, req.End, req.InclusiveEnd)
	if err != nil {
		writeDomainError(w, "Invalid period", err)
		return
	}
	state, err := generic.ParseState(req.State)
	if err != nil {
		writeDomainError(w, "Invalid state", err)
		return
	}

	roomID := generic.RoomID(chi.URLParam(r, "id"))
	opts := concierge.StateOptions{Force: req.Force, Owner: generic.BookingID(req.Owner)}
	if err := h.Concierge.SetRoomState(r.Context(), roomID, period, state, opts); err != nil {
		writeDomainError(w, "State change refused", err)
		return
	}

	intervals, err := h.Concierge.Availability(r.Context(), roomID, period)
	if err != nil {
		writeDomainError(w, "Failed to read availability", err)
		return
	}
	writeJSON(w, http.StatusOK, AvailabilityDTO{
		RoomID:    string(roomID),
		Period:    toPeriodDTO(period),
		Intervals: toIntervalDTOs(intervals),
	})
}

// SetBookingEvent adds or clears a booking's event on its room.
func (h *Handler) SetBookingEvent(w http.ResponseWriter, r *http.Request) {
	var req BookingEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	period, err := parsePeriod(req.Start, req.End, req.InclusiveEnd)
	if err != nil {
		writeDomainError(w, "Invalid period", err)
		return
	}

	bookingID := chi.URLParam(r, "id")
	n, err := h.Concierge.SetBookingEvent(r.Context(), generic.BookingID(bookingID), period, concierge.EventOptions{Clear: req.Clear})
	if err != nil {
		writeDomainError(w, "Booking event refused", err)
		return
	}
	writeJSON(w, http.StatusOK, BookingEventResult{BookingID: bookingID, Changed: n})
}

// FindAvailableRooms lists rooms of a type free over ?from=&to=.
func (h *Handler) FindAvailableRooms(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r.URL.Query().Get("from"), r.URL.Query().Get("to"), false)
	if err != nil {
		writeDomainError(w, "Invalid period", err)
		return
	}
	rooms, err := h.Concierge.FindAvailableRooms(r.Context(), generic.RoomTypeID(chi.URLParam(r, "id")), period)
	if err != nil {
		writeDomainError(w, "Failed to search rooms", err)
		return
	}
	dtos := make([]RoomDTO, len(rooms))
	for i, room := range rooms {
		dtos[i] = toRoomDTO(room)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// AUDIT
// =============================================================================

// RunAudit audits every tracked room now.
func (h *Handler) RunAudit(w http.ResponseWriter, r *http.Request) {
	found, err := h.Concierge.Audit(r.Context())
	if err != nil {
		writeDomainError(w, "Audit failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toInconsistencyDTOs(found))
}

// ListAuditRuns returns recent scheduled audits (?limit=, default 20).
func (h *Handler) ListAuditRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}
	runs, err := h.Store.ListAuditRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list audit runs", err)
		return
	}
	dtos := make([]AuditRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toAuditRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HEALTH
// =============================================================================

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		http.Error(w, "db not ready", http.StatusServiceUnavailable)
		return
	}
	for _, check := range h.ReadyChecks {
		if err := check(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps concierge errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: message, Details: err.Error()}

	var partial *generic.PartialCascadeError
	if errors.As(err, &partial) {
		for _, id := range partial.FailedRooms() {
			resp.FailedRooms = append(resp.FailedRooms, string(id))
		}
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, generic.ErrConflict):
		return http.StatusConflict
	case generic.IsClientError(err):
		return http.StatusBadRequest
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case generic.IsRetryable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func parsePeriod(start, end string, inclusiveEnd bool) (generic.Period, error) {
	s, err := generic.ParseDate(start)
	if err != nil {
		return generic.Period{}, fmt.Errorf("%w: start: %v", generic.ErrInvalidRange, err)
	}
	e, err := generic.ParseDate(end)
	if err != nil {
		return generic.Period{}, fmt.Errorf("%w: end: %v", generic.ErrInvalidRange, err)
	}
	return generic.NewPeriod(s, e, inclusiveEnd)
}
