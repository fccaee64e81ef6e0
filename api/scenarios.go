/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built hotel scenarios that populate the database through the
	same lifecycle hooks a host application calls, so the ledger, events and
	metrics all see realistic traffic.

AVAILABLE SCENARIOS:

	january-stay:        One booking saved, then edited to later nights
	double-booking:      Second booking on the same nights refused, moved
	maintenance-closure: Room closed for works, a booking into it refused
	room-type-cascade:   Suites with bookings and rates, ready to delete
	orphaned-event:      Event left without booked days, found by audit

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Save room and booking records
 3. Call the booking-saved hook for each booking
 4. Optionally change states or edit bookings

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "double-booking"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: ResetDatabase
  - concierge/hooks.go: The hooks driven here
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/warp/room-concierge/concierge"
	"github.com/warp/room-concierge/generic"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "january-stay",
		Name:        "January Stay",
		Description: "Booking for Jan 10-15 in room 101, then moved to Jan 12-17",
		Category:    "booking",
	},
	{
		ID:          "double-booking",
		Name:        "Double Booking",
		Description: "Overlapping booking refused in room 101 and placed in room 102",
		Category:    "booking",
	},
	{
		ID:          "maintenance-closure",
		Name:        "Maintenance Closure",
		Description: "Room 201 closed Jan 20-25; a booking into the closure is refused",
		Category:    "ledger",
	},
	{
		ID:          "room-type-cascade",
		Name:        "Room Type Cascade",
		Description: "Three suites with bookings and rates; delete room type 'suite' to purge",
		Category:    "cascade",
	},
	{
		ID:          "orphaned-event",
		Name:        "Orphaned Event",
		Description: "Booked nights force-released behind the booking's back; audit reports it",
		Category:    "audit",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "january-stay":
		err = h.loadJanuaryStayScenario(ctx)
	case "double-booking":
		err = h.loadDoubleBookingScenario(ctx)
	case "maintenance-closure":
		err = h.loadMaintenanceClosureScenario(ctx)
	case "room-type-cascade":
		err = h.loadRoomTypeCascadeScenario(ctx)
	case "orphaned-event":
		err = h.loadOrphanedEventScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("scenario %q not found", req.ScenarioID))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()

	h.Logger.Info().Str("scenario", req.ScenarioID).Msg("scenario loaded")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadJanuaryStayScenario(ctx context.Context) error {
	if err := h.saveRooms(ctx, "double", "101", "102"); err != nil {
		return err
	}
	if err := h.book(ctx, "B-1001", "101", "2025-01-10", "2025-01-15"); err != nil {
		return err
	}
	// Guest pushes the stay two nights later; Jan 10-11 go back on sale.
	return h.book(ctx, "B-1001", "101", "2025-01-12", "2025-01-17")
}

func (h *Handler) loadDoubleBookingScenario(ctx context.Context) error {
	if err := h.saveRooms(ctx, "double", "101", "102"); err != nil {
		return err
	}
	if err := h.book(ctx, "B-2001", "101", "2025-01-10", "2025-01-15"); err != nil {
		return err
	}

	err := h.book(ctx, "B-2002", "101", "2025-01-13", "2025-01-16")
	if !errors.Is(err, generic.ErrConflict) {
		return fmt.Errorf("expected double booking to be refused, got %v", err)
	}
	return h.book(ctx, "B-2002", "102", "2025-01-13", "2025-01-16")
}

func (h *Handler) loadMaintenanceClosureScenario(ctx context.Context) error {
	if err := h.saveRooms(ctx, "single", "201", "202"); err != nil {
		return err
	}
	closure := generic.MustPeriod("2025-01-20", "2025-01-25")
	if err := h.Concierge.SetRoomState(ctx, "201", closure, generic.StateClosed, concierge.StateOptions{}); err != nil {
		return err
	}

	err := h.book(ctx, "B-3001", "201", "2025-01-22", "2025-01-24")
	if !errors.Is(err, generic.ErrConflict) {
		return fmt.Errorf("expected booking into closure to be refused, got %v", err)
	}
	// The refused record stays for the host to move; re-point it at 202.
	return h.book(ctx, "B-3001", "202", "2025-01-22", "2025-01-24")
}

func (h *Handler) loadRoomTypeCascadeScenario(ctx context.Context) error {
	if err := h.saveRooms(ctx, "suite", "301", "302", "303"); err != nil {
		return err
	}
	stays := []struct{ id, room, in, out string }{
		{"B-4001", "301", "2025-02-01", "2025-02-05"},
		{"B-4002", "302", "2025-02-03", "2025-02-04"},
		{"B-4003", "302", "2025-02-10", "2025-02-14"},
	}
	for _, s := range stays {
		if err := h.book(ctx, s.id, s.room, s.in, s.out); err != nil {
			return err
		}
	}
	if err := h.Concierge.SetRoomState(ctx, "303", generic.MustPeriod("2025-02-01", "2025-03-01"), generic.StateClosed, concierge.StateOptions{}); err != nil {
		return err
	}

	rates := []struct{ id, start, end, amount string }{
		{"suite-winter", "2025-01-01", "2025-03-01", "320.00"},
		{"suite-spring", "2025-03-01", "2025-06-01", "280.00"},
	}
	for _, rt := range rates {
		rate := generic.Rate{
			ID:         rt.id,
			RoomTypeID: "suite",
			Period:     generic.MustPeriod(rt.start, rt.end),
			Amount:     decimal.RequireFromString(rt.amount),
			Currency:   "EUR",
		}
		if err := h.Store.SaveRate(ctx, rate); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadOrphanedEventScenario(ctx context.Context) error {
	if err := h.saveRooms(ctx, "double", "101"); err != nil {
		return err
	}
	if err := h.book(ctx, "B-5001", "101", "2025-01-10", "2025-01-15"); err != nil {
		return err
	}
	// Front desk force-releases two nights without touching the booking.
	return h.Concierge.SetRoomState(ctx, "101", generic.MustPeriod("2025-01-12", "2025-01-14"),
		generic.StateAvailable, concierge.StateOptions{Force: true})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) saveRooms(ctx context.Context, roomType string, ids ...string) error {
	for _, id := range ids {
		room := generic.Room{ID: generic.RoomID(id), RoomTypeID: generic.RoomTypeID(roomType), Name: "Room " + id}
		if err := h.Store.SaveRoom(ctx, room); err != nil {
			return err
		}
	}
	return nil
}

// book saves the booking record and runs the saved hook, as a host would.
func (h *Handler) book(ctx context.Context, id, room, checkIn, checkOut string) error {
	b := generic.Booking{
		ID:       generic.BookingID(id),
		RoomID:   generic.RoomID(room),
		CheckIn:  generic.MustParseDate(checkIn),
		CheckOut: generic.MustParseDate(checkOut),
	}
	if err := h.Store.SaveBooking(ctx, b); err != nil {
		return err
	}
	return h.Concierge.OnBookingSaved(ctx, b.ID)
}
