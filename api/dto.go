/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

DATES:
  Every date is "YYYY-MM-DD". Periods are half-open [start, end) unless a
  request sets inclusive_end, in which case end is the last night.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/room-concierge/concierge"
	"github.com/warp/room-concierge/generic"
	"github.com/warp/room-concierge/store/sqlite"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// SaveRoomRequest creates or updates a room record.
type SaveRoomRequest struct {
	RoomTypeID string `json:"room_type_id"`
	Name       string `json:"name"`
}

// SaveBookingRequest creates or updates a booking record. Saving the record
// does not touch the ledger; the host calls the saved hook for that.
type SaveBookingRequest struct {
	RoomID   string `json:"room_id"`
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
}

// CreateRateRequest adds a rate to a room type.
type CreateRateRequest struct {
	ID         string `json:"id,omitempty"`
	RoomTypeID string `json:"room_type_id"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
}

// SetStateRequest relabels a room's days.
type SetStateRequest struct {
	Start        string `json:"start"`
	End          string `json:"end"`
	InclusiveEnd bool   `json:"inclusive_end,omitempty"`
	State        string `json:"state"`
	Force        bool   `json:"force,omitempty"`
	Owner        string `json:"owner,omitempty"`
}

// BookingEventRequest adds or clears a booking's event.
type BookingEventRequest struct {
	Start        string `json:"start"`
	End          string `json:"end"`
	InclusiveEnd bool   `json:"inclusive_end,omitempty"`
	Clear        bool   `json:"clear,omitempty"`
}

// LoadScenarioRequest selects a demo scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

type PeriodDTO struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Nights int    `json:"nights"`
}

type IntervalDTO struct {
	PeriodDTO
	State string `json:"state"`
}

type EventDTO struct {
	PeriodDTO
	BookingID string `json:"booking_id"`
}

type RoomDTO struct {
	ID         string `json:"id"`
	RoomTypeID string `json:"room_type_id"`
	Name       string `json:"name"`
}

type BookingDTO struct {
	ID       string `json:"id"`
	RoomID   string `json:"room_id"`
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
}

type RateDTO struct {
	ID         string `json:"id"`
	RoomTypeID string `json:"room_type_id"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
}

// AvailabilityDTO is a room's clipped ledger view.
type AvailabilityDTO struct {
	RoomID    string        `json:"room_id"`
	Period    PeriodDTO     `json:"period"`
	Intervals []IntervalDTO `json:"intervals"`
}

// BookingEventResult reports a SetBookingEvent call.
type BookingEventResult struct {
	BookingID string `json:"booking_id"`
	Changed   int    `json:"changed"`
}

type InconsistencyDTO struct {
	RoomID    string      `json:"room_id"`
	BookingID string      `json:"booking_id"`
	Event     PeriodDTO   `json:"event"`
	Uncovered []PeriodDTO `json:"uncovered"`
}

type AuditRunDTO struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Findings    int    `json:"findings"`
	Error       string `json:"error,omitempty"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at,omitempty"`
}

// HookResponse acknowledges a lifecycle hook.
type HookResponse struct {
	Status string `json:"status"`
	Hook   string `json:"hook"`
	ID     string `json:"id"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error       string   `json:"error"`
	Details     string   `json:"details,omitempty"`
	FailedRooms []string `json:"failed_rooms,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toPeriodDTO(p generic.Period) PeriodDTO {
	return PeriodDTO{Start: p.Start.String(), End: p.End.String(), Nights: p.Nights()}
}

func toIntervalDTOs(intervals []generic.StateInterval) []IntervalDTO {
	dtos := make([]IntervalDTO, len(intervals))
	for i, iv := range intervals {
		dtos[i] = IntervalDTO{PeriodDTO: toPeriodDTO(iv.Period), State: iv.State.String()}
	}
	return dtos
}

func toEventDTOs(events []generic.BookingEvent) []EventDTO {
	dtos := make([]EventDTO, len(events))
	for i, e := range events {
		dtos[i] = EventDTO{PeriodDTO: toPeriodDTO(e.Period), BookingID: string(e.BookingID)}
	}
	return dtos
}

func toRoomDTO(r generic.Room) RoomDTO {
	return RoomDTO{ID: string(r.ID), RoomTypeID: string(r.RoomTypeID), Name: r.Name}
}

func toRateDTO(r generic.Rate) RateDTO {
	return RateDTO{
		ID:         r.ID,
		RoomTypeID: string(r.RoomTypeID),
		Start:      r.Period.Start.String(),
		End:        r.Period.End.String(),
		Amount:     r.Amount.StringFixed(2),
		Currency:   r.Currency,
	}
}

func toInconsistencyDTOs(found []concierge.Inconsistency) []InconsistencyDTO {
	dtos := make([]InconsistencyDTO, len(found))
	for i, f := range found {
		uncovered := make([]PeriodDTO, len(f.Uncovered))
		for j, p := range f.Uncovered {
			uncovered[j] = toPeriodDTO(p)
		}
		dtos[i] = InconsistencyDTO{
			RoomID:    string(f.RoomID),
			BookingID: string(f.BookingID),
			Event:     toPeriodDTO(f.Event),
			Uncovered: uncovered,
		}
	}
	return dtos
}

func toAuditRunDTO(r sqlite.AuditRun) AuditRunDTO {
	dto := AuditRunDTO{
		ID:        r.ID,
		Status:    r.Status,
		Findings:  r.Findings,
		Error:     r.Error,
		StartedAt: r.StartedAt.Format(time.RFC3339),
	}
	if r.CompletedAt != nil {
		dto.CompletedAt = r.CompletedAt.Format(time.RFC3339)
	}
	return dto
}
