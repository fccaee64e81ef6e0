// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/room-concierge/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps intervals, events, rates, rooms and bookings in maps.
// It implements generic.TxStore and generic.RateStore, and the room and
// booking provider interfaces of the concierge package.
type Memory struct {
	mu        sync.RWMutex
	intervals map[generic.RoomID][]generic.StateInterval
	events    map[generic.RoomID][]generic.BookingEvent
	rates     map[generic.RoomTypeID][]generic.Rate
	rooms     map[generic.RoomID]generic.Room
	bookings  map[generic.BookingID]generic.Booking
}

func NewMemory() *Memory {
	return &Memory{
		intervals: make(map[generic.RoomID][]generic.StateInterval),
		events:    make(map[generic.RoomID][]generic.BookingEvent),
		rates:     make(map[generic.RoomTypeID][]generic.Rate),
		rooms:     make(map[generic.RoomID]generic.Room),
		bookings:  make(map[generic.BookingID]generic.Booking),
	}
}

// =============================================================================
// INTERVALS
// =============================================================================

func (m *Memory) LoadIntervals(_ context.Context, roomID generic.RoomID) ([]generic.StateInterval, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]generic.StateInterval(nil), m.intervals[roomID]...), nil
}

func (m *Memory) SaveIntervals(_ context.Context, roomID generic.RoomID, intervals []generic.StateInterval) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveIntervalsLocked(roomID, intervals)
	return nil
}

func (m *Memory) saveIntervalsLocked(roomID generic.RoomID, intervals []generic.StateInterval) {
	if len(intervals) == 0 {
		delete(m.intervals, roomID)
		return
	}
	m.intervals[roomID] = append([]generic.StateInterval(nil), intervals...)
}

func (m *Memory) PurgeIntervals(_ context.Context, roomID generic.RoomID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.intervals[roomID])
	delete(m.intervals, roomID)
	return n, nil
}

// =============================================================================
// EVENTS
// =============================================================================

func (m *Memory) LoadEvents(_ context.Context, roomID generic.RoomID) ([]generic.BookingEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]generic.BookingEvent(nil), m.events[roomID]...), nil
}

func (m *Memory) SaveEvents(_ context.Context, roomID generic.RoomID, events []generic.BookingEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveEventsLocked(roomID, events)
	return nil
}

func (m *Memory) saveEventsLocked(roomID generic.RoomID, events []generic.BookingEvent) {
	if len(events) == 0 {
		delete(m.events, roomID)
		return
	}
	m.events[roomID] = append([]generic.BookingEvent(nil), events...)
}

func (m *Memory) PurgeEvents(_ context.Context, roomID generic.RoomID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.events[roomID])
	delete(m.events, roomID)
	return n, nil
}

func (m *Memory) RoomsForBooking(_ context.Context, bookingID generic.BookingID) ([]generic.RoomID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.roomsForBookingLocked(bookingID), nil
}

func (m *Memory) roomsForBookingLocked(bookingID generic.BookingID) []generic.RoomID {
	var rooms []generic.RoomID
	for roomID, events := range m.events {
		for _, e := range events {
			if e.BookingID == bookingID {
				rooms = append(rooms, roomID)
				break
			}
		}
	}
	sortRooms(rooms)
	return rooms
}

func (m *Memory) TrackedRooms(_ context.Context) ([]generic.RoomID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.trackedRoomsLocked(), nil
}

func (m *Memory) trackedRoomsLocked() []generic.RoomID {
	seen := make(map[generic.RoomID]bool)
	for id := range m.intervals {
		seen[id] = true
	}
	for id := range m.events {
		seen[id] = true
	}
	rooms := make([]generic.RoomID, 0, len(seen))
	for id := range seen {
		rooms = append(rooms, id)
	}
	sortRooms(rooms)
	return rooms
}

// =============================================================================
// RATES
// =============================================================================

func (m *Memory) SaveRate(_ context.Context, rate generic.Rate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rates := m.rates[rate.RoomTypeID]
	for i := range rates {
		if rates[i].ID == rate.ID {
			rates[i] = rate
			return nil
		}
	}
	m.rates[rate.RoomTypeID] = append(rates, rate)
	return nil
}

func (m *Memory) ListRates(_ context.Context, roomTypeID generic.RoomTypeID) ([]generic.Rate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]generic.Rate(nil), m.rates[roomTypeID]...), nil
}

func (m *Memory) PurgeRates(_ context.Context, roomTypeID generic.RoomTypeID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.rates[roomTypeID])
	delete(m.rates, roomTypeID)
	return n, nil
}

// =============================================================================
// ROOMS & BOOKINGS (provider side)
// =============================================================================

func (m *Memory) SaveRoom(_ context.Context, room generic.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[room.ID] = room
	return nil
}

func (m *Memory) GetRoom(_ context.Context, id generic.RoomID) (generic.Room, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[id]
	return room, ok, nil
}

func (m *Memory) ListRoomsByType(_ context.Context, roomTypeID generic.RoomTypeID) ([]generic.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var rooms []generic.Room
	for _, r := range m.rooms {
		if r.RoomTypeID == roomTypeID {
			rooms = append(rooms, r)
		}
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return rooms, nil
}

func (m *Memory) DeleteRoom(_ context.Context, id generic.RoomID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, id)
	return nil
}

func (m *Memory) SaveBooking(_ context.Context, b generic.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[b.ID] = b
	return nil
}

func (m *Memory) GetBooking(_ context.Context, id generic.BookingID) (generic.Booking, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bookings[id]
	return b, ok, nil
}

func (m *Memory) DeleteBooking(_ context.Context, id generic.BookingID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bookings, id)
	return nil
}

func sortRooms(rooms []generic.RoomID) {
	sort.Slice(rooms, func(i, j int) bool { return rooms[i] < rooms[j] })
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(generic.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	// Snapshot current state
	snapshot := tm.snapshot()

	if err := fn(&txMemoryView{parent: tm.Memory}); err != nil {
		// Rollback
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	intervals map[generic.RoomID][]generic.StateInterval
	events    map[generic.RoomID][]generic.BookingEvent
}

func (tm *TxMemory) snapshot() memorySnapshot {
	s := memorySnapshot{
		intervals: make(map[generic.RoomID][]generic.StateInterval, len(tm.intervals)),
		events:    make(map[generic.RoomID][]generic.BookingEvent, len(tm.events)),
	}
	for k, v := range tm.intervals {
		s.intervals[k] = append([]generic.StateInterval(nil), v...)
	}
	for k, v := range tm.events {
		s.events[k] = append([]generic.BookingEvent(nil), v...)
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.intervals = s.intervals
	tm.events = s.events
}

// txMemoryView runs against the parent while WithTx holds its write lock.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) LoadIntervals(_ context.Context, roomID generic.RoomID) ([]generic.StateInterval, error) {
	return append([]generic.StateInterval(nil), tv.parent.intervals[roomID]...), nil
}

func (tv *txMemoryView) SaveIntervals(_ context.Context, roomID generic.RoomID, intervals []generic.StateInterval) error {
	tv.parent.saveIntervalsLocked(roomID, intervals)
	return nil
}

func (tv *txMemoryView) PurgeIntervals(_ context.Context, roomID generic.RoomID) (int, error) {
	n := len(tv.parent.intervals[roomID])
	delete(tv.parent.intervals, roomID)
	return n, nil
}

func (tv *txMemoryView) LoadEvents(_ context.Context, roomID generic.RoomID) ([]generic.BookingEvent, error) {
	return append([]generic.BookingEvent(nil), tv.parent.events[roomID]...), nil
}

func (tv *txMemoryView) SaveEvents(_ context.Context, roomID generic.RoomID, events []generic.BookingEvent) error {
	tv.parent.saveEventsLocked(roomID, events)
	return nil
}

func (tv *txMemoryView) PurgeEvents(_ context.Context, roomID generic.RoomID) (int, error) {
	n := len(tv.parent.events[roomID])
	delete(tv.parent.events, roomID)
	return n, nil
}

func (tv *txMemoryView) RoomsForBooking(_ context.Context, bookingID generic.BookingID) ([]generic.RoomID, error) {
	return tv.parent.roomsForBookingLocked(bookingID), nil
}

func (tv *txMemoryView) TrackedRooms(_ context.Context) ([]generic.RoomID, error) {
	return tv.parent.trackedRoomsLocked(), nil
}
