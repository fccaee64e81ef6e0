/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements every persistence interface the concierge needs using SQLite,
  and doubles as the room/booking provider for deployments that have no
  host application of their own.

INTERFACES IMPLEMENTED:
  generic.TxStore:             State intervals + booking events, atomically
  generic.RateStore:           Room-type rates (purged by the cascade)
  concierge.RoomProvider:      Room records
  concierge.RoomRemover:       Room deletion at the end of a cascade
  concierge.BookingProvider:   Booking records

REPLACE-PER-ROOM:
  Intervals and events are saved as a whole set per room: the room's rows
  are deleted and the new set inserted inside one SQL transaction, so a
  reader never observes half a set.

KEY TABLES:
  state_intervals: Normalized ledger runs (room_id, start_date, end_date, state)
  booking_events:  Reserved nights (room_id, booking_id, start_date, end_date)
  rooms:           Room records with their room type
  bookings:        Booking records (check_in, check_out exclusive)
  rates:           Rates per room type (amount stored as decimal text)
  audit_runs:      History of scheduled audits

CONCURRENCY:
  Uses sync.RWMutex for thread-safety and a single connection, since SQLite
  allows one writer at a time. WithTx holds the write lock for the whole
  transaction; the transactional view never takes the lock again.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/concierge.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  c := concierge.New(store, store, store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/room-concierge/generic"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: SQLite has a single writer, and ":memory:" databases
	// are private to their connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Ledger runs, one row per normalized interval
	CREATE TABLE IF NOT EXISTS state_intervals (
		room_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		state TEXT NOT NULL,
		PRIMARY KEY (room_id, start_date)
	);

	-- Booking events; a trimmed booking may own several fragments
	CREATE TABLE IF NOT EXISTS booking_events (
		room_id TEXT NOT NULL,
		booking_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		PRIMARY KEY (room_id, start_date)
	);

	CREATE INDEX IF NOT EXISTS idx_booking_events_booking
		ON booking_events(booking_id);

	-- Rooms
	CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		room_type_id TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rooms_type
		ON rooms(room_type_id);

	-- Bookings
	CREATE TABLE IF NOT EXISTS bookings (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL,
		check_in TEXT NOT NULL,
		check_out TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Rates
	CREATE TABLE IF NOT EXISTS rates (
		id TEXT PRIMARY KEY,
		room_type_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rates_type
		ON rates(room_type_id);

	-- Audit runs (scheduled consistency checks)
	CREATE TABLE IF NOT EXISTS audit_runs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		findings INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL,
		completed_at TEXT
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// inTx runs fn in a fresh SQL transaction.
func (s *Store) inTx(ctx context.Context, fn func(q querier) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(sqlTx); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// =============================================================================
// INTERVAL STORE (generic.IntervalStore interface)
// =============================================================================

func (s *Store) LoadIntervals(ctx context.Context, roomID generic.RoomID) ([]generic.StateInterval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadIntervals(ctx, s.db, roomID)
}

func (s *Store) SaveIntervals(ctx context.Context, roomID generic.RoomID, intervals []generic.StateInterval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(q querier) error { return saveIntervals(ctx, q, roomID, intervals) })
}

func (s *Store) PurgeIntervals(ctx context.Context, roomID generic.RoomID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteWhere(ctx, s.db, "DELETE FROM state_intervals WHERE room_id = ?", roomID)
}

func loadIntervals(ctx context.Context, q querier, roomID generic.RoomID) ([]generic.StateInterval, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT start_date, end_date, state FROM state_intervals WHERE room_id = ? ORDER BY start_date ASC",
		roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query intervals: %w", err)
	}
	defer rows.Close()

	var intervals []generic.StateInterval
	for rows.Next() {
		var start, end, state string
		if err := rows.Scan(&start, &end, &state); err != nil {
			return nil, fmt.Errorf("failed to scan interval: %w", err)
		}
		period, err := parsePeriod(start, end)
		if err != nil {
			return nil, err
		}
		intervals = append(intervals, generic.StateInterval{RoomID: roomID, Period: period, State: generic.RoomState(state)})
	}
	return intervals, rows.Err()
}

func saveIntervals(ctx context.Context, q querier, roomID generic.RoomID, intervals []generic.StateInterval) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM state_intervals WHERE room_id = ?", roomID); err != nil {
		return fmt.Errorf("failed to clear intervals: %w", err)
	}
	for _, iv := range intervals {
		_, err := q.ExecContext(ctx,
			"INSERT INTO state_intervals (room_id, start_date, end_date, state) VALUES (?, ?, ?, ?)",
			roomID, iv.Period.Start.String(), iv.Period.End.String(), string(iv.State),
		)
		if err != nil {
			return fmt.Errorf("failed to insert interval %s: %w", iv.Period, err)
		}
	}
	return nil
}

// =============================================================================
// EVENT STORE (generic.EventStore interface)
// =============================================================================

func (s *Store) LoadEvents(ctx context.Context, roomID generic.RoomID) ([]generic.BookingEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadEvents(ctx, s.db, roomID)
}

func (s *Store) SaveEvents(ctx context.Context, roomID generic.RoomID, events []generic.BookingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(q querier) error { return saveEvents(ctx, q, roomID, events) })
}

func (s *Store) PurgeEvents(ctx context.Context, roomID generic.RoomID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteWhere(ctx, s.db, "DELETE FROM booking_events WHERE room_id = ?", roomID)
}

func (s *Store) RoomsForBooking(ctx context.Context, bookingID generic.BookingID) ([]generic.RoomID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return roomsForBooking(ctx, s.db, bookingID)
}

func (s *Store) TrackedRooms(ctx context.Context) ([]generic.RoomID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return trackedRooms(ctx, s.db)
}

func loadEvents(ctx context.Context, q querier, roomID generic.RoomID) ([]generic.BookingEvent, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT booking_id, start_date, end_date FROM booking_events WHERE room_id = ? ORDER BY start_date ASC, booking_id ASC",
		roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []generic.BookingEvent
	for rows.Next() {
		var bookingID, start, end string
		if err := rows.Scan(&bookingID, &start, &end); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		period, err := parsePeriod(start, end)
		if err != nil {
			return nil, err
		}
		events = append(events, generic.BookingEvent{RoomID: roomID, BookingID: generic.BookingID(bookingID), Period: period})
	}
	return events, rows.Err()
}

func saveEvents(ctx context.Context, q querier, roomID generic.RoomID, events []generic.BookingEvent) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM booking_events WHERE room_id = ?", roomID); err != nil {
		return fmt.Errorf("failed to clear events: %w", err)
	}
	for _, e := range events {
		_, err := q.ExecContext(ctx,
			"INSERT INTO booking_events (room_id, booking_id, start_date, end_date) VALUES (?, ?, ?, ?)",
			roomID, string(e.BookingID), e.Period.Start.String(), e.Period.End.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert event %s %s: %w", e.BookingID, e.Period, err)
		}
	}
	return nil
}

func roomsForBooking(ctx context.Context, q querier, bookingID generic.BookingID) ([]generic.RoomID, error) {
	return queryRoomIDs(ctx, q,
		"SELECT DISTINCT room_id FROM booking_events WHERE booking_id = ? ORDER BY room_id",
		string(bookingID),
	)
}

func trackedRooms(ctx context.Context, q querier) ([]generic.RoomID, error) {
	return queryRoomIDs(ctx, q, `
		SELECT room_id FROM state_intervals
		UNION
		SELECT room_id FROM booking_events
		ORDER BY room_id
	`)
}

func queryRoomIDs(ctx context.Context, q querier, query string, args ...any) ([]generic.RoomID, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []generic.RoomID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, generic.RoomID(id))
	}
	return ids, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE (generic.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store generic.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(q querier) error {
		return fn(&txStore{q: q})
	})
}

// txStore runs every call on the open transaction.
type txStore struct {
	q querier
}

func (ts *txStore) LoadIntervals(ctx context.Context, roomID generic.RoomID) ([]generic.StateInterval, error) {
	return loadIntervals(ctx, ts.q, roomID)
}

func (ts *txStore) SaveIntervals(ctx context.Context, roomID generic.RoomID, intervals []generic.StateInterval) error {
	return saveIntervals(ctx, ts.q, roomID, intervals)
}

func (ts *txStore) PurgeIntervals(ctx context.Context, roomID generic.RoomID) (int, error) {
	return deleteWhere(ctx, ts.q, "DELETE FROM state_intervals WHERE room_id = ?", roomID)
}

func (ts *txStore) LoadEvents(ctx context.Context, roomID generic.RoomID) ([]generic.BookingEvent, error) {
	return loadEvents(ctx, ts.q, roomID)
}

func (ts *txStore) SaveEvents(ctx context.Context, roomID generic.RoomID, events []generic.BookingEvent) error {
	return saveEvents(ctx, ts.q, roomID, events)
}

func (ts *txStore) PurgeEvents(ctx context.Context, roomID generic.RoomID) (int, error) {
	return deleteWhere(ctx, ts.q, "DELETE FROM booking_events WHERE room_id = ?", roomID)
}

func (ts *txStore) RoomsForBooking(ctx context.Context, bookingID generic.BookingID) ([]generic.RoomID, error) {
	return roomsForBooking(ctx, ts.q, bookingID)
}

func (ts *txStore) TrackedRooms(ctx context.Context) ([]generic.RoomID, error) {
	return trackedRooms(ctx, ts.q)
}

// =============================================================================
// RATE STORE (generic.RateStore interface)
// =============================================================================

// SaveRate saves a rate.
func (s *Store) SaveRate(ctx context.Context, rate generic.Rate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO rates (id, room_type_id, start_date, end_date, amount, currency)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			room_type_id = excluded.room_type_id,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			amount = excluded.amount,
			currency = excluded.currency
	`

	_, err := s.db.ExecContext(ctx, query,
		rate.ID, string(rate.RoomTypeID),
		rate.Period.Start.String(), rate.Period.End.String(),
		rate.Amount.String(), rate.Currency,
	)
	return err
}

// ListRates returns the rates of a room type ordered by start.
func (s *Store) ListRates(ctx context.Context, roomTypeID generic.RoomTypeID) ([]generic.Rate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, start_date, end_date, amount, currency FROM rates WHERE room_type_id = ? ORDER BY start_date, id",
		string(roomTypeID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rates []generic.Rate
	for rows.Next() {
		var r generic.Rate
		var start, end, amount string
		if err := rows.Scan(&r.ID, &start, &end, &amount, &r.Currency); err != nil {
			return nil, err
		}
		if r.Period, err = parsePeriod(start, end); err != nil {
			return nil, err
		}
		if r.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("rate %s: bad amount %q: %w", r.ID, amount, err)
		}
		r.RoomTypeID = roomTypeID
		rates = append(rates, r)
	}
	return rates, rows.Err()
}

// PurgeRates deletes every rate of a room type.
func (s *Store) PurgeRates(ctx context.Context, roomTypeID generic.RoomTypeID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteWhere(ctx, s.db, "DELETE FROM rates WHERE room_type_id = ?", roomTypeID)
}

// =============================================================================
// ROOM STORE (concierge.RoomProvider / RoomRemover)
// =============================================================================

// SaveRoom saves a room.
func (s *Store) SaveRoom(ctx context.Context, room generic.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO rooms (id, room_type_id, name, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			room_type_id = excluded.room_type_id,
			name = excluded.name
	`

	_, err := s.db.ExecContext(ctx, query,
		string(room.ID), string(room.RoomTypeID), room.Name,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetRoom retrieves a room by ID.
func (s *Store) GetRoom(ctx context.Context, id generic.RoomID) (generic.Room, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var room generic.Room
	err := s.db.QueryRowContext(ctx,
		"SELECT id, room_type_id, name FROM rooms WHERE id = ?",
		string(id),
	).Scan(&room.ID, &room.RoomTypeID, &room.Name)

	if errors.Is(err, sql.ErrNoRows) {
		return generic.Room{}, false, nil
	}
	if err != nil {
		return generic.Room{}, false, err
	}
	return room, true, nil
}

// ListRoomsByType returns the rooms of a room type ordered by ID.
func (s *Store) ListRoomsByType(ctx context.Context, roomTypeID generic.RoomTypeID) ([]generic.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, room_type_id, name FROM rooms WHERE room_type_id = ? ORDER BY id",
		string(roomTypeID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []generic.Room
	for rows.Next() {
		var room generic.Room
		if err := rows.Scan(&room.ID, &room.RoomTypeID, &room.Name); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// DeleteRoom removes a room record.
func (s *Store) DeleteRoom(ctx context.Context, id generic.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM rooms WHERE id = ?", string(id))
	return err
}

// =============================================================================
// BOOKING STORE (concierge.BookingProvider)
// =============================================================================

// SaveBooking saves a booking record.
func (s *Store) SaveBooking(ctx context.Context, b generic.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO bookings (id, room_id, check_in, check_out, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			room_id = excluded.room_id,
			check_in = excluded.check_in,
			check_out = excluded.check_out,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		string(b.ID), string(b.RoomID), b.CheckIn.String(), b.CheckOut.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetBooking retrieves a booking by ID. A missing record is (zero, false, nil).
func (s *Store) GetBooking(ctx context.Context, id generic.BookingID) (generic.Booking, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var b generic.Booking
	var checkIn, checkOut string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, room_id, check_in, check_out FROM bookings WHERE id = ?",
		string(id),
	).Scan(&b.ID, &b.RoomID, &checkIn, &checkOut)

	if errors.Is(err, sql.ErrNoRows) {
		return generic.Booking{}, false, nil
	}
	if err != nil {
		return generic.Booking{}, false, err
	}
	if b.CheckIn, err = generic.ParseDate(checkIn); err != nil {
		return generic.Booking{}, false, err
	}
	if b.CheckOut, err = generic.ParseDate(checkOut); err != nil {
		return generic.Booking{}, false, err
	}
	return b, true, nil
}

// DeleteBooking removes a booking record.
func (s *Store) DeleteBooking(ctx context.Context, id generic.BookingID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM bookings WHERE id = ?", string(id))
	return err
}

// =============================================================================
// AUDIT RUNS STORE
// =============================================================================

// AuditRun records one scheduled audit.
type AuditRun struct {
	ID          string
	Status      string // running, completed, failed
	Findings    int
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// SaveAuditRun saves an audit run.
func (s *Store) SaveAuditRun(ctx context.Context, r AuditRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO audit_runs (id, status, findings, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			findings = excluded.findings,
			error = excluded.error,
			completed_at = excluded.completed_at
	`

	var completedAt *string
	if r.CompletedAt != nil {
		s := r.CompletedAt.UTC().Format(time.RFC3339)
		completedAt = &s
	}

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Status, r.Findings, r.Error,
		r.StartedAt.UTC().Format(time.RFC3339), completedAt,
	)
	return err
}

// ListAuditRuns returns the most recent audit runs first.
func (s *Store) ListAuditRuns(ctx context.Context, limit int) ([]AuditRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, findings, error, started_at, completed_at
		FROM audit_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []AuditRun
	for rows.Next() {
		var r AuditRun
		var startedAt string
		var completedAt sql.NullString
		if err := rows.Scan(&r.ID, &r.Status, &r.Findings, &r.Error, &startedAt, &completedAt); err != nil {
			return nil, err
		}
		if r.StartedAt, err = time.Parse(time.RFC3339, startedAt); err != nil {
			return nil, fmt.Errorf("audit run %s: bad started_at %q: %w", r.ID, startedAt, err)
		}
		if completedAt.Valid {
			t, err := time.Parse(time.RFC3339, completedAt.String)
			if err != nil {
				return nil, fmt.Errorf("audit run %s: bad completed_at %q: %w", r.ID, completedAt.String, err)
			}
			r.CompletedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"state_intervals", "booking_events", "rooms", "bookings", "rates", "audit_runs"}
	return s.inTx(ctx, func(q querier) error {
		for _, table := range tables {
			if _, err := q.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return err
			}
		}
		return nil
	})
}

func deleteWhere(ctx context.Context, q querier, query string, arg any) (int, error) {
	res, err := q.ExecContext(ctx, query, fmt.Sprint(arg))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func parsePeriod(start, end string) (generic.Period, error) {
	s, err := generic.ParseDate(start)
	if err != nil {
		return generic.Period{}, err
	}
	e, err := generic.ParseDate(end)
	if err != nil {
		return generic.Period{}, err
	}
	return generic.NewPeriod(s, e, false)
}
