/*
Package concierge binds the availability ledger and the booking event
registry into single logical operations.

PURPOSE:
  The ledger says what state a room is in; the event registry says which
  booking holds which nights. The concierge is the only component allowed
  to change both, and it keeps them consistent:

    every booking event lies inside a held (booked/pending) ledger run

OPERATIONS:
  SetRoomState     relabel a room's days (policy-checked unless forced)
  SetBookingEvent  add a booking's event, or clear it (Clear option)
  SaveBooking      make ledger + events match a booking's current dates
  DeleteBooking    free the room (forced), then clear the booking's events
  PurgeRoomType    remove every interval, event, room and rate of a type
  Audit            list events no longer covered by a held run

CONCURRENCY:
  Every mutation runs under the room's lock (generic.Locker) with a bounded
  wait; lock expiry surfaces as *generic.LockTimeoutError. Different rooms
  proceed in parallel. The cascade locks one room at a time.

CONSISTENCY:
  Validate-then-commit: the next interval and event sets are computed and
  checked in memory, then written. When the store is a generic.TxStore both
  writes commit in one transaction.

SEE ALSO:
  - hooks.go: Lifecycle entry points
  - generic/ledger.go, generic/events.go: The two stores' algebra
*/
package concierge

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/room-concierge/generic"
)

// DefaultLockTimeout bounds how long an operation waits for a room lock.
const DefaultLockTimeout = 5 * time.Second

// Concierge orchestrates ledger and event changes per room.
type Concierge struct {
	store    generic.Store
	rooms    RoomProvider
	bookings BookingProvider
	rates    generic.RateStore
	locks    generic.Locker
	policy   *generic.TransitionPolicy

	lockTimeout time.Duration
	logger      zerolog.Logger
	metrics     *Metrics
}

// Option configures a Concierge.
type Option func(*Concierge)

// WithLocker replaces the in-process room locks (e.g. with a Redis locker).
func WithLocker(l generic.Locker) Option { return func(c *Concierge) { c.locks = l } }

// WithLockTimeout bounds lock waits.
func WithLockTimeout(d time.Duration) Option {
	return func(c *Concierge) {
		if d > 0 {
			c.lockTimeout = d
		}
	}
}

// WithRates sets the rate collaborator purged by the room-type cascade.
func WithRates(r generic.RateStore) Option { return func(c *Concierge) { c.rates = r } }

// WithPolicy replaces the default transition policy.
func WithPolicy(p *generic.TransitionPolicy) Option { return func(c *Concierge) { c.policy = p } }

func WithLogger(l zerolog.Logger) Option { return func(c *Concierge) { c.logger = l } }

func WithMetrics(m *Metrics) Option { return func(c *Concierge) { c.metrics = m } }

// New creates a concierge. If store also implements generic.RateStore it is
// used for rates unless WithRates says otherwise.
func New(store generic.Store, rooms RoomProvider, bookings BookingProvider, opts ...Option) *Concierge {
	c := &Concierge{
		store:       store,
		rooms:       rooms,
		bookings:    bookings,
		locks:       generic.NewRoomLocks(),
		policy:      generic.DefaultTransitionPolicy(),
		lockTimeout: DefaultLockTimeout,
		logger:      zerolog.Nop(),
	}
	if rs, ok := store.(generic.RateStore); ok {
		c.rates = rs
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "concierge").Logger()
	return c
}

// StateOptions tune SetRoomState.
type StateOptions struct {
	// Force relabels regardless of the transition policy.
	Force bool

	// Owner lets a booking release or re-assert its own nights. The held
	// days in the period must all lie inside Owner's events on the room.
	Owner generic.BookingID
}

// EventOptions tune SetBookingEvent.
type EventOptions struct {
	// Clear removes the booking's events intersecting the period instead of
	// adding one.
	Clear bool
}

// =============================================================================
// CORE OPERATIONS
// =============================================================================

// SetRoomState relabels period as state on the room, under the room lock.
func (c *Concierge) SetRoomState(ctx context.Context, roomID generic.RoomID, period generic.Period, state generic.RoomState, opts StateOptions) (err error) {
	defer func() { c.metrics.observe("set_room_state", err) }()

	if _, err := c.requireRoom(ctx, roomID); err != nil {
		return err
	}
	return c.withRoom(ctx, roomID, func(ctx context.Context) error {
		return c.setRoomStateLocked(ctx, c.store, roomID, period, state, opts)
	})
}

// SetBookingEvent adds the booking's event on its room for period, or with
// opts.Clear removes the booking's events intersecting period. It returns
// the number of events added or removed.
func (c *Concierge) SetBookingEvent(ctx context.Context, bookingID generic.BookingID, period generic.Period, opts EventOptions) (n int, err error) {
	defer func() { c.metrics.observe("set_booking_event", err) }()

	booking, err := c.requireBooking(ctx, bookingID)
	if err != nil {
		return 0, err
	}
	if _, err := c.requireRoom(ctx, booking.RoomID); err != nil {
		return 0, err
	}
	err = c.withRoom(ctx, booking.RoomID, func(ctx context.Context) error {
		n, err = c.setBookingEventLocked(ctx, c.store, booking.RoomID, bookingID, period, opts)
		return err
	})
	return n, err
}

func (c *Concierge) setRoomStateLocked(ctx context.Context, s generic.Store, roomID generic.RoomID, period generic.Period, state generic.RoomState, opts StateOptions) error {
	ledgerOpts := generic.SetStateOptions{Force: opts.Force}
	if opts.Owner != "" && !opts.Force {
		owned, err := c.ownsHeldDays(ctx, s, roomID, period, opts.Owner)
		if err != nil {
			return err
		}
		ledgerOpts.Owned = owned
	}
	return generic.NewLedger(s, c.policy).SetState(ctx, roomID, period, state, ledgerOpts)
}

func (c *Concierge) setBookingEventLocked(ctx context.Context, s generic.Store, roomID generic.RoomID, bookingID generic.BookingID, period generic.Period, opts EventOptions) (int, error) {
	registry := generic.NewEventRegistry(s)
	if opts.Clear {
		return registry.ClearEvents(ctx, roomID, period, generic.ClearOptions{Clear: true, BookingID: bookingID})
	}
	if err := registry.AddEvent(ctx, roomID, bookingID, period); err != nil {
		return 0, err
	}
	return 1, nil
}

// ownsHeldDays reports whether every held day of period on the room lies
// inside one of the booking's events.
func (c *Concierge) ownsHeldDays(ctx context.Context, s generic.Store, roomID generic.RoomID, period generic.Period, bookingID generic.BookingID) (bool, error) {
	intervals, err := s.LoadIntervals(ctx, roomID)
	if err != nil {
		return false, err
	}
	events, err := s.LoadEvents(ctx, roomID)
	if err != nil {
		return false, err
	}
	return heldDaysCovered(intervals, period, generic.FilterBooking(events, bookingID)), nil
}

func heldDaysCovered(intervals []generic.StateInterval, period generic.Period, own []generic.BookingEvent) bool {
	for _, iv := range intervals {
		if !generic.IsHeld(iv.State) {
			continue
		}
		overlap, ok := iv.Period.Intersect(period)
		if !ok {
			continue
		}
		if !coveredBy(overlap, own) {
			return false
		}
	}
	return true
}

// coveredBy reports whether the events together cover every day of p.
func coveredBy(p generic.Period, events []generic.BookingEvent) bool {
	rest := []generic.Period{p}
	for _, e := range events {
		var next []generic.Period
		for _, r := range rest {
			next = append(next, r.Subtract(e.Period)...)
		}
		rest = next
		if len(rest) == 0 {
			return true
		}
	}
	return len(rest) == 0
}

// =============================================================================
// LOOKUPS & LOCKING
// =============================================================================

func (c *Concierge) requireRoom(ctx context.Context, roomID generic.RoomID) (generic.Room, error) {
	room, ok, err := c.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return generic.Room{}, err
	}
	if !ok {
		return generic.Room{}, &generic.NotFoundError{Kind: "room", ID: string(roomID)}
	}
	return room, nil
}

func (c *Concierge) requireBooking(ctx context.Context, bookingID generic.BookingID) (generic.Booking, error) {
	booking, ok, err := c.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return generic.Booking{}, err
	}
	if !ok {
		return generic.Booking{}, &generic.NotFoundError{Kind: "booking", ID: string(bookingID)}
	}
	return booking, nil
}

// withRoom runs fn holding the room's lock. The wait is bounded by the
// configured lock timeout; fn itself runs on the caller's context.
func (c *Concierge) withRoom(ctx context.Context, roomID generic.RoomID, fn func(ctx context.Context) error) error {
	waitCtx, cancel := context.WithTimeout(ctx, c.lockTimeout)
	start := time.Now()
	unlock, err := c.locks.Lock(waitCtx, roomID)
	cancel()
	c.metrics.observeLockWait(time.Since(start))
	if err != nil {
		c.logger.Warn().Err(err).Str("room", string(roomID)).Msg("room lock not acquired")
		return err
	}
	defer unlock()
	return fn(ctx)
}
