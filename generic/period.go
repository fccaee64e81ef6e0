package generic

// =============================================================================
// PERIOD - The core concept for availability
// =============================================================================

// Period is an immutable half-open range of days [Start, End).
//
// A booking checking in on Jan 10 and out on Jan 15 occupies the nights of
// Jan 10..14, so its period is [Jan 10, Jan 15). Adjacent periods
// (a.End == b.Start) touch but do not overlap, which is what lets a guest
// check in on the day another checks out.
//
// Construct with NewPeriod; the zero Period is the empty period.
type Period struct {
	Start Date
	End   Date
}

// NewPeriod builds a normalized period. Inclusive ranges ([start, end]) are
// converted to half-open form by moving End forward one day.
// Returns *InvalidRangeError if the normalized range is empty or inverted.
func NewPeriod(start, end Date, inclusiveEnd bool) (Period, error) {
	normalizedEnd := end
	if inclusiveEnd {
		normalizedEnd = end.AddDays(1)
	}
	if start.IsZero() || end.IsZero() || !start.Before(normalizedEnd) {
		return Period{}, &InvalidRangeError{Start: start, End: end, InclusiveEnd: inclusiveEnd}
	}
	return Period{Start: start, End: normalizedEnd}, nil
}

// MustPeriod builds a half-open period from YYYY-MM-DD strings and panics on
// invalid input. Intended for fixtures and tests.
func MustPeriod(start, end string) Period {
	p, err := NewPeriod(MustParseDate(start), MustParseDate(end), false)
	if err != nil {
		panic(err)
	}
	return p
}

// IsEmpty reports whether the period covers no day.
func (p Period) IsEmpty() bool { return !p.Start.Before(p.End) }

// Nights returns the number of days covered.
func (p Period) Nights() int {
	if p.IsEmpty() {
		return 0
	}
	return DaysBetween(p.Start, p.End)
}

// Contains returns true if the day is within [Start, End).
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.Before(p.End)
}

// Covers returns true if other lies entirely inside p.
func (p Period) Covers(other Period) bool {
	return other.Start.AfterOrEqual(p.Start) && other.End.BeforeOrEqual(p.End)
}

// Overlaps reports whether the two periods share at least one day.
func (p Period) Overlaps(other Period) bool {
	if p.IsEmpty() || other.IsEmpty() {
		return false
	}
	return p.Start.Before(other.End) && other.Start.Before(p.End)
}

// Touches reports whether other begins exactly where p ends, or vice versa.
func (p Period) Touches(other Period) bool {
	return p.End.Equal(other.Start) || other.End.Equal(p.Start)
}

// Intersect returns the shared sub-range, if any.
func (p Period) Intersect(other Period) (Period, bool) {
	if !p.Overlaps(other) {
		return Period{}, false
	}
	return Period{Start: MaxDate(p.Start, other.Start), End: MinDate(p.End, other.End)}, true
}

// Subtract returns what remains of p once other is removed: zero, one or two
// periods, in order.
func (p Period) Subtract(other Period) []Period {
	if !p.Overlaps(other) {
		if p.IsEmpty() {
			return nil
		}
		return []Period{p}
	}
	var rest []Period
	if p.Start.Before(other.Start) {
		rest = append(rest, Period{Start: p.Start, End: other.Start})
	}
	if other.End.Before(p.End) {
		rest = append(rest, Period{Start: other.End, End: p.End})
	}
	return rest
}

// Equal compares normalized bounds.
func (p Period) Equal(other Period) bool {
	return p.Start.Equal(other.Start) && p.End.Equal(other.End)
}

// Days returns every day in the period.
func (p Period) Days() []Date {
	var days []Date
	for d := p.Start; d.Before(p.End); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + ")"
}
