/*
policy.go - Room state transition rules

PURPOSE:
  Decides whether the ledger may relabel days that are currently in one
  state with another state. Checked for every existing interval (and every
  untracked gap, which counts as available) that a SetState call touches.

DEFAULT TABLE (without force):

  from \ to   available  booked  closed  pending
  available   allow      allow   allow   allow
  booked      owner      owner   -       -
  closed      allow      -       allow   -
  pending     owner      owner   -       owner

  "owner" means the caller is releasing or re-asserting its own booking
  (SetStateOptions.Owned). Only the concierge sets Owned, after checking
  that the booked days belong to the caller's booking event.

  Anything not listed is refused with a ConflictError. Force bypasses the
  table entirely.

EXTENDING:
  Registered custom states start with no rules. Hosts add them:

    policy := generic.DefaultTransitionPolicy()
    policy.Set("maintenance", generic.StateAvailable, generic.RuleAllow)
*/
package generic

// TransitionRule is the verdict for one (from, to) pair.
type TransitionRule int

const (
	RuleDeny TransitionRule = iota
	RuleAllow
	RuleOwnerOnly
)

func (r TransitionRule) String() string {
	switch r {
	case RuleAllow:
		return "allow"
	case RuleOwnerOnly:
		return "owner"
	default:
		return "deny"
	}
}

// TransitionPolicy is a table of transition rules.
// Not safe for concurrent mutation; build it before sharing.
type TransitionPolicy struct {
	rules map[RoomState]map[RoomState]TransitionRule
}

// NewTransitionPolicy returns a policy that denies everything.
func NewTransitionPolicy() *TransitionPolicy {
	return &TransitionPolicy{rules: make(map[RoomState]map[RoomState]TransitionRule)}
}

// DefaultTransitionPolicy returns the conservative default table above.
func DefaultTransitionPolicy() *TransitionPolicy {
	p := NewTransitionPolicy()

	p.Set(StateAvailable, StateAvailable, RuleAllow)
	p.Set(StateAvailable, StateBooked, RuleAllow)
	p.Set(StateAvailable, StateClosed, RuleAllow)
	p.Set(StateAvailable, StatePending, RuleAllow)

	p.Set(StateBooked, StateAvailable, RuleOwnerOnly)
	p.Set(StateBooked, StateBooked, RuleOwnerOnly)

	p.Set(StateClosed, StateClosed, RuleAllow)
	p.Set(StateClosed, StateAvailable, RuleAllow)

	p.Set(StatePending, StateAvailable, RuleOwnerOnly)
	p.Set(StatePending, StateBooked, RuleOwnerOnly)
	p.Set(StatePending, StatePending, RuleOwnerOnly)

	return p
}

// Set defines the rule for one transition.
func (p *TransitionPolicy) Set(from, to RoomState, rule TransitionRule) {
	if p.rules[from] == nil {
		p.rules[from] = make(map[RoomState]TransitionRule)
	}
	p.rules[from][to] = rule
}

// Rule returns the rule for one transition (RuleDeny if undefined).
func (p *TransitionPolicy) Rule(from, to RoomState) TransitionRule {
	return p.rules[from][to]
}

// Permits applies the table to a concrete request.
func (p *TransitionPolicy) Permits(from, to RoomState, opts SetStateOptions) bool {
	if opts.Force {
		return true
	}
	switch p.Rule(from, to) {
	case RuleAllow:
		return true
	case RuleOwnerOnly:
		return opts.Owned
	default:
		return false
	}
}

// IsHeld reports whether a state holds the room for a specific booking,
// i.e. whether releasing it needs ownership.
func IsHeld(s RoomState) bool {
	return s == StateBooked || s == StatePending
}
