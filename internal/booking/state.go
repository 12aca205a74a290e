package booking

import "github.com/iliyamo/campus-hall-booking/internal/model"

// transitions lists, for each state, the states it may move to.
// Rejected and cancelled-by-user are terminal.
var transitions = map[model.BookingState][]model.BookingState{
	model.StatePending:          {model.StateConfirmed, model.StateRejected, model.StateCancelledByUser},
	model.StateConfirmed:        {model.StateCancelledByAdmin},
	model.StateCancelledByAdmin: {model.StateConfirmed},
	model.StateRejected:         {},
	model.StateCancelledByUser:  {},
}

// ValidState reports whether s is one of the named lifecycle states.
func ValidState(s model.BookingState) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether from -> to is an allowed transition.
func CanTransition(from, to model.BookingState) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s model.BookingState) bool {
	return len(transitions[s]) == 0
}

// Occupies reports whether a booking in state s reserves its slot.
func Occupies(s model.BookingState) bool {
	return s == model.StateConfirmed
}

// Flags projects a state onto the legacy (active, verify, reject) flags.
func Flags(s model.BookingState) (active, verify, reject bool) {
	switch s {
	case model.StatePending:
		return true, false, false
	case model.StateConfirmed:
		return true, true, false
	case model.StateRejected:
		return true, true, true
	case model.StateCancelledByAdmin:
		return false, true, false
	}
	return false, false, false
}

// StateFromFlags maps legacy flags back to a state.  Combinations that
// no lifecycle state produces are rejected.
func StateFromFlags(active, verify, reject bool) (model.BookingState, error) {
	for s := range transitions {
		a, v, r := Flags(s)
		if a == active && v == verify && r == reject {
			return s, nil
		}
	}
	return "", ErrInvalidFlags
}
