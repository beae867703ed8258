package state

// validTransitions contains the permitted transitions besides the reset to idle.
var validTransitions = map[State][]State{
	StateIdle: {
		StateAwaitingToken,
		StateAwaitingNetwork,
		StateAwaitingAmount,
		StateConfirming,
	},
	StateAwaitingToken: {
		StateAwaitingNetwork,
		StateAwaitingAmount,
		StateConfirming,
	},
	StateAwaitingNetwork: {
		StateAwaitingAmount,
		StateConfirming,
	},
	StateAwaitingAmount: {
		StateConfirming,
	},
}

// IsTransitionAllowed reports whether moving from one state to another is valid.
// Staying put and returning to idle are always allowed.
func IsTransitionAllowed(from, to State) bool {
	if from == to || to == StateIdle {
		return true
	}

	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}

	for _, state := range allowed {
		if state == to {
			return true
		}
	}

	return false
}
