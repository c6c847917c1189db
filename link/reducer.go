package link

import (
	"github.com/SSSOCPaulCote/gux"
	"github.com/splotd/splotd/errors"
)

// State is the link state visible to consumers. Transitions counts the
// edge-triggered state changes dispatched so far; Recovered distinguishes a
// reconnect from the first successful connect
type State struct {
	Connected   bool
	Recovered   bool
	Transitions int
}

var (
	InitialState             = State{}
	LinkReducer  gux.Reducer = func(s interface{}, a gux.Action) (interface{}, error) {
		// assert type of s
		oldState, ok := s.(State)
		if !ok {
			return nil, errors.ErrInvalidType
		}
		// switch case action
		switch a.Type {
		case "link/connected":
			return State{Connected: true, Transitions: oldState.Transitions + 1}, nil
		case "link/reconnected":
			return State{Connected: true, Recovered: true, Transitions: oldState.Transitions + 1}, nil
		case "link/disconnected":
			return State{Transitions: oldState.Transitions + 1}, nil
		default:
			return nil, errors.ErrInvalidAction
		}
	}
)
