package series

import (
	"github.com/SSSOCPaulCote/gux"
	"github.com/splotd/splotd/errors"
)

// LiveData is the payload of a live-data state update: the tick just applied
// and the names present in that batch
type LiveData struct {
	Tick  uint64
	Names []string
}

var (
	LiveDataInitialState             = LiveData{}
	LiveDataReducer      gux.Reducer = func(s interface{}, a gux.Action) (interface{}, error) {
		// assert type of s
		_, ok := s.(LiveData)
		if !ok {
			return nil, errors.ErrInvalidType
		}
		// switch case action
		switch a.Type {
		case "rtd/update":
			// assert type of payload
			newState, ok := a.Payload.(LiveData)
			if !ok {
				return nil, errors.ErrInvalidType
			}
			return newState, nil
		default:
			return nil, errors.ErrInvalidAction
		}
	}
)
