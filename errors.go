package microsim

import (
	"github.com/pkg/errors"
)

var (
	ErrNoPath           = errors.New("No path found")
	ErrUnknownRoad      = errors.New("Unknown road")
	ErrUnknownLane      = errors.New("Unknown lane")
	ErrUnknownJunction  = errors.New("Unknown junction")
	ErrUnknownZone      = errors.New("Unknown zone")
	ErrBadConfig        = errors.New("Bad configuration")
	ErrNoCapacity       = errors.New("No capacity left")
	ErrDuplicateID      = errors.New("Duplicate identifier")
	ErrSimulationLocked = errors.New("Network can't be modified after simulation has been created")
)
