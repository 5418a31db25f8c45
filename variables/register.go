package variables

import (
	"github.com/zero-day-ai/fuse/core"
)

// Register adds every variable type in this package to r.
func Register(r *core.Registry) error {
	if err := core.RegisterVariable(r, PointVariableType, UnmarshalPointVariable); err != nil {
		return err
	}
	return core.RegisterVariable(r, DummyVariableType, UnmarshalDummyVariable)
}
