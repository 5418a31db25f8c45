package constraints

import "github.com/zero-day-ai/fuse/core"

// Register adds the constraint types of this package to r.
func Register(r *core.Registry) error {
	if err := core.RegisterConstraint(r, PriorConstraintType, UnmarshalPriorConstraint); err != nil {
		return err
	}
	return core.RegisterConstraint(r, RelativeConstraintType, UnmarshalRelativeConstraint)
}
