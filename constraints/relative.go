package constraints

import (
	"slices"

	"github.com/zero-day-ai/fuse/core"
	"github.com/zero-day-ai/fuse/fuseerr"
	"github.com/zero-day-ai/fuse/id"
	"github.com/zero-day-ai/fuse/wire"
	"gonum.org/v1/gonum/mat"
)

// RelativeConstraintType is the registered type name of RelativeConstraint.
const RelativeConstraintType = "RelativeConstraint"

// RelativeConstraint measures the difference to − from between two variables
// of equal size.
type RelativeConstraint struct {
	uuid     id.ID
	from     id.ID
	to       id.ID
	delta    []float64
	sqrtInfo *mat.Dense
}

// NewRelativeConstraint constrains to − from to delta with the given
// covariance. Both variables must have len(delta) components.
func NewRelativeConstraint(from, to core.Variable, delta []float64, covariance mat.Matrix) (*RelativeConstraint, error) {
	const op = "NewRelativeConstraint"
	if from == nil || to == nil {
		return nil, fuseerr.InvalidArgument(op, "variable is nil")
	}
	if from.ID() == to.ID() {
		return nil, fuseerr.InvalidArgument(op, "variable %s related to itself", from.ID())
	}
	n := from.Size()
	if to.Size() != n {
		return nil, fuseerr.InvalidArgument(op, "variable sizes differ: %d and %d", n, to.Size())
	}
	if len(delta) != n {
		return nil, fuseerr.InvalidArgument(op, "delta has %d entries, expected %d", len(delta), n)
	}
	if !finite(delta) {
		return nil, fuseerr.InvalidArgument(op, "delta is not finite")
	}
	if covariance == nil {
		return nil, fuseerr.InvalidArgument(op, "covariance is nil")
	}
	if r, c := covariance.Dims(); r != n || c != n {
		return nil, fuseerr.InvalidArgument(op, "covariance is %dx%d, expected %dx%d", r, c, n, n)
	}
	sqrtInfo, err := SqrtInformation(covariance)
	if err != nil {
		return nil, err
	}
	c := &RelativeConstraint{
		from:     from.ID(),
		to:       to.ID(),
		delta:    slices.Clone(delta),
		sqrtInfo: sqrtInfo,
	}
	if c.uuid, _, err = seal(RelativeConstraintType, c.body()); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *RelativeConstraint) body() []byte {
	w := wire.NewWriter(64)
	w.ID(c.from)
	w.ID(c.to)
	w.Float64s(c.delta)
	writeMatrix(w, c.sqrtInfo)
	return w.Bytes()
}

func (c *RelativeConstraint) Type() string { return RelativeConstraintType }
func (c *RelativeConstraint) ID() id.ID    { return c.uuid }

// From returns the identifier of the first variable.
func (c *RelativeConstraint) From() id.ID { return c.from }

// To returns the identifier of the second variable.
func (c *RelativeConstraint) To() id.ID { return c.to }

// Variables implements core.Constraint. The order is from, to.
func (c *RelativeConstraint) Variables() []id.ID { return []id.ID{c.from, c.to} }

// Delta returns a copy of the measured difference.
func (c *RelativeConstraint) Delta() []float64 { return slices.Clone(c.delta) }

// SqrtInformation returns a copy of the square root information matrix.
func (c *RelativeConstraint) SqrtInformation() *mat.Dense { return mat.DenseCopyOf(c.sqrtInfo) }

// Covariance returns the covariance implied by the square root information.
func (c *RelativeConstraint) Covariance() (*mat.Dense, error) {
	return RecoverCovariance(c.sqrtInfo)
}

// CostFunction implements core.Constraint.
func (c *RelativeConstraint) CostFunction() (core.CostFunction, error) {
	return &relativeCost{delta: slices.Clone(c.delta), a: mat.DenseCopyOf(c.sqrtInfo)}, nil
}

type relativeDoc struct {
	UUID            string      `yaml:"uuid"`
	From            string      `yaml:"from"`
	To              string      `yaml:"to"`
	Delta           []float64   `yaml:"delta,flow"`
	SqrtInformation [][]float64 `yaml:"sqrt_information,flow"`
}

// Describe returns a YAML description of the constraint.
func (c *RelativeConstraint) Describe() string {
	return describe(RelativeConstraintType, relativeDoc{
		UUID:            c.uuid.String(),
		From:            c.from.String(),
		To:              c.to.String(),
		Delta:           c.delta,
		SqrtInformation: rowsOf(c.sqrtInfo),
	})
}

// MarshalPayload implements core.Element.
func (c *RelativeConstraint) MarshalPayload() ([]byte, error) {
	_, payload, err := seal(RelativeConstraintType, c.body())
	return payload, err
}

// UnmarshalRelativeConstraint reconstructs a RelativeConstraint from its
// payload.
func UnmarshalRelativeConstraint(payload []byte) (*RelativeConstraint, error) {
	const op = "RelativeConstraint.Unmarshal"
	uuid, r, err := open(RelativeConstraintType, op, payload)
	if err != nil {
		return nil, err
	}
	from, err := r.ID()
	if err != nil {
		return nil, fuseerr.Malformed(op, err)
	}
	to, err := r.ID()
	if err != nil {
		return nil, fuseerr.Malformed(op, err)
	}
	delta, err := r.Float64s()
	if err != nil {
		return nil, fuseerr.Malformed(op, err)
	}
	sqrtInfo, err := readMatrix(r)
	if err != nil {
		return nil, fuseerr.Malformed(op, err)
	}
	if err := r.Done(); err != nil {
		return nil, fuseerr.Malformed(op, err)
	}
	rows, cols := sqrtInfo.Dims()
	if rows != len(delta) || cols != len(delta) {
		return nil, fuseerr.DimensionMismatch(op, RelativeConstraintType, len(delta), cols)
	}
	return &RelativeConstraint{uuid: uuid, from: from, to: to, delta: delta, sqrtInfo: sqrtInfo}, nil
}

// relativeCost evaluates r = A·((to − from) − delta) with jacobians −A
// and A.
type relativeCost struct {
	delta []float64
	a     *mat.Dense
}

func (p *relativeCost) NumResiduals() int { return len(p.delta) }

func (p *relativeCost) ParameterBlockSizes() []int {
	return []int{len(p.delta), len(p.delta)}
}

func (p *relativeCost) Evaluate(parameters [][]float64, residuals []float64, jacobians [][]float64) error {
	if err := core.CheckEvaluateArgs(p, parameters, residuals, jacobians); err != nil {
		return err
	}
	from, to := parameters[0], parameters[1]
	diff := make([]float64, len(p.delta))
	for i := range diff {
		diff[i] = (to[i] - from[i]) - p.delta[i]
	}
	multiply(p.a, diff, residuals)
	if jacobians != nil {
		if jacobians[0] != nil {
			copyRowMajor(p.a, -1, jacobians[0])
		}
		if jacobians[1] != nil {
			copyRowMajor(p.a, 1, jacobians[1])
		}
	}
	return nil
}
