package constraints

import (
	"slices"

	"github.com/zero-day-ai/fuse/core"
	"github.com/zero-day-ai/fuse/fuseerr"
	"github.com/zero-day-ai/fuse/id"
	"github.com/zero-day-ai/fuse/wire"
	"gonum.org/v1/gonum/mat"
)

// PriorConstraintType is the registered type name of PriorConstraint.
const PriorConstraintType = "PriorConstraint"

// PriorConstraint is a Gaussian prior or absolute measurement on some or all
// dimensions of a single variable.
type PriorConstraint struct {
	uuid       id.ID
	variableID id.ID
	mean       []float64
	sqrtInfo   *mat.Dense
}

// NewPriorConstraint measures every dimension of variable. mean must have
// variable.Size() entries and covariance must be Size() x Size().
func NewPriorConstraint(variable core.Variable, mean []float64, covariance mat.Matrix) (*PriorConstraint, error) {
	if variable == nil {
		return nil, fuseerr.InvalidArgument("NewPriorConstraint", "variable is nil")
	}
	indices := make([]int, variable.Size())
	for i := range indices {
		indices[i] = i
	}
	return NewPartialPriorConstraint(variable, mean, covariance, indices)
}

// NewPartialPriorConstraint measures the dimensions of variable listed in
// indices. partialMean and partialCovariance are ordered like indices. The
// stored mean is expanded to full length with zeros for the unmeasured
// dimensions, in the variable's native order.
func NewPartialPriorConstraint(variable core.Variable, partialMean []float64, partialCovariance mat.Matrix, indices []int) (*PriorConstraint, error) {
	const op = "NewPartialPriorConstraint"
	if variable == nil {
		return nil, fuseerr.InvalidArgument(op, "variable is nil")
	}
	n := variable.Size()
	k := len(indices)
	if k == 0 {
		return nil, fuseerr.InvalidArgument(op, "no measured indices")
	}
	if k > n {
		return nil, fuseerr.InvalidArgument(op, "%d indices for a variable of size %d", k, n)
	}
	seen := make(map[int]bool, k)
	for _, idx := range indices {
		if idx < 0 || idx >= n {
			return nil, fuseerr.InvalidArgument(op, "index %d out of range [0, %d)", idx, n)
		}
		if seen[idx] {
			return nil, fuseerr.InvalidArgument(op, "index %d repeated", idx)
		}
		seen[idx] = true
	}
	if len(partialMean) != k {
		return nil, fuseerr.InvalidArgument(op, "mean has %d entries, expected %d", len(partialMean), k)
	}
	if !finite(partialMean) {
		return nil, fuseerr.InvalidArgument(op, "mean is not finite")
	}
	if partialCovariance == nil {
		return nil, fuseerr.InvalidArgument(op, "covariance is nil")
	}
	if r, c := partialCovariance.Dims(); r != k || c != k {
		return nil, fuseerr.InvalidArgument(op, "covariance is %dx%d, expected %dx%d", r, c, k, k)
	}

	sqrtInfo, err := SqrtInformation(partialCovariance)
	if err != nil {
		return nil, err
	}
	mean := make([]float64, n)
	for i, idx := range indices {
		mean[idx] = partialMean[i]
	}
	return newPrior(variable.ID(), mean, expand(sqrtInfo, indices, n))
}

func newPrior(variableID id.ID, mean []float64, sqrtInfo *mat.Dense) (*PriorConstraint, error) {
	w := wire.NewWriter(64)
	w.ID(variableID)
	w.Float64s(mean)
	writeMatrix(w, sqrtInfo)
	uuid, _, err := seal(PriorConstraintType, w.Bytes())
	if err != nil {
		return nil, err
	}
	return &PriorConstraint{uuid: uuid, variableID: variableID, mean: mean, sqrtInfo: sqrtInfo}, nil
}

func (c *PriorConstraint) Type() string { return PriorConstraintType }
func (c *PriorConstraint) ID() id.ID    { return c.uuid }

// Variable returns the identifier of the constrained variable.
func (c *PriorConstraint) Variable() id.ID { return c.variableID }

// Variables implements core.Constraint.
func (c *PriorConstraint) Variables() []id.ID { return []id.ID{c.variableID} }

// Mean returns a copy of the full-length mean.
func (c *PriorConstraint) Mean() []float64 { return slices.Clone(c.mean) }

// SqrtInformation returns a copy of the k x n square root information matrix.
func (c *PriorConstraint) SqrtInformation() *mat.Dense { return mat.DenseCopyOf(c.sqrtInfo) }

// Covariance returns the n x n covariance implied by the square root
// information. For a partial measurement the result has rank k.
func (c *PriorConstraint) Covariance() (*mat.Dense, error) {
	return RecoverCovariance(c.sqrtInfo)
}

// CostFunction implements core.Constraint.
func (c *PriorConstraint) CostFunction() (core.CostFunction, error) {
	return &priorCost{mean: slices.Clone(c.mean), a: mat.DenseCopyOf(c.sqrtInfo)}, nil
}

type priorDoc struct {
	UUID            string      `yaml:"uuid"`
	Variable        string      `yaml:"variable"`
	Mean            []float64   `yaml:"mean,flow"`
	SqrtInformation [][]float64 `yaml:"sqrt_information,flow"`
}

// Describe returns a YAML description of the constraint.
func (c *PriorConstraint) Describe() string {
	return describe(PriorConstraintType, priorDoc{
		UUID:            c.uuid.String(),
		Variable:        c.variableID.String(),
		Mean:            c.mean,
		SqrtInformation: rowsOf(c.sqrtInfo),
	})
}

// MarshalPayload implements core.Element.
func (c *PriorConstraint) MarshalPayload() ([]byte, error) {
	w := wire.NewWriter(64)
	w.ID(c.variableID)
	w.Float64s(c.mean)
	writeMatrix(w, c.sqrtInfo)
	_, payload, err := seal(PriorConstraintType, w.Bytes())
	return payload, err
}

// UnmarshalPriorConstraint reconstructs a PriorConstraint from its payload.
func UnmarshalPriorConstraint(payload []byte) (*PriorConstraint, error) {
	const op = "PriorConstraint.Unmarshal"
	uuid, r, err := open(PriorConstraintType, op, payload)
	if err != nil {
		return nil, err
	}
	variableID, err := r.ID()
	if err != nil {
		return nil, fuseerr.Malformed(op, err)
	}
	mean, err := r.Float64s()
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
	if cols != len(mean) {
		return nil, fuseerr.DimensionMismatch(op, PriorConstraintType, len(mean), cols)
	}
	if rows > cols {
		return nil, fuseerr.Malformedf(op, "square root information has %d rows for %d dimensions", rows, cols)
	}
	return &PriorConstraint{uuid: uuid, variableID: variableID, mean: mean, sqrtInfo: sqrtInfo}, nil
}

// priorCost evaluates r = A·(x − mean) with jacobian A.
type priorCost struct {
	mean []float64
	a    *mat.Dense
}

func (p *priorCost) NumResiduals() int {
	rows, _ := p.a.Dims()
	return rows
}

func (p *priorCost) ParameterBlockSizes() []int { return []int{len(p.mean)} }

func (p *priorCost) Evaluate(parameters [][]float64, residuals []float64, jacobians [][]float64) error {
	if err := core.CheckEvaluateArgs(p, parameters, residuals, jacobians); err != nil {
		return err
	}
	x := parameters[0]
	diff := make([]float64, len(x))
	for i := range x {
		diff[i] = x[i] - p.mean[i]
	}
	multiply(p.a, diff, residuals)
	if jacobians != nil && jacobians[0] != nil {
		copyRowMajor(p.a, 1, jacobians[0])
	}
	return nil
}

// multiply writes a·x into out.
func multiply(a mat.Matrix, x, out []float64) {
	mat.NewVecDense(len(out), out).MulVec(a, mat.NewVecDense(len(x), x))
}

// copyRowMajor writes sign·a into dst in row-major order.
func copyRowMajor(a mat.Matrix, sign float64, dst []float64) {
	rows, cols := a.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			dst[i*cols+j] = sign * a.At(i, j)
		}
	}
}
