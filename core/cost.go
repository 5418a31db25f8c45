package core

import (
	"github.com/zero-day-ai/fuse/fuseerr"
)

// CostFunction computes the residual block a constraint contributes to the
// optimization problem.
type CostFunction interface {
	// NumResiduals returns the length of the residual vector.
	NumResiduals() int

	// ParameterBlockSizes returns the size of each parameter block, one per
	// constrained variable.
	ParameterBlockSizes() []int

	// Evaluate computes residuals for the given parameter blocks. residuals
	// must have length NumResiduals(). jacobians may be nil; when it is not,
	// it has one entry per block and each non-nil entry receives the
	// row-major NumResiduals x ParameterBlockSizes()[i] jacobian.
	Evaluate(parameters [][]float64, residuals []float64, jacobians [][]float64) error
}

// CheckEvaluateArgs validates Evaluate arguments against a cost function's
// declared shape.
func CheckEvaluateArgs(cf CostFunction, parameters [][]float64, residuals []float64, jacobians [][]float64) error {
	const op = "CostFunction.Evaluate"
	sizes := cf.ParameterBlockSizes()
	if len(parameters) != len(sizes) {
		return fuseerr.InvalidArgument(op, "expected %d parameter blocks, got %d", len(sizes), len(parameters))
	}
	for i, block := range parameters {
		if len(block) != sizes[i] {
			return fuseerr.InvalidArgument(op, "parameter block %d has %d values, expected %d", i, len(block), sizes[i])
		}
	}
	if len(residuals) != cf.NumResiduals() {
		return fuseerr.InvalidArgument(op, "residual buffer has %d values, expected %d", len(residuals), cf.NumResiduals())
	}
	if jacobians != nil {
		if len(jacobians) != len(sizes) {
			return fuseerr.InvalidArgument(op, "expected %d jacobian blocks, got %d", len(sizes), len(jacobians))
		}
		for i, j := range jacobians {
			if j != nil && len(j) != cf.NumResiduals()*sizes[i] {
				return fuseerr.InvalidArgument(op, "jacobian block %d has %d values, expected %d", i, len(j), cf.NumResiduals()*sizes[i])
			}
		}
	}
	return nil
}

// Residuals evaluates cf at the given parameter blocks and returns a newly
// allocated residual vector.
func Residuals(cf CostFunction, parameters ...[]float64) ([]float64, error) {
	residuals := make([]float64, cf.NumResiduals())
	if err := cf.Evaluate(parameters, residuals, nil); err != nil {
		return nil, err
	}
	return residuals, nil
}
