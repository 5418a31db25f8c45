package constraints

import (
	"math"

	"github.com/zero-day-ai/fuse/fuseerr"
	"gonum.org/v1/gonum/mat"
)

// epsilon is the float64 machine epsilon used for rank tolerances.
const epsilon = 2.220446049250313e-16

// SqrtInformation returns the upper-triangular factor U of the inverse of
// covariance, so that Uᵀ·U = covariance⁻¹. covariance must be square,
// symmetric and positive definite; the upper triangle is trusted when the
// input is slightly asymmetric.
func SqrtInformation(covariance mat.Matrix) (*mat.Dense, error) {
	const op = "constraints.SqrtInformation"
	r, c := covariance.Dims()
	if r == 0 || r != c {
		return nil, fuseerr.InvalidArgument(op, "covariance must be square and non-empty, got %dx%d", r, c)
	}

	sym := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			sym.SetSym(i, j, covariance.At(i, j))
		}
	}

	var covChol mat.Cholesky
	if ok := covChol.Factorize(sym); !ok {
		return nil, fuseerr.InvalidArgument(op, "covariance is not positive definite")
	}
	var info mat.SymDense
	if err := covChol.InverseTo(&info); err != nil {
		return nil, fuseerr.InvalidArgument(op, "covariance is not invertible: %v", err)
	}

	var infoChol mat.Cholesky
	if ok := infoChol.Factorize(&info); !ok {
		return nil, fuseerr.InvalidArgument(op, "information matrix is not positive definite")
	}
	var u mat.TriDense
	infoChol.UTo(&u)
	return mat.DenseCopyOf(&u), nil
}

// RecoverCovariance returns the pseudo-inverse of Aᵀ·A for a square-root
// information matrix A of shape k x n. The result is n x n with rank equal
// to the rank of A, so it is singular whenever k < n.
func RecoverCovariance(sqrtInformation mat.Matrix) (*mat.Dense, error) {
	const op = "constraints.RecoverCovariance"
	k, n := sqrtInformation.Dims()
	if k == 0 || n == 0 {
		return nil, fuseerr.InvalidArgument(op, "empty square root information matrix")
	}

	var svd mat.SVD
	if ok := svd.Factorize(sqrtInformation, mat.SVDThin); !ok {
		return nil, fuseerr.InvalidArgument(op, "singular value decomposition failed")
	}
	values := svd.Values(nil)
	var v mat.Dense
	svd.VTo(&v)

	// Aᵀ·A = V·Σ²·Vᵀ, so its pseudo-inverse is V·Σ⁻²·Vᵀ over the
	// non-negligible singular values.
	tol := tolerance(values, k, n)
	cov := mat.NewDense(n, n, nil)
	for s, sigma := range values {
		if sigma <= tol {
			continue
		}
		scale := 1 / (sigma * sigma)
		for i := 0; i < n; i++ {
			vi := v.At(i, s) * scale
			if vi == 0 {
				continue
			}
			for j := 0; j < n; j++ {
				cov.Set(i, j, cov.At(i, j)+vi*v.At(j, s))
			}
		}
	}
	return cov, nil
}

// Rank returns the numerical rank of m.
func Rank(m mat.Matrix) int {
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return 0
	}
	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDNone); !ok {
		return 0
	}
	values := svd.Values(nil)
	tol := tolerance(values, r, c)
	rank := 0
	for _, sigma := range values {
		if sigma > tol {
			rank++
		}
	}
	return rank
}

func tolerance(values []float64, r, c int) float64 {
	if len(values) == 0 {
		return 0
	}
	return float64(max(r, c)) * values[0] * epsilon
}

// expand places the columns of partial (k x k) at the given column indices
// of a k x n matrix, leaving the other columns zero.
func expand(partial mat.Matrix, indices []int, n int) *mat.Dense {
	k := len(indices)
	out := mat.NewDense(k, n, nil)
	for i := 0; i < k; i++ {
		for j, col := range indices {
			out.Set(i, col, partial.At(i, j))
		}
	}
	return out
}

func finite(vs []float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
