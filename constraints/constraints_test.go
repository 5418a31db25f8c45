package constraints

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zero-day-ai/fuse/core"
	"github.com/zero-day-ai/fuse/fuseerr"
	"github.com/zero-day-ai/fuse/id"
	"github.com/zero-day-ai/fuse/variables"
	"github.com/zero-day-ai/fuse/wire"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

func identity(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

func TestPriorConstraintZeroResidualAtMean(t *testing.T) {
	v := variables.NewPointVariable(core.Seconds(1), id.Nil, 1.0, 2.0)
	c, err := NewPriorConstraint(v, []float64{1.0, 2.0}, identity(2))
	require.NoError(t, err)

	assert.Equal(t, PriorConstraintType, c.Type())
	assert.Equal(t, []id.ID{v.ID()}, c.Variables())

	cf, err := c.CostFunction()
	require.NoError(t, err)
	assert.Equal(t, 2, cf.NumResiduals())
	assert.Equal(t, []int{2}, cf.ParameterBlockSizes())

	residuals, err := core.Residuals(cf, v.Data())
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 0}, residuals, 1e-12)

	residuals = make([]float64, 2)
	jacobians := [][]float64{make([]float64, 4)}
	require.NoError(t, cf.Evaluate([][]float64{{2.0, 2.0}}, residuals, jacobians))
	assert.InDeltaSlice(t, []float64{1, 0}, residuals, 1e-12)
	assert.InDeltaSlice(t, []float64{1, 0, 0, 1}, jacobians[0], 1e-12)
}

func TestPriorConstraintCostFunctionsAreIndependent(t *testing.T) {
	v := variables.NewPointVariable(core.Seconds(1), id.Nil, 0, 0)
	c, err := NewPriorConstraint(v, []float64{0, 0}, identity(2))
	require.NoError(t, err)

	a, err := c.CostFunction()
	require.NoError(t, err)
	b, err := c.CostFunction()
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}

func TestPartialPriorConstraint(t *testing.T) {
	v := variables.NewPointVariable(core.Seconds(1), id.Nil, 0, 0)
	c, err := NewPartialPriorConstraint(v, []float64{3}, mat.NewDense(1, 1, []float64{0.25}), []int{1})
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 3}, c.Mean())

	a := c.SqrtInformation()
	rows, cols := a.Dims()
	assert.Equal(t, 1, rows)
	assert.Equal(t, 2, cols)
	assert.Zero(t, a.At(0, 0))
	assert.InDelta(t, 2.0, a.At(0, 1), 1e-12)

	cov, err := c.Covariance()
	require.NoError(t, err)
	rows, cols = cov.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 2, cols)
	assert.Equal(t, 1, Rank(cov), "partial measurement yields a rank deficient covariance")
	assert.InDelta(t, 0.25, cov.At(1, 1), 1e-12)

	cf, err := c.CostFunction()
	require.NoError(t, err)
	residuals, err := core.Residuals(cf, []float64{100, 4})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{2}, residuals, 1e-12, "unmeasured dimension does not contribute")
}

func TestPriorConstraintFullCovarianceRecovered(t *testing.T) {
	v := variables.NewPointVariable(core.Seconds(1), id.Nil, 0, 0)
	cov := mat.NewDense(2, 2, []float64{1.5, 0.2, 0.2, 0.7})
	c, err := NewPriorConstraint(v, []float64{0, 0}, cov)
	require.NoError(t, err)

	got, err := c.Covariance()
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(got, cov, 1e-9))
}

func TestNewPartialPriorConstraintRejects(t *testing.T) {
	v := variables.NewPointVariable(core.Seconds(1), id.Nil, 0, 0)
	one := mat.NewDense(1, 1, []float64{1})

	tests := []struct {
		name     string
		variable core.Variable
		mean     []float64
		cov      mat.Matrix
		indices  []int
	}{
		{"nil variable", nil, []float64{1}, one, []int{0}},
		{"no indices", v, nil, one, nil},
		{"too many indices", v, []float64{1, 2, 3}, identity(3), []int{0, 1, 1}},
		{"repeated index", v, []float64{1, 2}, identity(2), []int{1, 1}},
		{"index out of range", v, []float64{1}, one, []int{2}},
		{"negative index", v, []float64{1}, one, []int{-1}},
		{"mean length", v, []float64{1, 2}, one, []int{0}},
		{"covariance shape", v, []float64{1}, identity(2), []int{0}},
		{"covariance not positive definite", v, []float64{1}, mat.NewDense(1, 1, []float64{-1}), []int{0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPartialPriorConstraint(tt.variable, tt.mean, tt.cov, tt.indices)
			require.Error(t, err)
			assert.True(t, errors.Is(err, fuseerr.ErrInvalidArgument), "got %v", err)
		})
	}
}

func TestPriorConstraintIdentity(t *testing.T) {
	v := variables.NewPointVariable(core.Seconds(1), id.Nil, 0, 0)
	a, err := NewPriorConstraint(v, []float64{1, 2}, identity(2))
	require.NoError(t, err)
	b, err := NewPriorConstraint(v, []float64{1, 2}, identity(2))
	require.NoError(t, err)
	c, err := NewPriorConstraint(v, []float64{1, 3}, identity(2))
	require.NoError(t, err)

	assert.Equal(t, a.ID(), b.ID())
	assert.NotEqual(t, a.ID(), c.ID())
	assert.NotEqual(t, id.Nil, a.ID())
}

func TestPriorConstraintPayloadRoundTrip(t *testing.T) {
	v := variables.NewPointVariable(core.Seconds(3), id.Nil, 0, 0)
	c, err := NewPartialPriorConstraint(v, []float64{7}, mat.NewDense(1, 1, []float64{2}), []int{0})
	require.NoError(t, err)

	payload, err := c.MarshalPayload()
	require.NoError(t, err)
	got, err := UnmarshalPriorConstraint(payload)
	require.NoError(t, err)

	assert.Equal(t, c.ID(), got.ID())
	assert.Equal(t, c.Variable(), got.Variable())
	assert.Equal(t, c.Mean(), got.Mean())
	assert.True(t, mat.Equal(c.SqrtInformation(), got.SqrtInformation()))

	again, err := got.MarshalPayload()
	require.NoError(t, err)
	assert.Equal(t, payload, again)
}

func TestUnmarshalPriorConstraintRejects(t *testing.T) {
	v := variables.NewPointVariable(core.Seconds(3), id.Nil, 0, 0)
	c, err := NewPriorConstraint(v, []float64{1, 2}, identity(2))
	require.NoError(t, err)
	payload, err := c.MarshalPayload()
	require.NoError(t, err)

	tampered := append([]byte(nil), payload...)
	tampered[len(tampered)-1] ^= 0xff

	badVersion := append([]byte(nil), payload...)
	badVersion[0] = 9

	tests := []struct {
		name    string
		payload []byte
	}{
		{"empty", nil},
		{"truncated", payload[:len(payload)-3]},
		{"version", badVersion},
		{"content does not match identifier", tampered},
		{"trailing bytes", append(append([]byte(nil), payload...), 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalPriorConstraint(tt.payload)
			require.Error(t, err)
			assert.True(t, errors.Is(err, fuseerr.ErrMalformedStream), "got %v", err)
		})
	}
}

func TestUnmarshalPriorConstraintDimensionMismatch(t *testing.T) {
	w := wire.NewWriter(64)
	w.ID(id.Nil)
	w.Float64s([]float64{1, 2, 3})
	writeMatrix(w, mat.NewDense(1, 2, []float64{1, 0}))
	_, payload, err := seal(PriorConstraintType, w.Bytes())
	require.NoError(t, err)

	_, err = UnmarshalPriorConstraint(payload)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fuseerr.ErrDimensionMismatch))
}

func TestPriorConstraintDescribe(t *testing.T) {
	v := variables.NewPointVariable(core.Seconds(1), id.Nil, 0, 0)
	c, err := NewPriorConstraint(v, []float64{1.5, 2.5}, identity(2))
	require.NoError(t, err)

	var doc map[string]struct {
		UUID     string      `yaml:"uuid"`
		Variable string      `yaml:"variable"`
		Mean     []float64   `yaml:"mean"`
		Sqrt     [][]float64 `yaml:"sqrt_information"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(c.Describe()), &doc))
	got, ok := doc[PriorConstraintType]
	require.True(t, ok)
	assert.Equal(t, c.ID().String(), got.UUID)
	assert.Equal(t, v.ID().String(), got.Variable)
	assert.Equal(t, []float64{1.5, 2.5}, got.Mean)
	assert.Len(t, got.Sqrt, 2)
}

func TestRelativeConstraint(t *testing.T) {
	from := variables.NewPointVariable(core.Seconds(1), id.Nil, 0, 0)
	to := variables.NewPointVariable(core.Seconds(2), id.Nil, 1, 1)
	c, err := NewRelativeConstraint(from, to, []float64{1, 1}, identity(2))
	require.NoError(t, err)

	assert.Equal(t, []id.ID{from.ID(), to.ID()}, c.Variables())
	assert.Equal(t, from.ID(), c.From())
	assert.Equal(t, to.ID(), c.To())

	cf, err := c.CostFunction()
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, cf.ParameterBlockSizes())

	residuals := make([]float64, 2)
	jacobians := [][]float64{make([]float64, 4), make([]float64, 4)}
	require.NoError(t, cf.Evaluate([][]float64{from.Data(), to.Data()}, residuals, jacobians))
	assert.InDeltaSlice(t, []float64{0, 0}, residuals, 1e-12)
	assert.InDeltaSlice(t, []float64{-1, 0, 0, -1}, jacobians[0], 1e-12)
	assert.InDeltaSlice(t, []float64{1, 0, 0, 1}, jacobians[1], 1e-12)

	residuals, err = core.Residuals(cf, []float64{0, 0}, []float64{3, 1})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{2, 0}, residuals, 1e-12)
}

func TestRelativeConstraintPayloadRoundTrip(t *testing.T) {
	from := variables.NewPointVariable(core.Seconds(1), id.Nil, 0, 0)
	to := variables.NewPointVariable(core.Seconds(2), id.Nil, 1, 1)
	c, err := NewRelativeConstraint(from, to, []float64{1, -1}, mat.NewDense(2, 2, []float64{0.5, 0.1, 0.1, 0.5}))
	require.NoError(t, err)

	payload, err := c.MarshalPayload()
	require.NoError(t, err)
	got, err := UnmarshalRelativeConstraint(payload)
	require.NoError(t, err)
	assert.Equal(t, c, got)

	_, err = UnmarshalRelativeConstraint(payload[:len(payload)-1])
	assert.True(t, errors.Is(err, fuseerr.ErrMalformedStream))
}

func TestNewRelativeConstraintRejects(t *testing.T) {
	a := variables.NewPointVariable(core.Seconds(1), id.Nil, 0, 0)
	b := variables.NewPointVariable(core.Seconds(2), id.Nil, 0, 0)
	dummy := variables.NewDummyVariable(core.Seconds(2), "")

	_, err := NewRelativeConstraint(a, a, []float64{0, 0}, identity(2))
	assert.True(t, errors.Is(err, fuseerr.ErrInvalidArgument))

	_, err = NewRelativeConstraint(a, b, []float64{0}, identity(2))
	assert.True(t, errors.Is(err, fuseerr.ErrInvalidArgument))

	_, err = NewRelativeConstraint(a, b, []float64{0, 0}, identity(3))
	assert.True(t, errors.Is(err, fuseerr.ErrInvalidArgument))

	_, err = NewRelativeConstraint(a, nil, []float64{0, 0}, identity(2))
	assert.True(t, errors.Is(err, fuseerr.ErrInvalidArgument))

	_, err = NewRelativeConstraint(a, dummy, []float64{0, 0}, identity(2))
	assert.NoError(t, err, "dummy variables have two components as well")
}

func TestRegister(t *testing.T) {
	r := core.NewRegistry()
	require.NoError(t, Register(r))
	assert.True(t, r.IsRegistered(PriorConstraintType))
	assert.True(t, r.IsRegistered(RelativeConstraintType))

	err := Register(r)
	assert.True(t, errors.Is(err, fuseerr.ErrDuplicateType))
}
