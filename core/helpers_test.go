package core

import (
	"github.com/zero-day-ai/fuse/id"
)

type fakeVariable struct {
	uuid id.ID
	data []float64
}

func newFakeVariable(name string, size int) *fakeVariable {
	return &fakeVariable{uuid: id.MustDerive("FakeVariable", id.Text(name)), data: make([]float64, size)}
}

func (v *fakeVariable) Type() string                   { return "FakeVariable" }
func (v *fakeVariable) ID() id.ID                      { return v.uuid }
func (v *fakeVariable) Describe() string               { return "FakeVariable" }
func (v *fakeVariable) MarshalPayload() ([]byte, error) { return v.uuid[:], nil }
func (v *fakeVariable) Size() int                      { return len(v.data) }
func (v *fakeVariable) Data() []float64                { return v.data }

type fakeConstraint struct {
	uuid id.ID
	vars []id.ID
}

func (c *fakeConstraint) Type() string                        { return "FakeConstraint" }
func (c *fakeConstraint) ID() id.ID                           { return c.uuid }
func (c *fakeConstraint) Describe() string                    { return "FakeConstraint" }
func (c *fakeConstraint) MarshalPayload() ([]byte, error)      { return c.uuid[:], nil }
func (c *fakeConstraint) Variables() []id.ID                  { return c.vars }
func (c *fakeConstraint) CostFunction() (CostFunction, error) { return &offsetCost{size: 1}, nil }

// offsetCost is r = x - 1 over a single block.
type offsetCost struct {
	size int
}

func (c *offsetCost) NumResiduals() int          { return c.size }
func (c *offsetCost) ParameterBlockSizes() []int { return []int{c.size} }
func (c *offsetCost) Evaluate(parameters [][]float64, residuals []float64, jacobians [][]float64) error {
	if err := CheckEvaluateArgs(c, parameters, residuals, jacobians); err != nil {
		return err
	}
	for i, x := range parameters[0] {
		residuals[i] = x - 1
	}
	return nil
}
