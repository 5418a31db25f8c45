package variables

import (
	"github.com/zero-day-ai/fuse/core"
	"github.com/zero-day-ai/fuse/fuseerr"
	"github.com/zero-day-ai/fuse/id"
	"github.com/zero-day-ai/fuse/wire"
)

// DummyVariableType is the registered type name of DummyVariable.
const DummyVariableType = "DummyVariable"

const dummySize = 2

// DummyVariable is a minimal stamped variable with two scalar components and
// a free-form text field. It exists to exercise the registry and codec with
// a payload that carries more than numeric state.
type DummyVariable struct {
	Stamped
	uuid  id.ID
	quest string
	data  []float64
}

// NewDummyVariable creates a variable at stamp with components (0, 0). Its
// identifier depends on the stamp only.
func NewDummyVariable(stamp core.Time, quest string) *DummyVariable {
	return &DummyVariable{
		Stamped: NewStamped(stamp, id.Nil),
		uuid:    dummyID(stamp),
		quest:   quest,
		data:    make([]float64, dummySize),
	}
}

func dummyID(stamp core.Time) id.ID {
	return id.MustDerive(DummyVariableType, id.Stamp(int64(stamp)))
}

func (v *DummyVariable) Type() string    { return DummyVariableType }
func (v *DummyVariable) ID() id.ID       { return v.uuid }
func (v *DummyVariable) Size() int       { return dummySize }
func (v *DummyVariable) Data() []float64 { return v.data }

func (v *DummyVariable) Quest() string { return v.quest }
func (v *DummyVariable) A() float64    { return v.data[0] }
func (v *DummyVariable) B() float64    { return v.data[1] }

func (v *DummyVariable) SetA(a float64) { v.data[0] = a }
func (v *DummyVariable) SetB(b float64) { v.data[1] = b }

type dummyDoc struct {
	UUID  string             `yaml:"uuid"`
	Stamp string             `yaml:"stamp"`
	Quest string             `yaml:"quest"`
	Size  int                `yaml:"size"`
	Data  map[string]float64 `yaml:"data"`
}

// Describe returns a YAML description of the variable.
func (v *DummyVariable) Describe() string {
	return describe(DummyVariableType, dummyDoc{
		UUID:  v.uuid.String(),
		Stamp: v.Stamp().String(),
		Quest: v.quest,
		Size:  v.Size(),
		Data:  map[string]float64{"a": v.A(), "b": v.B()},
	})
}

// MarshalPayload implements core.Element.
func (v *DummyVariable) MarshalPayload() ([]byte, error) {
	w := wire.NewWriter(64 + len(v.quest))
	w.Byte(payloadVersion)
	w.ID(v.uuid)
	v.Stamped.marshalTo(w)
	w.String(v.quest)
	w.Float64s(v.data)
	return w.Bytes(), nil
}

// UnmarshalDummyVariable reconstructs a DummyVariable from its payload.
func UnmarshalDummyVariable(payload []byte) (*DummyVariable, error) {
	const op = "DummyVariable.Unmarshal"
	r := wire.NewReader(payload)
	stored, stamped, err := readHeader(r, op)
	if err != nil {
		return nil, err
	}
	quest, err := r.String()
	if err != nil {
		return nil, fuseerr.Malformed(op, err)
	}
	data, err := r.Float64s()
	if err != nil {
		return nil, fuseerr.Malformed(op, err)
	}
	if err := r.Done(); err != nil {
		return nil, fuseerr.Malformed(op, err)
	}
	if len(data) != dummySize {
		return nil, fuseerr.DimensionMismatch(op, DummyVariableType, dummySize, len(data))
	}
	if want := dummyID(stamped.stamp); stored != want {
		return nil, fuseerr.Malformedf(op, "identifier %s does not match stamp (want %s)", stored, want)
	}
	return &DummyVariable{Stamped: stamped, uuid: stored, quest: quest, data: data}, nil
}
