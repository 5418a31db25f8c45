package variables

import (
	"fmt"

	"github.com/zero-day-ai/fuse/core"
	"github.com/zero-day-ai/fuse/fuseerr"
	"github.com/zero-day-ai/fuse/id"
	"github.com/zero-day-ai/fuse/wire"
	"gopkg.in/yaml.v3"
)

// PointVariableType is the registered type name of PointVariable.
const PointVariableType = "PointVariable"

const (
	pointX = iota
	pointY
	pointSize
)

// payloadVersion is the first byte of every payload written by this package.
const payloadVersion byte = 1

// PointVariable is a 2D point observed at a timestamp by a device.
type PointVariable struct {
	Stamped
	uuid id.ID
	data []float64
}

// NewPointVariable creates a point at (x, y). Its identifier is derived from
// the type name, stamp and device.
func NewPointVariable(stamp core.Time, deviceID id.ID, x, y float64) *PointVariable {
	return &PointVariable{
		Stamped: NewStamped(stamp, deviceID),
		uuid:    pointID(stamp, deviceID),
		data:    []float64{x, y},
	}
}

func pointID(stamp core.Time, deviceID id.ID) id.ID {
	return id.MustDerive(PointVariableType, id.Stamp(int64(stamp)), id.Device(deviceID))
}

func (v *PointVariable) Type() string    { return PointVariableType }
func (v *PointVariable) ID() id.ID       { return v.uuid }
func (v *PointVariable) Size() int       { return pointSize }
func (v *PointVariable) Data() []float64 { return v.data }

func (v *PointVariable) X() float64 { return v.data[pointX] }
func (v *PointVariable) Y() float64 { return v.data[pointY] }

func (v *PointVariable) SetX(x float64) { v.data[pointX] = x }
func (v *PointVariable) SetY(y float64) { v.data[pointY] = y }

type pointDoc struct {
	UUID     string             `yaml:"uuid"`
	Stamp    string             `yaml:"stamp"`
	DeviceID string             `yaml:"device_id"`
	Size     int                `yaml:"size"`
	Data     map[string]float64 `yaml:"data"`
}

// Describe returns a YAML description of the variable.
func (v *PointVariable) Describe() string {
	return describe(PointVariableType, pointDoc{
		UUID:     v.uuid.String(),
		Stamp:    v.Stamp().String(),
		DeviceID: v.DeviceID().String(),
		Size:     v.Size(),
		Data:     map[string]float64{"x": v.X(), "y": v.Y()},
	})
}

// MarshalPayload implements core.Element.
func (v *PointVariable) MarshalPayload() ([]byte, error) {
	w := wire.NewWriter(64)
	w.Byte(payloadVersion)
	w.ID(v.uuid)
	v.Stamped.marshalTo(w)
	w.Float64s(v.data)
	return w.Bytes(), nil
}

// UnmarshalPointVariable reconstructs a PointVariable from its payload.
func UnmarshalPointVariable(payload []byte) (*PointVariable, error) {
	const op = "PointVariable.Unmarshal"
	r := wire.NewReader(payload)
	stored, stamped, err := readHeader(r, op)
	if err != nil {
		return nil, err
	}
	data, err := r.Float64s()
	if err != nil {
		return nil, fuseerr.Malformed(op, err)
	}
	if err := r.Done(); err != nil {
		return nil, fuseerr.Malformed(op, err)
	}
	if len(data) != pointSize {
		return nil, fuseerr.DimensionMismatch(op, PointVariableType, pointSize, len(data))
	}
	if want := pointID(stamped.stamp, stamped.deviceID); stored != want {
		return nil, fuseerr.Malformedf(op, "identifier %s does not match stamp and device (want %s)", stored, want)
	}
	return &PointVariable{Stamped: stamped, uuid: stored, data: data}, nil
}

func readHeader(r *wire.Reader, op string) (id.ID, Stamped, error) {
	version, err := r.Byte()
	if err != nil {
		return id.Nil, Stamped{}, fuseerr.Malformed(op, err)
	}
	if version != payloadVersion {
		return id.Nil, Stamped{}, fuseerr.Malformedf(op, "unsupported payload version %d", version)
	}
	stored, err := r.ID()
	if err != nil {
		return id.Nil, Stamped{}, fuseerr.Malformed(op, err)
	}
	stamped, err := unmarshalStamped(r)
	if err != nil {
		return id.Nil, Stamped{}, fuseerr.Malformed(op, err)
	}
	return stored, stamped, nil
}

func describe(typeName string, doc any) string {
	out, err := yaml.Marshal(map[string]any{typeName: doc})
	if err != nil {
		return fmt.Sprintf("%s: <%v>\n", typeName, err)
	}
	return string(out)
}
