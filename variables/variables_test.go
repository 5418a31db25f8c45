package variables

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zero-day-ai/fuse/core"
	"github.com/zero-day-ai/fuse/fuseerr"
	"github.com/zero-day-ai/fuse/id"
	"github.com/zero-day-ai/fuse/params"
	"github.com/zero-day-ai/fuse/wire"
	"gopkg.in/yaml.v3"
)

var testDevice = id.MustDerive("device", id.Text("lidar"))

func TestPointVariable(t *testing.T) {
	v := NewPointVariable(core.Seconds(10), id.Nil, 1.0, 2.0)

	assert.Equal(t, PointVariableType, v.Type())
	assert.Equal(t, 2, v.Size())
	assert.Equal(t, []float64{1.0, 2.0}, v.Data())
	assert.Equal(t, core.Seconds(10), v.Stamp())
	assert.Equal(t, id.Nil, v.DeviceID())

	want := id.MustDerive(PointVariableType, id.Stamp(int64(core.Seconds(10))), id.Device(id.Nil))
	assert.Equal(t, want, v.ID())

	// Data aliases the variable's storage.
	v.Data()[0] = 5
	assert.Equal(t, 5.0, v.X())
	v.SetY(7)
	assert.Equal(t, 7.0, v.Data()[1])

	var _ StampedVariable = v
}

func TestPointVariableIdentity(t *testing.T) {
	a := NewPointVariable(core.Seconds(1), testDevice, 0, 0)
	b := NewPointVariable(core.Seconds(1), testDevice, 3, 4)
	c := NewPointVariable(core.Seconds(1), id.Nil, 0, 0)
	d := NewPointVariable(core.Seconds(2), testDevice, 0, 0)

	assert.Equal(t, a.ID(), b.ID(), "values do not affect identity")
	assert.NotEqual(t, a.ID(), c.ID())
	assert.NotEqual(t, a.ID(), d.ID())
}

func TestPointVariablePayloadRoundTrip(t *testing.T) {
	v := NewPointVariable(core.Seconds(12.25), testDevice, -1.5, 3.75)
	payload, err := v.MarshalPayload()
	require.NoError(t, err)

	got, err := UnmarshalPointVariable(payload)
	require.NoError(t, err)
	assert.Equal(t, v, got)
}

func TestPointVariableRejectsWrongDimension(t *testing.T) {
	w := wire.NewWriter(64)
	w.Byte(payloadVersion)
	w.ID(pointID(core.Seconds(1), id.Nil))
	NewStamped(core.Seconds(1), id.Nil).marshalTo(w)
	w.Float64s([]float64{1, 2, 3})

	_, err := UnmarshalPointVariable(w.Bytes())
	require.Error(t, err)
	assert.ErrorIs(t, err, fuseerr.ErrDimensionMismatch)
}

func TestPointVariableRejectsCorruptPayload(t *testing.T) {
	v := NewPointVariable(core.Seconds(1), id.Nil, 1, 2)
	payload, err := v.MarshalPayload()
	require.NoError(t, err)

	tests := []struct {
		name    string
		payload []byte
	}{
		{"empty", nil},
		{"bad version", append([]byte{9}, payload[1:]...)},
		{"truncated", payload[:len(payload)-3]},
		{"trailing bytes", append(append([]byte{}, payload...), 0)},
		{"foreign identifier", func() []byte {
			p := append([]byte{}, payload...)
			p[1] ^= 0xff
			return p
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalPointVariable(tt.payload)
			require.Error(t, err)
			assert.ErrorIs(t, err, fuseerr.ErrMalformedStream)
		})
	}
}

func TestPointVariableDescribe(t *testing.T) {
	v := NewPointVariable(core.Seconds(10), id.Nil, 1.5, 2.5)

	var doc map[string]map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(v.Describe()), &doc))

	body := doc[PointVariableType]
	require.NotNil(t, body)
	assert.Equal(t, v.ID().String(), body["uuid"])
	assert.Equal(t, "10.000000000", body["stamp"])
	assert.Equal(t, id.Nil.String(), body["device_id"])
	assert.Equal(t, 2, body["size"])
	assert.Equal(t, map[string]any{"x": 1.5, "y": 2.5}, body["data"])
}

func TestDummyVariable(t *testing.T) {
	v := NewDummyVariable(core.Seconds(3), "to seek the holy grail")
	v.SetA(1.5)
	v.SetB(-2)

	assert.Equal(t, DummyVariableType, v.Type())
	assert.Equal(t, 2, v.Size())
	assert.Equal(t, "to seek the holy grail", v.Quest())
	assert.Equal(t, []float64{1.5, -2}, v.Data())
	assert.Equal(t, id.MustDerive(DummyVariableType, id.Stamp(int64(core.Seconds(3)))), v.ID())

	payload, err := v.MarshalPayload()
	require.NoError(t, err)
	got, err := UnmarshalDummyVariable(payload)
	require.NoError(t, err)
	assert.Equal(t, v, got)

	assert.Contains(t, v.Describe(), "quest: to seek the holy grail")

	_, err = UnmarshalDummyVariable(payload[:5])
	assert.ErrorIs(t, err, fuseerr.ErrMalformedStream)
}

func TestRegister(t *testing.T) {
	r := core.NewRegistry()
	require.NoError(t, Register(r))
	assert.Equal(t, []string{DummyVariableType, PointVariableType}, r.KnownTypeNames())

	err := Register(r)
	assert.ErrorIs(t, err, fuseerr.ErrDuplicateType)

	f, err := r.Resolve(PointVariableType)
	require.NoError(t, err)
	payload, err := NewPointVariable(core.Seconds(1), id.Nil, 1, 2).MarshalPayload()
	require.NoError(t, err)
	e, err := f(payload)
	require.NoError(t, err)
	_, ok := e.(core.Variable)
	assert.True(t, ok)
}

type failingSource struct{}

func (failingSource) Lookup(context.Context, string) (string, bool, error) {
	return "", false, errors.New("parameter server unavailable")
}

func TestLoadDeviceID(t *testing.T) {
	ctx := context.Background()
	want := id.MustDerive("device", id.Text("lidar"))

	tests := []struct {
		name    string
		src     params.Source
		want    id.ID
		wantErr bool
	}{
		{"absent", params.Map{}, id.Nil, false},
		{"canonical", params.Map{"device_id": "123E4567-E89B-12D3-A456-426614174000"}, id.Must(id.Parse("123e4567-e89b-12d3-a456-426614174000")), false},
		{"undashed", params.Map{"device_id": "123e4567e89b12d3a456426614174000"}, id.Must(id.Parse("123e4567-e89b-12d3-a456-426614174000")), false},
		{"braces", params.Map{"device_id": "{123e4567-e89b-12d3-a456-426614174000}"}, id.Must(id.Parse("123e4567-e89b-12d3-a456-426614174000")), false},
		{"name", params.Map{"device_name": "lidar"}, want, false},
		{"id wins over name", params.Map{"device_id": "00000000-0000-0000-0000-000000000001", "device_name": "lidar"}, id.Must(id.Parse("00000000-0000-0000-0000-000000000001")), false},
		{"invalid id", params.Map{"device_id": "nope"}, id.Nil, true},
		{"source error", failingSource{}, id.Nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadDeviceID(ctx, tt.src)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
