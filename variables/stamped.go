package variables

import (
	"context"
	"fmt"

	"github.com/zero-day-ai/fuse/core"
	"github.com/zero-day-ai/fuse/id"
	"github.com/zero-day-ai/fuse/params"
	"github.com/zero-day-ai/fuse/wire"
)

// Stamped is the timestamp and owning device of a time-varying variable.
// Variable types embed it by value.
type Stamped struct {
	stamp    core.Time
	deviceID id.ID
}

// NewStamped returns a Stamped for stamp owned by deviceID. Use id.Nil when
// the variable belongs to no particular device.
func NewStamped(stamp core.Time, deviceID id.ID) Stamped {
	return Stamped{stamp: stamp, deviceID: deviceID}
}

// Stamp returns the associated timestamp.
func (s Stamped) Stamp() core.Time {
	return s.stamp
}

// DeviceID returns the associated device identifier.
func (s Stamped) DeviceID() id.ID {
	return s.deviceID
}

func (s Stamped) marshalTo(w *wire.Writer) {
	w.Varint(int64(s.stamp))
	w.ID(s.deviceID)
}

func unmarshalStamped(r *wire.Reader) (Stamped, error) {
	stamp, err := r.Varint()
	if err != nil {
		return Stamped{}, err
	}
	device, err := r.ID()
	if err != nil {
		return Stamped{}, err
	}
	return Stamped{stamp: core.Time(stamp), deviceID: device}, nil
}

// StampedVariable is a Variable carrying a Stamped capability.
type StampedVariable interface {
	core.Variable
	Stamp() core.Time
	DeviceID() id.ID
}

// Parameter keys consulted by LoadDeviceID.
const (
	ParamDeviceID   = "device_id"
	ParamDeviceName = "device_name"
)

// LoadDeviceID resolves the device identifier from host parameters.
//
// A "device_id" parameter is parsed as an identifier in any form id.Parse
// accepts. Otherwise a "device_name" parameter is hashed into a stable
// identifier. With neither present the result is id.Nil.
func LoadDeviceID(ctx context.Context, src params.Source) (id.ID, error) {
	raw, ok, err := src.Lookup(ctx, ParamDeviceID)
	if err != nil {
		return id.Nil, err
	}
	if ok {
		device, err := id.Parse(raw)
		if err != nil {
			return id.Nil, fmt.Errorf("parameter %s: %w", ParamDeviceID, err)
		}
		return device, nil
	}

	name, ok, err := src.Lookup(ctx, ParamDeviceName)
	if err != nil {
		return id.Nil, err
	}
	if ok && name != "" {
		return id.Derive("device", id.Text(name))
	}
	return id.Nil, nil
}
