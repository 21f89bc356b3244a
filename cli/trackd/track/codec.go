package track

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMalformedPayload = errors.New("malformed payload")
	ErrOutOfRange       = errors.New("coordinates out of range")
)

// datagram is the wire shape emitted by the tracker firmware. Pointers
// distinguish absent fields from zero values.
type datagram struct {
	Lat    *float64 `json:"lat"`
	Lon    *float64 `json:"lon"`
	Time   *int64   `json:"time"`
	Device string   `json:"device"`
}

// Decode parses a raw UDP payload into a Fix. It has no side effects;
// counting and storage are the caller's concern.
func Decode(raw []byte) (Fix, error) {
	var d datagram
	if err := json.Unmarshal(raw, &d); err != nil {
		return Fix{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if d.Lat == nil || d.Lon == nil || d.Time == nil {
		return Fix{}, fmt.Errorf("%w: lat, lon and time are required", ErrMalformedPayload)
	}

	f := Fix{
		DeviceID:  d.Device,
		Latitude:  *d.Lat,
		Longitude: *d.Lon,
		Timestamp: *d.Time,
	}
	if f.DeviceID == "" {
		f.DeviceID = DefaultDeviceID
	}

	if err := f.Validate(); err != nil {
		return Fix{}, err
	}

	return f, nil
}

// Validate checks the coordinate ranges.
func (f *Fix) Validate() error {
	if f.Latitude < -90 || f.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v", ErrOutOfRange, f.Latitude)
	}
	if f.Longitude < -180 || f.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v", ErrOutOfRange, f.Longitude)
	}
	return nil
}
