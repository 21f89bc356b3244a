package track

import (
	"encoding/json"
	"time"
)

// DefaultDeviceID is used for datagrams that carry no device field.
// The reference tracker firmware identifies itself implicitly, so a
// single-device deployment only ever sees this key.
const DefaultDeviceID = "default"

// Fix is a single accepted GPS reading. Fixes are immutable after
// acceptance; the store only ever copies them.
type Fix struct {
	DeviceID  string  `json:"device_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp_value"`
}

func (f *Fix) ToBytes() ([]byte, error) {
	return json.Marshal(f)
}

// Time converts the epoch-millisecond timestamp.
func (f *Fix) Time() time.Time {
	return time.UnixMilli(f.Timestamp)
}

// SameCoordinates reports whether two fixes describe the same point,
// ignoring timestamps.
func (f *Fix) SameCoordinates(other Fix) bool {
	return f.Latitude == other.Latitude && f.Longitude == other.Longitude
}
