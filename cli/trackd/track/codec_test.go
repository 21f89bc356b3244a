package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeValid(t *testing.T) {
	raw := []byte(`{"lat":40.4168,"lon":-3.7038,"time":1700000000000}`)

	fix, err := Decode(raw)
	require.NoError(t, err)

	assert.Equal(t, Fix{
		DeviceID:  DefaultDeviceID,
		Latitude:  40.4168,
		Longitude: -3.7038,
		Timestamp: 1700000000000,
	}, fix)
}

func TestDecodeDeviceField(t *testing.T) {
	raw := []byte(`{"lat":1.0,"lon":2.0,"time":1000,"device":"tracker-7"}`)

	fix, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "tracker-7", fix.DeviceID)
}

func TestDecodeIgnoresExtraFields(t *testing.T) {
	// Older firmware revisions also send accuracy and speed.
	raw := []byte(`{"lat":1.0,"lon":2.0,"time":1000,"accuracy":5.0,"speed":1.2}`)

	_, err := Decode(raw)
	assert.NoError(t, err)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{
			name:    "not json",
			raw:     "GPRMC,123519,A,4807.038,N",
			wantErr: ErrMalformedPayload,
		},
		{
			name:    "truncated payload",
			raw:     `{"lat":40.0,"lon":`,
			wantErr: ErrMalformedPayload,
		},
		{
			name:    "empty payload",
			raw:     "",
			wantErr: ErrMalformedPayload,
		},
		{
			name:    "missing time",
			raw:     `{"lat":40.0,"lon":-3.0}`,
			wantErr: ErrMalformedPayload,
		},
		{
			name:    "missing coordinates",
			raw:     `{"time":1000}`,
			wantErr: ErrMalformedPayload,
		},
		{
			name:    "non-numeric latitude",
			raw:     `{"lat":"forty","lon":-3.0,"time":1000}`,
			wantErr: ErrMalformedPayload,
		},
		{
			name:    "fractional timestamp",
			raw:     `{"lat":40.0,"lon":-3.0,"time":1000.5}`,
			wantErr: ErrMalformedPayload,
		},
		{
			name:    "latitude above range",
			raw:     `{"lat":90.5,"lon":0,"time":1000}`,
			wantErr: ErrOutOfRange,
		},
		{
			name:    "latitude below range",
			raw:     `{"lat":-91,"lon":0,"time":1000}`,
			wantErr: ErrOutOfRange,
		},
		{
			name:    "longitude above range",
			raw:     `{"lat":0,"lon":180.1,"time":1000}`,
			wantErr: ErrOutOfRange,
		},
		{
			name:    "longitude below range",
			raw:     `{"lat":0,"lon":-181,"time":1000}`,
			wantErr: ErrOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.raw))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDecodeBoundaryCoordinates(t *testing.T) {
	for _, raw := range []string{
		`{"lat":90,"lon":180,"time":1}`,
		`{"lat":-90,"lon":-180,"time":1}`,
		`{"lat":0,"lon":0,"time":1}`,
	} {
		_, err := Decode([]byte(raw))
		assert.NoError(t, err, "payload %s", raw)
	}
}
