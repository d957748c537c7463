package sensor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mqttsensord/internal/config"
)

func TestParseKind(t *testing.T) {
	for _, name := range []string{"ds18b20", "dht22", "bme280"} {
		k, err := ParseKind(name)
		require.NoError(t, err)
		assert.Equal(t, name, k.String())
	}

	_, err := ParseKind("sht31")
	assert.Error(t, err)
}

func TestKindQuantities(t *testing.T) {
	assert.Equal(t, []string{"temperature"}, KindDS18B20.Quantities())
	assert.Equal(t, []string{"temperature", "humidity"}, KindDHT22.Quantities())
	assert.Equal(t, []string{"temperature", "humidity", "pressure"}, KindBME280.Quantities())
}

func TestNewRejectsUnknownKind(t *testing.T) {
	_, err := New(config.Sensor{Section: "sensor_x", Type: "sht31", DeviceName: "X"}, &Deps{})

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "X", cfgErr.Name)
	assert.Contains(t, cfgErr.Error(), "sht31")
}

func TestNewRequiresDeviceName(t *testing.T) {
	_, err := New(config.Sensor{Section: "sensor_x", Type: "bme280"}, &Deps{})

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "sensor_x", cfgErr.Section)
}

func TestDS18B20Parse(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		expected float64
	}{
		{
			name:     "bare millidegrees",
			payload:  "23500",
			expected: 23.5,
		},
		{
			name:     "bare degrees below threshold",
			payload:  "23.5",
			expected: 23.5,
		},
		{
			name:     "t= marker with rounding",
			payload:  "t=21875",
			expected: 21.9,
		},
		{
			name:     "full w1_slave payload",
			payload:  "4b 46 7f ff 0c 10 1c : crc=1c YES\n4b 46 7f ff 0c 10 1c t=22812\n",
			expected: 22.8,
		},
		{
			name:     "negative millidegrees",
			payload:  "-5125",
			expected: -5.1,
		},
		{
			name:     "negative degrees below threshold",
			payload:  "-12.3",
			expected: -12.3,
		},
		{
			name:     "trailing newline",
			payload:  "23500\n",
			expected: 23.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newFileReader(t, tt.payload, nil)

			reading, err := r.Read(context.Background())
			require.NoError(t, err)
			assert.Equal(t, Reading{"temperature": tt.expected}, reading)
		})
	}
}

func TestDS18B20ReadFailures(t *testing.T) {
	t.Run("unreadable file", func(t *testing.T) {
		r := newFileReader(t, "", errors.New("no such device"))

		_, err := r.Read(context.Background())
		var readErr *ReadError
		require.ErrorAs(t, err, &readErr)
		assert.Equal(t, "Probe", readErr.Name)
		assert.Equal(t, KindDS18B20, readErr.Kind)
	})

	t.Run("garbage payload", func(t *testing.T) {
		r := newFileReader(t, "not a number", nil)

		_, err := r.Read(context.Background())
		var readErr *ReadError
		require.ErrorAs(t, err, &readErr)
	})
}

func newFileReader(t *testing.T, payload string, readErr error) Reader {
	t.Helper()
	deps := &Deps{
		ReadFile: func(string) ([]byte, error) {
			if readErr != nil {
				return nil, readErr
			}
			return []byte(payload), nil
		},
	}
	r, err := New(config.Sensor{
		Section:    "sensor_probe",
		Type:       config.TypeDS18B20,
		DeviceName: "Probe",
		SensorFile: "/dev/fake",
	}, deps)
	require.NoError(t, err)
	return r
}

func TestDS18B20RequiresSomeSource(t *testing.T) {
	deps := &Deps{
		ListOneWire: func() ([]string, error) { return nil, nil },
	}
	_, err := New(config.Sensor{
		Section:    "sensor_probe",
		Type:       config.TypeDS18B20,
		DeviceName: "Probe",
	}, deps)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestDS18B20DiscoversBusSensor(t *testing.T) {
	deps := &Deps{
		ListOneWire: func() ([]string, error) { return []string{"28-00000a"}, nil },
		ReadFile: func(path string) ([]byte, error) {
			assert.Equal(t, "/sys/bus/w1/devices/28-00000a/w1_slave", path)
			return []byte("t=20000"), nil
		},
	}
	r, err := New(config.Sensor{
		Section:    "sensor_probe",
		Type:       config.TypeDS18B20,
		DeviceName: "Probe",
	}, deps)
	require.NoError(t, err)

	reading, err := r.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20.0, reading["temperature"])
}
