package sensor

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"mqttsensord/internal/config"
)

// milliDegreeThreshold disambiguates bare-float payloads: kernel drivers that
// emit millidegrees produce magnitudes far above any plausible Celsius value.
// The exact cutoff is legacy behavior relied on by deployed sensors, do not
// tune it.
const milliDegreeThreshold = 170

// DS18B20 reads a single temperature from a fixed-format text file, usually
// the w1_slave node of a 1-wire probe.
type DS18B20 struct {
	name     string
	path     string
	readFile func(string) ([]byte, error)
}

func newDS18B20(sc config.Sensor, deps *Deps) (*DS18B20, error) {
	path := sc.SensorFile
	if path == "" && sc.SensorID != "" {
		path = oneWireSlavePath(sc.SensorID)
	}
	if path == "" {
		// No explicit source, fall back to the first probe on the bus.
		ids, err := deps.ListOneWire()
		if err != nil || len(ids) == 0 {
			return nil, &ConfigError{
				Section: sc.Section,
				Name:    sc.DeviceName,
				Reason:  "sensor_file or sensor_id is required and no 1-wire sensor was found",
			}
		}
		path = oneWireSlavePath(ids[0])
		if deps.Logger != nil {
			deps.Logger.Printf("[Sensor] %s: using discovered 1-wire sensor %s", sc.DeviceName, ids[0])
		}
	}

	return &DS18B20{name: sc.DeviceName, path: path, readFile: deps.ReadFile}, nil
}

func (s *DS18B20) Name() string { return s.name }
func (s *DS18B20) Kind() Kind   { return KindDS18B20 }

func (s *DS18B20) Read(ctx context.Context) (Reading, error) {
	raw, err := s.readFile(s.path)
	if err != nil {
		return nil, &ReadError{Name: s.name, Kind: KindDS18B20, Err: err}
	}

	t, err := parseCelsius(string(raw))
	if err != nil {
		return nil, &ReadError{Name: s.name, Kind: KindDS18B20, Err: err}
	}

	return Reading{"temperature": round(t, 1)}, nil
}

// parseCelsius handles the two payload formats seen across driver versions.
// The full w1_slave format carries the value as millidegrees after a "t="
// marker; older setups expose a bare number that may be either millidegrees
// or already-scaled degrees. The payload itself does not say which, so the
// magnitude decides: anything above milliDegreeThreshold cannot be a Celsius
// reading and is divided down.
func parseCelsius(raw string) (float64, error) {
	if i := strings.Index(raw, "t="); i >= 0 {
		milli, err := parseLeadingInt(raw[i+2:])
		if err != nil {
			return 0, fmt.Errorf("bad t= field: %w", err)
		}
		return float64(milli) / 1000, nil
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("unrecognized payload %q", strings.TrimSpace(raw))
	}
	if math.Abs(v) > milliDegreeThreshold {
		return v / 1000, nil
	}
	return v, nil
}

// parseLeadingInt parses the integer at the start of s, ignoring whatever
// follows it (the w1_slave payload continues after the value).
func parseLeadingInt(s string) (int, error) {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return strconv.Atoi(s[:end])
}
