// Package sensor maps heterogeneous hardware sensors onto one read interface
package sensor

import (
	"context"
	"fmt"
	"math"
)

// Kind identifies one of the supported sensor families. The set is closed:
// adding a kind means adding a reader type and extending every switch below,
// which the compiler will point out.
type Kind int

const (
	// KindDS18B20 is a 1-wire temperature probe exposing a text file.
	KindDS18B20 Kind = iota
	// KindDHT22 is a humidity+temperature sensor on a timing-sensitive
	// single-wire GPIO bus.
	KindDHT22
	// KindBME280 is an I2C sensor reading temperature, humidity and
	// pressure in one transaction.
	KindBME280
)

func (k Kind) String() string {
	switch k {
	case KindDS18B20:
		return "ds18b20"
	case KindDHT22:
		return "dht22"
	case KindBME280:
		return "bme280"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a configured type string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "ds18b20":
		return KindDS18B20, nil
	case "dht22":
		return KindDHT22, nil
	case "bme280":
		return KindBME280, nil
	default:
		return 0, fmt.Errorf("unknown sensor type %q", s)
	}
}

// Quantities returns the measured dimensions this kind must deliver on every
// successful read. A reading missing any of them is a failure.
func (k Kind) Quantities() []string {
	switch k {
	case KindDHT22:
		return []string{"temperature", "humidity"}
	case KindBME280:
		return []string{"temperature", "humidity", "pressure"}
	default:
		return []string{"temperature"}
	}
}

// Reading maps quantity names to rounded values. A Reading is built fresh on
// every poll cycle and never mutated afterwards.
type Reading map[string]float64

// Reader is the uniform read capability over all sensor kinds.
type Reader interface {
	// Name returns the configured display name.
	Name() string
	// Kind returns the sensor family.
	Kind() Kind
	// Read samples the sensor and returns one complete Reading. Failures
	// are *ReadError or *ConfigError values carrying the sensor identity.
	Read(ctx context.Context) (Reading, error)
}

// ConfigError marks a sensor section the daemon cannot act on (unknown kind,
// missing required parameter). It is permanent for this run, the sensor is
// skipped for both discovery and polling.
type ConfigError struct {
	Section string
	Name    string
	Reason  string
}

func (e *ConfigError) Error() string {
	id := e.Name
	if id == "" {
		id = e.Section
	}
	return fmt.Sprintf("sensor %q: %s", id, e.Reason)
}

// ReadError marks a failed sample. Transient by nature, the same sensor is
// retried on the next poll cycle.
type ReadError struct {
	Name string
	Kind Kind
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%s sensor %q: %v", e.Kind, e.Name, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

func round(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}
