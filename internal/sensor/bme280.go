package sensor

import (
	"context"

	"mqttsensord/internal/config"
)

// BME280Opener opens an I2C session with the sensor. A session is opened and
// closed around every read so a wedged bus never outlives one poll cycle.
type BME280Opener interface {
	Open(bus string, addr uint16) (BME280Session, error)
}

// BME280Session is one open bus transaction scope.
type BME280Session interface {
	// Sense reads all three quantities atomically; there is no partial
	// success on this device.
	Sense() (temperature, humidity, pressure float64, err error)
	Close() error
}

// BME280 reads temperature, humidity and pressure in one I2C transaction.
type BME280 struct {
	name   string
	bus    string
	addr   uint16
	opener BME280Opener
}

func newBME280(sc config.Sensor, deps *Deps) (*BME280, error) {
	if sc.I2CAddress == 0 {
		return nil, &ConfigError{Section: sc.Section, Name: sc.DeviceName, Reason: "i2c_address must be non-zero"}
	}
	return &BME280{
		name:   sc.DeviceName,
		bus:    sc.I2CBus,
		addr:   sc.I2CAddress,
		opener: deps.BME,
	}, nil
}

func (s *BME280) Name() string { return s.name }
func (s *BME280) Kind() Kind   { return KindBME280 }

func (s *BME280) Read(ctx context.Context) (Reading, error) {
	sess, err := s.opener.Open(s.bus, s.addr)
	if err != nil {
		return nil, &ReadError{Name: s.name, Kind: KindBME280, Err: err}
	}
	defer sess.Close()

	t, h, p, err := sess.Sense()
	if err != nil {
		return nil, &ReadError{Name: s.name, Kind: KindBME280, Err: err}
	}

	return Reading{
		"temperature": round(t, 2),
		"humidity":    round(h, 2),
		"pressure":    round(p, 2),
	}, nil
}
