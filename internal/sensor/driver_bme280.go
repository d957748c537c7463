package sensor

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"
)

var (
	periphInitOnce sync.Once
	periphInitErr  error
)

// periphBME280Opener drives the sensor through periph.io's bmxx80 device
// support, one bus session per read.
type periphBME280Opener struct{}

func (periphBME280Opener) Open(bus string, addr uint16) (BME280Session, error) {
	periphInitOnce.Do(func() { _, periphInitErr = host.Init() })
	if periphInitErr != nil {
		return nil, fmt.Errorf("periph host init: %w", periphInitErr)
	}

	// An empty name selects the platform's default I2C bus.
	b, err := i2creg.Open(bus)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", bus, err)
	}

	dev, err := bmxx80.NewI2C(b, addr, &bmxx80.DefaultOpts)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("probe bme280 at 0x%02x: %w", addr, err)
	}

	return &periphBME280Session{bus: b, dev: dev}, nil
}

type periphBME280Session struct {
	bus i2c.BusCloser
	dev *bmxx80.Dev
}

func (s *periphBME280Session) Sense() (float64, float64, float64, error) {
	var env physic.Env
	if err := s.dev.Sense(&env); err != nil {
		return 0, 0, 0, err
	}

	t := env.Temperature.Celsius()
	h := float64(env.Humidity) / float64(physic.PercentRH)
	p := float64(env.Pressure) / float64(100*physic.Pascal) // hPa

	return t, h, p, nil
}

func (s *periphBME280Session) Close() error {
	_ = s.dev.Halt()
	return s.bus.Close()
}
