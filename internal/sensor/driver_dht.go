package sensor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stianeikeland/go-rpio/v4"
)

// dhtSettleDelay gives the sensor time to stabilize after the bus comes up.
// Sampling immediately after power-on yields garbage frames.
const dhtSettleDelay = 2 * time.Second

var (
	rpioOpenOnce sync.Once
	rpioOpenErr  error
)

var (
	errDHTTimeout  = errors.New("bus timing: no response from sensor")
	errDHTChecksum = errors.New("checksum mismatch")
)

// rpioDHTDriver bit-bangs the DHT22 single-wire protocol over a GPIO pin.
type rpioDHTDriver struct{}

func (rpioDHTDriver) Init(pin int) (DHTHandle, error) {
	rpioOpenOnce.Do(func() { rpioOpenErr = rpio.Open() })
	if rpioOpenErr != nil {
		return nil, fmt.Errorf("open gpio memory: %w", rpioOpenErr)
	}

	h := &rpioDHTHandle{pin: rpio.Pin(pin)}
	h.pin.Output()
	h.pin.High()
	time.Sleep(dhtSettleDelay)
	return h, nil
}

type rpioDHTHandle struct {
	pin rpio.Pin
}

func (h *rpioDHTHandle) Sample() (float64, float64, error) {
	data, err := h.readFrame()
	if err != nil {
		return 0, 0, err
	}

	if byte(data[0]+data[1]+data[2]+data[3]) != data[4] {
		return 0, 0, errDHTChecksum
	}

	hum := float64(uint16(data[0])<<8|uint16(data[1])) / 10
	temp := float64(uint16(data[2]&0x7f)<<8|uint16(data[3])) / 10
	if data[2]&0x80 != 0 {
		temp = -temp
	}

	// A frame can pass the checksum and still be garbage after a partial
	// transfer, bounds-check against the datasheet ranges.
	if hum < 0 || hum > 100 || temp < -40 || temp > 80 {
		return 0, 0, fmt.Errorf("implausible sample t=%.1f h=%.1f", temp, hum)
	}

	return temp, hum, nil
}

func (h *rpioDHTHandle) Close() error {
	// Leave the line idle-high so the sensor is not held in a start state.
	h.pin.Output()
	h.pin.High()
	return nil
}

// readFrame performs one wake-up + 40-bit transfer. Bit values are decided by
// the length of the high pulse: ~27µs means 0, ~70µs means 1.
func (h *rpioDHTHandle) readFrame() ([5]byte, error) {
	var data [5]byte

	// Start signal: hold the line low, then release and listen.
	h.pin.Output()
	h.pin.Low()
	time.Sleep(2 * time.Millisecond)
	h.pin.Input()
	h.pin.PullUp()

	deadline := time.Now().Add(20 * time.Millisecond)

	// Sensor acknowledges with 80µs low + 80µs high before the data bits.
	if err := waitLevel(h.pin, rpio.Low, deadline); err != nil {
		return data, err
	}
	if err := waitLevel(h.pin, rpio.High, deadline); err != nil {
		return data, err
	}
	if err := waitLevel(h.pin, rpio.Low, deadline); err != nil {
		return data, err
	}

	for i := 0; i < 40; i++ {
		// Each bit: 50µs low preamble, then a high pulse whose width
		// encodes the value.
		if err := waitLevel(h.pin, rpio.High, deadline); err != nil {
			return data, err
		}
		start := time.Now()
		if err := waitLevel(h.pin, rpio.Low, deadline); err != nil {
			return data, err
		}
		if time.Since(start) > 50*time.Microsecond {
			data[i/8] |= 1 << (7 - uint(i%8))
		}
	}

	return data, nil
}

func waitLevel(pin rpio.Pin, want rpio.State, deadline time.Time) error {
	for pin.Read() != want {
		if time.Now().After(deadline) {
			return errDHTTimeout
		}
	}
	return nil
}
