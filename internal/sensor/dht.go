package sensor

import (
	"context"
	"errors"
	"math"
	"sync"

	"mqttsensord/internal/config"
)

// DHTDriver initializes the single-wire bus for one GPIO pin. Initialization
// is expensive (bus setup plus a settling period), so handles are cached and
// reused across poll cycles.
type DHTDriver interface {
	Init(pin int) (DHTHandle, error)
}

// DHTHandle is an initialized per-pin bus handle.
type DHTHandle interface {
	// Sample reads one temperature/humidity pair. Transient checksum and
	// timing failures are normal on this bus.
	Sample() (temperature, humidity float64, err error)
	Close() error
}

// HandleCache keeps at most one initialized DHT handle per GPIO pin. A failed
// sample must evict the pin's handle so the next cycle re-initializes the bus
// from scratch.
type HandleCache struct {
	mu      sync.Mutex
	driver  DHTDriver
	handles map[int]DHTHandle
}

func NewHandleCache(driver DHTDriver) *HandleCache {
	return &HandleCache{driver: driver, handles: make(map[int]DHTHandle)}
}

// Get returns the cached handle for pin, initializing one on first use.
func (c *HandleCache) Get(pin int) (DHTHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if h, ok := c.handles[pin]; ok {
		return h, nil
	}

	h, err := c.driver.Init(pin)
	if err != nil {
		return nil, err
	}
	c.handles[pin] = h
	return h, nil
}

// Evict closes and forgets the handle for pin, if any.
func (c *HandleCache) Evict(pin int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if h, ok := c.handles[pin]; ok {
		_ = h.Close()
		delete(c.handles, pin)
	}
}

// Close releases every cached handle.
func (c *HandleCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for pin, h := range c.handles {
		_ = h.Close()
		delete(c.handles, pin)
	}
}

// DHT22 reads a humidity+temperature pair through a cached per-pin handle.
type DHT22 struct {
	name  string
	pin   int
	cache *HandleCache
}

func newDHT22(sc config.Sensor, deps *Deps) (*DHT22, error) {
	if sc.Pin < 0 {
		return nil, &ConfigError{Section: sc.Section, Name: sc.DeviceName, Reason: "pin must be a valid GPIO number"}
	}
	cache := deps.DHTCache
	if cache == nil {
		cache = NewHandleCache(deps.DHT)
	}
	return &DHT22{name: sc.DeviceName, pin: sc.Pin, cache: cache}, nil
}

func (s *DHT22) Name() string { return s.name }
func (s *DHT22) Kind() Kind   { return KindDHT22 }

func (s *DHT22) Read(ctx context.Context) (Reading, error) {
	h, err := s.cache.Get(s.pin)
	if err != nil {
		return nil, &ReadError{Name: s.name, Kind: KindDHT22, Err: err}
	}

	t, hum, err := h.Sample()
	if err == nil && (math.IsNaN(t) || math.IsNaN(hum)) {
		err = errors.New("incomplete sample")
	}
	if err != nil {
		// The bus is in an unknown state after a bad sample, force a full
		// re-initialization on the next cycle.
		s.cache.Evict(s.pin)
		return nil, &ReadError{Name: s.name, Kind: KindDHT22, Err: err}
	}

	return Reading{
		"temperature": round(t, 2),
		"humidity":    round(hum, 2),
	}, nil
}
