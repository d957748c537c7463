package sensor

import (
	"log"
	"os"

	"mqttsensord/internal/config"
)

// Deps carries the injectable driver layer. Tests substitute fakes, the
// daemon uses NewDeps which wires the hardware implementations.
type Deps struct {
	Logger *log.Logger

	// ReadFile reads the raw ds18b20 payload file.
	ReadFile func(path string) ([]byte, error)

	// ListOneWire enumerates 1-wire sensor ids when no file is configured.
	ListOneWire func() ([]string, error)

	// DHT initializes per-pin bus handles; handles are cached in DHTCache.
	DHT      DHTDriver
	DHTCache *HandleCache

	// BME opens one I2C session per read.
	BME BME280Opener
}

// NewDeps returns driver dependencies backed by real hardware, sharing one
// DHT handle cache across all readers.
func NewDeps(logger *log.Logger) *Deps {
	d := &Deps{
		Logger:      logger,
		ReadFile:    os.ReadFile,
		ListOneWire: listOneWireSensors,
		DHT:         &rpioDHTDriver{},
		BME:         &periphBME280Opener{},
	}
	d.DHTCache = NewHandleCache(d.DHT)
	return d
}

// New constructs the reader for one configured sensor section. Unknown kinds
// and missing required parameters come back as *ConfigError so the caller can
// skip the sensor without aborting startup.
func New(sc config.Sensor, deps *Deps) (Reader, error) {
	kind, err := ParseKind(sc.Type)
	if err != nil {
		return nil, &ConfigError{Section: sc.Section, Name: sc.DeviceName, Reason: err.Error()}
	}

	if sc.DeviceName == "" {
		return nil, &ConfigError{Section: sc.Section, Reason: "device_name is required"}
	}

	switch kind {
	case KindDS18B20:
		return newDS18B20(sc, deps)
	case KindDHT22:
		return newDHT22(sc, deps)
	case KindBME280:
		return newBME280(sc, deps)
	}
	return nil, &ConfigError{Section: sc.Section, Name: sc.DeviceName, Reason: "unhandled sensor kind"}
}
