package mqtt

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"mqttsensord/internal/config"
	"mqttsensord/internal/sensor"
	"mqttsensord/internal/slug"
	"mqttsensord/internal/storage"
)

// Per-quantity defaults for discovery payloads.
var defaultUnits = map[string]string{
	"temperature": "°C",
	"humidity":    "%",
	"pressure":    "hPa",
}

// DiscoveryMessage is one Home Assistant discovery payload, describing a
// single entity (one measured quantity of one sensor).
type DiscoveryMessage struct {
	Name              string      `json:"name"`
	StateTopic        string      `json:"state_topic"`
	UnitOfMeasurement string      `json:"unit_of_measurement"`
	DeviceClass       string      `json:"device_class"`
	StateClass        string      `json:"state_class"`
	ValueTemplate     string      `json:"value_template"`
	UniqueID          string      `json:"unique_id"`
	Device            *DeviceInfo `json:"device"`
}

// DiscoveryEntry pairs a discovery payload with its fully-qualified config
// topic.
type DiscoveryEntry struct {
	Suffix  string
	Topic   string
	Message *DiscoveryMessage
}

// StateTopic returns the topic live readings are published to: the
// configured override, or {hostname}/{slug}/state.
func StateTopic(sc config.Sensor, hostname string) string {
	if sc.Topic != "" {
		return sc.Topic
	}
	return fmt.Sprintf("%s/%s/state", hostname, slug.Make(sc.DeviceName))
}

// BuildDiscoveryMessages produces one discovery entry per measured quantity
// of the sensor. Multi-quantity kinds get a `{slug}_{quantity}` topic suffix
// and a `{base}_{quantity}` unique id; the single-quantity kind uses the bare
// slug and base. Unique ids are stable across restarts for the same
// configuration, which is what makes republished discovery an update rather
// than a duplicate for the hub.
func BuildDiscoveryMessages(sc config.Sensor, dev *DeviceInfo, hostname string) ([]DiscoveryEntry, error) {
	kind, err := sensor.ParseKind(sc.Type)
	if err != nil {
		return nil, err
	}

	name := slug.Make(sc.DeviceName)
	stateTopic := StateTopic(sc, hostname)

	uniqueBase := sc.UniqueID
	if uniqueBase == "" {
		uniqueBase = hostname + "_" + name
	}

	quantities := kind.Quantities()
	single := len(quantities) == 1

	entries := make([]DiscoveryEntry, 0, len(quantities))
	for _, q := range quantities {
		msg := &DiscoveryMessage{
			Name:              fmt.Sprintf("%s %s", sc.DeviceName, q),
			StateTopic:        stateTopic,
			UnitOfMeasurement: defaultUnits[q],
			DeviceClass:       q,
			StateClass:        "measurement",
			ValueTemplate:     fmt.Sprintf("{{ value_json.%s }}", q),
			UniqueID:          fmt.Sprintf("%s_%s", uniqueBase, q),
			Device:            dev,
		}
		suffix := fmt.Sprintf("%s_%s", name, q)

		if single {
			msg.Name = sc.DeviceName
			msg.UniqueID = uniqueBase
			suffix = name
			if sc.DeviceClass != "" {
				msg.DeviceClass = sc.DeviceClass
			}
		}
		if unit, ok := sc.UnitOverrides[q]; ok {
			msg.UnitOfMeasurement = unit
		}

		entries = append(entries, DiscoveryEntry{
			Suffix:  suffix,
			Topic:   fmt.Sprintf("%s/sensor/%s/%s/config", sc.DiscoveryPrefix, hostname, suffix),
			Message: msg,
		})
	}

	return entries, nil
}

// retainedPublisher is the part of Client the manager needs; tests
// substitute a recording fake.
type retainedPublisher interface {
	PublishRetained(topic string, payload []byte) error
}

// DiscoveryManager publishes discovery entries on every (re)connection and
// keeps optional bookkeeping of what was announced.
type DiscoveryManager struct {
	client retainedPublisher
	logger *log.Logger
	store  storage.Store // may be nil
}

// NewDiscoveryManager creates a DiscoveryManager. store may be nil.
func NewDiscoveryManager(client *Client, logger *log.Logger, store storage.Store) *DiscoveryManager {
	return &DiscoveryManager{client: client, logger: logger, store: store}
}

// PublishAll publishes every entry, retained. A failing entry is logged and
// skipped; one sensor's bad discovery never blocks the others.
func (d *DiscoveryManager) PublishAll(entries []DiscoveryEntry) {
	published := 0
	for _, e := range entries {
		payload, err := json.Marshal(e.Message)
		if err != nil {
			if d.logger != nil {
				d.logger.Printf("[Discovery] Failed to marshal config for %s: %v", e.Topic, err)
			}
			continue
		}

		if err := d.client.PublishRetained(e.Topic, payload); err != nil {
			if d.logger != nil {
				d.logger.Printf("[Discovery] Failed to publish %s: %v", e.Topic, err)
			}
			continue
		}
		published++

		d.record(e, payload)
	}

	if d.logger != nil {
		d.logger.Printf("[Discovery] Published %d/%d discovery configs", published, len(entries))
	}
}

func (d *DiscoveryManager) record(e DiscoveryEntry, payload []byte) {
	if d.store == nil {
		return
	}

	sum := sha1.Sum(payload)
	changed, err := d.store.RecordDiscovery(e.Message.UniqueID, storage.DiscoveryRecord{
		Checksum:    hex.EncodeToString(sum[:]),
		Topic:       e.Topic,
		PublishedAt: time.Now().UTC(),
	})
	if err != nil {
		if d.logger != nil {
			d.logger.Printf("[Discovery] Failed to record %s: %v", e.Message.UniqueID, err)
		}
		return
	}
	if changed && d.logger != nil {
		d.logger.Printf("[Discovery] Config for %s changed since last run", e.Message.UniqueID)
	}
}
