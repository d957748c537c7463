package mqtt

import (
	"encoding/json"
	"log"

	"mqttsensord/internal/sensor"
)

// statePublisher is the part of Client the publisher needs.
type statePublisher interface {
	Publish(topic string, payload []byte) error
}

// Publisher serializes readings into JSON state payloads. State messages are
// not retained: a stale reading is worse than no reading.
type Publisher struct {
	client statePublisher
	logger *log.Logger
}

// NewPublisher creates a Publisher on top of the client.
func NewPublisher(client *Client, logger *log.Logger) *Publisher {
	return &Publisher{client: client, logger: logger}
}

// PublishState publishes one reading as a JSON object keyed by quantity.
func (p *Publisher) PublishState(topic string, reading sensor.Reading) error {
	payload, err := json.Marshal(reading)
	if err != nil {
		if p.logger != nil {
			p.logger.Printf("[MQTT Publisher] Failed to marshal reading: %v", err)
		}
		return err
	}

	if err := p.client.Publish(topic, payload); err != nil {
		if p.logger != nil {
			p.logger.Printf("[MQTT Publisher] Failed to publish to %s: %v", topic, err)
		}
		return err
	}

	return nil
}
