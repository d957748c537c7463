// Package mqtt provides the broker transport and the Home Assistant
// discovery/state publishing layer.
package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Config holds MQTT client configuration.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	ClientID string
}

// Client wraps the paho client. Publish methods are safe to call from both
// the poll loop and the connect-event goroutine; the underlying paho client
// serializes access to the network connection.
type Client struct {
	client   mqtt.Client
	config   Config
	mu       sync.RWMutex
	logger   *log.Logger
	isActive bool

	// connected receives one event per successful (re)connection. Buffered
	// so the paho callback never blocks on a slow consumer; a dropped event
	// is fine because another connect always follows a disconnect.
	connected chan struct{}
}

// New creates a new MQTT client.
func New(cfg Config, logger *log.Logger) (*Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("MQTT broker host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 1883
	}
	if cfg.ClientID == "" {
		cfg.ClientID = fmt.Sprintf("mqttsensord-%d", time.Now().Unix())
	}

	c := &Client{
		config:    cfg,
		logger:    logger,
		connected: make(chan struct{}, 1),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port))
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		if c.logger != nil {
			c.logger.Printf("[MQTT] Connection lost: %v", err)
		}
	})

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		if c.logger != nil {
			c.logger.Printf("[MQTT] Connected to broker: %s:%d", cfg.Host, cfg.Port)
		}
		select {
		case c.connected <- struct{}{}:
		default:
		}
	})

	opts.SetReconnectingHandler(func(client mqtt.Client, options *mqtt.ClientOptions) {
		if c.logger != nil {
			c.logger.Printf("[MQTT] Attempting to reconnect...")
		}
	})

	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(true)

	c.client = mqtt.NewClient(opts)
	return c, nil
}

// ConnectionEvents returns the channel delivering one event per successful
// (re)connection. Discovery republish hangs off this channel rather than off
// the transport's internal callback.
func (c *Client) ConnectionEvents() <-chan struct{} {
	return c.connected
}

// Connect establishes the connection to the broker.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isActive {
		return nil
	}

	if c.logger != nil {
		c.logger.Printf("[MQTT] Connecting to broker: %s:%d", c.config.Host, c.config.Port)
	}

	token := c.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	c.isActive = true
	return nil
}

// Disconnect closes the connection to the broker.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isActive {
		return
	}

	c.client.Disconnect(250) // wait up to 250ms for queued publishes
	c.isActive = false

	if c.logger != nil {
		c.logger.Printf("[MQTT] Disconnected from broker")
	}
}

// Publish publishes a non-retained message with QoS 0 (telemetry default).
func (c *Client) Publish(topic string, payload []byte) error {
	return c.publish(topic, 0, false, payload)
}

// PublishRetained publishes a retained message with QoS 1, used for
// discovery configs so the hub recovers them after its own restart.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.publish(topic, 1, true, payload)
}

func (c *Client) publish(topic string, qos byte, retained bool, payload []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.isActive {
		return fmt.Errorf("MQTT client is not connected")
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish message: %w", token.Error())
	}

	if c.logger != nil {
		c.logger.Printf("[MQTT] Published to %s (QoS %d, retained %v)", topic, qos, retained)
	}

	return nil
}

// IsConnected returns true if the client is connected to the broker.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isActive && c.client.IsConnected()
}
