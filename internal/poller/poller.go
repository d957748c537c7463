// Package poller runs the periodic read-and-publish cycle
package poller

import (
	"context"
	"log"
	"sync"
	"time"

	"mqttsensord/internal/sensor"
)

// Publisher forwards one reading to the state topic.
type Publisher interface {
	PublishState(topic string, reading sensor.Reading) error
}

// Target pairs a sensor reader with its state topic.
type Target struct {
	Reader sensor.Reader
	Topic  string
}

// Snapshot is the last known outcome for one sensor, kept for the status API.
type Snapshot struct {
	Name    string         `json:"name"`
	Kind    string         `json:"kind"`
	Topic   string         `json:"topic"`
	Reading sensor.Reading `json:"reading,omitempty"`
	Error   string         `json:"error,omitempty"`
	At      time.Time      `json:"at"`
}

// Poller iterates the configured sensors every interval. Reads are strictly
// sequential, so a sensor's driver state is never touched by two cycles at
// once. One sensor's failure never stops the cycle or the loop; only context
// cancellation does.
type Poller struct {
	targets  []Target
	interval time.Duration
	pub      Publisher
	logger   *log.Logger

	mu   sync.RWMutex
	last map[string]Snapshot
}

// New creates a Poller over the given targets.
func New(targets []Target, interval time.Duration, pub Publisher, logger *log.Logger) *Poller {
	return &Poller{
		targets:  targets,
		interval: interval,
		pub:      pub,
		logger:   logger,
		last:     make(map[string]Snapshot, len(targets)),
	}
}

// Run blocks until ctx is cancelled, running one cycle immediately and then
// one per interval.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			if p.logger != nil {
				p.logger.Printf("[Poller] Stopped")
			}
			return
		case <-ticker.C:
			p.Cycle(ctx)
		}
	}
}

// Cycle reads and publishes every target once. Exported so a connection test
// or a one-shot invocation can drive cycles directly.
func (p *Poller) Cycle(ctx context.Context) {
	for _, t := range p.targets {
		select {
		case <-ctx.Done():
			// Shutdown requested mid-cycle: the in-flight sensor finished,
			// don't start the next one.
			return
		default:
		}

		reading, err := t.Reader.Read(ctx)
		if err != nil {
			if p.logger != nil {
				p.logger.Printf("[Poller] Read failed: %v", err)
			}
			p.remember(t, nil, err)
			continue
		}

		if err := p.pub.PublishState(t.Topic, reading); err != nil {
			if p.logger != nil {
				p.logger.Printf("[Poller] Publish for %q failed: %v", t.Reader.Name(), err)
			}
			p.remember(t, reading, err)
			continue
		}

		p.remember(t, reading, nil)
	}
}

func (p *Poller) remember(t Target, reading sensor.Reading, err error) {
	snap := Snapshot{
		Name:    t.Reader.Name(),
		Kind:    t.Reader.Kind().String(),
		Topic:   t.Topic,
		Reading: reading,
		At:      time.Now().UTC(),
	}
	if err != nil {
		snap.Error = err.Error()
	}

	p.mu.Lock()
	p.last[t.Topic] = snap
	p.mu.Unlock()
}

// Snapshots returns the last outcome per target, in target order.
func (p *Poller) Snapshots() []Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Snapshot, 0, len(p.targets))
	for _, t := range p.targets {
		if snap, ok := p.last[t.Topic]; ok {
			out = append(out, snap)
		}
	}
	return out
}
