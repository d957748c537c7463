package mqtt

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mqttsensord/internal/sensor"
)

type fakeState struct {
	topics   []string
	payloads [][]byte
	err      error
}

func (f *fakeState) Publish(topic string, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, payload)
	return nil
}

func TestPublishState(t *testing.T) {
	fake := &fakeState{}
	p := &Publisher{client: fake}

	reading := sensor.Reading{"temperature": 21.5, "humidity": 48.0}
	require.NoError(t, p.PublishState("testhost/climate/state", reading))

	require.Equal(t, []string{"testhost/climate/state"}, fake.topics)

	var got map[string]float64
	require.NoError(t, json.Unmarshal(fake.payloads[0], &got))
	assert.Equal(t, map[string]float64{"temperature": 21.5, "humidity": 48.0}, got)
}

func TestPublishStateError(t *testing.T) {
	fake := &fakeState{err: errors.New("not connected")}
	p := &Publisher{client: fake}

	err := p.PublishState("t", sensor.Reading{"temperature": 1})
	assert.Error(t, err)
}
