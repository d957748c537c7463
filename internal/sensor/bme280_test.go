package sensor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mqttsensord/internal/config"
)

type fakeBMEOpener struct {
	openErr  error
	senseErr error
	opens    int
	closes   int

	temp, hum, press float64
}

type fakeBMESession struct {
	opener *fakeBMEOpener
}

func (o *fakeBMEOpener) Open(bus string, addr uint16) (BME280Session, error) {
	if o.openErr != nil {
		return nil, o.openErr
	}
	o.opens++
	return &fakeBMESession{opener: o}, nil
}

func (s *fakeBMESession) Sense() (float64, float64, float64, error) {
	if s.opener.senseErr != nil {
		return 0, 0, 0, s.opener.senseErr
	}
	return s.opener.temp, s.opener.hum, s.opener.press, nil
}

func (s *fakeBMESession) Close() error {
	s.opener.closes++
	return nil
}

func newBMEReader(t *testing.T, opener *fakeBMEOpener) Reader {
	t.Helper()
	r, err := New(config.Sensor{
		Section:    "sensor_garage",
		Type:       config.TypeBME280,
		DeviceName: "Garage",
		I2CAddress: 0x76,
	}, &Deps{BME: opener})
	require.NoError(t, err)
	return r
}

func TestBME280Read(t *testing.T) {
	opener := &fakeBMEOpener{temp: 19.876, hum: 55.555, press: 1013.249}
	r := newBMEReader(t, opener)

	reading, err := r.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Reading{
		"temperature": 19.88,
		"humidity":    55.56,
		"pressure":    1013.25,
	}, reading)
	assert.Equal(t, 1, opener.closes, "session must be closed after the read")
}

func TestBME280AllOrNothing(t *testing.T) {
	opener := &fakeBMEOpener{senseErr: errors.New("i2c nak")}
	r := newBMEReader(t, opener)

	reading, err := r.Read(context.Background())
	var readErr *ReadError
	require.ErrorAs(t, err, &readErr)
	assert.Nil(t, reading, "no partial readings on a failed transaction")
	assert.Equal(t, "Garage", readErr.Name)
	assert.Equal(t, 1, opener.closes, "session must be closed on the error path too")
}

func TestBME280OpenFailure(t *testing.T) {
	opener := &fakeBMEOpener{openErr: errors.New("no i2c bus")}
	r := newBMEReader(t, opener)

	_, err := r.Read(context.Background())
	var readErr *ReadError
	require.ErrorAs(t, err, &readErr)
	assert.Equal(t, KindBME280, readErr.Kind)
}
