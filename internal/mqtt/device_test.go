package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mqttsensord/internal/config"
)

func TestNewDeviceInfoDefaults(t *testing.T) {
	d, err := NewDeviceInfo(nil, "attic-pi")
	require.NoError(t, err)

	assert.Equal(t, []string{"attic-pi"}, d.Identifiers)
	assert.Equal(t, "attic-pi", d.Name)
	assert.Equal(t, DefaultModel, d.Model)
	assert.Equal(t, DefaultManufacturer, d.Manufacturer)
	assert.Empty(t, d.SWVersion)
}

func TestNewDeviceInfoFromSection(t *testing.T) {
	d, err := NewDeviceInfo(&config.Device{
		Identifiers:  "attic, attic-pi , ",
		Name:         "Attic Pi",
		Model:        "Raspberry Pi Zero 2 W",
		Manufacturer: "Raspberry Pi Foundation",
		SWVersion:    " 1.2.0 ",
	}, "attic-pi")
	require.NoError(t, err)

	assert.Equal(t, []string{"attic", "attic-pi"}, d.Identifiers)
	assert.Equal(t, "Attic Pi", d.Name)
	assert.Equal(t, "Raspberry Pi Zero 2 W", d.Model)
	assert.Equal(t, "Raspberry Pi Foundation", d.Manufacturer)
	assert.Equal(t, "1.2.0", d.SWVersion)
}

func TestNewDeviceInfoPartialSection(t *testing.T) {
	d, err := NewDeviceInfo(&config.Device{Name: "Attic Pi", SWVersion: "  "}, "attic-pi")
	require.NoError(t, err)

	assert.Equal(t, []string{"attic-pi"}, d.Identifiers, "identifiers default to the hostname")
	assert.Equal(t, "Attic Pi", d.Name)
	assert.Equal(t, DefaultModel, d.Model)
	assert.Empty(t, d.SWVersion, "blank sw_version is omitted")
}

func TestNewDeviceInfoRejectsEmptyIdentifiers(t *testing.T) {
	_, err := NewDeviceInfo(&config.Device{Identifiers: " , ,"}, "attic-pi")
	assert.Error(t, err)
}
