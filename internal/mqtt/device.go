package mqtt

import (
	"fmt"
	"strings"

	"mqttsensord/internal/config"
)

// Device descriptor defaults, matching what the daemon has always announced
// for hosts that don't configure a [DEVICE] section.
const (
	DefaultModel        = "Raspberry Pi"
	DefaultManufacturer = "Your Manufacturer"
)

// DeviceInfo is the device block shared by every discovery message published
// for this host. Home Assistant uses it to group the entities under one
// device. Immutable after construction, shared by pointer.
type DeviceInfo struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Model        string   `json:"model"`
	Manufacturer string   `json:"manufacturer"`
	SWVersion    string   `json:"sw_version,omitempty"`
}

// NewDeviceInfo builds the host's device descriptor from the optional
// [DEVICE] section, falling back to hostname-derived defaults. Pure function
// of its inputs.
func NewDeviceInfo(sec *config.Device, hostname string) (*DeviceInfo, error) {
	d := &DeviceInfo{
		Identifiers:  []string{hostname},
		Name:         hostname,
		Model:        DefaultModel,
		Manufacturer: DefaultManufacturer,
	}
	if sec == nil {
		return d, nil
	}

	if sec.Identifiers != "" {
		var ids []string
		for _, raw := range strings.Split(sec.Identifiers, ",") {
			if id := strings.TrimSpace(raw); id != "" {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			return nil, fmt.Errorf("[DEVICE] identifiers must contain at least one non-empty value")
		}
		d.Identifiers = ids
	}
	if sec.Name != "" {
		d.Name = sec.Name
	}
	if sec.Model != "" {
		d.Model = sec.Model
	}
	if sec.Manufacturer != "" {
		d.Manufacturer = sec.Manufacturer
	}
	if v := strings.TrimSpace(sec.SWVersion); v != "" {
		d.SWVersion = v
	}

	return d, nil
}
