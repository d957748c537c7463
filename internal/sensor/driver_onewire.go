package sensor

import "github.com/yryz/ds18b20"

func listOneWireSensors() ([]string, error) {
	return ds18b20.Sensors()
}

func oneWireSlavePath(id string) string {
	return "/sys/bus/w1/devices/" + id + "/w1_slave"
}
