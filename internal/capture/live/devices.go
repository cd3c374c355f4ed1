package live

import (
	"fmt"

	"github.com/google/gopacket/pcap"
)

// Device describes one capture-capable interface.
type Device struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Addresses   []string `json:"addresses,omitempty" yaml:"addresses,omitempty"`
}

// Devices enumerates interfaces in the order libpcap reports them.
func Devices() ([]Device, error) {
	ifaces, err := pcap.FindAllDevs()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	devices := make([]Device, 0, len(ifaces))
	for _, iface := range ifaces {
		d := Device{
			Name:        iface.Name,
			Description: iface.Description,
		}
		for _, addr := range iface.Addresses {
			d.Addresses = append(d.Addresses, addr.IP.String())
		}
		devices = append(devices, d)
	}
	return devices, nil
}

// FirstDevice returns the name of the first enumerated interface.
func FirstDevice() (string, error) {
	devices, err := Devices()
	if err != nil {
		return "", err
	}
	if len(devices) == 0 {
		return "", fmt.Errorf("no capture devices found")
	}
	return devices[0].Name, nil
}
