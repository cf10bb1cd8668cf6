// Package goble implements the gatt capability on top of github.com/go-ble/ble.
package goble

import (
	"context"
	"fmt"

	"github.com/go-ble/ble"

	"github.com/plantsense/miflora-go/internal/log"
	"github.com/plantsense/miflora-go/pkg/connector/gatt"
)

type client struct {
	device  ble.Device
	service ble.UUID
}

// NewClient initializes the host Bluetooth adapter. The id selects the HCI
// device on Linux (e.g. "hci0") and must be empty on other platforms. All
// characteristics later addressed through a Conn must live under serviceUUID;
// the service is fixed per device type.
func NewClient(id string, serviceUUID string) (gatt.Client, error) {
	service, err := ble.Parse(serviceUUID)
	if err != nil {
		return nil, fmt.Errorf("ble: bad service UUID %q: %s", serviceUUID, err)
	}
	device, err := newDevice(id)
	if err != nil {
		return nil, fmt.Errorf("ble: failed to enable device: %s", err)
	}
	return &client{device: device, service: service}, nil
}

func (c *client) Connect(ctx context.Context, addr string) (gatt.Conn, error) {
	log.Debug("Dialing %s...", addr)
	bleClient, err := c.device.Dial(ctx, ble.NewAddr(addr))
	if err != nil {
		return nil, fmt.Errorf("ble: failed to dial %s: %s", addr, err)
	}

	log.Debug("Discovering services of %s...", addr)
	services, err := bleClient.DiscoverServices([]ble.UUID{c.service})
	if err == nil && len(services) == 0 {
		err = fmt.Errorf("service %s not found", c.service)
	}
	if err != nil {
		if cerr := bleClient.CancelConnection(); cerr != nil {
			log.Warning("ble: failed to drop connection to %s: %s", addr, cerr)
		}
		return nil, fmt.Errorf("ble: failed to discover service of %s: %s", addr, err)
	}

	log.Info("Connected to %s", addr)
	return &conn{
		addr:            addr,
		client:          bleClient,
		service:         services[0],
		characteristics: make(map[string]*ble.Characteristic),
	}, nil
}

func (c *client) Close() error {
	if c.device == nil {
		return nil
	}
	device := c.device
	c.device = nil
	return device.Stop()
}
