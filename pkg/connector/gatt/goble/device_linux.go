package goble

import (
	"time"

	"github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
)

const bleTimeout = 20 * time.Second

func newDevice(id string) (ble.Device, error) {
	opts := []ble.Option{
		ble.OptListenerTimeout(bleTimeout),
		ble.OptDialerTimeout(bleTimeout),
	}
	if id != "" {
		opts = append(opts, ble.OptDeviceID(hciIndex(id)))
	}
	return linux.NewDevice(opts...)
}

func hciIndex(id string) int {
	// Accepts "hci0" style names as well as bare indices.
	n := 0
	for i := 0; i < len(id); i++ {
		if id[i] >= '0' && id[i] <= '9' {
			n = n*10 + int(id[i]-'0')
		}
	}
	return n
}
