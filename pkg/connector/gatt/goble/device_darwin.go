package goble

import (
	"errors"

	"github.com/go-ble/ble"
	"github.com/go-ble/ble/darwin"
)

var errAdapterID = errors.New("Darwin does not support specifying a Bluetooth adapter ID")

func newDevice(id string) (ble.Device, error) {
	if id != "" {
		return nil, errAdapterID
	}
	return darwin.NewDevice()
}
