package goble

import (
	"context"
	"fmt"

	"github.com/go-ble/ble"

	"github.com/plantsense/miflora-go/internal/log"
)

type conn struct {
	addr            string
	client          ble.Client
	service         *ble.Service
	characteristics map[string]*ble.Characteristic
}

func (c *conn) Read(ctx context.Context, characteristic string) ([]byte, error) {
	char, err := c.discover(characteristic)
	if err != nil {
		return nil, err
	}
	var value []byte
	err = c.await(ctx, func() error {
		var rerr error
		value, rerr = c.client.ReadCharacteristic(char)
		return rerr
	})
	if err != nil {
		return nil, fmt.Errorf("ble: failed to read %s: %s", characteristic, err)
	}
	log.Debug("RX %s: %02x", characteristic, value)
	return value, nil
}

func (c *conn) Write(ctx context.Context, characteristic string, value []byte) error {
	char, err := c.discover(characteristic)
	if err != nil {
		return err
	}
	log.Debug("TX %s: %02x", characteristic, value)
	err = c.await(ctx, func() error {
		return c.client.WriteCharacteristic(char, value, false)
	})
	if err != nil {
		return fmt.Errorf("ble: failed to write %s: %s", characteristic, err)
	}
	return nil
}

func (c *conn) Close() error {
	client := c.client
	if client == nil {
		return nil
	}
	c.client = nil
	if err := client.CancelConnection(); err != nil {
		return fmt.Errorf("ble: failed to drop connection to %s: %s", c.addr, err)
	}
	return nil
}

func (c *conn) discover(uuidStr string) (*ble.Characteristic, error) {
	if char, ok := c.characteristics[uuidStr]; ok {
		return char, nil
	}
	uuid, err := ble.Parse(uuidStr)
	if err != nil {
		return nil, fmt.Errorf("ble: bad characteristic UUID %q: %s", uuidStr, err)
	}
	characteristics, err := c.client.DiscoverCharacteristics([]ble.UUID{uuid}, c.service)
	if err != nil {
		return nil, fmt.Errorf("ble: failed to discover characteristic %s: %s", uuidStr, err)
	}
	for _, char := range characteristics {
		if char.UUID.Equal(uuid) {
			c.characteristics[uuidStr] = char
			return char, nil
		}
	}
	return nil, fmt.Errorf("ble: device %s does not expose characteristic %s", c.addr, uuidStr)
}

// await runs fn while honoring the step deadline. The underlying client has no
// context support for attribute traffic, so an expired deadline abandons the
// in-flight call; the subsequent disconnect cleans up the link.
func (c *conn) await(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
