package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/plantsense/miflora-go/pkg/connector/gatt"
	"github.com/plantsense/miflora-go/pkg/miflora"
	"github.com/plantsense/miflora-go/pkg/protocol"
)

var (
	addr1 = miflora.Address{0xC4, 0x7C, 0x8D, 0x66, 0xA5, 0x3D}
	addr2 = miflora.Address{0xC4, 0x7C, 0x8D, 0x66, 0xA4, 0xD5}
	addr3 = miflora.Address{0x80, 0xEA, 0xCA, 0x88, 0xFE, 0xED}

	goodSensorPayload = []byte{0x64, 0x00, 0x00, 0x4B, 0x00, 0x00, 0x00, 0x2A, 0x37, 0x01}
	goodFirmware      = []byte{0x5A, 0x00, 0x33, 0x2E, 0x32, 0x2E, 0x32}

	errConnRefused = errors.New("connection refused")
)

// script describes how the fake radio treats one device.
type script struct {
	connectFailures int // fail this many connection attempts, then succeed
	sensorPayload   []byte
	onConnect       func() // runs on every connection attempt
}

type radioConn struct {
	radio  *fakeRadio
	script *script
}

func (c *radioConn) Read(_ context.Context, characteristic string) ([]byte, error) {
	if characteristic == miflora.FirmwareCharUUID {
		return goodFirmware, nil
	}
	if c.script.sensorPayload != nil {
		return c.script.sensorPayload, nil
	}
	return goodSensorPayload, nil
}

func (c *radioConn) Write(_ context.Context, _ string, _ []byte) error {
	return nil
}

func (c *radioConn) Close() error {
	c.radio.open--
	return nil
}

// fakeRadio enforces the single-link invariant while scripting per-device
// behavior.
type fakeRadio struct {
	t       *testing.T
	scripts map[string]*script

	dialed  []string
	open    int
	maxOpen int
}

func newFakeRadio(t *testing.T) *fakeRadio {
	return &fakeRadio{t: t, scripts: make(map[string]*script)}
}

func (f *fakeRadio) scriptFor(addr miflora.Address) *script {
	s, ok := f.scripts[addr.String()]
	if !ok {
		s = &script{}
		f.scripts[addr.String()] = s
	}
	return s
}

func (f *fakeRadio) Connect(_ context.Context, addr string) (gatt.Conn, error) {
	f.dialed = append(f.dialed, addr)
	s, ok := f.scripts[addr]
	if !ok {
		s = &script{}
	}
	if s.onConnect != nil {
		s.onConnect()
	}
	if s.connectFailures > 0 {
		s.connectFailures--
		return nil, errConnRefused
	}
	f.open++
	if f.open > f.maxOpen {
		f.maxOpen = f.open
	}
	if f.open > 1 {
		f.t.Errorf("two connections open concurrently")
	}
	return &radioConn{radio: f, script: s}, nil
}

func (f *fakeRadio) Close() error {
	return nil
}

func quickConfig() Config {
	return Config{Retries: 0, RetryInterval: time.Millisecond}
}

func mustRegistry(t *testing.T, addrs ...miflora.Address) *Registry {
	t.Helper()
	registry, err := NewRegistry(addrs)
	if err != nil {
		t.Fatal(err)
	}
	return registry
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	if _, err := NewRegistry([]miflora.Address{addr1, addr2, addr1}); err == nil {
		t.Error("expected duplicate address to be rejected")
	}
}

func TestPollEmptyRegistry(t *testing.T) {
	p := New(newFakeRadio(t), quickConfig())
	outcomes := p.Poll(context.Background(), mustRegistry(t))
	if len(outcomes) != 0 {
		t.Errorf("expected no outcomes, got %d", len(outcomes))
	}
}

func TestPollReturnsOutcomesInRegistryOrder(t *testing.T) {
	radio := newFakeRadio(t)
	p := New(radio, quickConfig())

	outcomes := p.Poll(context.Background(), mustRegistry(t, addr1, addr2, addr3))
	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	for i, want := range []miflora.Address{addr1, addr2, addr3} {
		if outcomes[i].Address != want {
			t.Errorf("outcome %d for %s, want %s", i, outcomes[i].Address, want)
		}
		if !outcomes[i].OK() {
			t.Errorf("outcome %d failed: %s", i, outcomes[i].Err)
		}
	}
	if radio.maxOpen != 1 {
		t.Errorf("maxOpen = %d, want 1", radio.maxOpen)
	}
}

func TestPollIsolatesFailures(t *testing.T) {
	radio := newFakeRadio(t)
	radio.scriptFor(addr1).connectFailures = 10 // fails every attempt
	p := New(radio, quickConfig())

	outcomes := p.Poll(context.Background(), mustRegistry(t, addr1, addr2))
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}

	if outcomes[0].OK() {
		t.Error("first sensor should have failed")
	}
	if op, ok := protocol.OpOf(outcomes[0].Err); !ok || op != protocol.OpConnect {
		t.Errorf("expected connect error, got %v", outcomes[0].Err)
	}
	if outcomes[0].Reading != nil {
		t.Error("failed outcome must not carry a reading")
	}

	if !outcomes[1].OK() {
		t.Errorf("second sensor should have succeeded: %s", outcomes[1].Err)
	}
	if outcomes[1].Reading.Version != "3.2.2" {
		t.Errorf("reading = %+v", outcomes[1].Reading)
	}
}

func TestPollRetriesTransientFailures(t *testing.T) {
	radio := newFakeRadio(t)
	radio.scriptFor(addr1).connectFailures = 1
	cfg := quickConfig()
	cfg.Retries = 1
	p := New(radio, cfg)

	outcomes := p.Poll(context.Background(), mustRegistry(t, addr1))
	if !outcomes[0].OK() {
		t.Fatalf("expected the retry to succeed: %s", outcomes[0].Err)
	}
	if len(radio.dialed) != 2 {
		t.Errorf("expected 2 connection attempts, got %d", len(radio.dialed))
	}
}

func TestPollRetriesAreBounded(t *testing.T) {
	radio := newFakeRadio(t)
	radio.scriptFor(addr1).connectFailures = 10
	cfg := quickConfig()
	cfg.Retries = 2
	p := New(radio, cfg)

	outcomes := p.Poll(context.Background(), mustRegistry(t, addr1))
	if outcomes[0].OK() {
		t.Fatal("expected failure")
	}
	if len(radio.dialed) != 3 {
		t.Errorf("expected 3 connection attempts, got %d", len(radio.dialed))
	}
}

func TestPollDoesNotRetryDecodeErrors(t *testing.T) {
	radio := newFakeRadio(t)
	radio.scriptFor(addr1).sensorPayload = goodSensorPayload[:4]
	cfg := quickConfig()
	cfg.Retries = 2
	p := New(radio, cfg)

	outcomes := p.Poll(context.Background(), mustRegistry(t, addr1))
	var derr *protocol.DecodeError
	if !errors.As(outcomes[0].Err, &derr) {
		t.Fatalf("expected decode error, got %v", outcomes[0].Err)
	}
	if len(radio.dialed) != 1 {
		t.Errorf("decode errors must not be retried, got %d attempts", len(radio.dialed))
	}
}

func TestPollStopsAfterInFlightSessionOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	radio := newFakeRadio(t)
	radio.scriptFor(addr2).onConnect = cancel
	p := New(radio, quickConfig())

	outcomes := p.Poll(ctx, mustRegistry(t, addr1, addr2, addr3))
	if len(outcomes) != 3 {
		t.Fatalf("expected one outcome per address, got %d", len(outcomes))
	}
	if !outcomes[0].OK() {
		t.Errorf("first session should have completed: %s", outcomes[0].Err)
	}
	// The in-flight session runs its course even though the batch was
	// canceled while it was connecting.
	if !outcomes[1].OK() {
		t.Errorf("in-flight session should have completed: %s", outcomes[1].Err)
	}
	if outcomes[2].OK() || !errors.Is(outcomes[2].Err, context.Canceled) {
		t.Errorf("third sensor should report cancellation, got %v", outcomes[2].Err)
	}
	for _, dialed := range radio.dialed {
		if dialed == addr3.String() {
			t.Error("no session may start after cancellation")
		}
	}
}
