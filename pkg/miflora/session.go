package miflora

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/plantsense/miflora-go/internal/log"
	"github.com/plantsense/miflora-go/pkg/connector/gatt"
	"github.com/plantsense/miflora-go/pkg/protocol"
)

// State identifies where a Session is in its connect/read/disconnect cycle.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateModeSwitching
	StateReadingSensor
	StateReadingFirmware
	StateDisconnecting
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:            "idle",
	StateConnecting:      "connecting",
	StateModeSwitching:   "mode-switching",
	StateReadingSensor:   "reading-sensor",
	StateReadingFirmware: "reading-firmware",
	StateDisconnecting:   "disconnecting",
	StateDone:            "done",
	StateFailed:          "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Timeouts bound the individual GATT operations of a session. Zero fields
// fall back to the defaults.
type Timeouts struct {
	Connect time.Duration
	Write   time.Duration
	Read    time.Duration
}

const (
	DefaultConnectTimeout = 20 * time.Second
	DefaultWriteTimeout   = 5 * time.Second
	DefaultReadTimeout    = 5 * time.Second
)

func (t Timeouts) withDefaults() Timeouts {
	if t.Connect == 0 {
		t.Connect = DefaultConnectTimeout
	}
	if t.Write == 0 {
		t.Write = DefaultWriteTimeout
	}
	if t.Read == 0 {
		t.Read = DefaultReadTimeout
	}
	return t
}

var errSessionReused = errors.New("miflora: session already run")

// Session drives one device through a single poll: connect, switch the device
// to real-time mode, read both data characteristics, disconnect. A Session is
// single-use; it does not retry and holds the only live connection while it
// runs.
type Session struct {
	client   gatt.Client
	addr     Address
	timeouts Timeouts
	state    State
}

func NewSession(client gatt.Client, addr Address, timeouts Timeouts) *Session {
	return &Session{
		client:   client,
		addr:     addr,
		timeouts: timeouts.withDefaults(),
		state:    StateIdle,
	}
}

func (s *Session) State() State {
	return s.state
}

// Run drives the session to a terminal state. On success the returned Reading
// holds every field; on failure the error carries the first fault
// encountered, classified per the protocol package. The connection, if one
// was established, is released on every exit path.
func (s *Session) Run(ctx context.Context) (*Reading, error) {
	if s.state != StateIdle {
		return nil, errSessionReused
	}
	reading, err := s.run(ctx)
	if err != nil {
		s.transition(StateFailed)
		return nil, err
	}
	s.transition(StateDone)
	return reading, nil
}

func (s *Session) run(ctx context.Context) (*Reading, error) {
	s.transition(StateConnecting)
	conn, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer s.disconnect(conn)

	s.transition(StateModeSwitching)
	if err := s.write(ctx, conn, CommandCharUUID, realtimeModeCommand); err != nil {
		return nil, err
	}

	s.transition(StateReadingSensor)
	raw, err := s.read(ctx, conn, SensorDataCharUUID)
	if err != nil {
		return nil, err
	}
	data, err := DecodeSensorData(raw)
	if err != nil {
		return nil, err
	}

	s.transition(StateReadingFirmware)
	raw, err = s.read(ctx, conn, FirmwareCharUUID)
	if err != nil {
		return nil, err
	}
	firmware, err := DecodeFirmware(raw)
	if err != nil {
		return nil, err
	}

	return &Reading{Address: s.addr, SensorData: data, Firmware: firmware}, nil
}

func (s *Session) connect(ctx context.Context) (gatt.Conn, error) {
	stepCtx, cancel := context.WithTimeout(ctx, s.timeouts.Connect)
	defer cancel()
	conn, err := s.client.Connect(stepCtx, s.addr.String())
	if err != nil {
		return nil, &protocol.LinkError{Op: protocol.OpConnect, Err: err, Expired: expired(stepCtx, err)}
	}
	return conn, nil
}

func (s *Session) write(ctx context.Context, conn gatt.Conn, characteristic string, value []byte) error {
	stepCtx, cancel := context.WithTimeout(ctx, s.timeouts.Write)
	defer cancel()
	if err := conn.Write(stepCtx, characteristic, value); err != nil {
		return &protocol.LinkError{Op: protocol.OpWrite, Err: err, Expired: expired(stepCtx, err)}
	}
	return nil
}

func (s *Session) read(ctx context.Context, conn gatt.Conn, characteristic string) ([]byte, error) {
	stepCtx, cancel := context.WithTimeout(ctx, s.timeouts.Read)
	defer cancel()
	value, err := conn.Read(stepCtx, characteristic)
	if err != nil {
		return nil, &protocol.LinkError{Op: protocol.OpRead, Err: err, Expired: expired(stepCtx, err)}
	}
	return value, nil
}

// disconnect is best effort: a failure is logged but never changes the
// session outcome.
func (s *Session) disconnect(conn gatt.Conn) {
	s.transition(StateDisconnecting)
	if err := conn.Close(); err != nil {
		log.Warning("%s: disconnect failed: %s", s.addr, err)
	}
}

func (s *Session) transition(next State) {
	log.Debug("%s: %s -> %s", s.addr, s.state, next)
	s.state = next
}

func expired(ctx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(ctx.Err(), context.DeadlineExceeded)
}
