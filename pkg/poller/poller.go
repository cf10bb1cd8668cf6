// Package poller runs GATT sessions against a registry of sensors, strictly
// one at a time, and collects one outcome per sensor.
package poller

import (
	"context"
	"time"

	"github.com/plantsense/miflora-go/internal/log"
	"github.com/plantsense/miflora-go/pkg/connector/gatt"
	"github.com/plantsense/miflora-go/pkg/miflora"
	"github.com/plantsense/miflora-go/pkg/protocol"
)

// Outcome is the result of polling one sensor. Exactly one of Reading and Err
// is set.
type Outcome struct {
	Address miflora.Address
	Reading *miflora.Reading
	Err     error
}

func (o Outcome) OK() bool {
	return o.Err == nil
}

const (
	// DefaultRetries is the number of additional session attempts after a
	// transient failure.
	DefaultRetries = 1

	// DefaultRetryInterval matches the pacing the sensors tolerate between
	// connection attempts.
	DefaultRetryInterval = 10 * time.Second
)

type Config struct {
	Timeouts miflora.Timeouts

	// Retries is the number of extra attempts after a transient failure of a
	// session. Non-transient failures (rejected writes, short payloads) are
	// never retried.
	Retries int

	// RetryInterval is the wait between attempts against the same sensor.
	// Zero selects DefaultRetryInterval.
	RetryInterval time.Duration
}

// Poller drives the shared radio. Sessions run sequentially; no second
// connection is opened before the previous session has released its handle.
type Poller struct {
	client gatt.Client
	cfg    Config
}

func New(client gatt.Client, cfg Config) *Poller {
	if cfg.RetryInterval == 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	return &Poller{client: client, cfg: cfg}
}

// Poll runs one session per registry address, in registry order, and returns
// exactly one outcome per address. A failing sensor never aborts the batch.
// Canceling ctx stops the batch after the in-flight session completes;
// sensors that were not reached report the cancellation error as their
// outcome.
func (p *Poller) Poll(ctx context.Context, registry *Registry) []Outcome {
	outcomes := make([]Outcome, 0, registry.Len())
	for _, addr := range registry.Addresses() {
		if err := ctx.Err(); err != nil {
			outcomes = append(outcomes, Outcome{Address: addr, Err: err})
			continue
		}
		reading, err := p.pollOne(ctx, addr)
		if err != nil {
			log.Error("%s: poll failed: %s", addr, err)
		}
		outcomes = append(outcomes, Outcome{Address: addr, Reading: reading, Err: err})
	}
	return outcomes
}

func (p *Poller) pollOne(ctx context.Context, addr miflora.Address) (*miflora.Reading, error) {
	var reading *miflora.Reading
	var err error
	for attempt := 0; attempt <= p.cfg.Retries; attempt++ {
		if attempt > 0 {
			log.Info("%s: retrying after transient failure: %s", addr, err)
			select {
			case <-time.After(p.cfg.RetryInterval):
			case <-ctx.Done():
				return nil, err
			}
		}
		session := miflora.NewSession(p.client, addr, p.cfg.Timeouts)
		reading, err = session.Run(ctx)
		if err == nil || !protocol.ShouldRetry(err) {
			break
		}
	}
	return reading, err
}
