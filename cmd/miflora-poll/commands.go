package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/plantsense/miflora-go/pkg/connector/gatt"
	"github.com/plantsense/miflora-go/pkg/miflora"
	"github.com/plantsense/miflora-go/pkg/poller"
)

var (
	ErrCommandLineArgs = errors.New("invalid command line arguments")
	ErrUnknownCommand  = errors.New("unrecognized command")
)

// environment carries the shared state each command handler needs.
type environment struct {
	client   gatt.Client
	registry *poller.Registry
	names    map[miflora.Address]string
	poller   poller.Config
	interval time.Duration
	json     bool
}

type Argument struct {
	name string
	help string
}

type Handler func(ctx context.Context, env *environment, args map[string]string) error

type Command struct {
	help    string
	args    []Argument
	handler Handler
}

var commands = map[string]*Command{
	"poll": {
		help:    "Poll every configured sensor once (or cyclically with -interval)",
		handler: runPoll,
	},
	"read": {
		help: "Poll a single sensor",
		args: []Argument{
			{name: "ADDRESS", help: "Sensor hardware address (aa:bb:cc:dd:ee:ff)"},
		},
		handler: runRead,
	},
	"list": {
		help:    "Print the configured sensors",
		handler: runList,
	},
}

func execute(ctx context.Context, env *environment, args []string) error {
	if len(args) == 0 {
		return errors.New("missing COMMAND")
	}
	info, ok := commands[args[0]]
	if !ok {
		return ErrUnknownCommand
	}

	var err error
	if len(args)-1 != len(info.args) {
		writeErr("Invalid number of command line arguments: %d (%d required).", len(args)-1, len(info.args))
		err = ErrCommandLineArgs
	} else {
		keywords := make(map[string]string)
		for i, argInfo := range info.args {
			keywords[argInfo.name] = args[i+1]
		}
		err = info.handler(ctx, env, keywords)
	}

	if errors.Is(err, ErrCommandLineArgs) {
		info.Usage(args[0])
	}
	return err
}

func (c *Command) Usage(name string) {
	fmt.Printf("Usage: %s", name)
	for _, arg := range c.args {
		fmt.Printf(" %s", arg.name)
	}
	fmt.Printf("\n%s\n", c.help)
	for _, arg := range c.args {
		fmt.Printf("    %s: %s\n", arg.name, arg.help)
	}
}

func runPoll(ctx context.Context, env *environment, _ map[string]string) error {
	if env.registry.Len() == 0 {
		return errors.New("no sensors configured (use -config)")
	}
	p := poller.New(env.client, env.poller)
	for {
		outcomes := p.Poll(ctx, env.registry)
		if err := printOutcomes(env, outcomes); err != nil {
			return err
		}
		if env.interval == 0 {
			if failed := countFailed(outcomes); failed > 0 {
				return fmt.Errorf("%d of %d sensors failed", failed, len(outcomes))
			}
			return nil
		}
		select {
		case <-time.After(env.interval):
		case <-ctx.Done():
			return nil
		}
	}
}

func runRead(ctx context.Context, env *environment, args map[string]string) error {
	addr, err := miflora.ParseAddress(args["ADDRESS"])
	if err != nil {
		return err
	}
	registry, err := poller.NewRegistry([]miflora.Address{addr})
	if err != nil {
		return err
	}
	outcomes := poller.New(env.client, env.poller).Poll(ctx, registry)
	if err := printOutcomes(env, outcomes); err != nil {
		return err
	}
	if failed := countFailed(outcomes); failed > 0 {
		return outcomes[0].Err
	}
	return nil
}

func runList(_ context.Context, env *environment, _ map[string]string) error {
	for _, addr := range env.registry.Addresses() {
		if name := env.names[addr]; name != "" {
			fmt.Printf("%s  %s\n", addr, name)
		} else {
			fmt.Println(addr)
		}
	}
	return nil
}

func countFailed(outcomes []poller.Outcome) int {
	n := 0
	for _, outcome := range outcomes {
		if !outcome.OK() {
			n++
		}
	}
	return n
}

type readingJSON struct {
	TemperatureCelsius float64 `json:"temperature_celsius"`
	LightLux           uint32  `json:"light_lux"`
	MoisturePercent    uint8   `json:"moisture_percent"`
	ConductivityUSCm   uint16  `json:"conductivity_us_cm"`
	BatteryPercent     uint8   `json:"battery_percent"`
	FirmwareVersion    string  `json:"firmware_version"`
}

type outcomeJSON struct {
	Address string       `json:"address"`
	Name    string       `json:"name,omitempty"`
	Time    time.Time    `json:"time"`
	Error   string       `json:"error,omitempty"`
	Reading *readingJSON `json:"reading,omitempty"`
}

func printOutcomes(env *environment, outcomes []poller.Outcome) error {
	if env.json {
		return printJSON(env, outcomes)
	}
	for _, outcome := range outcomes {
		label := outcome.Address.String()
		if name := env.names[outcome.Address]; name != "" {
			label = fmt.Sprintf("%s (%s)", label, name)
		}
		if outcome.OK() {
			r := outcome.Reading
			fmt.Printf("%s: %s, %d lx, %d%% moisture, %d µS/cm, battery %d%%, firmware %s\n",
				label, r.Temperature, r.Light, r.Moisture, r.Conductivity, r.Battery, r.Version)
		} else {
			fmt.Printf("%s: FAILED: %s\n", label, outcome.Err)
		}
	}
	return nil
}

func printJSON(env *environment, outcomes []poller.Outcome) error {
	encoder := json.NewEncoder(os.Stdout)
	now := time.Now().UTC()
	for _, outcome := range outcomes {
		entry := outcomeJSON{
			Address: outcome.Address.String(),
			Name:    env.names[outcome.Address],
			Time:    now,
		}
		if outcome.OK() {
			r := outcome.Reading
			entry.Reading = &readingJSON{
				TemperatureCelsius: r.Temperature.Celsius(),
				LightLux:           r.Light,
				MoisturePercent:    r.Moisture,
				ConductivityUSCm:   r.Conductivity,
				BatteryPercent:     r.Battery,
				FirmwareVersion:    r.Version,
			}
		} else {
			entry.Error = outcome.Err.Error()
		}
		if err := encoder.Encode(&entry); err != nil {
			return err
		}
	}
	return nil
}
