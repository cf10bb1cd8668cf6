package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/shlex"
	"golang.org/x/term"

	"github.com/plantsense/miflora-go/internal/config"
	"github.com/plantsense/miflora-go/internal/log"
	"github.com/plantsense/miflora-go/pkg/connector/gatt/goble"
	"github.com/plantsense/miflora-go/pkg/miflora"
	"github.com/plantsense/miflora-go/pkg/poller"
)

func writeErr(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprintf(os.Stderr, "\n")
}

const usage = `
 * Sensor addresses are read from the -config file.
 * Without a COMMAND, the program enters an interactive shell.`

func Usage() {
	fmt.Printf("Usage: %s [OPTION...] [COMMAND [ARG...]]\n", os.Args[0])
	fmt.Println(usage)
	fmt.Println("")
	fmt.Printf("Available OPTIONs:\n")
	flag.PrintDefaults()
	fmt.Println("")
	fmt.Printf("Available COMMANDs:\n")
	maxLength := 0
	var labels []string
	for command := range commands {
		labels = append(labels, command)
		if len(command) > maxLength {
			maxLength = len(command)
		}
	}
	sort.Strings(labels)
	for _, command := range labels {
		info := commands[command]
		fmt.Printf("  %s%s %s\n", command, strings.Repeat(" ", maxLength-len(command)), info.help)
	}
}

func runCommand(ctx context.Context, env *environment, args []string) int {
	if err := execute(ctx, env, args); err != nil {
		writeErr("Failed to execute command: %s", err)
		return 1
	}
	return 0
}

func runInteractiveShell(ctx context.Context, env *environment) int {
	scanner := bufio.NewScanner(os.Stdin)
	for fmt.Printf("> "); scanner.Scan(); fmt.Printf("> ") {
		args, err := shlex.Split(scanner.Text())
		if err != nil {
			writeErr("Invalid command: %s", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" {
			return 0
		}
		runCommand(ctx, env, args)
		if ctx.Err() != nil {
			return 0
		}
	}
	if err := scanner.Err(); err != nil {
		writeErr("Error reading command: %s", err)
		return 1
	}
	return 0
}

func main() {
	status := 1
	defer func() {
		os.Exit(status)
	}()

	var (
		configFile     string
		adapterID      string
		debug          bool
		jsonOutput     bool
		retries        int
		interval       time.Duration
		connectTimeout time.Duration
		writeTimeout   time.Duration
		readTimeout    time.Duration
	)
	flag.Usage = Usage
	flag.StringVar(&configFile, "config", "", "Load sensor addresses and poll settings from `file`")
	flag.StringVar(&adapterID, "adapter", "", "Bluetooth adapter ID (e.g. hci0; Linux only)")
	flag.BoolVar(&debug, "debug", false, "Enable verbose debugging messages")
	flag.BoolVar(&jsonOutput, "json", false, "Print outcomes as JSON (default when stdout is not a terminal)")
	flag.IntVar(&retries, "retries", -1, "Extra session attempts after a transient failure (overrides config)")
	flag.DurationVar(&interval, "interval", 0, "Repeat the poll cycle at this period (0 = poll once)")
	flag.DurationVar(&connectTimeout, "connect-timeout", 0, "Set timeout for establishing a sensor connection")
	flag.DurationVar(&writeTimeout, "write-timeout", 0, "Set timeout for the mode-switch write")
	flag.DurationVar(&readTimeout, "read-timeout", 0, "Set timeout for characteristic reads")
	flag.Parse()

	if debug {
		log.SetLevel(log.LevelDebug)
	} else {
		log.SetLevel(log.LevelWarning)
	}

	cfg := &config.Config{}
	if configFile != "" {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			writeErr("Failed to load configuration: %s", err)
			return
		}
	}

	registry, err := poller.NewRegistry(cfg.Addresses())
	if err != nil {
		writeErr("Invalid sensor configuration: %s", err)
		return
	}

	pollerCfg := cfg.PollerConfig()
	if retries >= 0 {
		pollerCfg.Retries = retries
	}
	if connectTimeout > 0 {
		pollerCfg.Timeouts.Connect = connectTimeout
	}
	if writeTimeout > 0 {
		pollerCfg.Timeouts.Write = writeTimeout
	}
	if readTimeout > 0 {
		pollerCfg.Timeouts.Read = readTimeout
	}
	if interval == 0 {
		interval = cfg.Interval()
	}

	client, err := goble.NewClient(adapterID, miflora.DataServiceUUID)
	if err != nil {
		writeErr("Failed to initialize Bluetooth adapter: %s", err)
		return
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.Warning("Failed to release Bluetooth adapter: %s", err)
		}
	}()

	env := &environment{
		client:   client,
		registry: registry,
		names:    cfg.Names(),
		poller:   pollerCfg,
		interval: interval,
		json:     jsonOutput || !term.IsTerminal(int(os.Stdout.Fd())),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flag.NArg() > 0 {
		status = runCommand(ctx, env, flag.Args())
	} else {
		status = runInteractiveShell(ctx, env)
	}
}
