// rssi-reporter periodically sends this host's Wi-Fi signal strength to an
// rssimon server.
//
// Usage:
//
//	rssi-reporter <device_name> <server_host> [server_port] [interval_seconds]
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/nerrad567/rssimon/internal/infrastructure/config"
	"github.com/nerrad567/rssimon/internal/infrastructure/logging"
	"github.com/nerrad567/rssimon/internal/reporter"
)

// Set at build time via -ldflags "-X main.version=...".
var version = "dev"

const usage = `Usage: rssi-reporter <device_name> <server_host> [server_port] [interval_seconds]
Example: rssi-reporter my-laptop 192.168.1.100 5001 10`

var errUsage = errors.New("invalid arguments")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	cfg, err := parseArgs(args)
	if err != nil {
		return err
	}

	log := logging.NewWithWriter(stderr, config.LoggingConfig{
		Level:  envOr("RSSIMON_LOG_LEVEL", "info"),
		Format: envOr("RSSIMON_LOG_FORMAT", "text"),
	}, logging.ServiceReporter, version)

	r := reporter.New(cfg, reporter.SystemSignal{})
	r.SetLogger(log)
	return r.Run(ctx)
}

// parseArgs maps the positional arguments onto a reporter.Config.
func parseArgs(args []string) (reporter.Config, error) {
	if len(args) < 2 || len(args) > 4 {
		return reporter.Config{}, errUsage
	}

	cfg := reporter.Config{
		Name:     args[0],
		Host:     args[1],
		Port:     reporter.DefaultPort,
		Interval: reporter.DefaultInterval,
	}
	if cfg.Name == "" || cfg.Host == "" {
		return reporter.Config{}, errUsage
	}

	if len(args) > 2 {
		port, err := strconv.Atoi(args[2])
		if err != nil || port < 1 || port > 65535 {
			return reporter.Config{}, fmt.Errorf("%w: port %q", errUsage, args[2])
		}
		cfg.Port = port
	}
	if len(args) > 3 {
		secs, err := strconv.Atoi(args[3])
		if err != nil || secs < 1 {
			return reporter.Config{}, fmt.Errorf("%w: interval %q", errUsage, args[3])
		}
		cfg.Interval = time.Duration(secs) * time.Second
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
