package main

import (
	"errors"
	"flag"
	"os"
)

type cliConfig struct {
	streamsDir string
	busURL     string
	logLevel   string
}

func parseFlags(args []string) (*cliConfig, error) {
	fs := flag.NewFlagSet("nse-publishd", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	cfg := &cliConfig{}
	fs.StringVar(&cfg.streamsDir, "streams-dir", "", "stream directory override (default: LIBNETCONF_STREAMS or the compiled default)")
	fs.StringVar(&cfg.busURL, "bus-url", "", "NATS bus URL (default: nats.DefaultURL)")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "log level: debug|info|warn|error")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch cfg.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, errors.New("invalid log-level: " + cfg.logLevel)
	}
	return cfg, nil
}
