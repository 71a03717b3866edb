package main

import (
	"errors"
	"flag"
	"os"
)

// cliConfig holds user-supplied flag values prior to translation into a
// create-subscription request, mirroring cmd/nse-publishd's flags.go.
type cliConfig struct {
	streamsDir string
	busURL     string
	logLevel   string
	stream     string
	startTime  string
	stopTime   string
	filter     string
}

func parseFlags(args []string) (*cliConfig, error) {
	fs := flag.NewFlagSet("nse-subscribe", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	cfg := &cliConfig{}
	fs.StringVar(&cfg.streamsDir, "streams-dir", "", "stream directory override (default: LIBNETCONF_STREAMS or the compiled default)")
	fs.StringVar(&cfg.busURL, "bus-url", "", "NATS bus URL (default: nats.DefaultURL)")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "log level: debug|info|warn|error")
	fs.StringVar(&cfg.stream, "stream", "NETCONF", "stream name to subscribe to")
	fs.StringVar(&cfg.startTime, "start-time", "", "RFC3339 replay start time (empty: live only)")
	fs.StringVar(&cfg.stopTime, "stop-time", "", "RFC3339 stop time (empty: no stop)")
	fs.StringVar(&cfg.filter, "filter", "", "raw inner XML of a <filter> subtree")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch cfg.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, errors.New("invalid log-level: " + cfg.logLevel)
	}
	if cfg.stopTime != "" && cfg.startTime == "" {
		return nil, errors.New("-stop-time requires -start-time")
	}

	return cfg, nil
}

// rpcBody renders cfg into a <create-subscription> RPC body for validate.Validate.
func (c *cliConfig) rpcBody() string {
	body := "<create-subscription><stream>" + c.stream + "</stream>"
	if c.startTime != "" {
		body += "<startTime>" + c.startTime + "</startTime>"
	}
	if c.stopTime != "" {
		body += "<stopTime>" + c.stopTime + "</stopTime>"
	}
	if c.filter != "" {
		body += "<filter>" + c.filter + "</filter>"
	}
	body += "</create-subscription>"
	return body
}
