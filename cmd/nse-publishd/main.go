package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/955Gmy/libnetconf/internal/logger"
	"github.com/955Gmy/libnetconf/internal/nse/engine"
	"github.com/955Gmy/libnetconf/internal/nse/publish"
)

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	logger.Init()
	if err := logger.SetLevel(cfg.logLevel); err != nil {
		fmt.Printf("warning: invalid log level %q, using default\n", cfg.logLevel)
	}
	log := logger.Logger().With("component", "nse-publishd")

	eng, err := engine.New(engine.Config{Dir: cfg.streamsDir, BusURL: cfg.busURL})
	if err != nil {
		log.Error("failed to start engine", "error", err)
		os.Exit(1)
	}
	defer eng.Close()

	log.Info("engine ready", "streams_dir", eng.Dir)

	runStdinLoop(log, eng)
}

func runStdinLoop(log interface {
	Info(string, ...any)
	Warn(string, ...any)
}, eng *engine.Engine) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		payload, eventTime, err := parseInputLine([]byte(line))
		if err != nil {
			log.Warn("skipping malformed input line", "error", err)
			continue
		}
		if err := publish.Publish(eng.Reg, eng.Bus, eventTime, payload); err != nil {
			log.Warn("publish failed", "error", err)
			continue
		}
		log.Info("published event")
	}
}
