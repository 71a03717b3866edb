package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/955Gmy/libnetconf/internal/logger"
	"github.com/955Gmy/libnetconf/internal/nse/dispatch"
	"github.com/955Gmy/libnetconf/internal/nse/engine"
	"github.com/955Gmy/libnetconf/internal/nse/subscribe"
	"github.com/955Gmy/libnetconf/internal/nse/validate"
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
	log := logger.Logger().With("component", "nse-subscribe")

	eng, err := engine.New(engine.Config{Dir: cfg.streamsDir, BusURL: cfg.busURL})
	if err != nil {
		log.Error("failed to start engine", "error", err)
		os.Exit(1)
	}
	defer eng.Close()

	exists := func(name string) bool {
		_, err := eng.Reg.Get(name)
		return err == nil
	}
	req, err := validate.Validate(cfg.rpcBody(), exists, time.Now().Unix())
	if err != nil {
		log.Error("invalid subscription request", "error", err)
		os.Exit(1)
	}

	stream, err := eng.Reg.Get(req.Stream)
	if err != nil {
		log.Error("failed to look up stream", "stream", req.Stream, "error", err)
		os.Exit(1)
	}

	cur, err := subscribe.New(stream, eng.Bus.Subscriber(), req.StartTime, req.StopTime)
	if err != nil {
		log.Error("failed to start subscription", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sendSide, recvSide := newPipe(16)
	done := make(chan error, 1)
	go func() {
		sendDispatcher := &dispatch.SendDispatcher{}
		err := sendDispatcher.Run(ctx, sendSide, req, cur)
		sendSide.closeSend()
		done <- err
	}()

	recvDispatcher := &dispatch.ReceiveDispatcher{OnEvent: dispatch.PrintEvent}
	if err := recvDispatcher.Run(ctx, recvSide); err != nil {
		log.Error("receive dispatcher stopped with error", "error", err)
	}
	if err := <-done; err != nil {
		log.Error("send dispatcher stopped with error", "error", err)
	}

	log.Info("subscription ended", "stream", req.Stream)
}
