// Package engine wires the Notification Stream Engine's modules (stream
// directory, registry, bus) behind one explicit handle, per spec.md §9's
// design note: no package-level singleton, a single Engine value carried by
// the caller (cmd/nse-publishd, cmd/nse-subscribe) and passed down instead
// of read through global state.
package engine

import (
	"context"

	nseerrors "github.com/955Gmy/libnetconf/internal/errors"
	"github.com/955Gmy/libnetconf/internal/logger"
	"github.com/955Gmy/libnetconf/internal/nse/bus"
	"github.com/955Gmy/libnetconf/internal/nse/registry"
	"github.com/955Gmy/libnetconf/internal/nse/streamdir"
)

// Config configures a new Engine.
type Config struct {
	// Dir overrides stream directory resolution (spec.md §4.A); empty means
	// use streamdir.Resolve's env-var/default search.
	Dir string
	// BusURL is the NATS broker URL; empty uses nats.DefaultURL.
	BusURL string
}

func (c *Config) applyDefaults() error {
	if c.Dir == "" {
		dir, err := streamdir.Resolve()
		if err != nil {
			return err
		}
		c.Dir = dir
	}
	if c.BusURL == "" {
		c.BusURL = bus.DefaultURL
	}
	return nil
}

// Engine is the process's one handle onto the stream directory, registry,
// and bus adapter.
type Engine struct {
	Dir string
	Reg *registry.Registry
	Bus *bus.Adapter

	watchCancel context.CancelFunc
}

// New resolves cfg's defaults, opens the registry over the stream
// directory, connects the bus, and starts watching the stream directory so
// streams a peer process creates while this one is running are picked up
// without waiting for registry.Get's lazy-open fallback.
func New(cfg Config) (*Engine, error) {
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	reg := registry.New(cfg.Dir)
	if err := reg.Init(); err != nil {
		return nil, err
	}

	b, err := bus.Connect(cfg.BusURL)
	if err != nil {
		_ = reg.Close()
		return nil, nseerrors.NewIOError("engine.new.bus", false, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{Dir: cfg.Dir, Reg: reg, Bus: b, watchCancel: cancel}
	e.watchDir(ctx)
	return e, nil
}

// watchDir starts a background goroutine that opens newly-created stream
// files into the registry as streamdir.Watch reports them. A failure to
// start the watcher (e.g. an unsupported filesystem) is logged and
// otherwise harmless: Registry.Get still opens peer-created streams lazily
// on first lookup.
func (e *Engine) watchDir(ctx context.Context) {
	ch, err := streamdir.Watch(ctx, e.Dir)
	if err != nil {
		logger.Warn("engine: stream directory watch unavailable", "dir", e.Dir, "err", err)
		return
	}
	go func() {
		for name := range ch {
			if _, err := e.Reg.Get(name); err != nil {
				logger.Warn("engine: failed to open watched stream", "stream", name, "err", err)
			}
		}
	}()
}

// Close stops the directory watch and tears down the bus connection and the
// registry, in reverse wiring order.
func (e *Engine) Close() error {
	if e.watchCancel != nil {
		e.watchCancel()
	}
	var first error
	if err := e.Bus.Close(); err != nil && first == nil {
		first = err
	}
	if err := e.Reg.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
