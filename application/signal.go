package application

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	zlog "github.com/lk2023060901/roomchat-go/pkg/log"
	"github.com/lk2023060901/roomchat-go/pkg/util/conc"
)

// SignalKind classifies an OS signal received by the application.
type SignalKind int

const (
	// SignalShutdown is delivered for SIGINT and SIGTERM and stops Run.
	SignalShutdown SignalKind = iota
)

func (k SignalKind) String() string {
	switch k {
	case SignalShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// SignalHandler is invoked for every signal before the application reacts to it.
type SignalHandler func(kind SignalKind, sig os.Signal)

// OnSignal registers h to be called when a signal is received.
func (a *Application) OnSignal(h SignalHandler) {
	if h == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.signalHandlers = append(a.signalHandlers, h)
}

// Shutdown stops a running Run as if a shutdown signal was received.
// It is a no-op when Run is not active.
func (a *Application) Shutdown() {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// signalContext returns a context cancelled by SIGINT/SIGTERM or Shutdown.
func (a *Application) signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	conc.Go(func() (struct{}, error) {
		select {
		case sig := <-ch:
			a.dispatchSignal(SignalShutdown, sig)
			cancel()
		case <-ctx.Done():
		}
		return struct{}{}, nil
	})

	return ctx, func() {
		signal.Stop(ch)
		cancel()
		a.mu.Lock()
		a.cancel = nil
		a.mu.Unlock()
	}
}

func (a *Application) dispatchSignal(kind SignalKind, sig os.Signal) {
	zlog.Info("signal received", zap.Stringer("kind", kind), zap.Stringer("signal", sig))
	a.mu.Lock()
	handlers := append([]SignalHandler(nil), a.signalHandlers...)
	a.mu.Unlock()
	for _, h := range handlers {
		h(kind, sig)
	}
}
