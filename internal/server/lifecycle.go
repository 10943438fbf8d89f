// Package server runs the imposter frontends and the game session together,
// binding every listener before serving and shutting down in reverse order on
// SIGINT, SIGTERM, context cancellation, or the first service failure.
package server

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// DefaultShutdownTimeout bounds how long Run waits for all services to stop.
const DefaultShutdownTimeout = 5 * time.Second

// Service is a long-running component.
type Service interface {
	// Serve blocks until the service stops. A nil return after Shutdown is
	// a clean exit.
	Serve() error
	// Shutdown stops the service, waiting at most until ctx expires.
	Shutdown(ctx context.Context) error
}

// Binder is implemented by services that claim a listening address. Run calls
// Listen on every Binder before any Serve so a port conflict aborts startup
// before players can connect to a half-started server.
type Binder interface {
	Listen() error
}

// FuncService adapts plain functions into a Service. A nil ServeFn blocks
// until Shutdown; a nil ShutdownFn does nothing.
type FuncService struct {
	ServeFn    func() error
	ShutdownFn func(ctx context.Context) error

	once sync.Once
	done chan struct{}
}

func (f *FuncService) stopped() chan struct{} {
	f.once.Do(func() { f.done = make(chan struct{}) })
	return f.done
}

// Serve calls ServeFn, or blocks until Shutdown when ServeFn is nil.
func (f *FuncService) Serve() error {
	if f.ServeFn != nil {
		return f.ServeFn()
	}
	<-f.stopped()
	return nil
}

// Shutdown calls ShutdownFn and releases a blocked Serve.
func (f *FuncService) Shutdown(ctx context.Context) error {
	var err error
	if f.ShutdownFn != nil {
		err = f.ShutdownFn(ctx)
	}
	done := f.stopped()
	select {
	case <-done:
	default:
		close(done)
	}
	return err
}

// Lifecycle starts services in the order they were added and stops them in
// reverse order.
type Lifecycle struct {
	logger          *zap.Logger
	shutdownTimeout time.Duration

	mu       sync.Mutex
	services []namedService
}

type namedService struct {
	name    string
	service Service
}

// NewLifecycle creates a Lifecycle. A non-positive timeout selects
// DefaultShutdownTimeout.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger, shutdownTimeout time.Duration) *Lifecycle {
	if logger == nil {
		panic("server.NewLifecycle: logger must be non-nil")
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = DefaultShutdownTimeout
	}
	return &Lifecycle{logger: logger, shutdownTimeout: shutdownTimeout}
}

// Add registers a named service.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	if name == "" || svc == nil {
		panic("server.Lifecycle.Add: name and service are required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = append(l.services, namedService{name: name, service: svc})
}

// Run binds and serves every service, then blocks until a signal, ctx
// cancellation, or a service failure.
//
// Postcondition: every service whose Serve was started has been shut down.
// The first bind or serve error is returned; signal and ctx shutdowns return nil.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()

	l.mu.Lock()
	services := append([]namedService(nil), l.services...)
	l.mu.Unlock()

	for i, ns := range services {
		b, ok := ns.service.(Binder)
		if !ok {
			continue
		}
		if err := b.Listen(); err != nil {
			l.logger.Error("service failed to bind", zap.String("service", ns.name), zap.Error(err))
			l.shutdown(services[:i])
			return fmt.Errorf("service %s: %w", ns.name, err)
		}
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, len(services))
	var wg sync.WaitGroup
	for _, ns := range services {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.logger.Info("starting service", zap.String("service", ns.name))
			svcStart := time.Now()
			if err := ns.service.Serve(); err != nil {
				l.logger.Error("service failed",
					zap.String("service", ns.name),
					zap.Error(err),
					zap.Duration("uptime", time.Since(svcStart)),
				)
				errCh <- fmt.Errorf("service %s: %w", ns.name, err)
			}
		}()
	}

	l.logger.Info("all services started",
		zap.Int("count", len(services)),
		zap.Duration("startup", time.Since(start)),
	)

	var runErr error
	select {
	case runErr = <-errCh:
		l.logger.Error("service error, shutting down", zap.Error(runErr))
	case <-ctx.Done():
		if errors.Is(context.Cause(ctx), context.Canceled) {
			l.logger.Info("shutdown requested")
		} else {
			l.logger.Info("shutting down", zap.Error(context.Cause(ctx)))
		}
	}

	l.shutdown(services)
	wg.Wait()

	l.logger.Info("shutdown complete", zap.Duration("total_uptime", time.Since(start)))
	return runErr
}

// shutdown stops services in reverse order under one shared deadline.
func (l *Lifecycle) shutdown(services []namedService) {
	shutdownStart := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), l.shutdownTimeout)
	defer cancel()

	for i := len(services) - 1; i >= 0; i-- {
		ns := services[i]
		svcStart := time.Now()
		if err := ns.service.Shutdown(ctx); err != nil {
			l.logger.Warn("service shutdown incomplete", zap.String("service", ns.name), zap.Error(err))
			continue
		}
		l.logger.Info("service stopped",
			zap.String("service", ns.name),
			zap.Duration("elapsed", time.Since(svcStart)),
		)
	}
	l.logger.Info("all services stopped", zap.Duration("shutdown_elapsed", time.Since(shutdownStart)))
}
