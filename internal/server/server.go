// Package server binds listeners and runs the process's servers until shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	applog "github.com/janisto/greeter/internal/platform/logging"
)

// Timeouts are the connection-level limits applied to every HTTP server.
type Timeouts struct {
	Read           time.Duration
	ReadHeader     time.Duration
	Write          time.Duration
	Idle           time.Duration
	MaxHeaderBytes int
}

// DefaultTimeouts bound slow or idle clients.
var DefaultTimeouts = Timeouts{
	Read:           5 * time.Second,
	ReadHeader:     2 * time.Second,
	Write:          10 * time.Second,
	Idle:           60 * time.Second,
	MaxHeaderBytes: 64 << 10, // 64 KB
}

// Listen binds a TCP listener on addr. A maxConns above zero caps the number
// of simultaneously accepted connections.
func Listen(addr string, maxConns int) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	if maxConns > 0 {
		ln = netutil.LimitListener(ln, maxConns)
	}
	return ln, nil
}

// Port returns the port ln is bound to.
func Port(ln net.Listener) string {
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		return strconv.Itoa(addr.Port)
	}
	_, port, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		return ln.Addr().String()
	}
	return port
}

// NewHTTPServer returns an http.Server for h with t applied.
func NewHTTPServer(h http.Handler, t Timeouts) *http.Server {
	return &http.Server{
		Handler:           h,
		ReadTimeout:       t.Read,
		ReadHeaderTimeout: t.ReadHeader,
		WriteTimeout:      t.Write,
		IdleTimeout:       t.Idle,
		MaxHeaderBytes:    t.MaxHeaderBytes,
	}
}

// Runner is one long-running server. Serve blocks until Shutdown is called
// and returns nil in that case.
type Runner struct {
	Name     string
	Serve    func() error
	Shutdown func(ctx context.Context) error
}

// HTTPRunner serves srv on ln.
func HTTPRunner(name string, srv *http.Server, ln net.Listener) Runner {
	return Runner{
		Name: name,
		Serve: func() error {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
		Shutdown: srv.Shutdown,
	}
}

// Group runs runners together. When the context is cancelled or any runner
// fails, every runner is shut down within ShutdownTimeout.
type Group struct {
	ShutdownTimeout time.Duration
	// OnShutdown runs once, before the runners are asked to stop.
	OnShutdown func()

	runners []Runner
}

// NewGroup returns an empty Group.
func NewGroup(shutdownTimeout time.Duration) *Group {
	return &Group{ShutdownTimeout: shutdownTimeout}
}

// Add registers r. It must be called before Run.
func (g *Group) Add(r Runner) {
	g.runners = append(g.runners, r)
}

// Run serves every runner and blocks until all have stopped. It returns the
// first runner failure, or nil after a context-triggered shutdown.
func (g *Group) Run(ctx context.Context) error {
	eg, gctx := errgroup.WithContext(ctx)
	for _, r := range g.runners {
		eg.Go(func() error {
			if err := r.Serve(); err != nil {
				return fmt.Errorf("%s: %w", r.Name, err)
			}
			return nil
		})
	}
	eg.Go(func() error {
		<-gctx.Done()
		g.shutdown()
		return nil
	})
	return eg.Wait()
}

func (g *Group) shutdown() {
	if g.OnShutdown != nil {
		g.OnShutdown()
	}
	ctx, cancel := context.WithTimeout(context.Background(), g.ShutdownTimeout)
	defer cancel()

	var wg errgroup.Group
	for _, r := range g.runners {
		wg.Go(func() error {
			if r.Shutdown == nil {
				return nil
			}
			if err := r.Shutdown(ctx); err != nil {
				applog.LogError(ctx, "server shutdown error", err, zap.String("server", r.Name))
			}
			return nil
		})
	}
	_ = wg.Wait()
}
