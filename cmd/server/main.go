package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"

	"github.com/janisto/greeter/internal/config"
	"github.com/janisto/greeter/internal/greeting"
	greeterhttp "github.com/janisto/greeter/internal/http/greeter"
	"github.com/janisto/greeter/internal/http/ops"
	"github.com/janisto/greeter/internal/http/v1/routes"
	"github.com/janisto/greeter/internal/platform/firebase"
	"github.com/janisto/greeter/internal/platform/grpchealth"
	applog "github.com/janisto/greeter/internal/platform/logging"
	"github.com/janisto/greeter/internal/platform/readiness"
	"github.com/janisto/greeter/internal/server"
)

// Version can be overridden at build time: -ldflags "-X main.Version=1.2.3"
var Version = "dev"

// greetingLoadTimeout bounds the startup read of a stored greeting.
const greetingLoadTimeout = 10 * time.Second

func main() {
	os.Exit(realMain(os.Args[1:]))
}

// realMain returns the process exit code: 0 on clean shutdown or --help, 1 on
// configuration or runtime failure.
func realMain(args []string) int {
	ctx := context.Background()
	defer func() {
		if err := applog.Sync(); err != nil && !errors.Is(err, syscall.EINVAL) && !errors.Is(err, syscall.ENOTTY) {
			applog.LogError(ctx, "logger sync error", err)
		}
	}()
	if err := applog.Err(); err != nil {
		applog.LogError(ctx, "logger init error", err)
	}
	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		applog.Logger().Debug(fmt.Sprintf(format, args...))
	})); err != nil {
		applog.LogWarn(ctx, "failed to set GOMAXPROCS", zap.Error(err))
	}

	cfg, err := config.Load(args, os.Stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		applog.LogError(ctx, "invalid configuration", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, nil); err != nil {
		applog.LogError(ctx, "server failed", err)
		return 1
	}
	return 0
}

// run resolves the greeting, binds every configured listener and serves until
// ctx is cancelled. onListen, if set, receives each bound listener's address.
func run(ctx context.Context, cfg config.Config, onListen func(name string, addr net.Addr)) error {
	g, err := loadGreeting(ctx, cfg)
	if err != nil {
		return err
	}

	state := readiness.New()
	group := server.NewGroup(cfg.ShutdownTimeout)
	group.OnShutdown = func() {
		state.SetReady(false)
		applog.LogInfo(ctx, "shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	}

	// Handlers are built before any socket is bound so a registration failure
	// cannot leave listeners open.
	handler := greeterhttp.NewHandler(g,
		greeterhttp.WithAccessLog(cfg.AccessLog),
		greeterhttp.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
	)
	var opsRouter http.Handler
	if cfg.AdminAddr() != "" {
		opsRouter = ops.NewRouter(routes.Deps{Greeting: g, Version: Version, Readiness: state})
	}

	type namedListener struct {
		name string
		ln   net.Listener
	}
	var bound []namedListener
	listen := func(name, addr string, maxConns int) (net.Listener, error) {
		ln, err := server.Listen(addr, maxConns)
		if err != nil {
			for _, b := range bound {
				_ = b.ln.Close()
			}
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		bound = append(bound, namedListener{name: name, ln: ln})
		return ln, nil
	}

	ln, err := listen("greeter", cfg.Addr(), cfg.MaxConnections)
	if err != nil {
		return err
	}
	group.Add(server.HTTPRunner("greeter", server.NewHTTPServer(handler, server.DefaultTimeouts), ln))

	if opsRouter != nil {
		adminLn, err := listen("ops", cfg.AdminAddr(), 0)
		if err != nil {
			return err
		}
		group.Add(server.HTTPRunner("ops", server.NewHTTPServer(opsRouter, server.DefaultTimeouts), adminLn))
	}

	if addr := cfg.GRPCHealthAddr(); addr != "" {
		grpcLn, err := listen("grpc-health", addr, 0)
		if err != nil {
			return err
		}
		hs := grpchealth.New(state)
		group.Add(server.Runner{
			Name:     "grpc-health",
			Serve:    func() error { return hs.Serve(grpcLn) },
			Shutdown: hs.Shutdown,
		})
	}

	applog.LogInfo(ctx, "Listening on "+server.Port(ln))
	if onListen != nil {
		for _, b := range bound {
			onListen(b.name, b.ln.Addr())
		}
	}
	state.SetReady(true)

	return group.Run(ctx)
}

// loadGreeting resolves the payload once. Firestore clients are released
// after the read since the greeting never changes afterwards.
func loadGreeting(ctx context.Context, cfg config.Config) (greeting.Greeting, error) {
	if cfg.GreetingSource != greeting.SourceFirestore {
		return greeting.NewStatic(cfg.Greeting).Load(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, greetingLoadTimeout)
	defer cancel()

	clients, err := firebase.InitializeClients(ctx, firebase.Config{
		ProjectID:                    cfg.FirestoreProjectID,
		GoogleApplicationCredentials: cfg.CredentialsFile,
	})
	if err != nil {
		return greeting.Greeting{}, fmt.Errorf("initialize firestore: %w", err)
	}
	defer func() {
		if err := clients.Close(); err != nil {
			applog.LogWarn(ctx, "firestore client close error", zap.Error(err))
		}
	}()

	src, err := greeting.NewFirestoreSource(clients.Firestore, cfg.GreetingDocument)
	if err != nil {
		return greeting.Greeting{}, err
	}
	g, err := src.Load(ctx)
	if err != nil {
		return greeting.Greeting{}, fmt.Errorf("load greeting: %w", err)
	}
	return g, nil
}
