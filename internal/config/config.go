// Package config resolves runtime settings from flags, the environment and an optional .env file.
//
// Precedence: command-line flag > environment variable > .env file > default.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/janisto/greeter/internal/greeting"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all runtime settings.
type Config struct {
	Host               string
	Port               string
	Greeting           string
	GreetingSource     string
	GreetingDocument   string
	FirestoreProjectID string
	CredentialsFile    string
	AdminPort          string
	GRPCHealthPort     string
	MaxConnections     int
	RateLimit          float64
	RateBurst          int
	AccessLog          bool
	ShutdownTimeout    time.Duration
	EnvFile            string
}

// Default returns the built-in settings: the greeter on :8080 and nothing else.
func Default() Config {
	return Config{
		Port:             "8080",
		Greeting:         greeting.DefaultBody,
		GreetingSource:   greeting.SourceStatic,
		GreetingDocument: greeting.DefaultDocument,
		ShutdownTimeout:  10 * time.Second,
		EnvFile:          ".env",
	}
}

// Addr is the greeter listen address. An empty host binds all interfaces.
func (c Config) Addr() string { return net.JoinHostPort(c.Host, c.Port) }

// AdminAddr is the ops API listen address, or "" when disabled.
func (c Config) AdminAddr() string { return optionalAddr(c.Host, c.AdminPort) }

// GRPCHealthAddr is the gRPC health listen address, or "" when disabled.
func (c Config) GRPCHealthAddr() string { return optionalAddr(c.Host, c.GRPCHealthPort) }

func optionalAddr(host, port string) string {
	if port == "" {
		return ""
	}
	return net.JoinHostPort(host, port)
}

// Load parses args (without the program name), loads the env file and the
// environment, and validates the result. It returns pflag.ErrHelp for -h/--help.
func Load(args []string, output io.Writer) (Config, error) {
	def := Default()

	fset := pflag.NewFlagSet("greeter", pflag.ContinueOnError)
	fset.SetOutput(output)
	host := fset.String("host", def.Host, "interface to bind (empty = all interfaces)")
	port := fset.String("port", def.Port, "greeter port")
	body := fset.String("greeting", def.Greeting, "response body for every GET")
	source := fset.String("greeting-source", def.GreetingSource, "where the greeting comes from: static or firestore")
	document := fset.String("greeting-document", def.GreetingDocument, "Firestore document holding the greeting (collection/doc)")
	adminPort := fset.String("admin-port", def.AdminPort, "ops API port (empty = disabled)")
	grpcPort := fset.String("grpc-health-port", def.GRPCHealthPort, "gRPC health port (empty = disabled)")
	maxConns := fset.Int("max-connections", def.MaxConnections, "concurrent connection limit for the greeter (0 = unlimited)")
	rateLimit := fset.Float64("rate-limit", def.RateLimit, "greeter requests per second before 429 (0 = unlimited)")
	rateBurst := fset.Int("rate-burst", def.RateBurst, "token bucket depth for --rate-limit (0 = one second of tokens)")
	accessLog := fset.Bool("access-log", def.AccessLog, "log one line per greeter request")
	shutdown := fset.Duration("shutdown-timeout", def.ShutdownTimeout, "how long to drain connections on SIGINT/SIGTERM")
	envFile := fset.String("env-file", def.EnvFile, "dotenv file to load (missing file is ignored)")

	if err := fset.Parse(args); err != nil {
		return Config{}, err
	}

	l := loader{flags: fset}
	cfg := Config{EnvFile: l.str("env-file", "ENV_FILE", *envFile)}
	if err := loadEnvFile(cfg.EnvFile); err != nil {
		return Config{}, err
	}

	cfg.Host = l.str("host", "HOST", *host)
	cfg.Port = l.str("port", "PORT", *port)
	cfg.Greeting = l.str("greeting", "GREETING", *body)
	cfg.GreetingSource = strings.ToLower(l.str("greeting-source", "GREETING_SOURCE", *source))
	cfg.GreetingDocument = l.str("greeting-document", "GREETING_DOCUMENT", *document)
	cfg.AdminPort = l.str("admin-port", "ADMIN_PORT", *adminPort)
	cfg.GRPCHealthPort = l.str("grpc-health-port", "GRPC_HEALTH_PORT", *grpcPort)
	cfg.MaxConnections = l.integer("max-connections", "MAX_CONNECTIONS", *maxConns)
	cfg.RateLimit = l.float("rate-limit", "RATE_LIMIT", *rateLimit)
	cfg.RateBurst = l.integer("rate-burst", "RATE_BURST", *rateBurst)
	cfg.AccessLog = l.boolean("access-log", "ACCESS_LOG", *accessLog)
	cfg.ShutdownTimeout = l.duration("shutdown-timeout", "SHUTDOWN_TIMEOUT", *shutdown)
	cfg.FirestoreProjectID = firstEnv("FIRESTORE_PROJECT_ID", "FIREBASE_PROJECT_ID", "GOOGLE_CLOUD_PROJECT")
	cfg.CredentialsFile = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")

	if l.err != nil {
		return Config{}, l.err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ports, source and Firestore settings.
func (c Config) Validate() error {
	var errs []error
	ports := map[string]string{}
	for _, p := range []struct{ name, value string }{
		{"PORT", c.Port},
		{"ADMIN_PORT", c.AdminPort},
		{"GRPC_HEALTH_PORT", c.GRPCHealthPort},
	} {
		if p.value == "" {
			if p.name == "PORT" {
				errs = append(errs, fmt.Errorf("%w: PORT is required", ErrInvalid))
			}
			continue
		}
		n, err := strconv.Atoi(p.value)
		if err != nil || n < 0 || n > 65535 {
			errs = append(errs, fmt.Errorf("%w: %s %q is not a port number", ErrInvalid, p.name, p.value))
			continue
		}
		if n == 0 {
			// Ephemeral ports never collide.
			continue
		}
		if other, dup := ports[p.value]; dup {
			errs = append(errs, fmt.Errorf("%w: %s and %s share port %s", ErrInvalid, other, p.name, p.value))
		}
		ports[p.value] = p.name
	}

	switch c.GreetingSource {
	case greeting.SourceStatic:
	case greeting.SourceFirestore:
		if c.FirestoreProjectID == "" {
			errs = append(errs, fmt.Errorf("%w: firestore source needs FIRESTORE_PROJECT_ID", ErrInvalid))
		}
		if err := greeting.ValidateDocumentPath(c.GreetingDocument); err != nil {
			errs = append(errs, fmt.Errorf("%w: GREETING_DOCUMENT: %w", ErrInvalid, err))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: GREETING_SOURCE %q must be static or firestore", ErrInvalid, c.GreetingSource))
	}

	if c.MaxConnections < 0 {
		errs = append(errs, fmt.Errorf("%w: MAX_CONNECTIONS must not be negative", ErrInvalid))
	}
	if math.IsNaN(c.RateLimit) || math.IsInf(c.RateLimit, 0) {
		errs = append(errs, fmt.Errorf("%w: RATE_LIMIT must be a finite number", ErrInvalid))
	} else if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("%w: RATE_LIMIT must not be negative", ErrInvalid))
	}
	if c.RateBurst < 0 {
		errs = append(errs, fmt.Errorf("%w: RATE_BURST must not be negative", ErrInvalid))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: SHUTDOWN_TIMEOUT must be positive", ErrInvalid))
	}
	return errors.Join(errs...)
}

// loadEnvFile loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: env file %s: %w", ErrInvalid, path, err)
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// loader picks the flag value when it was set explicitly, then the
// environment, then the flag default. The first parse error is kept.
type loader struct {
	flags *pflag.FlagSet
	err   error
}

func (l *loader) lookup(flag, env string) (string, bool) {
	if l.flags.Changed(flag) {
		return "", false
	}
	return os.LookupEnv(env)
}

func (l *loader) fail(env, value string, err error) {
	if l.err == nil {
		l.err = fmt.Errorf("%w: %s=%q: %w", ErrInvalid, env, value, err)
	}
}

func (l *loader) str(flag, env, fallback string) string {
	if v, ok := l.lookup(flag, env); ok {
		return v
	}
	return fallback
}

func (l *loader) integer(flag, env string, fallback int) int {
	v, ok := l.lookup(flag, env)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		l.fail(env, v, err)
		return fallback
	}
	return n
}

func (l *loader) float(flag, env string, fallback float64) float64 {
	v, ok := l.lookup(flag, env)
	if !ok || v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		l.fail(env, v, err)
		return fallback
	}
	return f
}

func (l *loader) boolean(flag, env string, fallback bool) bool {
	v, ok := l.lookup(flag, env)
	if !ok || v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		l.fail(env, v, err)
		return fallback
	}
	return b
}

func (l *loader) duration(flag, env string, fallback time.Duration) time.Duration {
	v, ok := l.lookup(flag, env)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		l.fail(env, v, err)
		return fallback
	}
	return d
}
