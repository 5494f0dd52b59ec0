// Package logx provides component-tagged logging with domain-filtered debug output.
//
// Loggers are thin handles over a process-wide zap core. Packages create them once with
// NewLogger and keep printf-style call sites; Configure swaps the core underneath at startup.
package logx

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is a log severity name as accepted by Configure.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Config controls the process-wide logger.
type Config struct {
	Level        Level
	Format       string // "console" or "json"
	DebugDomains []string
}

// DebugConfig controls debug logging behavior.
type DebugConfig struct {
	Enabled bool
	Domains map[string]bool // nil = all domains
}

type ctxKey string

const turnIDKey ctxKey = "turn_id"

//nolint:gochecknoglobals // process-wide logging state
var (
	coreMu   sync.RWMutex
	base     *zap.Logger
	minLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	debugMutex  sync.RWMutex
	debugConfig = &DebugConfig{}
)

func init() { //nolint:gochecknoinits // env-driven debug defaults
	base = newZap(os.Stderr, "console")
	initDebugFromEnv()
}

// initDebugFromEnv reads DEBUG and DEBUG_DOMAINS.
func initDebugFromEnv() {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	debugConfig.Enabled = false
	debugConfig.Domains = nil
	if debug := os.Getenv("DEBUG"); debug == "1" || strings.EqualFold(debug, "true") {
		debugConfig.Enabled = true
	}
	if domains := os.Getenv("DEBUG_DOMAINS"); domains != "" {
		debugConfig.Domains = parseDomains(strings.Split(domains, ","))
	}
	syncLevelLocked()
}

func parseDomains(domains []string) map[string]bool {
	if len(domains) == 0 {
		return nil
	}
	out := make(map[string]bool, len(domains))
	for _, d := range domains {
		if d = strings.TrimSpace(d); d != "" {
			out[d] = true
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// syncLevelLocked lowers the zap level to debug whenever debug logging is on.
// Caller holds debugMutex.
func syncLevelLocked() {
	if debugConfig.Enabled {
		minLevel.SetLevel(zapcore.DebugLevel)
	} else if minLevel.Level() == zapcore.DebugLevel {
		minLevel.SetLevel(zapcore.InfoLevel)
	}
}

func newZap(w io.Writer, format string) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if format == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), minLevel))
}

// Configure installs the process-wide logger. Safe to call more than once.
func Configure(cfg Config) error {
	var lvl zapcore.Level
	if cfg.Level == "" {
		cfg.Level = LevelInfo
	}
	if err := lvl.Set(string(cfg.Level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	if cfg.Format != "" && cfg.Format != "console" && cfg.Format != "json" {
		return fmt.Errorf("invalid log format %q", cfg.Format)
	}

	coreMu.Lock()
	base = newZap(os.Stderr, cfg.Format)
	coreMu.Unlock()

	minLevel.SetLevel(lvl)
	SetDebugConfig(lvl == zapcore.DebugLevel || IsDebugEnabled())
	if len(cfg.DebugDomains) > 0 {
		SetDebugDomains(cfg.DebugDomains)
	}
	return nil
}

// SetOutput redirects all loggers to w using the console encoder. Intended for tests.
func SetOutput(w io.Writer) {
	coreMu.Lock()
	defer coreMu.Unlock()
	base = newZap(w, "console")
}

// Sync flushes buffered log entries.
func Sync() error {
	coreMu.RLock()
	defer coreMu.RUnlock()
	return base.Sync() //nolint:wrapcheck // passthrough
}

func current() *zap.Logger {
	coreMu.RLock()
	defer coreMu.RUnlock()
	return base
}

// SetDebugConfig turns debug logging on or off.
func SetDebugConfig(enabled bool) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	debugConfig.Enabled = enabled
	syncLevelLocked()
}

// SetDebugDomains restricts debug output to the given domains. Empty enables all.
func SetDebugDomains(domains []string) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	debugConfig.Domains = parseDomains(domains)
}

// IsDebugEnabled returns whether debug logging is enabled.
func IsDebugEnabled() bool {
	debugMutex.RLock()
	defer debugMutex.RUnlock()
	return debugConfig.Enabled
}

// IsDebugEnabledForDomain returns whether debug logging is enabled for a specific domain.
func IsDebugEnabledForDomain(domain string) bool {
	debugMutex.RLock()
	defer debugMutex.RUnlock()

	if !debugConfig.Enabled {
		return false
	}
	if debugConfig.Domains == nil {
		return true
	}
	return debugConfig.Domains[domain]
}

// Logger writes lines tagged with a component name and optional fields.
type Logger struct {
	component string
	fields    []any
}

// NewLogger returns a logger for the named component.
func NewLogger(component string) *Logger {
	return &Logger{component: component}
}

// Component returns the component name.
func (l *Logger) Component() string {
	return l.component
}

// With returns a copy of the logger that adds key=value to every line.
func (l *Logger) With(key string, value any) *Logger {
	fields := make([]any, 0, len(l.fields)+2)
	fields = append(fields, l.fields...)
	fields = append(fields, key, value)
	return &Logger{component: l.component, fields: fields}
}

// WithContext attaches the turn ID carried by ctx, if any.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if id := TurnID(ctx); id != "" {
		return l.With("turn", id)
	}
	return l
}

func (l *Logger) sugar() *zap.SugaredLogger {
	s := current().Sugar().With("component", l.component)
	if len(l.fields) > 0 {
		s = s.With(l.fields...)
	}
	return s
}

func (l *Logger) Debug(format string, args ...any) {
	if !IsDebugEnabled() {
		return
	}
	l.sugar().Debugf(format, args...)
}

func (l *Logger) Info(format string, args ...any) {
	l.sugar().Infof(format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.sugar().Warnf(format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.sugar().Errorf(format, args...)
}

// DebugState logs a state transition.
func (l *Logger) DebugState(action, state string, extra ...string) {
	extraInfo := ""
	if len(extra) > 0 {
		extraInfo = " - " + extra[0]
	}
	l.Debug("State %s: %s%s", action, state, extraInfo)
}

// WithTurnID returns a context carrying the turn ID used to correlate log lines.
func WithTurnID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, turnIDKey, id)
}

// TurnID returns the turn ID stored in ctx, or "".
func TurnID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(turnIDKey).(string); ok {
		return id
	}
	return ""
}

// Debug logs a debug message with context and domain filtering.
//
//	logx.Debug(ctx, "intent", "classified %q as %s", msg, label)
//	logx.Debug(ctx, "dispatch", "routing %s -> %s", label, profile)
//
// Controlled by DEBUG=1 and DEBUG_DOMAINS=intent,dispatch.
func Debug(ctx context.Context, domain, format string, args ...any) {
	if !IsDebugEnabledForDomain(domain) {
		return
	}
	NewLogger(domain).WithContext(ctx).sugar().Debugf(format, args...)
}

// DebugFlow logs a workflow step with context and domain.
func DebugFlow(ctx context.Context, domain, step, status string, extra ...string) {
	extraInfo := ""
	if len(extra) > 0 {
		extraInfo = " - " + extra[0]
	}
	Debug(ctx, domain, "Flow %s: %s%s", step, status, extraInfo)
}

//nolint:gochecknoglobals // convenience logger
var defaultLogger = NewLogger("system")

func Infof(format string, args ...any) {
	defaultLogger.Info(format, args...)
}

func Warnf(format string, args ...any) {
	defaultLogger.Warn(format, args...)
}

// Errorf logs and returns the formatted error.
//
//	err := logx.Errorf("setup failed: %w", err)
func Errorf(format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	defaultLogger.Error("%s", err.Error())
	return err
}

// Wrap logs msg + ": " + err.Error() and returns fmt.Errorf("%s: %w", msg, err).
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	wrappedErr := fmt.Errorf("%s: %w", msg, err)
	defaultLogger.Error("%s", wrappedErr.Error())
	return wrappedErr
}
