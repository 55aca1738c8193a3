// Package logging provides categorized zap logging for hdrgen.
// Each subsystem logs through a named child of one process-wide logger so a
// build log reads "probe", "version", "exec" at a glance. Until Initialize is
// called every helper is a no-op.
package logging

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot    Category = "boot"    // Startup, configuration
	CategoryExec    Category = "exec"    // External process execution
	CategoryProbe   Category = "probe"   // Toolchain capability probing
	CategoryVersion Category = "version" // Version/commit resolution
	CategorySubst   Category = "subst"   // Template substitution
	CategoryHeaders Category = "headers" // Header generation
)

// Options configures the root logger.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // console, json
	// OutputPaths defaults to stderr so generated output on stdout stays clean.
	OutputPaths []string
}

var (
	mu   sync.RWMutex
	base = zap.NewNop()
)

// New builds a zap logger from options the same way the CLI does.
func New(opts Options) (*zap.Logger, error) {
	config := zap.NewProductionConfig()

	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	config.Level = zap.NewAtomicLevelAt(level)

	switch strings.ToLower(opts.Format) {
	case "", "console":
		config.Encoding = "console"
		config.EncoderConfig = zap.NewDevelopmentEncoderConfig()
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	case "json":
		config.Encoding = "json"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	config.Sampling = nil
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	if len(opts.OutputPaths) > 0 {
		config.OutputPaths = opts.OutputPaths
	}

	return config.Build()
}

// ParseLevel maps a level name to a zap level. Empty means info.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
}

// Initialize installs the process-wide logger. A nil logger resets to no-op.
func Initialize(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	base = l
	mu.Unlock()
}

// L returns the process-wide logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Get returns the logger for the given category.
func Get(category Category) *zap.Logger {
	return L().Named(string(category))
}

// Sync flushes buffered log entries.
func Sync() {
	_ = L().Sync()
}

func sugar(category Category) *zap.SugaredLogger {
	return Get(category).Sugar()
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// =============================================================================

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) {
	sugar(CategoryBoot).Debugf(format, args...)
}

// BootWarn logs a warning to the boot category
func BootWarn(format string, args ...interface{}) {
	sugar(CategoryBoot).Warnf(format, args...)
}

// ExecDebug logs debug to the exec category
func ExecDebug(format string, args ...interface{}) {
	sugar(CategoryExec).Debugf(format, args...)
}

// ExecWarn logs a warning to the exec category
func ExecWarn(format string, args ...interface{}) {
	sugar(CategoryExec).Warnf(format, args...)
}

// Probe logs to the probe category
func Probe(format string, args ...interface{}) {
	sugar(CategoryProbe).Infof(format, args...)
}

// ProbeDebug logs debug to the probe category
func ProbeDebug(format string, args ...interface{}) {
	sugar(CategoryProbe).Debugf(format, args...)
}

// ProbeWarn logs a warning to the probe category
func ProbeWarn(format string, args ...interface{}) {
	sugar(CategoryProbe).Warnf(format, args...)
}

// Version logs to the version category
func Version(format string, args ...interface{}) {
	sugar(CategoryVersion).Infof(format, args...)
}

// VersionDebug logs debug to the version category
func VersionDebug(format string, args ...interface{}) {
	sugar(CategoryVersion).Debugf(format, args...)
}

// VersionWarn logs a warning to the version category
func VersionWarn(format string, args ...interface{}) {
	sugar(CategoryVersion).Warnf(format, args...)
}

// SubstDebug logs debug to the subst category
func SubstDebug(format string, args ...interface{}) {
	sugar(CategorySubst).Debugf(format, args...)
}

// SubstWarn logs a warning to the subst category
func SubstWarn(format string, args ...interface{}) {
	sugar(CategorySubst).Warnf(format, args...)
}

// Headers logs to the headers category
func Headers(format string, args ...interface{}) {
	sugar(CategoryHeaders).Infof(format, args...)
}

// HeadersDebug logs debug to the headers category
func HeadersDebug(format string, args ...interface{}) {
	sugar(CategoryHeaders).Debugf(format, args...)
}

// =============================================================================
// PERFORMANCE TIMING
// =============================================================================

// Timer measures an operation and logs its duration at debug level on Stop.
type Timer struct {
	category  Category
	operation string
	start     time.Time
}

// StartTimer starts timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category:  category,
		operation: operation,
		start:     time.Now(),
	}
}

// Stop logs the elapsed time and returns it.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("timing",
		zap.String("op", t.operation),
		zap.Duration("elapsed", elapsed))
	return elapsed
}
