package logger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Leveled logger shared by the portal service and its tools.
// - package-level helpers (Debugf/Infof/Warnf/Errorf/Fatalf) over a zap SugaredLogger
// - Init(level) adjusts the level at runtime; Configure(env) swaps the encoder

var (
	mu     sync.RWMutex
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	logger = newLogger("development")
)

func newLogger(environment string) *zap.SugaredLogger {
	var cfg zap.Config
	if environment == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.DisableStacktrace = true
	}
	cfg.Level = level
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

// Configure selects the encoder for the given environment ("production" emits JSON).
func Configure(environment string) {
	l := newLogger(strings.ToLower(strings.TrimSpace(environment)))
	mu.Lock()
	logger = l
	mu.Unlock()
}

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Call early during startup. Default level is Info.
func Init(l string) {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		level.SetLevel(zapcore.DebugLevel)
	case "warn", "warning":
		level.SetLevel(zapcore.WarnLevel)
	case "error":
		level.SetLevel(zapcore.ErrorLevel)
	case "fatal":
		level.SetLevel(zapcore.FatalLevel)
	default:
		level.SetLevel(zapcore.InfoLevel)
	}
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// setCore replaces the logger core; used by tests to observe output.
func setCore(core zapcore.Core) func() {
	mu.Lock()
	prev := logger
	logger = zap.New(core, zap.AddCallerSkip(1)).Sugar()
	mu.Unlock()
	return func() {
		mu.Lock()
		logger = prev
		mu.Unlock()
	}
}

func Debugf(format string, v ...interface{}) { current().Debugf(format, v...) }
func Infof(format string, v ...interface{})  { current().Infof(format, v...) }
func Warnf(format string, v ...interface{})  { current().Warnf(format, v...) }
func Errorf(format string, v ...interface{}) { current().Errorf(format, v...) }

func Fatalf(format string, v ...interface{}) {
	current().Errorf(format, v...)
	_ = current().Sync()
	os.Exit(1)
}

func Debug(v string) { Debugf("%s", v) }
func Info(v string)  { Infof("%s", v) }
func Warn(v string)  { Warnf("%s", v) }
func Error(v string) { Errorf("%s", v) }

// With returns a structured logger carrying the given key/value pairs.
// It honours the global level set through Init.
func With(keysAndValues ...interface{}) *zap.SugaredLogger {
	return current().With(keysAndValues...)
}

// Sync flushes buffered entries.
func Sync() { _ = current().Sync() }

// LevelString returns the current level as text.
func LevelString() string {
	switch level.Level() {
	case zapcore.DebugLevel:
		return "debug"
	case zapcore.WarnLevel:
		return "warn"
	case zapcore.ErrorLevel:
		return "error"
	case zapcore.FatalLevel:
		return "fatal"
	}
	return "info"
}
