// Package logging builds the zap logger shared by the rest of the
// application. Components receive a *zap.Logger (usually namespaced with
// logger.Named) rather than reaching for a global.
package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls logger construction.
type Config struct {
	// Debug lowers the console level to debug and enables caller info.
	Debug bool
	// Dir, when set, adds a JSON file sink at <Dir>/vibe.log capturing all levels.
	Dir string
}

// ConfigFromEnv derives logging config from environment variables.
// VIBE_DEBUG=1 enables debug logging; VIBE_LOG_DIR overrides the sink dir.
func ConfigFromEnv() Config {
	cfg := Config{
		Debug: os.Getenv("VIBE_DEBUG") != "",
		Dir:   os.Getenv("VIBE_LOG_DIR"),
	}
	if cfg.Dir == "" {
		cfg.Dir = filepath.Join(".vibe", "logs")
	}
	return cfg
}

// New builds the application logger. Console output goes to stderr so it
// never interleaves with assistant output on stdout; the file sink, when the
// directory is writable, captures debug-level JSON for later inspection.
func New(cfg Config) (*zap.Logger, error) {
	consoleLevel := zapcore.WarnLevel
	if cfg.Debug {
		consoleLevel = zapcore.DebugLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		consoleLevel,
	)

	cores := []zapcore.Core{consoleCore}

	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err == nil {
			f, ferr := os.OpenFile(filepath.Join(cfg.Dir, "vibe.log"),
				os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if ferr == nil {
				fileCore := zapcore.NewCore(
					zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
					zapcore.Lock(f),
					zapcore.DebugLevel,
				)
				cores = append(cores, fileCore)
			}
		}
		// A missing or read-only log dir is not fatal; console logging remains.
	}

	opts := []zap.Option{}
	if cfg.Debug {
		opts = append(opts, zap.AddCaller())
	}

	return zap.New(zapcore.NewTee(cores...), opts...), nil
}
