// Package telemetry wires structured logging and metrics for the capture
// pipeline. The teacher reports background warnings with bare
// fmt.Fprintf(os.Stderr, ...) calls (see _teacher_ref/util/safego.go,
// _teacher_ref/capture/network_bodies.go); this package replaces that
// convention with go.uber.org/zap, matching the logging stack used across
// the rest of the retrieved pack (Altacee-dockation in particular).
package telemetry

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process-wide structured logger. debug controls
// whether Debug-level records are emitted; production runs default to
// Info and above.
func NewLogger(debug bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      debug,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	if !debug {
		cfg.Encoding = "json"
		cfg.EncoderConfig = zap.NewProductionEncoderConfig()
	}
	return cfg.Build()
}

// NewNop returns a logger that discards everything, for tests and for
// callers that never configured logging explicitly.
func NewNop() *zap.Logger { return zap.NewNop() }

// SafeGo launches fn in a goroutine with panic recovery, logging the
// recovered value and stack instead of letting it crash the process.
// Adapted from _teacher_ref/util/safego.go, replacing its stderr Fprintf
// with structured zap logging.
func SafeGo(log *zap.Logger, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic in background goroutine",
					zap.Any("recovered", r),
					zap.Stack("stack"),
				)
			}
		}()
		fn()
	}()
}
