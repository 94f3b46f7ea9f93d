// Package logging holds the process logger and the helpers every data source
// uses to report requests, transforms and failures in the same shape.
package logging

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	logger = zap.NewNop()
)

// Setup builds the process logger. level is one of debug, info, warn, error;
// development selects the console encoder.
func Setup(level string, development bool) (*zap.Logger, error) {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	lvl := zapcore.InfoLevel
	if level != "" {
		if err := lvl.Set(level); err != nil {
			return nil, err
		}
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	Set(l)
	return l, nil
}

// Set replaces the process logger.
func Set(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// L returns the process logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// LogRequest logs an upstream request being made.
func LogRequest(source, method, url string, params map[string]any) {
	fields := []zap.Field{zap.String("source", source), zap.String("method", method), zap.String("url", url)}
	if len(params) > 0 {
		fields = append(fields, zap.Any("params", params))
	}
	L().Info("request", fields...)
}

// LogResponse logs an upstream response.
func LogResponse(source string, statusCode int, duration time.Duration, rows int) {
	L().Info("response",
		zap.String("source", source),
		zap.Int("status", statusCode),
		zap.Int64("duration_ms", duration.Milliseconds()),
		zap.Int("rows", rows))
}

// LogError logs a failed operation. Data-quality problems are logged here
// instead of being returned.
func LogError(source, operation string, err error) {
	L().Warn("operation failed",
		zap.String("source", source),
		zap.String("operation", operation),
		zap.Error(err))
}

// LogTransform logs an adapter or join step.
func LogTransform(source string, inputCount, outputCount, skipped int, duration time.Duration) {
	L().Info("transformed",
		zap.String("source", source),
		zap.Int("in", inputCount),
		zap.Int("out", outputCount),
		zap.Int("skipped", skipped),
		zap.Int64("duration_ms", duration.Milliseconds()))
}

// LogLoad logs a completed data load.
func LogLoad(loadID string, tracts, zips, classified int, duration time.Duration) {
	L().Info("load complete",
		zap.String("load_id", loadID),
		zap.Int("tracts", tracts),
		zap.Int("zips", zips),
		zap.Int("classified", classified),
		zap.Int64("duration_ms", duration.Milliseconds()))
}
