// Package logging builds the process-wide zap logger.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production JSON logger at the given level. An empty level
// selects info; development switches to the human-readable console
// encoder with debug enabled.
func New(level string, development bool) (*zap.Logger, error) {
	if development {
		config := zap.NewDevelopmentConfig()
		return config.Build()
	}

	config := zap.NewProductionConfig()
	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", level, err)
		}
		config.Level = zap.NewAtomicLevelAt(parsed)
	}
	return config.Build()
}
