// Package logger provides a convenience function to constructing a logger
// for use. This is required not just for applications but for testing.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New constructs a Sugared Logger that writes to the specified output paths.
// When no paths are provided the logger writes to stderr so tools that
// produce files keep stdout free.
func New(service string, outputPaths ...string) (*zap.SugaredLogger, error) {
	if len(outputPaths) == 0 {
		outputPaths = []string{"stderr"}
	}

	config := zap.NewProductionConfig()
	config.OutputPaths = outputPaths
	config.ErrorOutputPaths = []string{"stderr"}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = true
	config.InitialFields = map[string]any{
		"service": service,
	}

	log, err := config.Build()
	if err != nil {
		return nil, err
	}

	return log.Sugar(), nil
}
