package logging

import "go.uber.org/zap/zapcore"

// Config controls the harness logger.
type Config struct {
	// Level is the minimum level that gets logged; defaults to info.
	Level zapcore.Level `yaml:"level"`
}
