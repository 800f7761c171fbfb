// Package logger configures the process-wide logrus logger with optional file rotation.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds the logging configuration. Tags are read by config.LoadConfig.
type Config struct {
	// Level: trace, debug, info, warn, error
	Level string `env:"LEVEL" envDefault:"info"`
	// Format: text, json
	Format string `env:"FORMAT" envDefault:"text"`
	// Output: stdout, file, both
	Output string `env:"OUTPUT" envDefault:"stdout"`

	Path       string `env:"PATH" envDefault:"./logs"`
	File       string `env:"FILE" envDefault:"datamart.log"`
	MaxSize    int    `env:"MAX_SIZE" envDefault:"100"` // MB
	MaxBackups int    `env:"MAX_BACKUPS" envDefault:"7"`
	MaxAge     int    `env:"MAX_AGE" envDefault:"7"` // days
	Compress   bool   `env:"COMPRESS" envDefault:"true"`
}

var (
	mu   sync.RWMutex
	root = logrus.New()
)

// Init applies cfg to the shared logger. It may be called again to reconfigure.
func Init(cfg Config) error {
	l := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05.000",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
		})
	}

	var writers []io.Writer
	output := strings.ToLower(cfg.Output)
	if output == "" || output == "stdout" || output == "both" {
		writers = append(writers, os.Stdout)
	}
	if output == "file" || output == "both" {
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Path, cfg.File),
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
	}
	if len(writers) == 0 {
		return fmt.Errorf("unknown log output %q", cfg.Output)
	}
	l.SetOutput(io.MultiWriter(writers...))

	mu.Lock()
	root = l
	mu.Unlock()
	return nil
}

// L returns the shared logger.
func L() *logrus.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// WithModule tags entries with the emitting component.
func WithModule(module string) *logrus.Entry {
	return L().WithField("module", module)
}

// WithError is shorthand for L().WithError(err).
func WithError(err error) *logrus.Entry {
	return L().WithError(err)
}
