// Package logger builds the structured logger used across the tool.
package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/altair823/image-compressor/internal/config"
)

// New returns a logrus.Logger configured from the logging section of the
// configuration. File output rotates via lumberjack; console output is
// multiplexed in when enabled or when no file is configured.
func New(cfg config.LoggingConfig) (*logrus.Logger, error) {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	log.SetLevel(level)

	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})

	var writers []io.Writer

	if cfg.FilePath != "" {
		dir := filepath.Dir(cfg.FilePath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
	}

	if cfg.Console || cfg.FilePath == "" {
		writers = append(writers, os.Stdout)
	}

	if len(writers) > 1 {
		log.SetOutput(io.MultiWriter(writers...))
	} else {
		log.SetOutput(writers[0])
	}

	return log, nil
}

// WithFile returns a logger entry scoped to the given file.
func WithFile(log *logrus.Logger, filePath string) *logrus.Entry {
	return log.WithField("file", filePath)
}

// WithOperation returns a logger entry scoped to the given operation.
func WithOperation(log *logrus.Logger, operation string) *logrus.Entry {
	return log.WithField("operation", operation)
}
