package logging

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/tdapps/td-backend/internal/config"
)

// New creates the application logger.  Level and format come from config;
// an unknown level falls back to info.  Every entry carries the service
// name and environment so aggregated logs from several deployments stay
// distinguishable.
func New(cfg config.Config) *logrus.Entry {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warnf("invalid log level %q, defaulting to info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logger.SetOutput(os.Stdout)

	return logger.WithFields(logrus.Fields{
		"service": "td-backend",
		"env":     cfg.Env,
	})
}
