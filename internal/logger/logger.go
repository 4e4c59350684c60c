package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var Logger *logrus.Logger

func init() {
	Logger = logrus.New()
	Logger.SetOutput(os.Stdout)
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Default level
	Logger.SetLevel(logrus.InfoLevel)

	// Override from env, e.g., LOG_LEVEL=debug. Config may adjust it again
	// later via SetLevel.
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		SetLevel(level)
	}
}

// SetLevel adjusts the global log level. Unknown level names are ignored.
func SetLevel(level string) {
	if level == "" {
		return
	}
	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		Logger.Warnf("ignoring unknown log level %q", level)
		return
	}
	Logger.SetLevel(parsed)
}

// WithComponent adds a component field to the logger
func WithComponent(component string) *logrus.Entry {
	return Logger.WithField("component", component)
}
