package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

var Log *logrus.Logger

func init() {
	Log = logrus.StandardLogger()
}

// InitLogger configures JSON output on stdout at the given level. Packages
// that log through logrus directly share the same settings.
func InitLogger(level string) {
	Log = logrus.StandardLogger()

	// Output to stdout instead of the default stderr
	Log.SetOutput(os.Stdout)

	// Set JSON formatter for structured logging
	Log.SetFormatter(&logrus.JSONFormatter{})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)
}
