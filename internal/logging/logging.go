// Package logging configures the process-wide logrus logger.
//
// Output is JSON with the field names Cloud Logging recognises, so severity
// survives the trip from stdout into the log viewer without an agent.
package logging

import (
	"io"
	"strings"

	logger "github.com/sirupsen/logrus"
)

// Setup points the standard logrus logger at w and sets its level.
// Unknown level names fall back to info.
func Setup(w io.Writer, level string) {
	logger.SetOutput(w)
	logger.SetFormatter(NewFormatter())
	logger.SetLevel(ParseLevel(level))
}

// NewFormatter returns a JSON formatter keyed for Cloud Logging.
func NewFormatter() *logger.JSONFormatter {
	return &logger.JSONFormatter{
		FieldMap: logger.FieldMap{
			logger.FieldKeyTime:  "time",
			logger.FieldKeyLevel: "severity",
			logger.FieldKeyMsg:   "message",
		},
	}
}

// ParseLevel maps a level name to a logrus level, defaulting to info.
func ParseLevel(level string) logger.Level {
	lvl, err := logger.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return logger.InfoLevel
	}
	return lvl
}
