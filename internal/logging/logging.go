// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// Setup configures the standard logrus logger. Output goes to stderr so
// stdout stays clean for machine-readable command output.
func Setup(verbose bool, format string) error {
	return setup(log.StandardLogger(), os.Stderr, verbose, format)
}

func setup(l *log.Logger, w io.Writer, verbose bool, format string) error {
	l.SetOutput(w)
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatText:
		l.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05",
		})
	case FormatJSON:
		l.SetFormatter(&log.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", format)
	}
	if verbose {
		l.SetLevel(log.DebugLevel)
	} else {
		l.SetLevel(log.InfoLevel)
	}
	return nil
}
