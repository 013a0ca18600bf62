// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a logger writing to out (stderr when nil). format is "text"
// or "json".
func New(level, format string, out io.Writer) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = os.Stderr
	}

	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(lvl)

	switch format {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return l, nil
}

// Setup builds a logger and installs it as the logrus standard logger so
// package-level logrus calls follow the same settings.
func Setup(level, format string, out io.Writer) (*logrus.Entry, error) {
	l, err := New(level, format, out)
	if err != nil {
		return nil, err
	}
	std := logrus.StandardLogger()
	std.SetOutput(l.Out)
	std.SetLevel(l.Level)
	std.SetFormatter(l.Formatter)
	return logrus.NewEntry(l).WithField("app", "vicdash"), nil
}

// Discard returns an entry that drops everything (tests).
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}
