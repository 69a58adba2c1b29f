package logger

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/user/maskfx/pkg/ports"
)

// LogrusLogger emits structured log entries through logrus.
// Messages are formatted but not translated so that log processors see
// stable text; the component is carried as a field.
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrus creates a logrus-backed logger. format is "json" or "text".
func NewLogrus(level ports.LogLevel, format string, out io.Writer) *LogrusLogger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(toLogrusLevel(level))
	if level == ports.LevelQuiet {
		l.SetOutput(io.Discard)
	}
	switch format {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{
			DisableColors: true,
			FullTimestamp: true,
		})
	}
	return &LogrusLogger{entry: logrus.NewEntry(l)}
}

func toLogrusLevel(level ports.LogLevel) logrus.Level {
	switch level {
	case ports.LevelDebug:
		return logrus.DebugLevel
	case ports.LevelWarn:
		return logrus.WarnLevel
	case ports.LevelError, ports.LevelQuiet:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

func (l *LogrusLogger) Debug(msg string, args ...interface{}) {
	l.entry.Debug(fmt.Sprintf(msg, args...))
}

func (l *LogrusLogger) Info(msg string, args ...interface{}) {
	l.entry.Info(fmt.Sprintf(msg, args...))
}

func (l *LogrusLogger) Warn(msg string, args ...interface{}) {
	l.entry.Warn(fmt.Sprintf(msg, args...))
}

func (l *LogrusLogger) Error(msg string, args ...interface{}) {
	l.entry.Error(fmt.Sprintf(msg, args...))
}

// WithComponent returns a logger tagging entries with component.
func (l *LogrusLogger) WithComponent(component string) ports.Logger {
	return &LogrusLogger{entry: l.entry.WithFields(logrus.Fields{
		"component": component,
	})}
}

var _ ports.Logger = (*LogrusLogger)(nil)
