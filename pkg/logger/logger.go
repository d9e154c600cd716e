package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
)

type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
	Fatalf(format string, v ...interface{})

	WithModule(module string) Logger
	WithFields(fields map[string]interface{}) Logger
}

const (
	levelDebug = 0
	levelInfo  = 1
	levelWarn  = 2
	levelError = 3
)

func parseLevel(l string) int {
	switch strings.ToLower(l) {
	case "debug":
		return levelDebug
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// NewLogger creates a leveled logger writing to stderr, and additionally to
// logFile when non-empty.
func NewLogger(level, logFile string) Logger {
	var out io.Writer = os.Stderr
	if logFile != "" {
		if f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644); err == nil {
			out = io.MultiWriter(os.Stderr, f)
		} else {
			log.Printf("[WARN] cannot open log file %s: %v", logFile, err)
		}
	}
	return &stdLogger{
		level: parseLevel(level),
		out:   log.New(out, "", log.LstdFlags),
	}
}

type stdLogger struct {
	level  int
	out    *log.Logger
	module string
	fields string
}

func (l *stdLogger) prefix(lvl string) string {
	var b strings.Builder
	b.WriteString("[" + lvl + "]")
	if l.module != "" {
		b.WriteString(" [" + strings.ToUpper(l.module) + "]")
	}
	if l.fields != "" {
		b.WriteString(" " + l.fields)
	}
	b.WriteString(" ")
	return b.String()
}

func (l *stdLogger) logf(min int, lvl, format string, v ...interface{}) {
	if l.level <= min {
		l.out.Printf(l.prefix(lvl)+format, v...)
	}
}

func (l *stdLogger) Debugf(format string, v ...interface{}) { l.logf(levelDebug, "DEBUG", format, v...) }
func (l *stdLogger) Infof(format string, v ...interface{})  { l.logf(levelInfo, "INFO", format, v...) }
func (l *stdLogger) Warnf(format string, v ...interface{})  { l.logf(levelWarn, "WARN", format, v...) }
func (l *stdLogger) Errorf(format string, v ...interface{}) { l.logf(levelError, "ERROR", format, v...) }

func (l *stdLogger) Fatalf(format string, v ...interface{}) {
	l.out.Fatalf(l.prefix("FATAL")+format, v...)
}

func (l *stdLogger) WithModule(module string) Logger {
	clone := *l
	clone.module = module
	return &clone
}

func (l *stdLogger) WithFields(fields map[string]interface{}) Logger {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}

	clone := *l
	if clone.fields != "" {
		clone.fields += " "
	}
	clone.fields += strings.Join(parts, " ")
	return &clone
}
