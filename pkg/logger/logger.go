// Package logger provides leveled, component-tagged logging for staychat.
package logger

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"sync/atomic"
)

type Level int32

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var currentLevel atomic.Int32

func init() {
	currentLevel.Store(int32(INFO))
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime)
}

// SetLevel sets the minimum level that will be emitted.
func SetLevel(l Level) {
	currentLevel.Store(int32(l))
}

func enabled(l Level) bool {
	return int32(l) >= currentLevel.Load()
}

func emit(l Level, tag, component, msg string, fields map[string]any) {
	if !enabled(l) {
		return
	}
	var b strings.Builder
	b.WriteString(tag)
	if component != "" {
		b.WriteString(" [")
		b.WriteString(component)
		b.WriteString("]")
	}
	b.WriteString(" ")
	b.WriteString(msg)
	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, fields[k])
		}
	}
	log.Print(b.String())
}

func Debug(format string, v ...any) { emit(DEBUG, "DEBUG:", "", fmt.Sprintf(format, v...), nil) }
func Info(format string, v ...any)  { emit(INFO, "INFO:", "", fmt.Sprintf(format, v...), nil) }
func Warn(format string, v ...any)  { emit(WARN, "WARN:", "", fmt.Sprintf(format, v...), nil) }
func Error(format string, v ...any) { emit(ERROR, "ERROR:", "", fmt.Sprintf(format, v...), nil) }

// Component variants tag the log line with the originating subsystem.

func DebugC(component, msg string) { emit(DEBUG, "DEBUG:", component, msg, nil) }
func InfoC(component, msg string)  { emit(INFO, "INFO:", component, msg, nil) }
func WarnC(component, msg string)  { emit(WARN, "WARN:", component, msg, nil) }
func ErrorC(component, msg string) { emit(ERROR, "ERROR:", component, msg, nil) }

// Fielded variants append sorted key=value pairs.

func DebugCF(component, msg string, fields map[string]any) {
	emit(DEBUG, "DEBUG:", component, msg, fields)
}

func InfoCF(component, msg string, fields map[string]any) {
	emit(INFO, "INFO:", component, msg, fields)
}

func WarnCF(component, msg string, fields map[string]any) {
	emit(WARN, "WARN:", component, msg, fields)
}

func ErrorCF(component, msg string, fields map[string]any) {
	emit(ERROR, "ERROR:", component, msg, fields)
}
