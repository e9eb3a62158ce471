package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity level of a log message
type LogLevel int

// Log level constants define the severity hierarchy for filtering log output
const (
	DEBUG LogLevel = iota // DEBUG is the lowest severity level for detailed diagnostics
	INFO                  // INFO is for general informational messages
	WARN                  // WARN is for warning messages that don't prevent operation
	ERROR                 // ERROR is the highest severity for error conditions
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel converts a string to a LogLevel
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// Logger provides structured logging with configurable levels
type Logger struct {
	mu     sync.Mutex
	level  LogLevel
	logger *log.Logger
	prefix string
}

// New creates a new Logger with the specified level
func New(level LogLevel, prefix string) *Logger {
	return &Logger{
		level:  level,
		logger: log.New(os.Stderr, "", log.LstdFlags),
		prefix: prefix,
	}
}

// NewWithWriter creates a new Logger with custom output writer
func NewWithWriter(level LogLevel, prefix string, w io.Writer) *Logger {
	return &Logger{
		level:  level,
		logger: log.New(w, "", log.LstdFlags),
		prefix: prefix,
	}
}

// SetLevel changes the log level
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// shouldLog checks if a message at the given level should be logged
func (l *Logger) shouldLog(level LogLevel) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return level >= l.level
}

// log writes a log message with the given level and fields
func (l *Logger) log(level LogLevel, msg string, fields map[string]interface{}) {
	if !l.shouldLog(level) {
		return
	}

	var sb strings.Builder

	if l.prefix != "" {
		sb.WriteString(l.prefix)
		sb.WriteString(" ")
	}

	sb.WriteString(level.String())
	sb.WriteString(": ")
	sb.WriteString(msg)

	if len(fields) > 0 {
		sb.WriteString(" |")
		for k, v := range fields {
			sb.WriteString(fmt.Sprintf(" %s=%v", k, v))
		}
	}

	l.logger.Println(sb.String())
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, fields map[string]interface{}) {
	l.log(DEBUG, msg, fields)
}

// Info logs an info message
func (l *Logger) Info(msg string, fields map[string]interface{}) {
	l.log(INFO, msg, fields)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, fields map[string]interface{}) {
	l.log(WARN, msg, fields)
}

// Error logs an error message
func (l *Logger) Error(msg string, fields map[string]interface{}) {
	l.log(ERROR, msg, fields)
}

// CacheEvent represents a type of cache lifecycle event
type CacheEvent string

// Cache event constants identify refresh and rebuild lifecycle events
const (
	EventGuideRefreshStarted  CacheEvent = "guide_refresh_started"  // EventGuideRefreshStarted indicates a guide refresh began
	EventGuideRefreshFinished CacheEvent = "guide_refresh_finished" // EventGuideRefreshFinished indicates a guide refresh completed
	EventGuideSourceFailed    CacheEvent = "guide_source_failed"    // EventGuideSourceFailed indicates one guide source was skipped
	EventCatalogRebuilt       CacheEvent = "catalog_rebuilt"        // EventCatalogRebuilt indicates a successful catalog rebuild
	EventCatalogRebuildFailed CacheEvent = "catalog_rebuild_failed" // EventCatalogRebuildFailed indicates a failed catalog rebuild
	EventRetentionCleanup     CacheEvent = "retention_cleanup"      // EventRetentionCleanup indicates a guide retention pass
)

// LogGuideRefreshStarted logs the start of a guide refresh (INFO level)
func (l *Logger) LogGuideRefreshStarted(sources int) {
	l.Info("Guide refresh started", map[string]interface{}{
		"event":   EventGuideRefreshStarted,
		"sources": sources,
	})
}

// LogGuideRefreshFinished logs a completed guide refresh (INFO level)
func (l *Logger) LogGuideRefreshFinished(programs int, failedSources int, took time.Duration) {
	l.Info("Guide refresh finished", map[string]interface{}{
		"event":          EventGuideRefreshFinished,
		"programs":       programs,
		"failed_sources": failedSources,
		"took":           took.String(),
	})
}

// LogGuideSourceFailed logs a skipped guide source (WARN level)
func (l *Logger) LogGuideSourceFailed(url string, err error) {
	l.Warn("Guide source failed, skipping", map[string]interface{}{
		"event": EventGuideSourceFailed,
		"url":   url,
		"error": err.Error(),
	})
}

// LogCatalogRebuilt logs a successful catalog rebuild (INFO level)
func (l *Logger) LogCatalogRebuilt(channels, genres int, took time.Duration) {
	l.Info("Catalog rebuilt", map[string]interface{}{
		"event":    EventCatalogRebuilt,
		"channels": channels,
		"genres":   genres,
		"took":     took.String(),
	})
}

// LogCatalogRebuildFailed logs a failed catalog rebuild (ERROR level)
func (l *Logger) LogCatalogRebuildFailed(url string, err error) {
	l.Error("Catalog rebuild failed", map[string]interface{}{
		"event": EventCatalogRebuildFailed,
		"url":   url,
		"error": err.Error(),
	})
}

// LogRetentionCleanup logs a guide retention pass (DEBUG level)
func (l *Logger) LogRetentionCleanup(deleted int) {
	l.Debug("Retention cleanup completed", map[string]interface{}{
		"event":   EventRetentionCleanup,
		"deleted": deleted,
	})
}
