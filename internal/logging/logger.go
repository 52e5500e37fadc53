// Package logging keeps the request trace in .wellplan/logs/wellplan.log: one
// key=value record per call to the planning service, plus the occasional
// free-form startup line.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kingrea/wellplan/internal/config"
	"github.com/kingrea/wellplan/internal/planapi"
)

// FileName is the trace file inside the logs directory.
const FileName = "wellplan.log"

// Logger appends trace records to the project's log file.
type Logger struct {
	mu    sync.Mutex
	file  *os.File
	clock func() time.Time
}

// New creates (or reuses) the trace file for the given working directory.
func New(projectDir string) (*Logger, error) {
	logDir := filepath.Join(projectDir, config.StateDirName, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(logDir, FileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	return &Logger{file: f, clock: time.Now}, nil
}

// Path returns the file backing the logger.
func (l *Logger) Path() string {
	if l == nil || l.file == nil {
		return ""
	}
	return l.file.Name()
}

// Close releases the file handle.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Trace records one planning service call as a key=value line.
func (l *Logger) Trace(t planapi.Trace) {
	fields := []string{
		"op=" + field(t.Op),
		"method=" + t.Method,
		"path=" + t.Path,
		"status=" + strconv.Itoa(t.Status),
		"sent=" + strconv.Itoa(t.Sent),
		"received=" + strconv.Itoa(t.Received),
		"duration_ms=" + strconv.FormatInt(t.Duration.Milliseconds(), 10),
	}
	if t.Session != "" {
		fields = append(fields, "session="+t.Session)
	}
	if t.Err != nil {
		fields = append(fields, "err="+strconv.Quote(t.Err.Error()))
	}
	l.write("request " + strings.Join(fields, " "))
}

// Printf writes a single free-form line.
func (l *Logger) Printf(format string, args ...any) {
	l.write(strings.TrimRight(fmt.Sprintf(format, args...), "\n"))
}

func (l *Logger) write(line string) {
	if l == nil || l.file == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.file, "%s %s\n", l.clock().UTC().Format(time.RFC3339), line)
}

// field quotes values that would break key=value parsing.
func field(v string) string {
	if v == "" || strings.ContainsAny(v, " =\"") {
		return strconv.Quote(v)
	}
	return v
}
