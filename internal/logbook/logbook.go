// Package logbook journals what happened during a planning session
// (submissions, replies, failures, dropped responses). Each entry is one line
// of "<RFC3339> <LEVEL> <message>"; the TUI shows the tail in its LOG panel.
package logbook

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a journal entry.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Entry is one journal line.
type Entry struct {
	At      time.Time
	Level   Level
	Message string
}

// String formats the entry the way it is stored.
func (e Entry) String() string {
	return fmt.Sprintf("%s %-5s %s", e.At.UTC().Format(time.RFC3339), e.Level, e.Message)
}

// parseEntry reverses String. Lines written by something else come back as
// INFO entries with the whole line as the message.
func parseEntry(line string) Entry {
	parts := strings.SplitN(line, " ", 2)
	if len(parts) == 2 {
		if at, err := time.Parse(time.RFC3339, parts[0]); err == nil {
			rest := strings.TrimLeft(parts[1], " ")
			level, msg, _ := strings.Cut(rest, " ")
			switch Level(level) {
			case LevelInfo, LevelWarn, LevelError:
				return Entry{At: at, Level: Level(level), Message: strings.TrimLeft(msg, " ")}
			}
		}
	}
	return Entry{Level: LevelInfo, Message: line}
}

// Logbook appends entries to a plain text file.
type Logbook struct {
	path  string
	clock func() time.Time
	mu    sync.Mutex
}

// New creates a logbook that writes to the provided path.
func New(path string) (*Logbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logbook: ensure dir: %w", err)
	}
	return &Logbook{path: path, clock: time.Now}, nil
}

// Path returns the file backing this logbook.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Append writes a single entry. Newlines in the message are folded so one
// entry is always one line.
func (l *Logbook) Append(level Level, message string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := Entry{
		At:      l.clock(),
		Level:   level,
		Message: strings.Join(strings.Fields(message), " "),
	}
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer file.Close()
	_, _ = file.WriteString(entry.String() + "\n")
}

// Tail returns up to maxLines of the most recent entries and the total
// number of entries in the file.
func (l *Logbook) Tail(maxLines int) ([]Entry, int) {
	if l == nil || maxLines <= 0 {
		return nil, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	file, err := os.Open(l.path)
	if err != nil {
		return nil, 0
	}
	defer file.Close()

	ring := make([]Entry, 0, maxLines)
	total := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		total++
		if len(ring) == maxLines {
			ring = append(ring[:0], ring[1:]...)
		}
		ring = append(ring, parseEntry(scanner.Text()))
	}
	if len(ring) == 0 {
		return nil, total
	}
	return ring, total
}

func (l *Logbook) Info(format string, args ...any) {
	l.Append(LevelInfo, fmt.Sprintf(format, args...))
}

func (l *Logbook) Warn(format string, args ...any) {
	l.Append(LevelWarn, fmt.Sprintf(format, args...))
}

func (l *Logbook) Error(format string, args ...any) {
	l.Append(LevelError, fmt.Sprintf(format, args...))
}
