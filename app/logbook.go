package app

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/nvr-ai/go-speedsign/video"
	"github.com/pkg/errors"
)

// DefaultLogBookSize is how many lines a LogBook keeps.
const DefaultLogBookSize = 1000

// Entry is one LogBook line.
type Entry struct {
	Time    time.Time
	Level   video.Level
	Message string
}

// String formats the entry as "[15:04:05] [LEVEL] message".
func (e Entry) String() string {
	return fmt.Sprintf("[%s] [%s] %s", e.Time.Format("15:04:05"), e.Level, e.Message)
}

// LogBook keeps the most recent user-facing log lines in memory.
type LogBook struct {
	mu      sync.Mutex
	max     int
	entries []Entry
	now     func() time.Time
}

// NewLogBook keeps at most size lines. A value <= 0 uses DefaultLogBookSize.
func NewLogBook(size int) *LogBook {
	if size <= 0 {
		size = DefaultLogBookSize
	}
	return &LogBook{max: size, now: time.Now}
}

// Add appends a line, dropping the oldest once full.
func (b *LogBook) Add(level video.Level, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, Entry{Time: b.now(), Level: level, Message: message})
	if over := len(b.entries) - b.max; over > 0 {
		b.entries = append(b.entries[:0:0], b.entries[over:]...)
	}
}

// Emit lets a LogBook receive job events directly.
func (b *LogBook) Emit(e video.Event) {
	if e.Kind == video.KindLog {
		b.Add(e.Level, e.Message)
	}
}

// Entries returns a copy of the lines, oldest first.
func (b *LogBook) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Entry(nil), b.entries...)
}

// Len returns the number of lines held.
func (b *LogBook) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Clear drops every line.
func (b *LogBook) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = nil
}

// Export writes the lines to path, one per line.
func (b *LogBook) Export(path string) error {
	entries := b.Entries()
	if len(entries) == 0 {
		return errors.New("no logs to export")
	}

	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.String()
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		b.Add(video.LevelError, "Export failed: "+err.Error())
		return errors.Wrapf(err, "exporting logs to %s", path)
	}
	b.Add(video.LevelSuccess, "Logs exported to "+path)
	return nil
}
