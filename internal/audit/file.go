// Package audit implements the append-only JSON Lines audit trail.
package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/BradenHooton/fintrack/internal/models"
)

const maxLineBytes = 1 << 20

// FileLog appends one JSON object per line to a file. Appends are serialized
// and synced before returning, so an acknowledged entry survives a crash.
type FileLog struct {
	path   string
	logger *slog.Logger

	mu   sync.Mutex
	file *os.File
}

// OpenFileLog opens (or creates) the audit file at path for appending.
func OpenFileLog(path string, logger *slog.Logger) (*FileLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log %s: %w", path, err)
	}
	return &FileLog{path: path, logger: logger, file: f}, nil
}

// Path returns the backing file path.
func (l *FileLog) Path() string {
	return l.path
}

// Append writes entry as a single line and fsyncs the file.
func (l *FileLog) Append(ctx context.Context, entry models.AuditEntry) error {
	if !entry.Valid() {
		return fmt.Errorf("%w: entry missing timestamp, type or severity", models.ErrAuditWrite)
	}
	entry.Timestamp = entry.Timestamp.UTC()

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrAuditWrite, err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return fmt.Errorf("%w: audit log closed", models.ErrAuditWrite)
	}
	if _, err := l.file.Write(line); err != nil {
		return fmt.Errorf("%w: %v", models.ErrAuditWrite, err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrAuditWrite, err)
	}
	return nil
}

// Query scans the whole file and returns entries with start <= timestamp <=
// end, oldest first. Lines that do not decode to a valid entry are skipped
// with a warning; a missing file yields no entries.
func (l *FileLog) Query(ctx context.Context, start, end time.Time) ([]models.AuditEntry, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []models.AuditEntry{}, nil
		}
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	entries := make([]models.AuditEntry, 0)
	r := bufio.NewReaderSize(f, 64*1024)

	for lineNo := 1; ; lineNo++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, tooLong, err := readLine(r, maxLineBytes)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read audit log: %w", err)
		}
		if tooLong {
			l.logger.WarnContext(ctx, "skipping oversized audit line",
				slog.String("path", l.path),
				slog.Int("line", lineNo),
			)
			continue
		}
		if len(raw) == 0 {
			continue
		}

		var entry models.AuditEntry
		if err := json.Unmarshal(raw, &entry); err != nil || !entry.Valid() {
			l.logger.WarnContext(ctx, "skipping malformed audit line",
				slog.String("path", l.path),
				slog.Int("line", lineNo),
			)
			continue
		}

		if entry.Timestamp.Before(start) || entry.Timestamp.After(end) {
			continue
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries, nil
}

// readLine returns the next line without its terminator. A line longer than
// limit is consumed in full and reported as tooLong with no data. io.EOF is
// returned only when no bytes remain.
func readLine(r *bufio.Reader, limit int) (line []byte, tooLong bool, err error) {
	var buf []byte
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && (len(buf) > 0 || tooLong) {
				return buf, tooLong, nil
			}
			return nil, false, err
		}
		if !tooLong {
			if len(buf)+len(chunk) > limit {
				tooLong = true
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if !isPrefix {
			return buf, tooLong, nil
		}
	}
}

// Close releases the append handle. Later appends fail.
func (l *FileLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
