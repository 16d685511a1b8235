package coordinator

import (
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/rawblock/beal-search/pkg/models"
)

// ResultLog is the append-only candidate sink spec §6 mandates: one
// candidate per line, four ASCII decimal integers "a x b y", newline
// terminated, flushed after every successful append. It is opened once
// and shared across every finish_work call for the coordinator's lifetime
// (spec §5, §9 — the log sink is the only shared I/O handle).
type ResultLog struct {
	file *os.File
}

// OpenResultLog opens path in append mode, creating it if necessary.
func OpenResultLog(path string) (*ResultLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening result log %q: %v", path, err)
	}
	return &ResultLog{file: f}, nil
}

// Append writes every candidate as a line and fsyncs before returning, so
// a crash immediately after a successful Append loses nothing already
// written (spec §5). A write or sync failure is returned wrapped with a
// stack trace via pkg/errors, since spec §7 kind 3 treats this as fatal
// at the caller — Coordinator.FinishWork aborts the process rather than
// attempt recovery.
func (l *ResultLog) Append(candidates []models.Point) error {
	for _, c := range candidates {
		line := fmt.Sprintf("%d %d %d %d\n", c.A, c.X, c.B, c.Y)
		if _, err := l.file.WriteString(line); err != nil {
			return errors.Wrap(err, "writing result log line")
		}
	}
	if err := l.file.Sync(); err != nil {
		return errors.Wrap(err, "flushing result log")
	}
	return nil
}

// Close closes the underlying file.
func (l *ResultLog) Close() error {
	return l.file.Close()
}
