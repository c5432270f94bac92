// Package audit writes FerroDB's own operational trail — startup,
// snapshot saves/loads, rewrite progress, journal-writer health — as
// JSON lines through a rotating file sink. It is distinct from the
// command journal (internal/aof), which records client mutations for
// crash recovery, and from the out-of-scope stdout request log.
package audit

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/zuhaib786/FerroDB"
)

// Logger serializes AuditEntry values to its underlying writer one per
// line, guarded by a mutex since multiple background tasks (snapshot,
// rewrite, journal writer) log concurrently. Every entry carries the
// logger's sessionID, so lines from successive server runs sharing a
// rotated log file can be told apart.
type Logger struct {
	mu        sync.Mutex
	writer    io.WriteCloser
	enc       *json.Encoder
	sessionID string
}

// Open returns a Logger rotating through path, keeping up to maxBackups
// old files of up to maxSizeMB each. sessionID is stamped on every entry
// this Logger writes.
func Open(path string, maxSizeMB, maxBackups int) *Logger {
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		Compress:   true,
	}
	return &Logger{writer: w, enc: json.NewEncoder(w), sessionID: ferrodb.NextUniqueID()}
}

// Close flushes and closes the underlying rotating file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writer.Close()
}

// Entry is one audit-log line.
type Entry struct {
	Time    string `json:"time"`
	Session string `json:"session"`
	Event   string `json:"event"`
	Data    any    `json:"data,omitempty"`
	Err     string `json:"error,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

func (l *Logger) log(event string, data any, err error) {
	e := Entry{Time: time.Now().UTC().Format(time.RFC3339Nano), Session: l.sessionID, Event: event, Data: data}
	if err != nil {
		e.Err = err.Error()
		e.Stack = ferrodb.StackTrace(err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	// Encoding errors here have nowhere useful to go; the audit log is
	// itself the last resort for operator-facing diagnostics.
	_ = l.enc.Encode(e)
}

// Startup records the server's listen address and on-disk paths.
func (l *Logger) Startup(addr, snapshotPath, journalPath string) {
	l.log("startup", map[string]string{
		"addr":     addr,
		"snapshot": snapshotPath,
		"journal":  journalPath,
	}, nil)
}

// SnapshotSaved records a completed SAVE/BGSAVE, successful or not.
func (l *Logger) SnapshotSaved(path string, entries int, err error) {
	l.log("snapshot_saved", map[string]any{"path": path, "entries": entries}, err)
}

// SnapshotLoaded records startup restore from an existing snapshot file.
func (l *Logger) SnapshotLoaded(path string, entries int, err error) {
	l.log("snapshot_loaded", map[string]any{"path": path, "entries": entries}, err)
}

// JournalReplayed records the count of commands replayed at startup.
func (l *Logger) JournalReplayed(path string, count int, err error) {
	l.log("journal_replayed", map[string]any{"path": path, "commands": count}, err)
}

// RewriteStarted/RewriteFinished bracket a BGREWRITEAOF.
func (l *Logger) RewriteStarted(path string) {
	l.log("rewrite_started", map[string]string{"path": path}, nil)
}

func (l *Logger) RewriteFinished(path string, commands int, err error) {
	l.log("rewrite_finished", map[string]any{"path": path, "commands": commands}, err)
}

// JournalWriterDegraded records an I/O failure in the journal writer task;
// per SPEC_FULL.md §4.D the writer retries reopening rather than dying, so
// this may be logged repeatedly until the underlying problem clears.
func (l *Logger) JournalWriterDegraded(err error) {
	l.log("journal_writer_degraded", nil, err)
}

// JournalWriterRecovered records a successful reopen after degradation.
func (l *Logger) JournalWriterRecovered() {
	l.log("journal_writer_recovered", nil, nil)
}

// JournalRecordsDropped records writes lost because the in-memory handoff
// buffer was full.
func (l *Logger) JournalRecordsDropped(count int) {
	l.log("journal_records_dropped", map[string]int{"count": count}, nil)
}

// NewConnectionID mints a per-connection identifier (ferrodb.NextUniqueID)
// for callers to thread through ConnectionOpened/ConnectionClosed and any
// other per-connection log lines they attribute to the same client.
func NewConnectionID() string {
	return ferrodb.NextUniqueID()
}

// ConnectionOpened records a client connection's arrival under its
// connID (see NewConnectionID).
func (l *Logger) ConnectionOpened(connID, remoteAddr string) {
	l.log("connection_opened", map[string]string{"conn": connID, "remote": remoteAddr}, nil)
}

// ConnectionClosed records a client connection's end; err is nil for an
// orderly close.
func (l *Logger) ConnectionClosed(connID string, err error) {
	l.log("connection_closed", map[string]string{"conn": connID}, err)
}
