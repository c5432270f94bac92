// Package config holds FerroDB's startup configuration: a flag-and-
// optional-JSON-file-driven struct read once at process start. Unlike the
// teacher's structs.ServerConfig (a mutex-guarded struct mutated
// throughout a long-lived game session), FerroDB's configuration is fixed
// after startup, so it is a plain struct rather than a concurrent one.
package config

import (
	"os"
	"time"

	goccy "github.com/goccy/go-json"

	"github.com/zuhaib786/FerroDB/internal/ferrors"
)

// Config is FerroDB's full set of startup tunables. Every field has a
// spec-mandated default (the Default() constructor) that can be
// overridden by flags or a JSON file.
type Config struct {
	ListenAddr string `json:"listen_addr"`

	SnapshotPath     string        `json:"snapshot_path"`
	SnapshotInterval time.Duration `json:"snapshot_interval"`

	JournalPath        string        `json:"journal_path"`
	JournalFlushPeriod time.Duration `json:"journal_flush_period"`

	ActiveExpireTick time.Duration `json:"active_expire_tick"`
	PubSubCleanup    time.Duration `json:"pubsub_cleanup_period"`

	AuditLogPath string `json:"audit_log_path"`
}

// Default returns the specification's fixed defaults (§5, §6).
func Default() Config {
	return Config{
		ListenAddr:         "127.0.0.1:6379",
		SnapshotPath:       "dump.rdb",
		SnapshotInterval:   60 * time.Second,
		JournalPath:        "appendonly.aof",
		JournalFlushPeriod: time.Second,
		ActiveExpireTick:   100 * time.Millisecond,
		PubSubCleanup:      time.Second,
		AuditLogPath:       "ferrodb-audit.log",
	}
}

// LoadFile overlays path's JSON fields onto a copy of c. A missing file is
// an error like any other read failure — callers call this only when a
// -config flag named a file.
func LoadFile(c Config, path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return c, ferrors.WithStack(err)
	}
	if err := goccy.Unmarshal(b, &c); err != nil {
		return c, ferrors.WithStack(err)
	}
	return c, nil
}
