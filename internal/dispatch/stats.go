package dispatch

import (
	"io"
	"os"

	"github.com/rodaine/table"
)

// Report is FerroDB's operator-facing diagnostic snapshot: keyspace
// composition plus on-disk artifact sizes. It is SPEC_FULL.md's STATS
// expansion (§3) — reachable only through cmd/ferrodb-cli's admin mode,
// never over the RESP wire, so it carries no dispatch command-table
// entry.
type Report struct {
	TotalKeys   int64
	StringCount int64
	ListCount   int64
	SetCount    int64
	ZSetCount   int64
	KeysWithTTL int64

	SnapshotSizeBytes int64
	JournalSizeBytes  int64
	JournalDropped    int64
	LastSaveUnix      int64
}

// Stats computes a Report from the live keyspace and on-disk artifacts.
// It takes the same consistent-copy path as SAVE/BGREWRITEAOF
// (Keyspace.Snapshot), so counts never race a concurrent mutation.
func Stats(srv *Server) Report {
	entries := srv.KS.Snapshot()
	r := Report{TotalKeys: int64(len(entries))}
	for _, e := range entries {
		switch e.Value.Kind {
		case "string":
			r.StringCount++
		case "list":
			r.ListCount++
		case "set":
			r.SetCount++
		case "zset":
			r.ZSetCount++
		}
		if e.HasTTL {
			r.KeysWithTTL++
		}
	}
	if fi, err := os.Stat(srv.SnapshotPath); err == nil {
		r.SnapshotSizeBytes = fi.Size()
	}
	if fi, err := os.Stat(srv.JournalPath); err == nil {
		r.JournalSizeBytes = fi.Size()
	}
	if srv.Writer != nil {
		r.JournalDropped = srv.Writer.Dropped()
	}
	srv.mu.Lock()
	if !srv.lastSave.IsZero() {
		r.LastSaveUnix = srv.lastSave.Unix()
	}
	srv.mu.Unlock()
	return r
}

// Render writes r as an aligned two-column table, the way the teacher's
// admin dashboards (game/stats_commands.go) render operator-facing
// summaries.
func (r Report) Render(w io.Writer) {
	t := table.New("Metric", "Value").WithWriter(w)
	t.AddRow("Total keys", r.TotalKeys)
	t.AddRow("  strings", r.StringCount)
	t.AddRow("  lists", r.ListCount)
	t.AddRow("  sets", r.SetCount)
	t.AddRow("  sorted sets", r.ZSetCount)
	t.AddRow("Keys with TTL", r.KeysWithTTL)
	t.AddRow("Snapshot size (bytes)", r.SnapshotSizeBytes)
	t.AddRow("Journal size (bytes)", r.JournalSizeBytes)
	t.AddRow("Journal records dropped", r.JournalDropped)
	t.AddRow("Last save (unix)", r.LastSaveUnix)
	t.Print()
}
