package dispatch

import (
	"math"
	"time"

	"github.com/zuhaib786/FerroDB/internal/aof"
	"github.com/zuhaib786/FerroDB/internal/resp"
	"github.com/zuhaib786/FerroDB/internal/snapshot"
)

func cmdDBSize(srv *Server, c *ClientState, args [][]byte) resp.Value {
	if len(args) != 0 {
		return arityErr("DBSIZE")
	}
	return resp.Integer(srv.KS.DBSize())
}

// cmdSave performs a synchronous SAVE: any I/O error surfaces as the reply
// itself (§7 — "SAVE surfaces as error reply").
func cmdSave(srv *Server, c *ClientState, args [][]byte) resp.Value {
	if len(args) != 0 {
		return arityErr("SAVE")
	}
	if _, err := srv.save(); err != nil {
		return resp.ErrFmt("%s", err.Error())
	}
	return resp.OK()
}

// cmdBGSave spawns the snapshot write as a detached task (§5) and replies
// immediately; debounced so a flood of BGSAVE requests doesn't stack up
// redundant background jobs (§4.F expansion).
func cmdBGSave(srv *Server, c *ClientState, args [][]byte) resp.Value {
	if len(args) != 0 {
		return arityErr("BGSAVE")
	}
	if !srv.tryStartJob("save") {
		return resp.SimpleString("Background save already in progress")
	}
	go func() {
		defer srv.finishJob("save")
		if _, err := srv.save(); err != nil && srv.Audit != nil {
			srv.Audit.SnapshotSaved(srv.SnapshotPath, 0, err)
		}
	}()
	return resp.SimpleString("Background saving started")
}

func cmdLastSave(srv *Server, c *ClientState, args [][]byte) resp.Value {
	if len(args) != 0 {
		return arityErr("LASTSAVE")
	}
	srv.mu.Lock()
	last := srv.lastSave
	srv.mu.Unlock()
	if last.IsZero() {
		return resp.Integer(0)
	}
	return resp.Integer(last.Unix())
}

// cmdBGRewriteAOF spawns a journal rewrite as a detached task, debounced
// the same way as BGSAVE.
func cmdBGRewriteAOF(srv *Server, c *ClientState, args [][]byte) resp.Value {
	if len(args) != 0 {
		return arityErr("BGREWRITEAOF")
	}
	if !srv.tryStartJob("rewrite") {
		return resp.SimpleString("Background append only file rewriting already in progress")
	}
	go func() {
		defer srv.finishJob("rewrite")
		entries := srv.KS.GetAllData()
		if srv.Audit != nil {
			srv.Audit.RewriteStarted(srv.JournalPath)
		}
		n, err := aof.Rewrite(srv.JournalPath, entries, srv.Writer)
		if srv.Audit != nil {
			srv.Audit.RewriteFinished(srv.JournalPath, n, err)
		}
	}()
	return resp.SimpleString("Background append only file rewriting started")
}

// Save writes a snapshot synchronously and records LASTSAVE on success.
// Exported for cmd/ferrodb-server's periodic background snapshot task.
func (srv *Server) Save() (int, error) {
	return srv.save()
}

// save is the unexported worker shared by Save and cmdSave.
func (srv *Server) save() (int, error) {
	entries := srv.KS.Snapshot()
	err := snapshot.Save(srv.SnapshotPath, entries)
	if srv.Audit != nil {
		srv.Audit.SnapshotSaved(srv.SnapshotPath, len(entries), err)
	}
	if err != nil {
		return 0, err
	}
	srv.mu.Lock()
	srv.lastSave = time.Now()
	srv.mu.Unlock()
	return len(entries), nil
}

// tryStartJob debounces BGSAVE/BGREWRITEAOF: a request for a job already
// marked running (or finished within the debounce window) is refused.
func (srv *Server) tryStartJob(name string) bool {
	if _, running := srv.jobs.Get(name); running {
		return false
	}
	// The running marker does not lapse on its own; finishJob replaces it
	// with one that expires jobDebounce after completion.
	srv.jobs.Set(name, true, time.Duration(math.MaxInt64))
	return true
}

// finishJob keeps the debounce entry alive for jobDebounce past
// completion rather than clearing it immediately, so an immediate repeat
// request still gets refused.
func (srv *Server) finishJob(name string) {
	srv.jobs.Set(name, true, 0)
}
