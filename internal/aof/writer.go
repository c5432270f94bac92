// Package aof implements FerroDB's append-only command journal: a
// single-writer batching task (Writer), startup replay (Replay), and
// background rewrite to a minimal equivalent log (Rewrite).
//
// The writer's flush coordination is adapted from the teacher's
// storage/queue/queue.go scheduler, generalized from a priority-queue's
// "something changed, reconsider the next deadline" signal to "a tick
// fired, flush whatever is pending": a bounded channel hands records to
// Run, a ticker triggers each flush, and a done channel closed when Run
// returns lets Wait observe shutdown.
package aof

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zuhaib786/FerroDB/internal/audit"
	"github.com/zuhaib786/FerroDB/internal/ferrors"
)

const enqueueBuffer = 4096

// Writer batches mutating command records (already RESP-encoded) and
// appends them to the journal file on a fixed tick, fsyncing after each
// batch. A successful reply to a client does not imply the record is on
// disk yet — only that it is durable within at most one tick (§4.D).
type Writer struct {
	path   string
	audit  *audit.Logger
	period time.Duration

	mu   sync.Mutex
	file *os.File // nil while degraded; reopened lazily on the next tick

	queue chan []byte

	sideMu sync.Mutex
	side   *[][]byte // non-nil while a rewrite is capturing concurrent writes

	dropped atomic.Int64

	done chan struct{}
}

// NewWriter opens path for appending (creating it if absent) and returns
// a Writer ready to have Run started in a goroutine.
func NewWriter(path string, period time.Duration, auditLogger *audit.Logger) (*Writer, error) {
	w := &Writer{
		path:   path,
		audit:  auditLogger,
		period: period,
		queue:  make(chan []byte, enqueueBuffer),
		done:   make(chan struct{}),
	}
	f, err := openAppend(path)
	if err != nil {
		return nil, err
	}
	w.file = f
	return w, nil
}

func openAppend(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, ferrors.WithStack(err)
	}
	return f, nil
}

// Enqueue hands a RESP-encoded record to the writer. If the in-memory
// handoff buffer is full (Run is not draining it fast enough, or is not
// running), the record is dropped and counted — the caller is never
// blocked. While the file is unreachable Run keeps draining the buffer
// into its pending batch, so degradation alone does not cause drops.
func (w *Writer) Enqueue(record []byte) {
	select {
	case w.queue <- record:
	default:
		w.dropped.Add(1)
		if w.audit != nil {
			w.audit.JournalRecordsDropped(int(w.dropped.Load()))
		}
	}
}

// Dropped returns the cumulative count of records dropped because the
// handoff buffer was full.
func (w *Writer) Dropped() int64 { return w.dropped.Load() }

// Run drains the queue, batching records until period fires, then writes
// and fsyncs the batch. It returns when ctx is cancelled, after a final
// flush of whatever is pending.
func (w *Writer) Run(ctx context.Context) {
	ticker := time.NewTicker(w.period)
	defer ticker.Stop()
	defer close(w.done)

	var pending [][]byte
	for {
		select {
		case <-ctx.Done():
			w.flush(pending)
			return
		case rec := <-w.queue:
			pending = append(pending, rec)
		case <-ticker.C:
			if len(pending) == 0 {
				continue
			}
			if w.flush(pending) {
				pending = nil
			}
			// On failure pending is retried whole on the next tick.
		}
	}
}

// flush writes records to the journal file, reopening it first if a
// previous I/O error left it closed. Returns true if the batch was
// durably written (and thus can be dropped from the caller's pending
// slice).
func (w *Writer) flush(records [][]byte) bool {
	if len(records) == 0 {
		return true
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		f, err := openAppend(w.path)
		if err != nil {
			if w.audit != nil {
				w.audit.JournalWriterDegraded(err)
			}
			return false
		}
		w.file = f
		if w.audit != nil {
			w.audit.JournalWriterRecovered()
		}
	}

	for _, rec := range records {
		if _, err := w.file.Write(rec); err != nil {
			w.degrade(err)
			return false
		}
	}
	if err := w.file.Sync(); err != nil {
		w.degrade(err)
		return false
	}

	w.sideMu.Lock()
	if w.side != nil {
		*w.side = append(*w.side, records...)
	}
	w.sideMu.Unlock()

	return true
}

// degrade closes the current file handle (best-effort) and nils it out so
// the next flush attempts a fresh reopen, per SPEC_FULL.md §4.D's
// resolution of the writer-death open question: retry, don't die.
func (w *Writer) degrade(err error) {
	if w.file != nil {
		w.file.Close()
		w.file = nil
	}
	if w.audit != nil {
		w.audit.JournalWriterDegraded(err)
	}
}

// BeginCapture starts mirroring every subsequent successfully-written
// record into a side buffer, for a rewrite in progress to later append as
// the delta it missed. Only one capture may be active at a time.
func (w *Writer) BeginCapture() *[][]byte {
	side := &[][]byte{}
	w.sideMu.Lock()
	w.side = side
	w.sideMu.Unlock()
	return side
}

// EndCapture stops mirroring and returns the accumulated delta.
func (w *Writer) EndCapture(side *[][]byte) [][]byte {
	w.sideMu.Lock()
	defer w.sideMu.Unlock()
	if w.side == side {
		w.side = nil
	}
	return *side
}

// Wait blocks until Run has returned after ctx cancellation.
func (w *Writer) Wait() { <-w.done }
