// Command ferrodb-server is FerroDB's process entrypoint: it loads
// configuration, restores state from the last snapshot and journal, then
// serves the RESP protocol on a single TCP listener until told to stop.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/zuhaib786/FerroDB/internal/aof"
	"github.com/zuhaib786/FerroDB/internal/audit"
	"github.com/zuhaib786/FerroDB/internal/config"
	"github.com/zuhaib786/FerroDB/internal/dispatch"
	"github.com/zuhaib786/FerroDB/internal/keyspace"
	"github.com/zuhaib786/FerroDB/internal/pubsub"
	"github.com/zuhaib786/FerroDB/internal/resp"
	"github.com/zuhaib786/FerroDB/internal/snapshot"
)

func main() {
	var flagConfigFile string
	cfg := config.Default()
	flag.StringVar(&flagConfigFile, "config", "", "Overwrite the default options by those specified in `config.json`")
	flag.StringVar(&cfg.ListenAddr, "addr", cfg.ListenAddr, "Address to listen for RESP connections on")
	flag.StringVar(&cfg.SnapshotPath, "snapshot", cfg.SnapshotPath, "Path to the snapshot (dump.rdb) file")
	flag.StringVar(&cfg.JournalPath, "journal", cfg.JournalPath, "Path to the append-only journal file")
	flag.StringVar(&cfg.AuditLogPath, "audit-log", cfg.AuditLogPath, "Path to the rotating operational audit log")
	flag.DurationVar(&cfg.SnapshotInterval, "snapshot-interval", cfg.SnapshotInterval, "Period between automatic background snapshots")
	flag.DurationVar(&cfg.JournalFlushPeriod, "journal-flush-period", cfg.JournalFlushPeriod, "Period between journal fsyncs")
	flag.DurationVar(&cfg.ActiveExpireTick, "active-expire-tick", cfg.ActiveExpireTick, "Period between active-expiration sweeps")
	flag.Parse()

	if flagConfigFile != "" {
		loaded, err := config.LoadFile(cfg, flagConfigFile)
		if err != nil {
			log.Fatalf("loading %s: %s", flagConfigFile, err.Error())
		}
		cfg = loaded
	}

	auditLogger := audit.Open(cfg.AuditLogPath, 10, 3)
	defer auditLogger.Close()

	ks := keyspace.New()

	if entries, err := snapshot.Load(cfg.SnapshotPath); err == nil {
		for _, e := range entries {
			var ttl *int64
			if e.HasTTL {
				secs := int64(time.Until(e.Deadline) / time.Second)
				if secs < 1 {
					secs = 1
				}
				ttl = &secs
			}
			ks.LoadEntry(e.Key, e.Value, ttl)
		}
		auditLogger.SnapshotLoaded(cfg.SnapshotPath, len(entries), nil)
	} else if !os.IsNotExist(err) {
		auditLogger.SnapshotLoaded(cfg.SnapshotPath, 0, err)
		log.Printf("snapshot %s not loaded: %s", cfg.SnapshotPath, err.Error())
	}

	hub := pubsub.NewHub()
	srv := dispatch.NewServer(ks, nil, hub, auditLogger, cfg.SnapshotPath, cfg.JournalPath)

	replayClient := dispatch.NewClientState(hub)
	replayCount, err := aof.Replay(cfg.JournalPath, func(args [][]byte) error {
		dispatch.Dispatch(srv, replayClient, true, encodeReplayed(args))
		return nil
	})
	if err != nil {
		log.Fatalf("replaying journal %s: %s", cfg.JournalPath, err.Error())
	}
	auditLogger.JournalReplayed(cfg.JournalPath, replayCount, nil)

	writer, err := aof.NewWriter(cfg.JournalPath, cfg.JournalFlushPeriod, auditLogger)
	if err != nil {
		log.Fatalf("opening journal %s: %s", cfg.JournalPath, err.Error())
	}
	srv.Writer = writer

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		writer.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runTicker(ctx, cfg.ActiveExpireTick, func() { ks.ActiveSweep() })
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runTicker(ctx, cfg.SnapshotInterval, func() {
			if _, err := srv.Save(); err != nil {
				log.Printf("background snapshot failed: %s", err.Error())
			}
		})
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runTicker(ctx, cfg.PubSubCleanup, hub.Cleanup)
	}()

	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		log.Fatalf("listening on %s: %s", cfg.ListenAddr, err.Error())
	}
	auditLogger.Startup(cfg.ListenAddr, cfg.SnapshotPath, cfg.JournalPath)
	log.Printf("ferrodb-server listening at %s", cfg.ListenAddr)

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		listener.Close()
	}()

	var connWg sync.WaitGroup
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				connWg.Wait()
				wg.Wait()
				log.Print("ferrodb-server shut down cleanly")
				return
			default:
				log.Printf("accept error: %s", err.Error())
				continue
			}
		}
		connWg.Add(1)
		go func() {
			defer connWg.Done()
			handleConn(ctx, srv, conn)
		}()
	}
}

// runTicker calls f every period until ctx is cancelled, the way the
// teacher's background maintenance loops range over time.Tick bounded by
// a context instead of running forever unconditionally.
func runTicker(ctx context.Context, period time.Duration, f func()) {
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			f()
		}
	}
}

// encodeReplayed wraps a journaled command's raw args back into the array-
// of-bulk-strings shape Dispatch expects, mirroring how they were framed
// on the wire (and in the journal) in the first place.
func encodeReplayed(args [][]byte) resp.Value {
	elems := make([]resp.Value, len(args))
	for i, a := range args {
		elems[i] = resp.Bulk(a)
	}
	return resp.Array(elems)
}

// handleConn runs one connection's read/dispatch/write loop plus a
// concurrent drain of its pub/sub mailbox, until the connection closes or
// ctx is cancelled.
func handleConn(ctx context.Context, srv *dispatch.Server, conn net.Conn) {
	defer conn.Close()

	connID := audit.NewConnectionID()
	if srv.Audit != nil {
		srv.Audit.ConnectionOpened(connID, conn.RemoteAddr().String())
	}
	var connErr error
	defer func() {
		if srv.Audit != nil {
			srv.Audit.ConnectionClosed(connID, connErr)
		}
	}()

	client := dispatch.NewClientState(srv.Hub)
	defer client.Subs.RemoveAll()

	connCtx, cancel := context.WithCancel(ctx)
	// Closing the socket on cancellation unblocks the read loop below.
	context.AfterFunc(connCtx, func() { conn.Close() })

	writes := make(chan resp.Value, 64)
	var writerWg sync.WaitGroup
	writerWg.Add(2)
	go func() {
		defer writerWg.Done()
		for {
			select {
			case <-connCtx.Done():
				return
			case v := <-writes:
				if _, err := conn.Write(resp.Encode(v)); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	go func() {
		defer writerWg.Done()
		t := time.NewTicker(50 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-connCtx.Done():
				return
			case <-t.C:
				for {
					msg, ok := client.Subs.TryRecv()
					if !ok {
						break
					}
					select {
					case writes <- dispatch.EncodeMessage(msg):
					case <-connCtx.Done():
						return
					}
				}
			}
		}
	}()
	defer writerWg.Wait()
	defer cancel()

	var deframer resp.Deframer
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			deframer.Feed(buf[:n])
			for {
				msg, ok, derr := deframer.Next()
				if derr != nil {
					select {
					case writes <- resp.ErrFmt("protocol error: %s", derr.Error()):
					case <-connCtx.Done():
					}
					connErr = derr
					return
				}
				if !ok {
					break
				}
				for _, reply := range dispatch.Dispatch(srv, client, false, msg) {
					select {
					case writes <- reply:
					case <-connCtx.Done():
						return
					}
				}
			}
		}
		if err != nil {
			if err != io.EOF {
				connErr = err
			}
			return
		}
	}
}
