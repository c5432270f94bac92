// Command ferrodb-cli is FerroDB's client: by default a line-oriented
// REPL that speaks RESP to a running ferrodb-server, or, with -stats, a
// local admin report read directly off the server's on-disk snapshot and
// journal (no wire protocol for that path — see internal/dispatch/stats.go).
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/zuhaib786/FerroDB/internal/aof"
	"github.com/zuhaib786/FerroDB/internal/dispatch"
	"github.com/zuhaib786/FerroDB/internal/keyspace"
	"github.com/zuhaib786/FerroDB/internal/pubsub"
	"github.com/zuhaib786/FerroDB/internal/resp"
	"github.com/zuhaib786/FerroDB/internal/snapshot"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:6379", "Address of the ferrodb-server to connect to")
	statsMode := flag.Bool("stats", false, "Print an admin report from the on-disk snapshot and journal instead of starting a REPL")
	snapshotPath := flag.String("snapshot", "dump.rdb", "Snapshot file to read for -stats")
	journalPath := flag.String("journal", "appendonly.aof", "Journal file to read for -stats")
	flag.Parse()

	if *statsMode {
		runStats(*snapshotPath, *journalPath)
		return
	}
	runRepl(*addr)
}

// runStats reconstructs a keyspace from the on-disk artifacts the way
// ferrodb-server does at startup, then renders the same Report the
// server could compute live. It never opens a connection: operators use
// this to inspect a server's data files without disturbing a running
// instance (or to inspect a stopped one).
func runStats(snapshotPath, journalPath string) {
	ks := keyspace.New()

	if entries, err := snapshot.Load(snapshotPath); err == nil {
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
	} else if !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "reading snapshot %s: %s\n", snapshotPath, err.Error())
		os.Exit(1)
	}

	hub := pubsub.NewHub()
	srv := dispatch.NewServer(ks, nil, hub, nil, snapshotPath, journalPath)
	replayClient := dispatch.NewClientState(hub)
	if _, err := aof.Replay(journalPath, func(args [][]byte) error {
		elems := make([]resp.Value, len(args))
		for i, a := range args {
			elems[i] = resp.Bulk(a)
		}
		dispatch.Dispatch(srv, replayClient, true, resp.Array(elems))
		return nil
	}); err != nil {
		fmt.Fprintf(os.Stderr, "replaying journal %s: %s\n", journalPath, err.Error())
		os.Exit(1)
	}

	dispatch.Stats(srv).Render(os.Stdout)
}

// runRepl connects to addr and shuttles lines typed on stdin to the
// server as RESP arrays of bulk strings, printing each decoded reply.
func runRepl(addr string) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connecting to %s: %s\n", addr, err.Error())
		os.Exit(1)
	}
	defer conn.Close()

	replies := make(chan resp.Value)
	errs := make(chan error, 1)
	go func() {
		var deframer resp.Deframer
		buf := make([]byte, 4096)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				deframer.Feed(buf[:n])
				for {
					v, ok, derr := deframer.Next()
					if derr != nil {
						errs <- derr
						return
					}
					if !ok {
						break
					}
					replies <- v
				}
			}
			if err != nil {
				errs <- err
				return
			}
		}
	}()

	fmt.Printf("connected to %s\n", addr)
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("ferrodb> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			fmt.Print("ferrodb> ")
			continue
		}
		fields := strings.Fields(line)
		elems := make([]resp.Value, len(fields))
		for i, f := range fields {
			elems[i] = resp.BulkString(f)
		}
		if _, err := conn.Write(resp.Encode(resp.Array(elems))); err != nil {
			fmt.Fprintf(os.Stderr, "write: %s\n", err.Error())
			return
		}
		select {
		case reply := <-replies:
			printReply(reply)
		case err := <-errs:
			fmt.Fprintf(os.Stderr, "connection closed: %s\n", err.Error())
			return
		}
		fmt.Print("ferrodb> ")
	}
}

func printReply(v resp.Value) {
	switch v.Kind {
	case resp.KindSimpleString:
		fmt.Println(v.Str)
	case resp.KindError:
		fmt.Println(v.Str)
	case resp.KindInteger:
		fmt.Println(v.Int)
	case resp.KindBulkString:
		if v.IsNull() {
			fmt.Println("(nil)")
			return
		}
		fmt.Println(string(v.Bulk))
	case resp.KindArray:
		if v.Array == nil {
			fmt.Println("(nil)")
			return
		}
		for i, e := range v.Array {
			fmt.Printf("%d) ", i+1)
			printReply(e)
		}
	}
}
