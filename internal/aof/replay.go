package aof

import (
	"io"
	"os"

	"github.com/zuhaib786/FerroDB/internal/ferrors"
	"github.com/zuhaib786/FerroDB/internal/resp"
)

const readChunk = 64 * 1024

// Apply is called once per decoded journal command during Replay. It
// should route the command through the dispatcher with log-writing
// suppressed and discard the dispatcher's reply; a non-nil error stops
// Replay.
type Apply func(args [][]byte) error

// Replay reads path's RESP-encoded command stream from the start and
// calls apply for each complete decoded array, converting each element to
// its bulk-string bytes. It returns the count of commands replayed. A
// missing file is not an error (count 0).
func Replay(path string, apply Apply) (int, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, ferrors.WithStack(err)
	}
	defer f.Close()

	var deframer resp.Deframer
	buf := make([]byte, readChunk)
	count := 0
	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			deframer.Feed(buf[:n])
			for {
				v, ok, decErr := deframer.Next()
				if decErr != nil {
					return count, ferrors.WithStack(decErr)
				}
				if !ok {
					break
				}
				args, convErr := ToArgs(v)
				if convErr != nil {
					return count, convErr
				}
				if err := apply(args); err != nil {
					return count, err
				}
				count++
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return count, ferrors.WithStack(readErr)
		}
	}
	return count, nil
}

// ToArgs converts a decoded array-of-bulk-strings Value into its raw
// argument bytes, as every journal record and every client request on the
// wire is shaped. Shared by Replay and the command dispatcher.
func ToArgs(v resp.Value) ([][]byte, error) {
	if v.Kind != resp.KindArray {
		return nil, ferrors.WithStack(errNotArray{})
	}
	out := make([][]byte, len(v.Array))
	for i, elem := range v.Array {
		if elem.Kind != resp.KindBulkString {
			return nil, ferrors.WithStack(errNotArray{})
		}
		out[i] = elem.Bulk
	}
	return out, nil
}

type errNotArray struct{}

func (errNotArray) Error() string { return "aof: journal record is not an array of bulk strings" }
