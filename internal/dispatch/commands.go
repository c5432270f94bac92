package dispatch

import (
	"strconv"
	"strings"

	"github.com/zuhaib786/FerroDB/internal/keyspace"
	"github.com/zuhaib786/FerroDB/internal/resp"
)

// formatScore renders a sorted-set score the way ZSCORE/ZRANGE WITHSCORES
// put it on the wire: the shortest decimal that round-trips, matching
// Redis's float formatting convention.
func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func cmdPing(srv *Server, c *ClientState, args [][]byte) resp.Value {
	switch len(args) {
	case 0:
		return resp.SimpleString("PONG")
	case 1:
		return resp.Bulk(args[0])
	default:
		return arityErr("PING")
	}
}

func cmdSet(srv *Server, c *ClientState, args [][]byte) resp.Value {
	if len(args) != 2 {
		return arityErr("SET")
	}
	srv.KS.Set(string(args[0]), args[1])
	return resp.OK()
}

func cmdSetEx(srv *Server, c *ClientState, args [][]byte) resp.Value {
	if len(args) != 3 {
		return arityErr("SETEX")
	}
	secs, ok := parseInt(args[1])
	if !ok {
		return notIntErr()
	}
	srv.KS.SetWithTTL(string(args[0]), args[2], secs)
	return resp.OK()
}

func cmdGet(srv *Server, c *ClientState, args [][]byte) resp.Value {
	if len(args) != 1 {
		return arityErr("GET")
	}
	v, ok, err := srv.KS.Get(string(args[0]))
	if err != nil {
		return errorReply(err)
	}
	if !ok {
		return resp.Null()
	}
	return resp.Bulk(v)
}

func cmdMSet(srv *Server, c *ClientState, args [][]byte) resp.Value {
	if len(args) == 0 || len(args)%2 != 0 {
		return arityErr("MSET")
	}
	pairs := make(map[string][]byte, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		pairs[string(args[i])] = args[i+1]
	}
	srv.KS.MSet(pairs)
	return resp.OK()
}

func cmdMGet(srv *Server, c *ClientState, args [][]byte) resp.Value {
	if len(args) < 1 {
		return arityErr("MGET")
	}
	return resp.Array(bulkSlice(srv.KS.MGet(toStrings(args))))
}

func cmdExists(srv *Server, c *ClientState, args [][]byte) resp.Value {
	if len(args) < 1 {
		return arityErr("EXISTS")
	}
	return resp.Integer(srv.KS.Exists(toStrings(args)...))
}

func cmdDel(srv *Server, c *ClientState, args [][]byte) resp.Value {
	if len(args) < 1 {
		return arityErr("DEL")
	}
	return resp.Integer(srv.KS.Del(toStrings(args)...))
}

func cmdExpire(srv *Server, c *ClientState, args [][]byte) resp.Value {
	if len(args) != 2 {
		return arityErr("EXPIRE")
	}
	secs, ok := parseInt(args[1])
	if !ok {
		return notIntErr()
	}
	if srv.KS.Expire(string(args[0]), secs) {
		return resp.Integer(1)
	}
	return resp.Integer(0)
}

func cmdTTL(srv *Server, c *ClientState, args [][]byte) resp.Value {
	if len(args) != 1 {
		return arityErr("TTL")
	}
	return resp.Integer(srv.KS.TTL(string(args[0])))
}

func cmdPersist(srv *Server, c *ClientState, args [][]byte) resp.Value {
	if len(args) != 1 {
		return arityErr("PERSIST")
	}
	if srv.KS.Persist(string(args[0])) {
		return resp.Integer(1)
	}
	return resp.Integer(0)
}

func cmdType(srv *Server, c *ClientState, args [][]byte) resp.Value {
	if len(args) != 1 {
		return arityErr("TYPE")
	}
	return resp.SimpleString(srv.KS.Type(string(args[0])))
}

func cmdLPush(srv *Server, c *ClientState, args [][]byte) resp.Value {
	if len(args) < 2 {
		return arityErr("LPUSH")
	}
	n, err := srv.KS.LPush(string(args[0]), args[1:]...)
	if err != nil {
		return errorReply(err)
	}
	return resp.Integer(n)
}

func cmdRPush(srv *Server, c *ClientState, args [][]byte) resp.Value {
	if len(args) < 2 {
		return arityErr("RPUSH")
	}
	n, err := srv.KS.RPush(string(args[0]), args[1:]...)
	if err != nil {
		return errorReply(err)
	}
	return resp.Integer(n)
}

func cmdLPop(srv *Server, c *ClientState, args [][]byte) resp.Value {
	return popReply(srv, args, "LPOP", srv.KS.LPop)
}

func cmdRPop(srv *Server, c *ClientState, args [][]byte) resp.Value {
	return popReply(srv, args, "RPOP", srv.KS.RPop)
}

func popReply(srv *Server, args [][]byte, name string, pop func(string, int64) ([][]byte, bool, error)) resp.Value {
	if len(args) < 1 || len(args) > 2 {
		return arityErr(name)
	}
	hasCount := len(args) == 2
	count := int64(1)
	if hasCount {
		n, ok := parseInt(args[1])
		if !ok || n < 0 {
			return notIntErr()
		}
		count = n
	}
	out, ok, err := pop(string(args[0]), count)
	if err != nil {
		return errorReply(err)
	}
	if !ok {
		if hasCount {
			return resp.Array(nil)
		}
		return resp.Null()
	}
	if !hasCount {
		if len(out) == 0 {
			return resp.Null()
		}
		return resp.Bulk(out[0])
	}
	return resp.Array(bulkSlice(out))
}

func cmdLLen(srv *Server, c *ClientState, args [][]byte) resp.Value {
	if len(args) != 1 {
		return arityErr("LLEN")
	}
	n, err := srv.KS.LLen(string(args[0]))
	if err != nil {
		return errorReply(err)
	}
	return resp.Integer(n)
}

func cmdLRange(srv *Server, c *ClientState, args [][]byte) resp.Value {
	if len(args) != 3 {
		return arityErr("LRANGE")
	}
	start, ok1 := parseInt(args[1])
	stop, ok2 := parseInt(args[2])
	if !ok1 || !ok2 {
		return notIntErr()
	}
	out, err := srv.KS.LRange(string(args[0]), start, stop)
	if err != nil {
		return errorReply(err)
	}
	return resp.Array(bulkSlice(out))
}

func cmdSAdd(srv *Server, c *ClientState, args [][]byte) resp.Value {
	if len(args) < 2 {
		return arityErr("SADD")
	}
	n, err := srv.KS.SAdd(string(args[0]), args[1:]...)
	if err != nil {
		return errorReply(err)
	}
	return resp.Integer(n)
}

func cmdSRem(srv *Server, c *ClientState, args [][]byte) resp.Value {
	if len(args) < 2 {
		return arityErr("SREM")
	}
	n, err := srv.KS.SRem(string(args[0]), args[1:]...)
	if err != nil {
		return errorReply(err)
	}
	return resp.Integer(n)
}

func cmdSMembers(srv *Server, c *ClientState, args [][]byte) resp.Value {
	if len(args) != 1 {
		return arityErr("SMEMBERS")
	}
	out, err := srv.KS.SMembers(string(args[0]))
	if err != nil {
		return errorReply(err)
	}
	return resp.Array(bulkSlice(out))
}

func cmdSIsMember(srv *Server, c *ClientState, args [][]byte) resp.Value {
	if len(args) != 2 {
		return arityErr("SISMEMBER")
	}
	ok, err := srv.KS.SIsMember(string(args[0]), args[1])
	if err != nil {
		return errorReply(err)
	}
	if ok {
		return resp.Integer(1)
	}
	return resp.Integer(0)
}

func cmdSCard(srv *Server, c *ClientState, args [][]byte) resp.Value {
	if len(args) != 1 {
		return arityErr("SCARD")
	}
	n, err := srv.KS.SCard(string(args[0]))
	if err != nil {
		return errorReply(err)
	}
	return resp.Integer(n)
}

func cmdSInter(srv *Server, c *ClientState, args [][]byte) resp.Value {
	return setOpReply(args, "SINTER", srv.KS.SInter)
}

func cmdSUnion(srv *Server, c *ClientState, args [][]byte) resp.Value {
	return setOpReply(args, "SUNION", srv.KS.SUnion)
}

func cmdSDiff(srv *Server, c *ClientState, args [][]byte) resp.Value {
	return setOpReply(args, "SDIFF", srv.KS.SDiff)
}

func setOpReply(args [][]byte, name string, op func(...string) ([][]byte, error)) resp.Value {
	if len(args) < 1 {
		return arityErr(name)
	}
	out, err := op(toStrings(args)...)
	if err != nil {
		return errorReply(err)
	}
	return resp.Array(bulkSlice(out))
}

func cmdZAdd(srv *Server, c *ClientState, args [][]byte) resp.Value {
	if len(args) < 3 || (len(args)-1)%2 != 0 {
		return arityErr("ZADD")
	}
	pairs := make([]keyspace.ScoreMember, 0, (len(args)-1)/2)
	for i := 1; i+1 < len(args); i += 2 {
		score, ok := parseFloat(args[i])
		if !ok {
			return notFloatErr()
		}
		pairs = append(pairs, keyspace.ScoreMember{Score: score, Member: args[i+1]})
	}
	n, err := srv.KS.ZAdd(string(args[0]), pairs...)
	if err != nil {
		return errorReply(err)
	}
	return resp.Integer(n)
}

func cmdZRem(srv *Server, c *ClientState, args [][]byte) resp.Value {
	if len(args) < 2 {
		return arityErr("ZREM")
	}
	n, err := srv.KS.ZRem(string(args[0]), args[1:]...)
	if err != nil {
		return errorReply(err)
	}
	return resp.Integer(n)
}

func cmdZScore(srv *Server, c *ClientState, args [][]byte) resp.Value {
	if len(args) != 2 {
		return arityErr("ZSCORE")
	}
	score, ok, err := srv.KS.ZScore(string(args[0]), args[1])
	if err != nil {
		return errorReply(err)
	}
	if !ok {
		return resp.Null()
	}
	return resp.BulkString(formatScore(score))
}

func cmdZRank(srv *Server, c *ClientState, args [][]byte) resp.Value {
	if len(args) != 2 {
		return arityErr("ZRANK")
	}
	rank, ok, err := srv.KS.ZRank(string(args[0]), args[1])
	if err != nil {
		return errorReply(err)
	}
	if !ok {
		return resp.Null()
	}
	return resp.Integer(rank)
}

func cmdZCard(srv *Server, c *ClientState, args [][]byte) resp.Value {
	if len(args) != 1 {
		return arityErr("ZCARD")
	}
	n, err := srv.KS.ZCard(string(args[0]))
	if err != nil {
		return errorReply(err)
	}
	return resp.Integer(n)
}

func cmdZRange(srv *Server, c *ClientState, args [][]byte) resp.Value {
	if len(args) != 3 && len(args) != 4 {
		return arityErr("ZRANGE")
	}
	withScores := false
	if len(args) == 4 {
		if !strings.EqualFold(string(args[3]), "WITHSCORES") {
			return resp.ErrFmt("syntax error")
		}
		withScores = true
	}
	start, ok1 := parseInt(args[1])
	stop, ok2 := parseInt(args[2])
	if !ok1 || !ok2 {
		return notIntErr()
	}
	out, err := srv.KS.ZRange(string(args[0]), start, stop)
	if err != nil {
		return errorReply(err)
	}
	elems := make([]resp.Value, 0, len(out)*2)
	for _, sm := range out {
		elems = append(elems, resp.Bulk(sm.Member))
		if withScores {
			elems = append(elems, resp.BulkString(formatScore(sm.Score)))
		}
	}
	return resp.Array(elems)
}
