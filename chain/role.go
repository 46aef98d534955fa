package chain

import "github.com/evanmcc/vonnegut/wire"

// Role is the position a connection (or the partitions it serves) holds
// within a replication chain.
type Role int

const (
	Undefined Role = iota
	Head
	Middle
	Tail
	Solo
)

func (r Role) String() string {
	switch r {
	case Head:
		return "head"
	case Middle:
		return "middle"
	case Tail:
		return "tail"
	case Solo:
		return "solo"
	default:
		return "undefined"
	}
}

// Allowed reports whether a connection in role r may be dispatched a
// request carrying apiKey, and if not, which error code the caller must
// reply with (or drop the connection, for Undefined).
func Allowed(r Role, apiKey int16) (ok bool, errorCode int16) {
	switch apiKey {
	case wire.Produce:
		switch r {
		case Head, Solo:
			return true, wire.NoError
		default:
			return false, wire.ProduceDisallowed
		}
	case wire.Fetch, wire.Fetch2:
		switch r {
		case Tail, Solo:
			return true, wire.NoError
		default:
			return false, wire.FetchDisallowed
		}
	case wire.Replicate:
		switch r {
		case Middle, Tail:
			return true, wire.NoError
		default:
			return false, wire.ReplicateDisallowed
		}
	case wire.Metadata, wire.Topics, wire.Ensure, wire.DeleteTopic, wire.ReplicateDeleteTopic:
		return true, wire.NoError
	default:
		return false, wire.UnknownError
	}
}
