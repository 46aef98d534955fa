package server

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/golang/glog"

	"github.com/evanmcc/vonnegut/wire"
)

var errUnknownAPIKey = errors.New("server: unknown api key")

// handleConn drives one connection's Ready state: read a frame, parse its
// header, dispatch by (opcode, role), repeat. A length-prefixed frame
// read blocks until a complete frame is available, so there is no
// separate manual buffering step for partial frames — io.ReadFull's
// blocking semantics (inside wire.ReadFrame) give the same "retain
// trailing partial bytes" behavior the state machine describes, since the
// kernel socket buffer holds whatever arrived short of a full frame until
// the next read completes it.
func (s *Server) handleConn(conn net.Conn) {
	defer func() {
		s.wg.Done()
		s.untrackConn(conn)
		conn.Close()
		s.metrics.ConnectionClosed()
	}()

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		tcpConn.SetNoDelay(true)
	}

	for {
		select {
		case <-s.shutdownCh:
			return
		default:
		}

		if err := conn.SetReadDeadline(time.Now().Add(s.connectionsMaxIdle)); err != nil {
			glog.Errorf("server: SetReadDeadline: %v", err)
			return
		}
		body, err := wire.ReadFrame(conn)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				glog.Infof("server: %v idle timeout", conn.RemoteAddr())
				return
			}
			if err != io.EOF {
				glog.Infof("server: ReadFrame from %v: %v", conn.RemoteAddr(), err)
			}
			return
		}
		if err := conn.SetReadDeadline(time.Time{}); err != nil {
			glog.Errorf("server: clear read deadline: %v", err)
			return
		}
		if body == nil {
			continue
		}

		d := wire.NewDecoder(body)
		var header wire.RequestHeader
		if err := header.Decode(d); err != nil {
			glog.Errorf("server: decode request header from %v: %v", conn.RemoteAddr(), err)
			return
		}

		if err := s.dispatch(conn, header, d); err != nil {
			glog.Warningf("server: dispatch %s from %v: %v", wire.APIKeyName(header.APIKey), conn.RemoteAddr(), err)
			return
		}
	}
}

func (s *Server) dispatch(conn net.Conn, header wire.RequestHeader, d *wire.Decoder) error {
	switch header.APIKey {
	case wire.Produce:
		return s.handleProduce(conn, header, d)
	case wire.Fetch:
		return s.handleFetch(conn, header, d, false)
	case wire.Fetch2:
		return s.handleFetch(conn, header, d, true)
	case wire.Metadata, wire.Topics:
		return s.handleMetadata(conn, header, d)
	case wire.Ensure:
		return s.handleEnsure(conn, header, d)
	case wire.DeleteTopic, wire.ReplicateDeleteTopic:
		return s.handleDeleteTopic(conn, header, d)
	case wire.Replicate:
		return s.handleReplicateRequest(conn, header, d)
	default:
		glog.Warningf("server: unrecognized api key %d from %v", header.APIKey, conn.RemoteAddr())
		return errUnknownAPIKey
	}
}

// writeResponse wraps body (whatever encodeBody writes) in a ResponseHeader
// carrying the request's correlation id, and sends it as one frame.
func writeResponse(conn net.Conn, correlationID int32, encodeBody func(e *wire.Encoder)) error {
	e := wire.NewEncoder()
	h := wire.ResponseHeader{CorrelationID: correlationID}
	h.Encode(e)
	encodeBody(e)
	return wire.WriteFrame(conn, e.Bytes())
}
