package server

import (
	"net"
	"time"

	"github.com/evanmcc/vonnegut/wire"
)

// handleReplicateRequest services an inbound replicate call from an
// upstream chain hop. Role gating, local apply, write-repair detection,
// and further downstream forwarding all live in Supervisor.HandleReplicate;
// this handler only owns the wire round-trip.
func (s *Server) handleReplicateRequest(conn net.Conn, header wire.RequestHeader, d *wire.Decoder) error {
	req := &wire.ReplicateRequest{}
	if err := req.Decode(d); err != nil {
		return err
	}

	start := time.Now()
	resp := s.supervisor.HandleReplicate(req)
	s.metrics.ReplicateObserved(time.Since(start))
	if resp.ErrorCode == wire.WriteRepair {
		s.metrics.WriteRepaired()
	}

	return writeResponse(conn, header.CorrelationID, resp.Encode)
}
