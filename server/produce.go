package server

import (
	"context"
	"net"
	"time"

	"github.com/evanmcc/vonnegut/chain"
	"github.com/evanmcc/vonnegut/registry"
	"github.com/evanmcc/vonnegut/wire"
)

// handleProduce implements the produce path of request flow E in spec.md
// §2: append locally then, transitively through Supervisor.Produce, await
// acknowledgement from every replica down to the tail before replying.
func (s *Server) handleProduce(conn net.Conn, header wire.RequestHeader, d *wire.Decoder) error {
	req := &wire.ProduceRequest{}
	if err := req.Decode(d); err != nil {
		return err
	}

	if err := s.rateLimiter.WaitProduce(context.Background()); err != nil {
		return err
	}

	allowed, disallowedCode := chain.Allowed(s.role, wire.Produce)

	resp := &wire.ProduceResponse{Topics: make([]wire.ProduceTopicResponse, len(req.Topics))}
	for i, t := range req.Topics {
		tr := wire.ProduceTopicResponse{Topic: t.Topic, Partitions: make([]wire.ProducePartitionResponse, len(t.Partitions))}
		for j, p := range t.Partitions {
			if !allowed {
				tr.Partitions[j] = wire.ProducePartitionResponse{Partition: p.Partition, ErrorCode: disallowedCode, OffsetOfLast: -1}
				continue
			}
			tr.Partitions[j] = s.producePartition(t.Topic, p)
		}
		resp.Topics[i] = tr
	}

	return writeResponse(conn, header.CorrelationID, resp.Encode)
}

func (s *Server) producePartition(topic string, p wire.ProducePartition) wire.ProducePartitionResponse {
	start := time.Now()
	last, err := s.supervisor.Produce(topic, p.Partition, p.Records)
	s.metrics.ProduceObserved(topic, time.Since(start))

	pr := wire.ProducePartitionResponse{Partition: p.Partition}
	switch {
	case err == nil:
		pr.ErrorCode = wire.NoError
		pr.OffsetOfLast = last
	case err == registry.ErrUnknownPartition:
		pr.ErrorCode = wire.UnknownTopicOrPartition
		pr.OffsetOfLast = -1
	default:
		// Socket-closed, pool-timeout, and downstream timeout all surface
		// to the client as TimeoutError with offset -1, per the failure
		// mapping in spec.md §4.2.
		pr.ErrorCode = wire.TimeoutError
		pr.OffsetOfLast = -1
	}
	if pr.ErrorCode != wire.NoError {
		s.metrics.ProduceErrored(topic, wire.ErrorCodeName(pr.ErrorCode))
	}
	return pr
}
