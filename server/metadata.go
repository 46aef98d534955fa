package server

import (
	"net"
	"sort"

	"github.com/evanmcc/vonnegut/chainmap"
	"github.com/evanmcc/vonnegut/registry"
	"github.com/evanmcc/vonnegut/wire"
)

// handleMetadata answers both the metadata and topics opcodes: for each
// requested topic, the covering chain entry's head/tail resolved to dense
// node ids, per registry.GetChain's doc comment. A topic with no covering
// chain, or with no partition in the local registry, is simply omitted,
// which the metadata probe edge case in spec.md
// §8 relies on to distinguish existing from missing topics.
func (s *Server) handleMetadata(conn net.Conn, header wire.RequestHeader, d *wire.Decoder) error {
	req := &wire.MetadataRequest{}
	if err := req.Decode(d); err != nil {
		return err
	}

	resp := &wire.MetadataResponse{}
	nodeIDs := make(map[chainmap.Endpoint]int32)

	nodeIDFor := func(ep chainmap.Endpoint) int32 {
		if id, ok := nodeIDs[ep]; ok {
			return id
		}
		id := int32(len(nodeIDs))
		nodeIDs[ep] = id
		resp.Nodes = append(resp.Nodes, wire.MetadataNode{NodeID: id, Host: ep.Host, Port: int32(ep.Port)})
		return id
	}

	for _, topic := range req.Topics {
		entry, ok := s.registry.GetChain(topic)
		if !ok {
			continue
		}

		var partitions []int32
		for _, tp := range s.registry.List() {
			if tp.Topic == topic {
				partitions = append(partitions, tp.Partition)
			}
		}
		if len(partitions) == 0 {
			continue
		}
		headID := nodeIDFor(entry.Head)
		tailID := nodeIDFor(entry.Tail)
		sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

		mt := wire.MetadataTopic{Topic: topic, Partitions: make([]wire.MetadataPartition, len(partitions))}
		for i, part := range partitions {
			mt.Partitions[i] = wire.MetadataPartition{Partition: part, HeadID: headID, TailID: tailID}
		}
		resp.Topics = append(resp.Topics, mt)
	}

	return writeResponse(conn, header.CorrelationID, resp.Encode)
}

// handleEnsure implements ensure_topic: idempotent create, per spec.md
// §4.4/§8's idempotence property.
func (s *Server) handleEnsure(conn net.Conn, header wire.RequestHeader, d *wire.Decoder) error {
	req := &wire.EnsureRequest{}
	if err := req.Decode(d); err != nil {
		return err
	}
	if !s.rateLimiter.AllowAdmin() {
		return writeResponse(conn, header.CorrelationID, s.rateLimitedTopicResponse(req.Topics).Encode)
	}
	return writeResponse(conn, header.CorrelationID, s.applyTopicOp(req.Topics, s.registry.Ensure).Encode)
}

// handleDeleteTopic implements delete_topic. Per the role matrix, every
// node in a chain accepts delete_topic directly (unlike produce, whose
// ordering demands chain forwarding): an admin client is expected to call
// it against every replica, so this handler only ever touches its own
// local registry.
func (s *Server) handleDeleteTopic(conn net.Conn, header wire.RequestHeader, d *wire.Decoder) error {
	req := &wire.DeleteTopicRequest{}
	if err := req.Decode(d); err != nil {
		return err
	}
	if !s.rateLimiter.AllowAdmin() {
		return writeResponse(conn, header.CorrelationID, s.rateLimitedTopicResponse(req.Topics).Encode)
	}
	return writeResponse(conn, header.CorrelationID, s.applyTopicOp(req.Topics, s.registry.Delete).Encode)
}

// rateLimitedTopicResponse answers every partition in topics with
// RateLimited, for callers that tripped the admin token bucket.
func (s *Server) rateLimitedTopicResponse(topics []wire.EnsureTopic) *wire.SimpleTopicResponse {
	resp := &wire.SimpleTopicResponse{Topics: make([]wire.SimpleTopicResult, len(topics))}
	for i, t := range topics {
		tr := wire.SimpleTopicResult{Topic: t.Topic, Partitions: make([]wire.SimplePartitionResult, len(t.Partitions))}
		for j, part := range t.Partitions {
			tr.Partitions[j] = wire.SimplePartitionResult{Partition: part, ErrorCode: wire.RateLimited}
		}
		resp.Topics[i] = tr
	}
	return resp
}

func (s *Server) applyTopicOp(topics []wire.EnsureTopic, op func(topic string, partition int32) error) *wire.SimpleTopicResponse {
	resp := &wire.SimpleTopicResponse{Topics: make([]wire.SimpleTopicResult, len(topics))}
	for i, t := range topics {
		tr := wire.SimpleTopicResult{Topic: t.Topic, Partitions: make([]wire.SimplePartitionResult, len(t.Partitions))}
		for j, part := range t.Partitions {
			errorCode := wire.NoError
			if err := op(t.Topic, part); err != nil && err != registry.ErrUnknownPartition {
				errorCode = wire.TimeoutError
			}
			tr.Partitions[j] = wire.SimplePartitionResult{Partition: part, ErrorCode: errorCode}
		}
		resp.Topics[i] = tr
	}
	return resp
}
