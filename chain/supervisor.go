// Package chain implements the replication side of the chain protocol:
// role gating, the persistent downstream connection, and the produce/
// replicate orchestration (including write-repair) that keeps every
// replica of a partition converged on the same offset.
package chain

import (
	"time"

	"github.com/golang/glog"

	"github.com/evanmcc/vonnegut/logstore"
	"github.com/evanmcc/vonnegut/registry"
	"github.com/evanmcc/vonnegut/wire"
)

// ReplicateTimeout is the default round-trip timeout for a Client; wired
// into NewClient by the server's startup wiring.
const ReplicateTimeout = 5 * time.Second

// Supervisor owns this node's role within its chain and, when the role has
// a downstream hop (head or middle), the persistent Client used to forward
// replicate calls. Role and next-hop address are both supplied externally
// (by configuration) rather than derived here: the chain membership
// bootstrap problem is out of scope for the core, per the topic registry's
// own chain-map abstraction only ever exposing head/tail endpoints.
type Supervisor struct {
	role     Role
	registry *registry.Registry
	next     *Client // nil at the tail and at a solo node

	correlationID int32
}

// NewSupervisor constructs a Supervisor for role, backed by reg. next is
// the persistent client to this node's downstream neighbor; pass nil if
// this node has none (tail or solo).
func NewSupervisor(role Role, reg *registry.Registry, next *Client) *Supervisor {
	return &Supervisor{role: role, registry: reg, next: next}
}

func (s *Supervisor) Role() Role { return s.role }

// Produce appends payloads locally (assigning offsets) and, if this node
// has a downstream hop, replicates them before returning. The caller (the
// produce request handler) must not reply to its own client until Produce
// returns, since a successful return means durability at every replica
// down to the tail.
func (s *Supervisor) Produce(topic string, partition int32, payloads [][]byte) (offsetOfLast int64, err error) {
	p, ok := s.registry.Get(topic, partition)
	if !ok {
		return -1, registry.ErrUnknownPartition
	}

	base, err := p.Append(payloads)
	if err != nil {
		return -1, err
	}
	last := base + int64(len(payloads)) - 1

	if s.next == nil {
		return last, nil
	}

	records := make([]wire.ReplicateRecord, len(payloads))
	for i, payload := range payloads {
		records[i] = wire.ReplicateRecord{Offset: base + int64(i), Payload: payload}
	}
	if err := s.replicateWithRepair(p, topic, partition, base, records); err != nil {
		return -1, err
	}
	return last, nil
}

// replicateWithRepair drives the downstream replicate call. When the
// downstream reports write_repair, it has told us the offset it actually
// needs next; we already hold everything from there onward in our own
// local log (we wrote it before ever forwarding), so we re-fetch that
// range locally, rebuild the batch, and re-drive. Each repair strictly
// reduces the offset gap, so this terminates.
func (s *Supervisor) replicateWithRepair(p *logstore.PartitionLog, topic string, partition int32, expectedStart int64, records []wire.ReplicateRecord) error {
	for {
		req := &wire.ReplicateRequest{
			Topic:               topic,
			Partition:           partition,
			ExpectedStartOffset: expectedStart,
			Records:             records,
		}
		s.correlationID++
		resp, err := s.next.Replicate(req, s.correlationID)
		if err != nil {
			glog.Warningf("chain: replicate(%s-%d) failed: %v", topic, partition, err)
			return ErrTimeout
		}

		switch resp.ErrorCode {
		case wire.NoError:
			return nil
		case wire.WriteRepair:
			last := records[len(records)-1].Offset
			rebuilt, err := p.FetchRecords(resp.RepairFromOffset, last)
			if err != nil {
				glog.Errorf("chain: repair fetch(%s-%d, %d..%d) failed: %v", topic, partition, resp.RepairFromOffset, last, err)
				return ErrTimeout
			}
			expectedStart = resp.RepairFromOffset
			records = toWireRecords(rebuilt)
			continue
		default:
			return errorForCode(resp.ErrorCode)
		}
	}
}

// HandleReplicate services an inbound replicate call: applies the records
// locally via ReplicatedAppend, forwards downstream (awaiting its ack) if
// this node has a next hop, and returns the response the caller should
// send back upstream.
func (s *Supervisor) HandleReplicate(req *wire.ReplicateRequest) *wire.ReplicateResponse {
	if ok, code := Allowed(s.role, wire.Replicate); !ok {
		return &wire.ReplicateResponse{Partition: req.Partition, ErrorCode: code, OffsetOfLast: -1}
	}

	p, ok := s.registry.Get(req.Topic, req.Partition)
	if !ok {
		return &wire.ReplicateResponse{Partition: req.Partition, ErrorCode: wire.UnknownTopicOrPartition, OffsetOfLast: -1}
	}

	if len(req.Records) == 0 {
		return &wire.ReplicateResponse{Partition: req.Partition, ErrorCode: wire.NoError, OffsetOfLast: p.HighWaterMark()}
	}

	if err := p.ReplicatedAppend(toLogstoreRecords(req.Records)); err != nil {
		switch err {
		case logstore.ErrAheadOfUpstream:
			return s.writeRepairResponse(p, req)
		case logstore.ErrBehindUpstream:
			glog.Errorf("chain: ReplicatedAppend(%s-%d) found a gap, tearing down downstream: %v", req.Topic, req.Partition, err)
			if s.next != nil {
				s.next.Close()
			}
		default:
			glog.Errorf("chain: ReplicatedAppend(%s-%d) failed: %v", req.Topic, req.Partition, err)
		}
		return &wire.ReplicateResponse{Partition: req.Partition, ErrorCode: wire.TimeoutError, OffsetOfLast: -1}
	}

	last := req.Records[len(req.Records)-1].Offset
	if s.next == nil {
		return &wire.ReplicateResponse{Partition: req.Partition, ErrorCode: wire.NoError, OffsetOfLast: last}
	}

	if err := s.replicateWithRepair(p, req.Topic, req.Partition, req.ExpectedStartOffset, req.Records); err != nil {
		return &wire.ReplicateResponse{Partition: req.Partition, ErrorCode: wire.TimeoutError, OffsetOfLast: -1}
	}
	return &wire.ReplicateResponse{Partition: req.Partition, ErrorCode: wire.NoError, OffsetOfLast: last}
}

// writeRepairResponse builds the write_repair reply for a partition that is
// ahead of the incoming batch: the offset this replica actually needs next.
// It carries no record payloads of its own — the upstream already holds
// everything from that offset onward in its own durable log and resolves
// the range from there.
func (s *Supervisor) writeRepairResponse(p *logstore.PartitionLog, req *wire.ReplicateRequest) *wire.ReplicateResponse {
	hwm := p.HighWaterMark()
	return &wire.ReplicateResponse{
		Partition:        req.Partition,
		ErrorCode:        wire.WriteRepair,
		OffsetOfLast:     hwm,
		RepairFromOffset: hwm + 1,
	}
}

func toLogstoreRecords(records []wire.ReplicateRecord) []logstore.Record {
	out := make([]logstore.Record, len(records))
	for i, r := range records {
		out[i] = logstore.Record{Offset: r.Offset, Payload: r.Payload}
	}
	return out
}

func toWireRecords(records []logstore.Record) []wire.ReplicateRecord {
	out := make([]wire.ReplicateRecord, len(records))
	for i, r := range records {
		out[i] = wire.ReplicateRecord{Offset: r.Offset, Payload: r.Payload}
	}
	return out
}

func errorForCode(code int16) error {
	return &replicateError{code: code}
}

type replicateError struct{ code int16 }

func (e *replicateError) Error() string { return "chain: replicate rejected: " + wire.ErrorCodeName(e.code) }
