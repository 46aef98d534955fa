package server

import (
	"context"
	"net"
	"os"
	"time"

	"github.com/evanmcc/vonnegut/chain"
	"github.com/evanmcc/vonnegut/wire"
)

// fetchUnit is one resolved (topic, partition) result: the header fields
// ready to encode, plus, on success, the open segment file and byte range
// the assembler transfers zero-copy after writing the header.
type fetchUnit struct {
	topic string
	wire.FetchResponsePartition
	file *os.File
}

// handleFetch services both fetch and fetch2 (withLimit selects the
// decoder); the wire shapes differ only by the per-partition record-count
// limit, so both normalize into the same resolution path.
func (s *Server) handleFetch(conn net.Conn, header wire.RequestHeader, d *wire.Decoder, withLimit bool) error {
	apiKey := wire.Fetch
	if withLimit {
		apiKey = wire.Fetch2
	}

	if err := s.rateLimiter.WaitFetch(context.Background()); err != nil {
		return err
	}

	type reqPartition struct {
		partition   int32
		fetchOffset int64
		maxBytes    int32
		limit       int32
	}
	type reqTopic struct {
		topic      string
		partitions []reqPartition
	}
	var topics []reqTopic

	if withLimit {
		req := &wire.Fetch2Request{}
		if err := req.Decode(d); err != nil {
			return err
		}
		for _, t := range req.Topics {
			rt := reqTopic{topic: t.Topic}
			for _, p := range t.Partitions {
				rt.partitions = append(rt.partitions, reqPartition{p.Partition, p.FetchOffset, p.MaxBytes, p.Limit})
			}
			topics = append(topics, rt)
		}
	} else {
		req := &wire.FetchRequest{}
		if err := req.Decode(d); err != nil {
			return err
		}
		for _, t := range req.Topics {
			rt := reqTopic{topic: t.Topic}
			for _, p := range t.Partitions {
				rt.partitions = append(rt.partitions, reqPartition{p.Partition, p.FetchOffset, p.MaxBytes, -1})
			}
			topics = append(topics, rt)
		}
	}

	allowed, disallowedCode := chain.Allowed(s.role, apiKey)

	var units []fetchUnit
	var topicNames []string
	var topicPartCount []int
	for _, t := range topics {
		topicNames = append(topicNames, t.topic)
		topicPartCount = append(topicPartCount, len(t.partitions))
		for _, p := range t.partitions {
			if !allowed {
				units = append(units, fetchUnit{topic: t.topic, FetchResponsePartition: wire.FetchResponsePartition{
					Partition: p.partition, ErrorCode: disallowedCode, HighWaterMark: -1,
				}})
				continue
			}
			start := time.Now()
			u := s.resolveFetchPartition(t.topic, p.partition, p.fetchOffset, p.maxBytes, p.limit)
			s.metrics.FetchObserved(t.topic, int64(u.ByteLength), time.Since(start))
			units = append(units, u)
		}
	}

	return s.writeFetchResponse(conn, header.CorrelationID, topicNames, topicPartCount, units)
}

func (s *Server) resolveFetchPartition(topic string, partition int32, fetchOffset int64, maxBytes, limit int32) fetchUnit {
	base := wire.FetchResponsePartition{Partition: partition}

	p, ok := s.registry.Get(topic, partition)
	if !ok {
		base.ErrorCode = wire.UnknownTopicOrPartition
		base.HighWaterMark = -1
		return fetchUnit{topic: topic, FetchResponsePartition: base}
	}

	fr, err := p.Fetch(fetchOffset, maxBytes, limit)
	if err != nil {
		base.ErrorCode = wire.TimeoutError
		base.HighWaterMark = -1
		return fetchUnit{topic: topic, FetchResponsePartition: base}
	}

	base.ErrorCode = wire.NoError
	base.HighWaterMark = p.HighWaterMark()
	if fr.Length == 0 {
		// startOffset past the high water mark (or an empty log): a valid,
		// non-error reply with an empty range rather than a fetch error.
		return fetchUnit{topic: topic, FetchResponsePartition: base}
	}

	pos, length, err := p.TrimFetchRange(fr, fetchOffset)
	if err != nil {
		base.ErrorCode = wire.TimeoutError
		base.HighWaterMark = -1
		return fetchUnit{topic: topic, FetchResponsePartition: base}
	}

	base.ByteLength = int32(length)
	unit := fetchUnit{topic: topic, FetchResponsePartition: base}
	if length > 0 {
		unit.file = fr.Segment.File()
		unit.Range = wire.FileRange{Position: pos, Length: length}
	}
	return unit
}
