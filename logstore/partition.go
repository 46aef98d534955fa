package logstore

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/golang/glog"
)

// Options configure a PartitionLog's segment rollover and indexing policy.
type Options struct {
	// MaxSegmentBytes is the approximate size at which the active segment is
	// rolled over into a new one.
	MaxSegmentBytes int64
	// IndexIntervalBytes is the approximate number of log bytes between
	// sparse index entries within a segment.
	IndexIntervalBytes int64
}

var DefaultOptions = Options{
	MaxSegmentBytes:    1 << 30, // 1 GiB
	IndexIntervalBytes: 4096,
}

// PartitionLog is the durable, append-only log of one topic partition. It
// owns a directory holding a sequence of segments, and exposes Append (for
// locally-originated writes which are offset-stamped here) and
// ReplicatedAppend (for writes received with offsets already assigned
// upstream, which must extend the log exactly).
type PartitionLog struct {
	mu sync.RWMutex

	dir     string
	topic   string
	part    int32
	opts    Options
	fdCache *segmentCache

	segments []*Segment // ascending by base offset; last is active
	// nextOffset is the offset that will be assigned to the next locally
	// produced record == HighWaterMark+1 once committed.
	nextOffset int64
}

// Open opens (creating if necessary) the partition log rooted at dir.
func Open(dir, topic string, part int32, opts Options) (*PartitionLog, error) {
	if opts.MaxSegmentBytes == 0 {
		opts.MaxSegmentBytes = DefaultOptions.MaxSegmentBytes
	}
	if opts.IndexIntervalBytes == 0 {
		opts.IndexIntervalBytes = DefaultOptions.IndexIntervalBytes
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	recoveryNeeded := uncleanShutdown(dir)

	bases, err := listSegmentBaseOffsets(dir)
	if err != nil {
		return nil, err
	}

	p := &PartitionLog{
		dir:     dir,
		topic:   topic,
		part:    part,
		opts:    opts,
		fdCache: newSegmentCache(16),
	}

	if len(bases) == 0 {
		seg, err := newSegment(dir, 0, opts.MaxSegmentBytes, opts.IndexIntervalBytes)
		if err != nil {
			return nil, err
		}
		p.segments = []*Segment{seg}
		p.nextOffset = 0
	} else {
		for i, base := range bases {
			write := i == len(bases)-1
			seg, err := openSegment(dir, base, opts.MaxSegmentBytes, opts.IndexIntervalBytes, write, write && recoveryNeeded)
			if err != nil {
				return nil, err
			}
			if !write {
				seg.setReadOnly()
				p.fdCache.touch(seg)
			}
			p.segments = append(p.segments, seg)
		}
		p.nextOffset = p.activeLocked().getLastOffset() + 1
	}

	if err := clearCleanShutdownMarker(dir); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *PartitionLog) activeLocked() *Segment {
	return p.segments[len(p.segments)-1]
}

// HighWaterMark is the offset of the last committed record, or -1 for an
// empty log.
func (p *PartitionLog) HighWaterMark() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.nextOffset - 1
}

// LogStartOffset is the lowest offset retained in the log.
func (p *PartitionLog) LogStartOffset() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.segments[0].baseOffset
}

// Append assigns sequential offsets to payloads starting at nextOffset (one
// past the current high water mark), appends them to the active segment (rolling over first
// if needed), and returns the base offset assigned to the first record.
func (p *PartitionLog) Append(payloads [][]byte) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	base := p.nextOffset
	records := make([]Record, len(payloads))
	for i, payload := range payloads {
		records[i] = Record{Offset: base + int64(i), Payload: payload}
	}
	if err := p.appendRecordsLocked(records); err != nil {
		return 0, err
	}
	return base, nil
}

// ReplicatedAppend appends records whose offsets were already assigned
// upstream. Records must begin exactly at nextOffset to append. A lower
// starting offset means this replica is ahead of the upstream (it already
// holds everything up to nextOffset-1): ErrAheadOfUpstream tells the
// caller to drive write-repair. A higher starting offset means a gap this
// replica has no way to fill locally: ErrBehindUpstream, which the caller
// must treat as fatal to the replication stream.
func (p *PartitionLog) ReplicatedAppend(records []Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(records) == 0 {
		return nil
	}
	switch {
	case records[0].Offset < p.nextOffset:
		return ErrAheadOfUpstream
	case records[0].Offset > p.nextOffset:
		return ErrBehindUpstream
	}
	return p.appendRecordsLocked(records)
}

func (p *PartitionLog) appendRecordsLocked(records []Record) error {
	if len(records) == 0 {
		return nil
	}

	active := p.activeLocked()
	if active.size() >= p.opts.MaxSegmentBytes && !active.isEmpty() {
		if err := p.rolloverLocked(records[0].Offset); err != nil {
			return err
		}
		active = p.activeLocked()
	}

	if err := active.append(records); err != nil {
		return err
	}
	p.nextOffset = records[len(records)-1].Offset + 1
	return nil
}

func (p *PartitionLog) rolloverLocked(nextBase int64) error {
	active := p.activeLocked()
	active.setReadOnly()
	p.fdCache.touch(active)

	seg, err := newSegment(p.dir, nextBase, p.opts.MaxSegmentBytes, p.opts.IndexIntervalBytes)
	if err != nil {
		return err
	}
	p.segments = append(p.segments, seg)
	glog.V(1).Infof("logstore: %s/%d rolled over to segment base=%d", p.topic, p.part, nextBase)
	return nil
}

// segmentFor returns the segment that should contain startOffset, or the
// active segment if startOffset is at or beyond the log end.
func (p *PartitionLog) segmentFor(startOffset int64) *Segment {
	segs := p.segments
	for i := len(segs) - 1; i >= 0; i-- {
		if startOffset >= segs[i].baseOffset {
			return segs[i]
		}
	}
	return segs[0]
}

// FetchRange describes a contiguous byte range within one segment's log
// file, suitable for a zero-copy sendfile transfer by the caller.
type FetchRange struct {
	Segment    *Segment
	Position   int64
	Length     int64
	BaseOffset int64 // segment's baseOffset, for diagnostics
}

// Fetch locates the byte range in the active segment set corresponding to
// startOffset, bounded by maxBytes and (if limit >= 0) a maximum record
// count. The returned range may begin at a record whose offset is strictly
// less than startOffset, per the sparse index's resolution: callers
// (server/fetch response assembly) must trim any records before
// startOffset from what they send.
//
// Neither boundary is an error: a startOffset above the high water mark
// returns an empty range (Length 0, Segment nil), and a startOffset below
// the log's earliest retained offset is clamped up to that floor and
// served from there.
func (p *PartitionLog) Fetch(startOffset int64, maxBytes int32, limit int32) (FetchRange, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if startOffset > p.nextOffset-1 {
		return FetchRange{}, nil
	}

	lookupOffset := startOffset
	if lookupOffset < p.segments[0].baseOffset {
		lookupOffset = p.segments[0].baseOffset
	}

	seg := p.segmentFor(lookupOffset)
	if seg != p.activeLocked() {
		if err := seg.ensureOpen(); err != nil {
			return FetchRange{}, err
		}
		p.fdCache.touch(seg)
	}
	pos := seg.lookupPosition(lookupOffset)
	length, err := seg.readRange(pos, maxBytes, limit)
	if err != nil {
		return FetchRange{}, err
	}
	return FetchRange{Segment: seg, Position: pos, Length: length, BaseOffset: seg.baseOffset}, nil
}

// TrimFetchRange adjusts fr, returned by an earlier call to Fetch for the
// same startOffset, so that it begins exactly at startOffset instead of
// wherever the sparse index resolved to. Fetch's own doc comment leaves
// this trim to the caller (the fetch response assembler, which needs the
// byte range for a zero-copy transfer and cannot afford to decode payloads
// just to skip a few leading records).
func (p *PartitionLog) TrimFetchRange(fr FetchRange, startOffset int64) (position int64, length int64, err error) {
	return fr.Segment.trimToOffset(fr.Position, fr.Length, startOffset)
}

// FetchRecords is Fetch followed by decoding the resulting byte range into
// Record values, trimming any prefix below startOffset that the sparse
// index's resolution may have included and continuing into later segments
// until endOffset is reached. It returns no records when startOffset is
// past the high water mark. Used by the chain supervisor's
// write-repair path, which needs to hand actual payloads to its next hop
// rather than a sendfile-able byte range.
func (p *PartitionLog) FetchRecords(startOffset, endOffset int64) ([]Record, error) {
	fr, err := p.Fetch(startOffset, -1, -1)
	if err != nil {
		return nil, err
	}
	if fr.Length == 0 {
		return nil, nil
	}
	all, err := fr.Segment.readRecords(fr.Position, fr.Length)
	if err != nil {
		return nil, err
	}
	out := all[:0:0]
	for _, r := range all {
		if r.Offset < startOffset || r.Offset > endOffset {
			continue
		}
		out = append(out, r)
	}
	if n := len(all); n > 0 && all[n-1].Offset < endOffset {
		rest, err := p.FetchRecords(all[n-1].Offset+1, endOffset)
		if err != nil {
			return nil, err
		}
		out = append(out, rest...)
	}
	return out, nil
}

// Delete closes and removes every segment file belonging to this partition,
// then removes the now-empty directory.
func (p *PartitionLog) Delete() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.fdCache.purgePrefix(p.dir)
	for _, seg := range p.segments {
		if err := seg.remove(); err != nil {
			glog.Errorf("logstore: remove segment for %s/%d: %v", p.topic, p.part, err)
		}
	}
	return os.RemoveAll(p.dir)
}

// Close closes every open segment file descriptor without removing data.
func (p *PartitionLog) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var first error
	for _, seg := range p.segments {
		if err := seg.close(); err != nil && first == nil {
			first = err
		}
	}
	if err := writeCleanShutdownMarker(p.dir); err != nil && first == nil {
		first = err
	}
	return first
}

const cleanShutdownMarkerName = ".clean_shutdown"

func uncleanShutdown(dir string) bool {
	return !fileExists(filepath.Join(dir, cleanShutdownMarkerName))
}

// clearCleanShutdownMarker removes the marker on open; its absence at the
// next open is what signals an unclean shutdown needing recovery.
func clearCleanShutdownMarker(dir string) error {
	path := filepath.Join(dir, cleanShutdownMarkerName)
	if !fileExists(path) {
		return nil
	}
	return os.Remove(path)
}

func writeCleanShutdownMarker(dir string) error {
	path := filepath.Join(dir, cleanShutdownMarkerName)
	return os.WriteFile(path, []byte{}, 0o644)
}
