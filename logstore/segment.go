package logstore

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/coreos/etcd/pkg/fileutil"
	"github.com/golang/glog"
)

type segmentStatus int8

const (
	segmentRDWR segmentStatus = iota
	segmentReadOnly
	segmentClosed
)

// Segment is one (log, index) file pair covering a contiguous, immutable-
// once-closed range of a partition's offsets. The active segment of a
// partition log is the only one ever open for writes.
type Segment struct {
	mu sync.RWMutex

	dir         string
	baseOffset  int64
	logPath     string
	logFile     *fileutil.LockedFile
	index       *Index
	status      segmentStatus
	writePos    int64
	maxBytes    int64
	lastOffset  int64 // baseOffset-1 when the segment is empty
	indexEvery  int64
	sinceIndex  int64 // bytes written since the last sparse index entry
}

func segmentPaths(dir string, baseOffset int64) (logPath, indexPath string) {
	name := segmentFileName(baseOffset)
	logPath = filepath.Join(dir, name)
	indexPath = indexPathForSegment(logPath)
	return
}

// newSegment creates a brand new, empty segment file pair rooted at
// baseOffset.
func newSegment(dir string, baseOffset, maxBytes, indexEvery int64) (*Segment, error) {
	logPath, indexPath := segmentPaths(dir, baseOffset)
	if fileutil.Exist(logPath) {
		return nil, ErrFileExist
	}

	f, err := fileutil.TryLockFile(logPath, os.O_RDWR|os.O_CREATE|os.O_EXCL, fileutil.PrivateFileMode)
	if err != nil {
		return nil, err
	}

	idx, err := newIndex(indexPath)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &Segment{
		dir:        dir,
		baseOffset: baseOffset,
		logPath:    logPath,
		logFile:    f,
		index:      idx,
		status:     segmentRDWR,
		maxBytes:   maxBytes,
		lastOffset: baseOffset - 1,
		indexEvery: indexEvery,
	}, nil
}

// openSegment opens an existing segment for either reading or writing. When
// write is true and recover is true, the index is discarded and rebuilt
// from the log regardless of its own apparent health (used for the active
// segment of a log recovering from an unclean shutdown).
func openSegment(dir string, baseOffset, maxBytes, indexEvery int64, write, recover bool) (*Segment, error) {
	logPath, indexPath := segmentPaths(dir, baseOffset)

	mode := os.O_RDWR
	f, err := fileutil.TryLockFile(logPath, mode, fileutil.PrivateFileMode)
	if err != nil {
		return nil, err
	}

	s := &Segment{
		dir:        dir,
		baseOffset: baseOffset,
		logPath:    logPath,
		logFile:    f,
		maxBytes:   maxBytes,
		lastOffset: baseOffset - 1,
		indexEvery: indexEvery,
	}
	if write {
		s.status = segmentRDWR
	} else {
		s.status = segmentReadOnly
	}

	var idx *Index
	if recover {
		idx = nil
	} else if fileutil.Exist(indexPath) {
		idx, err = openIndex(indexPath)
		if err == ErrTornWrite {
			glog.Warningf("logstore: index for segment %s exists but is torn, rebuilding", logPath)
			idx = nil
		} else if err != nil {
			f.Close()
			return nil, err
		}
	}

	if idx == nil {
		if idx, err = newIndexDiscardingExisting(indexPath); err != nil {
			f.Close()
			return nil, err
		}
		if err := s.recoverFromLog(idx); err != nil {
			f.Close()
			return nil, err
		}
	} else {
		s.index = idx
		if err := s.scanToEnd(); err != nil {
			f.Close()
			return nil, err
		}
	}

	return s, nil
}

func newIndexDiscardingExisting(path string) (*Index, error) {
	if fileutil.Exist(path) {
		if err := os.Remove(path); err != nil {
			return nil, err
		}
	}
	return newIndex(path)
}

// scanToEnd trusts the existing index's last entry as a starting point and
// validates record frames from there to end of file, establishing writePos
// and lastOffset. This is the fast path taken on a clean shutdown.
func (s *Segment) scanToEnd() error {
	info, err := s.logFile.Stat()
	if err != nil {
		return err
	}

	startPos := int64(0)
	startOffset := s.baseOffset - 1
	if n := len(s.index.entries); n > 0 {
		last := s.index.entries[n-1]
		startPos = int64(last.Position)
		startOffset = s.baseOffset + int64(last.RelativeOffset) - 1
	}

	pos := startPos
	offset := startOffset
	buf := make([]byte, info.Size())
	if _, err := s.logFile.ReadAt(buf, 0); err != nil && pos < info.Size() {
		return err
	}
	for pos < info.Size() {
		header := buf[pos : pos+RecordHeaderSize]
		if pos+RecordHeaderSize > info.Size() {
			break
		}
		off, payloadLen := decodeRecordHeader(header)
		if payloadLen < 0 || off != offset+1 {
			break
		}
		total := int64(RecordHeaderSize) + int64(payloadLen)
		if pos+total > info.Size() {
			break
		}
		offset = off
		pos += total
	}
	s.writePos = pos
	s.lastOffset = offset
	s.sinceIndex = 0
	return nil
}

// recoverFromLog rebuilds the index from scratch by scanning every record
// frame in the log file, truncating at the first malformed frame. This is
// the crash-recovery path: any half-written suffix is truncated.
func (s *Segment) recoverFromLog(idx *Index) error {
	info, err := s.logFile.Stat()
	if err != nil {
		return err
	}
	buf := make([]byte, info.Size())
	if info.Size() > 0 {
		if _, err := s.logFile.ReadAt(buf, 0); err != nil {
			return err
		}
	}

	var entries []IndexEntry
	var pos int64
	offset := s.baseOffset - 1
	var sinceIndex int64
	for pos < int64(len(buf)) {
		if pos+RecordHeaderSize > int64(len(buf)) {
			break
		}
		header := buf[pos : pos+RecordHeaderSize]
		off, payloadLen := decodeRecordHeader(header)
		if payloadLen < 0 || off != offset+1 {
			break
		}
		total := int64(RecordHeaderSize) + int64(payloadLen)
		if pos+total > int64(len(buf)) {
			break
		}

		if pos == 0 {
			// first record of a segment never forces an index entry
		} else if sinceIndex >= s.indexEvery {
			entries = append(entries, IndexEntry{
				RelativeOffset: uint32(off - s.baseOffset),
				Position:       uint32(pos),
			})
			sinceIndex = 0
		}

		offset = off
		pos += total
		sinceIndex += total
	}

	if pos != int64(len(buf)) {
		glog.Warningf("logstore: truncating segment %s at %d (of %d) after malformed record frame", s.logPath, pos, len(buf))
		if err := s.logFile.Truncate(pos); err != nil {
			return err
		}
	}

	if err := idx.rewrite(entries); err != nil {
		return err
	}

	s.index = idx
	s.writePos = pos
	s.lastOffset = offset
	s.sinceIndex = sinceIndex
	return nil
}

func (s *Segment) size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writePos
}

func (s *Segment) isEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastOffset < s.baseOffset
}

func (s *Segment) getLastOffset() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastOffset
}

// append writes records (already offset-stamped and sequential) to the
// segment, applying the sparse index write policy: once sinceIndex (bytes
// written since the last entry) has reached indexEvery, the next record
// appended gets an entry at its own position and sinceIndex restarts. The
// record whose bytes crossed the threshold is not itself indexed. The record
// at position 0 of a segment never gets an entry. recoverFromLog applies
// the same rule.
func (s *Segment) append(records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != segmentRDWR {
		return ErrNotAllowWrite
	}

	buf := make([]byte, 0, 256)
	for _, r := range records {
		if r.Offset != s.lastOffset+1 {
			glog.Fatalf("logstore: non-sequential append, segment=%s expected=%d got=%d", s.logPath, s.lastOffset+1, r.Offset)
		}
		recPos := s.writePos + int64(len(buf))
		buf = encodeRecord(buf, r)

		forceable := !(recPos == 0)
		if forceable && s.sinceIndex >= s.indexEvery {
			if err := s.index.append(IndexEntry{
				RelativeOffset: uint32(r.Offset - s.baseOffset),
				Position:       uint32(recPos),
			}); err != nil {
				return err
			}
			s.sinceIndex = 0
		}
		s.sinceIndex += encodedRecordLen(len(r.Payload))
		s.lastOffset = r.Offset
	}

	if _, err := s.logFile.WriteAt(buf, s.writePos); err != nil {
		// Fatal: a partial write leaves the segment in a state that can only
		// be resolved by crash-recovery truncation on restart.
		glog.Fatalf("logstore: write error on segment %s: %v", s.logPath, err)
	}
	if err := s.logFile.Sync(); err != nil {
		glog.Fatalf("logstore: sync error on segment %s: %v", s.logPath, err)
	}
	s.writePos += int64(len(buf))
	return nil
}

// lookupPosition implements the sparse-index interior lookup from §4.1: the
// byte position of the greatest index entry whose relative offset is <=
// (startOffset - baseOffset), or 0 if the segment has records but none are
// indexed yet below startOffset.
func (s *Segment) lookupPosition(startOffset int64) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rel := startOffset - s.baseOffset
	if rel < 0 {
		return 0
	}
	if e, ok := s.index.lookup(uint32(rel)); ok {
		return int64(e.Position)
	}
	return 0
}

// readRange scans record frames starting at fromPos and returns the byte
// length of the contiguous range that should be sent: as many whole records
// as fit within maxBytes (always at least one) and, if limit >= 0, no more
// than limit records.
func (s *Segment) readRange(fromPos int64, maxBytes int32, limit int32) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.status == segmentClosed {
		return 0, ErrSegmentClosed
	}

	pos := fromPos
	var accBytes int64
	var count int32
	for pos < s.writePos {
		header := make([]byte, RecordHeaderSize)
		if _, err := s.logFile.ReadAt(header, pos); err != nil {
			return 0, err
		}
		_, payloadLen := decodeRecordHeader(header)
		frameLen := int64(RecordHeaderSize) + int64(payloadLen)

		if count > 0 {
			if maxBytes >= 0 && accBytes+frameLen > int64(maxBytes) {
				break
			}
			if limit >= 0 && count >= limit {
				break
			}
		}

		pos += frameLen
		accBytes += frameLen
		count++

		if limit >= 0 && count >= limit {
			break
		}
	}
	return pos - fromPos, nil
}

// trimToOffset advances past any record before startOffset in the byte
// range [fromPos, fromPos+length), returning the adjusted (position,
// length) that begins exactly at startOffset. Fetch's sparse index lookup
// may resolve to an earlier record than requested; this is how the
// response assembler satisfies the trim it is documented to be
// responsible for, without decoding record payloads.
func (s *Segment) trimToOffset(fromPos, length, startOffset int64) (int64, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.status == segmentClosed {
		return 0, 0, ErrSegmentClosed
	}

	pos := fromPos
	remaining := length
	header := make([]byte, RecordHeaderSize)
	for remaining > 0 {
		if _, err := s.logFile.ReadAt(header, pos); err != nil {
			return 0, 0, err
		}
		offset, payloadLen := decodeRecordHeader(header)
		if offset >= startOffset {
			break
		}
		recLen := int64(RecordHeaderSize) + int64(payloadLen)
		pos += recLen
		remaining -= recLen
	}
	return pos, remaining, nil
}

// readRecords decodes the records contained in the byte range
// [fromPos, fromPos+length) into Record values. Used by the chain
// supervisor's write-repair path, which needs the actual record payloads
// rather than a byte range to hand to sendfile.
func (s *Segment) readRecords(fromPos, length int64) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.status == segmentClosed {
		return nil, ErrSegmentClosed
	}

	buf := make([]byte, length)
	if _, err := s.logFile.ReadAt(buf, fromPos); err != nil {
		return nil, err
	}
	var records []Record
	for off := int64(0); off < length; {
		rec, consumed, err := decodeRecordAt(buf[off:])
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
		off += consumed
	}
	return records, nil
}

// File returns the segment's underlying log file, for the fetch response
// assembler's zero-copy transfer. Callers must not write to it, and must
// hold a reference to the Segment (via the fd cache's touch) for as long as
// the returned handle is in use, since eviction closes it.
func (s *Segment) File() *os.File {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logFile.File
}

func (s *Segment) setReadOnly() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = segmentReadOnly
}

// ensureOpen reopens the underlying log file if a prior fdCache eviction
// closed it. The segment's index stays resident in memory across an
// eviction, so no reparsing is needed here.
func (s *Segment) ensureOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != segmentClosed {
		return nil
	}
	f, err := fileutil.TryLockFile(s.logPath, os.O_RDONLY, fileutil.PrivateFileMode)
	if err != nil {
		return err
	}
	s.logFile = f
	s.status = segmentReadOnly
	return nil
}

func (s *Segment) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == segmentClosed {
		return nil
	}
	s.status = segmentClosed
	s.index.close()
	return s.logFile.Close()
}

func (s *Segment) remove() error {
	if err := s.close(); err != nil {
		return err
	}
	if err := s.index.remove(); err != nil {
		glog.Errorf("logstore: remove index for segment %s: %v", s.logPath, err)
	}
	return os.Remove(s.logPath)
}
