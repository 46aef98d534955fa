package logstore

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/coreos/etcd/pkg/fileutil"
)

// IndexEntrySize is the fixed width of one sparse index entry: a 4-byte
// offset relative to the segment's base offset, and a 4-byte byte position
// in the segment's .log file.
const IndexEntrySize = 8

// IndexEntry is one sparse offset->position mapping.
type IndexEntry struct {
	RelativeOffset uint32
	Position       uint32
}

func encodeIndexEntry(e IndexEntry) []byte {
	b := make([]byte, IndexEntrySize)
	Encoding.PutUint32(b[0:4], e.RelativeOffset)
	Encoding.PutUint32(b[4:8], e.Position)
	return b
}

func decodeIndexEntry(b []byte) IndexEntry {
	return IndexEntry{
		RelativeOffset: Encoding.Uint32(b[0:4]),
		Position:       Encoding.Uint32(b[4:8]),
	}
}

// Index is the sparse offset index belonging to one segment. Its contents
// are advisory: a corrupt or torn index is rebuilt wholesale from the
// segment's record frames (see Segment.recoverFromLog).
type Index struct {
	mu   sync.RWMutex
	path string
	file *fileutil.LockedFile

	entries []IndexEntry // loaded fully in memory; sparse, so this stays small
}

func newIndex(path string) (*Index, error) {
	if fileutil.Exist(path) {
		return nil, ErrFileExist
	}
	f, err := fileutil.TryLockFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, fileutil.PrivateFileMode)
	if err != nil {
		return nil, err
	}
	return &Index{path: path, file: f}, nil
}

// openIndex opens an existing index file and parses its entries. A torn
// write (a trailing partial entry) is reported via ErrTornWrite so the
// caller can rebuild the index from the segment instead.
func openIndex(path string) (*Index, error) {
	if !fileutil.Exist(path) {
		return nil, ErrFileNotExist
	}
	f, err := fileutil.TryLockFile(path, os.O_RDWR, fileutil.PrivateFileMode)
	if err != nil {
		return nil, err
	}
	idx := &Index{path: path, file: f}
	if err := idx.parse(); err != nil {
		f.Close()
		return nil, err
	}
	return idx, nil
}

func (idx *Index) parse() error {
	info, err := idx.file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size%IndexEntrySize != 0 {
		return ErrTornWrite
	}
	count := size / IndexEntrySize
	idx.entries = make([]IndexEntry, 0, count)
	buf := make([]byte, size)
	if _, err := idx.file.ReadAt(buf, 0); err != nil {
		return err
	}
	for i := int64(0); i < count; i++ {
		idx.entries = append(idx.entries, decodeIndexEntry(buf[i*IndexEntrySize:(i+1)*IndexEntrySize]))
	}
	return nil
}

// append writes one new sparse entry. Callers (Segment) are responsible for
// only calling this once per index_interval_bytes of log growth.
func (idx *Index) append(e IndexEntry) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	pos := int64(len(idx.entries)) * IndexEntrySize
	if _, err := idx.file.WriteAt(encodeIndexEntry(e), pos); err != nil {
		return err
	}
	idx.entries = append(idx.entries, e)
	return nil
}

// lookup returns the entry with the greatest RelativeOffset <= target, and
// whether such an entry exists.
func (idx *Index) lookup(target uint32) (IndexEntry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n := len(idx.entries)
	i := sort.Search(n, func(i int) bool {
		return idx.entries[i].RelativeOffset > target
	})
	if i == 0 {
		return IndexEntry{}, false
	}
	return idx.entries[i-1], true
}

// truncate drops every entry whose byte offset in the index file is >= pos,
// used when a segment is truncated on recovery and its index must follow.
func (idx *Index) truncate(pos int64) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.file.Truncate(pos); err != nil {
		return err
	}
	keep := pos / IndexEntrySize
	if keep < int64(len(idx.entries)) {
		idx.entries = idx.entries[:keep]
	}
	return nil
}

// rewrite replaces the index file contents wholesale, used when recovery
// rebuilds an index from segment record frames.
func (idx *Index) rewrite(entries []IndexEntry) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.file.Truncate(0); err != nil {
		return err
	}
	buf := make([]byte, 0, len(entries)*IndexEntrySize)
	for _, e := range entries {
		buf = append(buf, encodeIndexEntry(e)...)
	}
	if _, err := idx.file.WriteAt(buf, 0); err != nil {
		return err
	}
	idx.entries = entries
	return nil
}

func (idx *Index) sync() error {
	return idx.file.Sync()
}

func (idx *Index) close() error {
	return idx.file.Close()
}

func (idx *Index) remove() error {
	idx.close()
	return os.Remove(idx.path)
}

func indexPathForSegment(logPath string) string {
	ext := filepath.Ext(logPath)
	return logPath[:len(logPath)-len(ext)] + IndexFileSuffix
}
