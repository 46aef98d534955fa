package logstore

import (
	"container/list"
	"strings"
	"sync"

	"github.com/golang/glog"
)

// segmentCache bounds the number of closed (read-only) segments kept open
// at once, evicting the least recently used file descriptor when full. The
// active segment of a partition is never placed in this cache; it stays
// open for the lifetime of the PartitionLog.
type segmentCache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element
}

type segmentCacheEntry struct {
	path string
	seg  *Segment
}

func newSegmentCache(capacity int) *segmentCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &segmentCache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element),
	}
}

// touch marks seg as most recently used, inserting it if not already
// present and evicting the oldest entry if the cache is now over capacity.
// The evicted segment is closed, not removed.
func (c *segmentCache) touch(seg *Segment) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[seg.logPath]; ok {
		c.ll.MoveToFront(elem)
		return
	}
	elem := c.ll.PushFront(&segmentCacheEntry{path: seg.logPath, seg: seg})
	c.items[seg.logPath] = elem

	for c.ll.Len() > c.capacity {
		back := c.ll.Back()
		entry := back.Value.(*segmentCacheEntry)
		c.ll.Remove(back)
		delete(c.items, entry.path)
		if err := entry.seg.close(); err != nil {
			glog.Errorf("logstore: closing evicted segment %s: %v", entry.path, err)
		}
	}
}

// evict drops seg from the cache without closing it, used when a segment is
// about to be removed outright.
func (c *segmentCache) evict(seg *Segment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[seg.logPath]; ok {
		c.ll.Remove(elem)
		delete(c.items, seg.logPath)
	}
}

// purgePrefix drops every cached segment whose path is under dir, used when
// a whole partition is deleted. It does not close them; the caller closes
// each segment itself.
func (c *segmentCache) purgePrefix(dir string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var next *list.Element
	for e := c.ll.Front(); e != nil; e = next {
		next = e.Next()
		entry := e.Value.(*segmentCacheEntry)
		if strings.HasPrefix(entry.path, dir) {
			c.ll.Remove(e)
			delete(c.items, entry.path)
		}
	}
}
