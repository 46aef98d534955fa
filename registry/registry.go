// Package registry maps (topic, partition) pairs to their durable
// PartitionLog handles: creation, idempotent ensure, crash-recoverable
// deletion, enumeration, and chain-routing lookup for metadata responses.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/golang/glog"

	"github.com/evanmcc/vonnegut/chainmap"
	"github.com/evanmcc/vonnegut/logstore"
)

const tombstonePrefix = ".tombstone-"

// TopicPartition names one partition of one topic.
type TopicPartition struct {
	Topic     string
	Partition int32
}

func (tp TopicPartition) dirName() string {
	return fmt.Sprintf("%s-%d", tp.Topic, tp.Partition)
}

func (tp TopicPartition) key() string {
	return tp.dirName()
}

// Registry owns every locally-held partition log under one log directory
// root and the routing table used to answer metadata requests.
type Registry struct {
	mu         sync.RWMutex
	logDir     string
	opts       logstore.Options
	partitions map[string]*logstore.PartitionLog
	stable     *stableStore
	chain      *chainmap.Map
	closed     bool
}

// Open opens the registry rooted at logDir, finishing any delete that was
// interrupted mid-way by a crash, then reopening every partition directory
// that survives.
func Open(logDir string, opts logstore.Options, chain *chainmap.Map) (*Registry, error) {
	if logDir == "" {
		return nil, ErrArgsNotAvailable
	}
	if err := os.MkdirAll(logDir, 0o700); err != nil {
		return nil, err
	}

	stable, err := openStableStore(logDir)
	if err != nil {
		return nil, err
	}

	r := &Registry{
		logDir:     logDir,
		opts:       opts,
		partitions: make(map[string]*logstore.PartitionLog),
		stable:     stable,
		chain:      chain,
	}

	if err := r.finishInterruptedDeletes(); err != nil {
		stable.close()
		return nil, err
	}
	if err := r.reopenExisting(); err != nil {
		stable.close()
		return nil, err
	}
	return r, nil
}

func (r *Registry) finishInterruptedDeletes() error {
	var keys []string
	if err := r.stable.forEachTombstoned(func(key string) { keys = append(keys, key) }); err != nil {
		return err
	}
	for _, key := range keys {
		glog.Infof("registry: finishing interrupted delete of %s", key)
		tombPath := filepath.Join(r.logDir, tombstonePrefix+key)
		if err := os.RemoveAll(tombPath); err != nil {
			return err
		}
		// The directory may still carry its original (non-tombstone) name if
		// the crash happened before the rename completed.
		if err := os.RemoveAll(filepath.Join(r.logDir, key)); err != nil {
			return err
		}
		if err := r.stable.delete(key); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) reopenExisting() error {
	entries, err := os.ReadDir(r.logDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), tombstonePrefix) || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		tp, ok := parseDirName(e.Name())
		if !ok {
			continue
		}
		p, err := logstore.Open(filepath.Join(r.logDir, e.Name()), tp.Topic, tp.Partition, r.opts)
		if err != nil {
			return err
		}
		r.partitions[tp.key()] = p
	}
	return nil
}

func parseDirName(name string) (TopicPartition, bool) {
	idx := strings.LastIndex(name, "-")
	if idx < 0 || idx == len(name)-1 {
		return TopicPartition{}, false
	}
	partition, err := strconv.ParseInt(name[idx+1:], 10, 32)
	if err != nil {
		return TopicPartition{}, false
	}
	return TopicPartition{Topic: name[:idx], Partition: int32(partition)}, true
}

// Create opens (creating on disk if necessary) the partition log for
// (topic, partition). Calling Create on an existing partition is a no-op
// success, matching Ensure's idempotence.
func (r *Registry) Create(topic string, partition int32) error {
	tp := TopicPartition{Topic: topic, Partition: partition}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if _, ok := r.partitions[tp.key()]; ok {
		return nil
	}

	if err := r.stable.put(tp.key(), partitionState{Tombstoned: false}); err != nil {
		return err
	}
	p, err := logstore.Open(filepath.Join(r.logDir, tp.dirName()), topic, partition, r.opts)
	if err != nil {
		return err
	}
	r.partitions[tp.key()] = p
	return nil
}

// Ensure is Create's idempotent alias, named after the wire protocol's
// ensure_topic opcode; it has the same semantics as Create. The wire
// protocol has no separate create_topic opcode.
func (r *Registry) Ensure(topic string, partition int32) error {
	return r.Create(topic, partition)
}

// Delete removes (topic, partition) from disk: the stable store first
// records the partition as tombstoned, then the directory is renamed to a
// tombstone name and unlinked. A crash anywhere after the stable store
// update is resolved by finishInterruptedDeletes on the next Open.
func (r *Registry) Delete(topic string, partition int32) error {
	tp := TopicPartition{Topic: topic, Partition: partition}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	p, ok := r.partitions[tp.key()]
	if !ok {
		return ErrUnknownPartition
	}

	if err := p.Close(); err != nil {
		glog.Errorf("registry: closing %s before delete: %v", tp.key(), err)
	}
	delete(r.partitions, tp.key())

	if err := r.stable.put(tp.key(), partitionState{Tombstoned: true}); err != nil {
		return err
	}

	src := filepath.Join(r.logDir, tp.dirName())
	tomb := filepath.Join(r.logDir, tombstonePrefix+tp.key())
	if err := os.Rename(src, tomb); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.RemoveAll(tomb); err != nil {
		return err
	}
	return r.stable.delete(tp.key())
}

// Get returns the partition log for (topic, partition), if known locally.
func (r *Registry) Get(topic string, partition int32) (*logstore.PartitionLog, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.partitions[TopicPartition{Topic: topic, Partition: partition}.key()]
	return p, ok
}

// List returns every (topic, partition) currently registered, sorted for
// deterministic metadata responses.
func (r *Registry) List() []TopicPartition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]TopicPartition, 0, len(r.partitions))
	for key := range r.partitions {
		if tp, ok := parseDirName(key); ok {
			out = append(out, tp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Topic != out[j].Topic {
			return out[i].Topic < out[j].Topic
		}
		return out[i].Partition < out[j].Partition
	})
	return out
}

// GetChain returns the chain routing entry covering topic, the authoritative
// answer used when building metadata responses.
func (r *Registry) GetChain(topic string) (chainmap.Entry, bool) {
	return r.chain.Lookup(topic)
}

// Close closes every open partition log and the stable store.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	var first error
	for key, p := range r.partitions {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
		delete(r.partitions, key)
	}
	if err := r.stable.close(); err != nil && first == nil {
		first = err
	}
	return first
}
