package registry

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/boltdb/bolt"
	"github.com/golang/glog"
)

const (
	metadataFileName = "registry.db"
	bucketName       = "partitions"
)

// partitionState is the persisted record for one (topic, partition): whether
// it exists and, if it is mid-delete, that the directory still needs
// unlinking after the rename-to-tombstone step.
type partitionState struct {
	Tombstoned bool `json:"tombstoned"`
}

// stableStore is the registry's crash-recoverable side table, tracking which
// (topic, partition) directories exist on this node independent of a racy
// directory scan. It does not replace the on-disk layout as the source of
// truth for record data — only for registry bookkeeping across restarts.
type stableStore struct {
	db     *bolt.DB
	bucket []byte
}

func openStableStore(dir string) (*stableStore, error) {
	if dir == "" {
		return nil, ErrArgsNotAvailable
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, err
		}
	}
	path := filepath.Join(dir, metadataFileName)
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		glog.Errorf("registry: bolt.Open(%s): %v", path, err)
		return nil, err
	}
	s := &stableStore{db: db, bucket: []byte(bucketName)}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *stableStore) init() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(s.bucket)
		return err
	})
}

func (s *stableStore) put(key string, st partitionState) error {
	val, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(key), val)
	})
}

func (s *stableStore) get(key string) (partitionState, bool, error) {
	var st partitionState
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		val := tx.Bucket(s.bucket).Get([]byte(key))
		if val == nil {
			return nil
		}
		found = true
		return json.Unmarshal(val, &st)
	})
	return st, found, err
}

func (s *stableStore) delete(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(key))
	})
}

// forEachTombstoned invokes fn for every key whose recorded state is
// tombstoned, used on startup to finish interrupted deletes.
func (s *stableStore) forEachTombstoned(fn func(key string)) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).ForEach(func(k, v []byte) error {
			var st partitionState
			if err := json.Unmarshal(v, &st); err != nil {
				glog.Errorf("registry: corrupt stable store entry for %s: %v", k, err)
				return nil
			}
			if st.Tombstoned {
				fn(string(k))
			}
			return nil
		})
	})
}

func (s *stableStore) close() error {
	return s.db.Close()
}
