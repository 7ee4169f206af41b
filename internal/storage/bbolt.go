package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	ConfigBucket  = []byte("config")  // Format version, timestamps, store ID
	RecordsBucket = []byte("records") // Named text envelopes
)

// Config keys
var (
	ConfigVersion  = []byte("version")
	ConfigCreated  = []byte("created")
	ConfigModified = []byte("modified")
	ConfigStoreID  = []byte("store_id")
)

const (
	FormatVersion = "1"
	FilePerm      = 0600
	lockTimeout   = 2 * time.Second
)

// Storage provides BBolt-based storage for named records
type Storage struct {
	db *bolt.DB
}

func openDB(path string) (*bolt.DB, error) {
	return bolt.Open(path, FilePerm, &bolt.Options{Timeout: lockTimeout})
}

// Open opens or creates a record database
func Open(path string) (*Storage, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close closes the database. It is a no-op when a failed Compact left no
// open handle.
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path
func (s *Storage) Path() string {
	return s.db.Path()
}

// Initialize creates the bucket structure. Existing data is left untouched.
func (s *Storage) Initialize() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{ConfigBucket, RecordsBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(ConfigBucket)
		if config.Get(ConfigVersion) != nil {
			return nil
		}

		if err := config.Put(ConfigVersion, []byte(FormatVersion)); err != nil {
			return err
		}

		created, _ := time.Now().MarshalBinary()
		if err := config.Put(ConfigCreated, created); err != nil {
			return err
		}
		return config.Put(ConfigModified, created)
	})
}

// IsInitialized checks if the database has been initialized
func (s *Storage) IsInitialized() (bool, error) {
	var initialized bool
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config != nil && config.Get(ConfigVersion) != nil {
			initialized = true
		}
		return nil
	})
	return initialized, err
}

func touchModified(tx *bolt.Tx) error {
	config := tx.Bucket(ConfigBucket)
	if config == nil {
		return fmt.Errorf("config bucket not found")
	}
	modified, _ := time.Now().MarshalBinary()
	return config.Put(ConfigModified, modified)
}

// GetModified retrieves the last modified timestamp
func (s *Storage) GetModified() (time.Time, error) {
	var modified time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		data := config.Get(ConfigModified)
		if data == nil {
			return fmt.Errorf("modified time not found")
		}
		return modified.UnmarshalBinary(data)
	})
	return modified, err
}

// GetStoreID retrieves the store ID from config bucket
func (s *Storage) GetStoreID() (string, error) {
	var storeID string
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		data := config.Get(ConfigStoreID)
		if data == nil {
			return fmt.Errorf("store_id not found")
		}
		storeID = string(data)
		return nil
	})
	return storeID, err
}

// GetOrCreateStoreID retrieves the existing store ID or generates a new one
func (s *Storage) GetOrCreateStoreID() (string, error) {
	storeID, err := s.GetStoreID()
	if err == nil {
		return storeID, nil
	}

	storeID = uuid.NewString()
	err = s.db.Update(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		return config.Put(ConfigStoreID, []byte(storeID))
	})
	if err != nil {
		return "", err
	}

	return storeID, nil
}

// PutRecord stores data under name, replacing any previous record with the
// same name. The creation time of a replaced record is preserved.
func (s *Storage) PutRecord(name, data string) (*Record, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	now := time.Now()
	record := &Record{Name: name, Data: data, Created: now, Modified: now}

	err := s.db.Update(func(tx *bolt.Tx) error {
		records := tx.Bucket(RecordsBucket)
		if records == nil {
			return fmt.Errorf("records bucket not found")
		}

		if existing := records.Get([]byte(name)); existing != nil {
			var previous Record
			if err := json.Unmarshal(existing, &previous); err == nil {
				record.Created = previous.Created
			}
		}

		encoded, err := json.Marshal(record)
		if err != nil {
			return err
		}
		if err := records.Put([]byte(name), encoded); err != nil {
			return err
		}
		return touchModified(tx)
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

// GetRecord returns a single record
func (s *Storage) GetRecord(name string) (*Record, error) {
	var record *Record
	err := s.db.View(func(tx *bolt.Tx) error {
		records := tx.Bucket(RecordsBucket)
		if records == nil {
			return ErrRecordNotFound
		}
		data := records.Get([]byte(name))
		if data == nil {
			return ErrRecordNotFound
		}
		record = &Record{}
		return json.Unmarshal(data, record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// DeleteRecord removes a record
func (s *Storage) DeleteRecord(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		records := tx.Bucket(RecordsBucket)
		if records == nil || records.Get([]byte(name)) == nil {
			return ErrRecordNotFound
		}
		if err := records.Delete([]byte(name)); err != nil {
			return err
		}
		return touchModified(tx)
	})
}

// ListRecords returns all records sorted by name
func (s *Storage) ListRecords() ([]Record, error) {
	var list []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		records := tx.Bucket(RecordsBucket)
		if records == nil {
			return nil
		}
		return records.ForEach(func(k, v []byte) error {
			var record Record
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("corrupt record %q: %w", k, err)
			}
			list = append(list, record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	// bbolt iterates in byte order; keep the ordering explicit.
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

// Compact creates a compacted copy of the database, removing unused space.
// This is useful after deleting records to reclaim disk space.
func (s *Storage) Compact() error {
	srcPath := s.db.Path()
	tmpPath := srcPath + ".compact"

	// A leftover from an interrupted run would merge stale records back in.
	if err := os.Remove(tmpPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove stale compact database: %w", err)
	}

	dst, err := openDB(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	err = s.db.View(func(srcTx *bolt.Tx) error {
		return dst.Update(func(dstTx *bolt.Tx) error {
			return srcTx.ForEach(func(name []byte, srcBucket *bolt.Bucket) error {
				dstBucket, err := dstTx.CreateBucketIfNotExists(name)
				if err != nil {
					return err
				}
				return srcBucket.ForEach(func(k, v []byte) error {
					return dstBucket.Put(k, v)
				})
			})
		})
	})

	if err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}
	s.db = nil

	// Atomic replace
	backupPath := srcPath + ".backup"
	if err := os.Rename(srcPath, backupPath); err != nil {
		return fmt.Errorf("failed to backup original: %w", err)
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Rename(backupPath, srcPath) // rollback
		return fmt.Errorf("failed to replace database: %w", err)
	}
	os.Remove(backupPath)

	reopened, err := openDB(srcPath)
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}
	s.db = reopened

	return nil
}
