package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/kestrel-labs/vsomcore/pkg/record"
)

func unixNanoTime(nanos int64) time.Time {
	return time.Unix(0, nanos)
}

// Key prefixes namespace the two collaborators within one BadgerDB handle.
const (
	prefixRecord byte = 0x01
	prefixVector byte = 0x02
)

// BadgerOptions configures BadgerStore.
type BadgerOptions struct {
	DataDir  string
	InMemory bool
}

// BadgerStore implements both RecordStore and EmbeddingIndex against one
// BadgerDB handle, vector search done by a full scan under the vector
// prefix — acceptable at this module's target scale, same tradeoff
// MemoryIndex makes.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) a BadgerDB database at opts.DataDir, or
// an in-memory instance if opts.InMemory is set.
func NewBadgerStore(opts BadgerOptions) (*BadgerStore, error) {
	bopts := badger.DefaultOptions(opts.DataDir).WithInMemory(opts.InMemory).WithLogger(nil)
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("store: open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Close releases the underlying BadgerDB handle.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func recordKey(id string) []byte {
	return append([]byte{prefixRecord}, id...)
}

func vectorKey(id string) []byte {
	return append([]byte{prefixVector}, id...)
}

// recordEnvelope is the JSON-on-disk shape for a record.Record; the
// record's atomic access-stats fields are flattened into plain values.
type recordEnvelope struct {
	ID           string            `json:"id"`
	Label        string            `json:"label"`
	Content      string            `json:"content"`
	Embedding    []float64         `json:"embedding"`
	CreatedAtUTC int64             `json:"created_at_unix"`
	Domains      []string          `json:"domains"`
	Importance   float64           `json:"importance"`
	Metadata     map[string]string `json:"metadata"`
	AccessCount  int64             `json:"access_count"`
	LastAccessed int64             `json:"last_accessed_unix"`
}

func (s *BadgerStore) Put(r *record.Record) error {
	if r.ID == "" {
		return errors.New("store: record id required")
	}

	domains := make([]string, len(r.Domains))
	for i, d := range r.Domains {
		domains[i] = string(d)
	}
	env := recordEnvelope{
		ID:           r.ID,
		Label:        r.Label,
		Content:      r.Content,
		Embedding:    r.Embedding,
		CreatedAtUTC: r.CreatedAt.UnixNano(),
		Domains:      domains,
		Importance:   r.Importance,
		Metadata:     r.Metadata,
		AccessCount:  r.AccessCount(),
		LastAccessed: r.LastAccessed().UnixNano(),
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("store: encode record: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(recordKey(r.ID), data); err != nil {
			return err
		}
		return txn.Set(vectorKey(r.ID), mustMarshalVec(r.Embedding))
	})
}

func mustMarshalVec(v []float64) []byte {
	data, _ := json.Marshal(v)
	return data
}

func (s *BadgerStore) Get(id string) (*record.Record, error) {
	var out *record.Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(id))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var env recordEnvelope
			if err := json.Unmarshal(val, &env); err != nil {
				return err
			}
			out = decodeRecordEnvelope(env)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func decodeRecordEnvelope(env recordEnvelope) *record.Record {
	domains := make([]record.Domain, len(env.Domains))
	for i, d := range env.Domains {
		domains[i] = record.Domain(d)
	}
	r := record.NewRecord(env.ID, env.Label, env.Content, env.Embedding, unixNanoTime(env.CreatedAtUTC), domains, env.Importance, env.Metadata)
	for i := int64(0); i < env.AccessCount; i++ {
		r.Touch(unixNanoTime(env.LastAccessed))
	}
	return r
}

func (s *BadgerStore) Scan(filter RecordFilter) ([]*record.Record, error) {
	var out []*record.Record
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte{prefixRecord}
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var env recordEnvelope
				if err := json.Unmarshal(val, &env); err != nil {
					return err
				}
				r := decodeRecordEnvelope(env)
				if matchesDomains(r, filter.Domains) {
					out = append(out, r)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

func (s *BadgerStore) Add(id string, vec []float64) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(vectorKey(id), mustMarshalVec(vec))
	})
}

func (s *BadgerStore) Search(vec []float64, k int) ([]ScoredID, error) {
	idx := NewMemoryIndex()
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte{prefixVector}
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			id := string(key[1:])
			err := it.Item().Value(func(val []byte) error {
				var v []float64
				if err := json.Unmarshal(val, &v); err != nil {
					return err
				}
				return idx.Add(id, v)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return idx.Search(vec, k)
}

func (s *BadgerStore) Size() int {
	n := 0
	_ = s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte{prefixVector}
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n
}
