// Package store defines the two abstract persistence collaborators the
// local index depends on: an embedding index and a record store. Both are
// treated as pluggable collaborators; this package provides a Badger-backed
// implementation and an in-memory one for tests and ephemeral instances.
package store

import (
	"errors"

	"github.com/kestrel-labs/vsomcore/pkg/record"
)

// ErrNotFound is returned by RecordStore.Get for an unknown id.
var ErrNotFound = errors.New("store: not found")

// ScoredID is one embedding-index search result: a stored id and its
// distance to the query vector.
type ScoredID struct {
	ID       string
	Distance float64
}

// EmbeddingIndex supports add, search, and size.
type EmbeddingIndex interface {
	Add(id string, vec []float64) error
	Search(vec []float64, k int) ([]ScoredID, error)
	Size() int
}

// RecordFilter narrows a Scan call. A nil field means "no constraint on
// this dimension".
type RecordFilter struct {
	Domains []string
}

// RecordStore supports put/get/scan over the canonical Record list. Scan
// returns every record matching filter; callers needing a live
// iterator should page externally — the corpus sizes this module targets
// fit comfortably in memory.
type RecordStore interface {
	Put(r *record.Record) error
	Get(id string) (*record.Record, error)
	Scan(filter RecordFilter) ([]*record.Record, error)
}
