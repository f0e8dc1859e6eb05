// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reviewed tracks papers the user has already seen, so repeat
// runs do not recommend them again. Entries live in a small BadgerDB
// keyed by work id.
package reviewed

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/pdiddy/paper-recommender/pkg/types"
)

// Entry records one reviewed paper.
type Entry struct {
	PaperID    string    `json:"paper_id" yaml:"paper_id"`
	Title      string    `json:"title" yaml:"title"`
	DOI        string    `json:"doi,omitempty" yaml:"doi,omitempty"`
	ReviewedAt time.Time `json:"reviewed_at" yaml:"reviewed_at"`
}

// Store is a BadgerDB-backed reviewed-paper registry.
type Store struct {
	db *badger.DB
}

// Open opens or creates the registry under dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening reviewed store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Mark records a paper as reviewed. Marking the same paper again updates
// its timestamp.
func (s *Store) Mark(c types.CandidatePaper) error {
	if c.OpenAlexID == "" {
		return errors.New("paper has no id")
	}
	entry := Entry{
		PaperID:    c.OpenAlexID,
		Title:      c.Title,
		DOI:        c.DOI,
		ReviewedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling entry: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(c.OpenAlexID), data)
	})
}

// IsReviewed reports whether the paper id has been marked.
func (s *Store) IsReviewed(paperID string) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(paperID))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading reviewed entry: %w", err)
	}
	return true, nil
}

// All returns every entry, most recently reviewed first.
func (s *Store) All() ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var entry Entry
				if err := json.Unmarshal(val, &entry); err != nil {
					return fmt.Errorf("unmarshaling entry: %w", err)
				}
				entries = append(entries, entry)
				return nil
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
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ReviewedAt.After(entries[j].ReviewedAt)
	})
	return entries, nil
}

// Count returns the number of reviewed papers.
func (s *Store) Count() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Clear removes every entry.
func (s *Store) Clear() error {
	return s.db.DropAll()
}
