// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache persists the two per-collection cache artifacts in a
// SQLite database: the library embedding profile (paper records plus an
// index-aligned vector matrix) and the citation network (citing→cited
// edges, the library-to-graph id map, and build metadata used for
// staleness checks).
//
// Vectors are stored as little-endian float32 blobs and paper records as
// JSON columns, so both artifacts round-trip losslessly.
package cache

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paper-recommender/pkg/types"
)

const dbFile = "recommender.db"

// Store manages the cache SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the cache database under dir, creating the schema
// if it does not exist.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS embedding_profiles (
			collection TEXT NOT NULL,
			idx INTEGER NOT NULL,
			paper TEXT NOT NULL,
			vector BLOB NOT NULL,
			PRIMARY KEY (collection, idx)
		)`,
		`CREATE TABLE IF NOT EXISTS citation_edges (
			collection TEXT NOT NULL,
			citing_id TEXT NOT NULL,
			cited_id TEXT NOT NULL,
			PRIMARY KEY (collection, citing_id, cited_id)
		)`,
		`CREATE TABLE IF NOT EXISTS citation_id_map (
			collection TEXT NOT NULL,
			item_key TEXT NOT NULL,
			external_id TEXT NOT NULL,
			PRIMARY KEY (collection, item_key)
		)`,
		`CREATE TABLE IF NOT EXISTS citation_meta (
			collection TEXT PRIMARY KEY,
			max_citations INTEGER NOT NULL,
			num_papers INTEGER NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// --- embedding profile ---

// HasProfile reports whether an embedding profile exists for the collection.
func (s *Store) HasProfile(ctx context.Context, collection string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM embedding_profiles WHERE collection = ?`, collection,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking embedding profile: %w", err)
	}
	return n > 0, nil
}

// SaveProfile stores the embedding matrix and its index-aligned paper
// records, replacing any previous profile for the collection.
func (s *Store) SaveProfile(ctx context.Context, collection string, papers []types.LibraryPaper, matrix [][]float32) error {
	if len(papers) != len(matrix) {
		return fmt.Errorf("profile length mismatch: %d papers, %d vectors", len(papers), len(matrix))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM embedding_profiles WHERE collection = ?`, collection); err != nil {
		return fmt.Errorf("clearing old profile: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO embedding_profiles (collection, idx, paper, vector) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, paper := range papers {
		paperJSON, err := json.Marshal(paper)
		if err != nil {
			return fmt.Errorf("marshaling paper %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, collection, i, string(paperJSON), encodeVector(matrix[i])); err != nil {
			return fmt.Errorf("inserting profile row %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// LoadProfile returns the stored papers and matrix for the collection, in
// insertion order. ok is false when no profile exists.
func (s *Store) LoadProfile(ctx context.Context, collection string) (papers []types.LibraryPaper, matrix [][]float32, ok bool, err error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT paper, vector FROM embedding_profiles WHERE collection = ? ORDER BY idx`, collection)
	if err != nil {
		return nil, nil, false, fmt.Errorf("querying embedding profile: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var paperJSON string
		var blob []byte
		if err := rows.Scan(&paperJSON, &blob); err != nil {
			return nil, nil, false, fmt.Errorf("scanning profile row: %w", err)
		}
		var paper types.LibraryPaper
		if err := json.Unmarshal([]byte(paperJSON), &paper); err != nil {
			return nil, nil, false, fmt.Errorf("unmarshaling paper: %w", err)
		}
		papers = append(papers, paper)
		matrix = append(matrix, decodeVector(blob))
	}
	if err := rows.Err(); err != nil {
		return nil, nil, false, err
	}
	return papers, matrix, len(papers) > 0, nil
}

// --- citation network ---

// NetworkMeta records the parameters a citation network was built with.
// The builder compares these against a new request to decide staleness.
type NetworkMeta struct {
	// MaxCitations is the citing-work fetch cap at build time; zero means
	// the build was unlimited.
	MaxCitations int

	// NumPapers is the library size processed at build time.
	NumPapers int
}

// SaveNetwork stores the citation edges, id map, and build metadata,
// replacing any previous network for the collection.
func (s *Store) SaveNetwork(ctx context.Context, collection string, edges map[string][]string, idMap map[string]string, meta NetworkMeta) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"citation_edges", "citation_id_map", "citation_meta"} {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE collection = ?`, collection); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO citation_edges (collection, citing_id, cited_id) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing edge insert: %w", err)
	}
	defer edgeStmt.Close()

	for citing, cited := range edges {
		for _, id := range cited {
			if _, err := edgeStmt.ExecContext(ctx, collection, citing, id); err != nil {
				return fmt.Errorf("inserting edge %s->%s: %w", citing, id, err)
			}
		}
	}

	mapStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO citation_id_map (collection, item_key, external_id) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing id-map insert: %w", err)
	}
	defer mapStmt.Close()

	for key, id := range idMap {
		if _, err := mapStmt.ExecContext(ctx, collection, key, id); err != nil {
			return fmt.Errorf("inserting id mapping %s: %w", key, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO citation_meta (collection, max_citations, num_papers) VALUES (?, ?, ?)`,
		collection, meta.MaxCitations, meta.NumPapers); err != nil {
		return fmt.Errorf("inserting network metadata: %w", err)
	}

	return tx.Commit()
}

// LoadNetwork returns the stored citation network for the collection.
// ok is false when no network exists.
func (s *Store) LoadNetwork(ctx context.Context, collection string) (edges map[string][]string, idMap map[string]string, meta NetworkMeta, ok bool, err error) {
	var found int
	err = s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM citation_meta WHERE collection = ?`, collection).Scan(&found)
	if err != nil {
		return nil, nil, NetworkMeta{}, false, fmt.Errorf("checking network metadata: %w", err)
	}
	if found == 0 {
		return nil, nil, NetworkMeta{}, false, nil
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT max_citations, num_papers FROM citation_meta WHERE collection = ?`, collection,
	).Scan(&meta.MaxCitations, &meta.NumPapers)
	if err != nil {
		return nil, nil, NetworkMeta{}, false, fmt.Errorf("reading network metadata: %w", err)
	}

	edges = make(map[string][]string)
	rows, err := s.db.QueryContext(ctx,
		`SELECT citing_id, cited_id FROM citation_edges WHERE collection = ?`, collection)
	if err != nil {
		return nil, nil, NetworkMeta{}, false, fmt.Errorf("querying edges: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var citing, cited string
		if err := rows.Scan(&citing, &cited); err != nil {
			return nil, nil, NetworkMeta{}, false, fmt.Errorf("scanning edge: %w", err)
		}
		edges[citing] = append(edges[citing], cited)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, NetworkMeta{}, false, err
	}

	idMap = make(map[string]string)
	mapRows, err := s.db.QueryContext(ctx,
		`SELECT item_key, external_id FROM citation_id_map WHERE collection = ?`, collection)
	if err != nil {
		return nil, nil, NetworkMeta{}, false, fmt.Errorf("querying id map: %w", err)
	}
	defer mapRows.Close()
	for mapRows.Next() {
		var key, id string
		if err := mapRows.Scan(&key, &id); err != nil {
			return nil, nil, NetworkMeta{}, false, fmt.Errorf("scanning id mapping: %w", err)
		}
		idMap[key] = id
	}
	if err := mapRows.Err(); err != nil {
		return nil, nil, NetworkMeta{}, false, err
	}

	return edges, idMap, meta, true, nil
}

// Clear removes all cached artifacts for the collection. An empty
// collection clears everything.
func (s *Store) Clear(ctx context.Context, collection string) error {
	tables := []string{"embedding_profiles", "citation_edges", "citation_id_map", "citation_meta"}
	for _, table := range tables {
		var err error
		if collection == "" {
			_, err = s.db.ExecContext(ctx, `DELETE FROM `+table)
		} else {
			_, err = s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE collection = ?`, collection)
		}
		if err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return nil
}

// encodeVector packs a float32 vector into a little-endian blob.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

// decodeVector unpacks a little-endian blob back into a float32 vector.
func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v
}
