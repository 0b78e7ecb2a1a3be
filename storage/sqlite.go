package storage

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore backs the checkpoint and archive-shard side tables: both
// benefit from relational lookups (shard-by-original-CID, missing-block
// priority scans) that a flat key-value store makes awkward.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if absent) a SQLite database at path and
// provisions the checkpoint/archive-shard schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w", err)
	}
	schema := []string{
		`CREATE TABLE IF NOT EXISTS checkpoints (
			checkpoint_id TEXT PRIMARY KEY,
			federation_id TEXT NOT NULL,
			epoch INTEGER NOT NULL,
			payload BLOB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_checkpoints_federation_epoch ON checkpoints(federation_id, epoch)`,
		`CREATE TABLE IF NOT EXISTS archive_shards (
			shard_id TEXT PRIMARY KEY,
			original_cid TEXT NOT NULL,
			shard_index INTEGER NOT NULL,
			total_shards INTEGER NOT NULL,
			checksum TEXT NOT NULL,
			payload BLOB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_archive_shards_original_cid ON archive_shards(original_cid)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("storage: provision sqlite schema: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// PutCheckpoint upserts a checkpoint record keyed by its checkpoint id.
func (s *SQLiteStore) PutCheckpoint(checkpointID, federationID string, epoch uint64, payload []byte) error {
	_, err := s.db.Exec(`INSERT INTO checkpoints(checkpoint_id, federation_id, epoch, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(checkpoint_id) DO UPDATE SET payload=excluded.payload`,
		checkpointID, federationID, epoch, payload)
	return err
}

// LatestCheckpoint returns the highest-epoch checkpoint payload for a
// federation, if any.
func (s *SQLiteStore) LatestCheckpoint(federationID string) ([]byte, bool, error) {
	row := s.db.QueryRow(`SELECT payload FROM checkpoints WHERE federation_id = ? ORDER BY epoch DESC LIMIT 1`, federationID)
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return payload, true, nil
}

// PutShard stores a single erasure-coded archive shard.
func (s *SQLiteStore) PutShard(shardID, originalCid string, index, total int, checksum string, payload []byte) error {
	_, err := s.db.Exec(`INSERT INTO archive_shards(shard_id, original_cid, shard_index, total_shards, checksum, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(shard_id) DO UPDATE SET payload=excluded.payload, checksum=excluded.checksum`,
		shardID, originalCid, index, total, checksum, payload)
	return err
}

// ShardRow is a single archive shard record.
type ShardRow struct {
	ShardID     string
	Index       int
	Total       int
	Checksum    string
	Payload     []byte
}

// ShardsFor returns all shards stored for a given original CID.
func (s *SQLiteStore) ShardsFor(originalCid string) ([]ShardRow, error) {
	rows, err := s.db.Query(`SELECT shard_id, shard_index, total_shards, checksum, payload FROM archive_shards WHERE original_cid = ? ORDER BY shard_index`, originalCid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ShardRow
	for rows.Next() {
		var r ShardRow
		if err := rows.Scan(&r.ShardID, &r.Index, &r.Total, &r.Checksum, &r.Payload); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
