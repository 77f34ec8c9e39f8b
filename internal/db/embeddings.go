package db

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/marcus/vault/internal/models"
)

// GetEmbedding fetches the cached vector for an entity under a model, or
// models.ErrNotFound when none is cached.
func (db *DB) GetEmbedding(entityType, entityID, model string) (*models.Embedding, error) {
	row := db.conn.QueryRow(
		`SELECT entity_type, entity_id, model, dims, vector, content_hash, updated_at
		 FROM embeddings WHERE entity_type = ? AND entity_id = ? AND model = ?`,
		entityType, entityID, model,
	)
	var e models.Embedding
	var blob []byte
	var updated string
	err := row.Scan(&e.EntityType, &e.EntityID, &e.Model, &e.Dims, &blob, &e.ContentHash, &updated)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("embedding for %s %s: %w", entityType, entityID, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	e.Vector, err = decodeVector(blob, e.Dims)
	if err != nil {
		return nil, err
	}
	e.UpdatedAt = parseTime(updated)
	return &e, nil
}

// UpsertEmbedding stores a vector, replacing any previous one for the same
// entity and model.
func (db *DB) UpsertEmbedding(e *models.Embedding) error {
	blob := encodeVector(e.Vector)
	return withRetry(func() error {
		_, err := db.conn.Exec(
			`INSERT INTO embeddings (entity_type, entity_id, model, dims, vector, content_hash, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(entity_type, entity_id, model)
			 DO UPDATE SET dims=excluded.dims, vector=excluded.vector,
			   content_hash=excluded.content_hash, updated_at=excluded.updated_at`,
			e.EntityType, e.EntityID, e.Model, len(e.Vector), blob, e.ContentHash, now(),
		)
		return err
	})
}

// Vectors are stored as little-endian float32 blobs.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(blob []byte, dims int) ([]float32, error) {
	if len(blob) != 4*dims {
		return nil, fmt.Errorf("embedding blob has %d bytes, want %d", len(blob), 4*dims)
	}
	v := make([]float32, dims)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return v, nil
}
