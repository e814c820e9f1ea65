// Package vectorindex stores chunk embeddings and serves nearest
// neighbor queries.
package vectorindex

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	domain "github.com/tejasgodse/chatpdf/internal/domain/chatpdf"
	apperrors "github.com/tejasgodse/chatpdf/pkg/errors"
)

// chunkNamespace seeds the deterministic chunk vector id so that
// re-ingesting the same file produces the same chunk ids rather than
// growing the index without bound on every retry.
var chunkNamespace = uuid.MustParse("6f1c1a5e-3b1a-4c2e-9b7a-2f7e6d9a0d11")

// ChunkVectorID derives a stable chunk id from its file and index, so
// upserting the same (file, index) pair always replaces the prior row
// instead of inserting a duplicate.
func ChunkVectorID(fileID uuid.UUID, chunkIndex int) uuid.UUID {
	name := fileID.String() + ":" + strconv.Itoa(chunkIndex)
	return uuid.NewSHA1(chunkNamespace, []byte(name))
}

// PostgresVectorIndex stores chunks and their embeddings in Postgres,
// querying nearest neighbors by cosine distance.
type PostgresVectorIndex struct {
	pool *pgxpool.Pool
}

// NewPostgresVectorIndex constructs the index.
func NewPostgresVectorIndex(pool *pgxpool.Pool) *PostgresVectorIndex {
	return &PostgresVectorIndex{pool: pool}
}

// Upsert inserts or replaces chunk rows, keyed by their deterministic id.
func (r *PostgresVectorIndex) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return apperrors.Wrap(domain.CodeVectorUpsertFail, "begin upsert transaction", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, chunk := range chunks {
		batch.Queue(`
			INSERT INTO chatpdf_chunks (id, file_id, chunk_index, text, token_count, start_char, end_char, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE SET
				text = EXCLUDED.text,
				token_count = EXCLUDED.token_count,
				start_char = EXCLUDED.start_char,
				end_char = EXCLUDED.end_char,
				embedding = EXCLUDED.embedding
		`, chunk.ID, chunk.FileID, chunk.ChunkIndex, chunk.Text, chunk.TokenCount, chunk.StartChar, chunk.EndChar, pgvector.NewVector(chunk.Embedding), chunk.CreatedAt)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return apperrors.Wrap(domain.CodeVectorUpsertFail, "upsert chunks", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return apperrors.Wrap(domain.CodeVectorUpsertFail, "commit upsert transaction", err)
	}
	return nil
}

// Query returns the topK nearest chunks to embedding, optionally
// restricted to fileIDs, ranked by cosine similarity (1 - cosine distance).
func (r *PostgresVectorIndex) Query(ctx context.Context, embedding []float32, fileIDs []uuid.UUID, topK int) ([]domain.RetrievedChunk, error) {
	query := `
		SELECT id, file_id, text, 1 - (embedding <=> $1) AS score
		FROM chatpdf_chunks
	`
	args := []any{pgvector.NewVector(embedding)}
	if len(fileIDs) > 0 {
		query += ` WHERE file_id = ANY($2)`
		args = append(args, fileIDs)
	}
	query += fmt.Sprintf(` ORDER BY embedding <=> $1 ASC LIMIT $%d`, len(args)+1)
	args = append(args, topK)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(domain.CodeVectorQueryFail, "query chunks", err)
	}
	defer rows.Close()

	var out []domain.RetrievedChunk
	for rows.Next() {
		var rc domain.RetrievedChunk
		if err := rows.Scan(&rc.ChunkID, &rc.FileID, &rc.ChunkText, &rc.SimilarityScore); err != nil {
			return nil, apperrors.Wrap(domain.CodeVectorQueryFail, "scan chunk", err)
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

// Delete removes every chunk belonging to fileID.
func (r *PostgresVectorIndex) Delete(ctx context.Context, fileID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM chatpdf_chunks WHERE file_id = $1`, fileID)
	if err != nil {
		return apperrors.Wrap(domain.CodeVectorUpsertFail, "delete chunks", err)
	}
	return nil
}

var _ domain.VectorIndex = (*PostgresVectorIndex)(nil)
