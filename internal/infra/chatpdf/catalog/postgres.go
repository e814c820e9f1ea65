// Package catalog persists File, Conversation and Message rows.
package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/tejasgodse/chatpdf/internal/domain/chatpdf"
	apperrors "github.com/tejasgodse/chatpdf/pkg/errors"
)

// PostgresCatalog persists the catalog in Postgres.
type PostgresCatalog struct {
	pool *pgxpool.Pool
}

// NewPostgresCatalog constructs the catalog.
func NewPostgresCatalog(pool *pgxpool.Pool) *PostgresCatalog {
	return &PostgresCatalog{pool: pool}
}

func (r *PostgresCatalog) CreateFile(ctx context.Context, file domain.File) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO chatpdf_files (id, storage_key, status, failure_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, file.ID, file.StorageKey, file.Status, file.FailureReason, file.CreatedAt, file.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(domain.CodeCatalogUnavailable, "create file", err)
	}
	return nil
}

func (r *PostgresCatalog) GetFile(ctx context.Context, id uuid.UUID) (domain.File, bool, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, storage_key, status, failure_reason, created_at, updated_at
		FROM chatpdf_files WHERE id = $1 LIMIT 1
	`, id)
	return scanFile(row)
}

func (r *PostgresCatalog) FindFileByStorageKey(ctx context.Context, storageKey string) (domain.File, bool, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, storage_key, status, failure_reason, created_at, updated_at
		FROM chatpdf_files WHERE storage_key = $1 LIMIT 1
	`, storageKey)
	return scanFile(row)
}

func scanFile(row pgx.Row) (domain.File, bool, error) {
	var (
		file          domain.File
		failureReason *string
	)
	if err := row.Scan(&file.ID, &file.StorageKey, &file.Status, &failureReason, &file.CreatedAt, &file.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return domain.File{}, false, nil
		}
		return domain.File{}, false, apperrors.Wrap(domain.CodeCatalogUnavailable, "scan file", err)
	}
	file.FailureReason = failureReason
	return file, true, nil
}

func (r *PostgresCatalog) UpdateFileStatus(ctx context.Context, id uuid.UUID, status domain.FileStatus, failureReason *string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE chatpdf_files SET status = $1, failure_reason = $2, updated_at = NOW()
		WHERE id = $3
	`, status, failureReason, id)
	if err != nil {
		return apperrors.Wrap(domain.CodeCatalogUnavailable, "update file status", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.Wrap(domain.CodeRecordNotFound, "file not found: "+id.String(), nil)
	}
	return nil
}

func (r *PostgresCatalog) ListFiles(ctx context.Context, limit, offset int) ([]domain.File, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, storage_key, status, failure_reason, created_at, updated_at
		FROM chatpdf_files ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(domain.CodeCatalogUnavailable, "list files", err)
	}
	defer rows.Close()

	var out []domain.File
	for rows.Next() {
		var (
			file          domain.File
			failureReason *string
		)
		if err := rows.Scan(&file.ID, &file.StorageKey, &file.Status, &failureReason, &file.CreatedAt, &file.UpdatedAt); err != nil {
			return nil, apperrors.Wrap(domain.CodeCatalogUnavailable, "scan file", err)
		}
		file.FailureReason = failureReason
		out = append(out, file)
	}
	return out, rows.Err()
}

func (r *PostgresCatalog) CountFiles(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM chatpdf_files`).Scan(&count); err != nil {
		return 0, apperrors.Wrap(domain.CodeCatalogUnavailable, "count files", err)
	}
	return count, nil
}

func (r *PostgresCatalog) CreateConversation(ctx context.Context, conv domain.Conversation) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO chatpdf_conversations (id, created_at) VALUES ($1, $2)
	`, conv.ID, conv.CreatedAt)
	if err != nil {
		return apperrors.Wrap(domain.CodeCatalogUnavailable, "create conversation", err)
	}
	return nil
}

func (r *PostgresCatalog) GetConversation(ctx context.Context, id uuid.UUID) (domain.Conversation, bool, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, created_at FROM chatpdf_conversations WHERE id = $1`, id)
	var conv domain.Conversation
	if err := row.Scan(&conv.ID, &conv.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return domain.Conversation{}, false, nil
		}
		return domain.Conversation{}, false, apperrors.Wrap(domain.CodeCatalogUnavailable, "get conversation", err)
	}
	return conv, true, nil
}

func (r *PostgresCatalog) ListConversations(ctx context.Context, limit, offset int) ([]domain.Conversation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, created_at FROM chatpdf_conversations ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(domain.CodeCatalogUnavailable, "list conversations", err)
	}
	defer rows.Close()

	var out []domain.Conversation
	for rows.Next() {
		var conv domain.Conversation
		if err := rows.Scan(&conv.ID, &conv.CreatedAt); err != nil {
			return nil, apperrors.Wrap(domain.CodeCatalogUnavailable, "scan conversation", err)
		}
		out = append(out, conv)
	}
	return out, rows.Err()
}

func (r *PostgresCatalog) CountConversations(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM chatpdf_conversations`).Scan(&count); err != nil {
		return 0, apperrors.Wrap(domain.CodeCatalogUnavailable, "count conversations", err)
	}
	return count, nil
}

func (r *PostgresCatalog) CountMessages(ctx context.Context, conversationID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM chatpdf_messages WHERE conversation_id = $1`, conversationID).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(domain.CodeCatalogUnavailable, "count messages", err)
	}
	return count, nil
}

// AppendMessages inserts msgs atomically: either all rows land or none
// do, so a failed LLM turn can never leave a partial user/assistant
// pair behind.
func (r *PostgresCatalog) AppendMessages(ctx context.Context, msgs ...domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return apperrors.Wrap(domain.CodeCatalogUnavailable, "begin append messages transaction", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, msg := range msgs {
		var chunks []byte
		if len(msg.RetrievedChunks) > 0 {
			encoded, err := json.Marshal(msg.RetrievedChunks)
			if err != nil {
				return apperrors.Wrap(domain.CodeCatalogUnavailable, "encode retrieved chunks", err)
			}
			chunks = encoded
		}
		batch.Queue(`
			INSERT INTO chatpdf_messages (id, conversation_id, role, content, file_id, retrieval_mode, retrieved_chunks, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, msg.ID, msg.ConversationID, msg.Role, msg.Content, msg.FileID, msg.RetrievalMode, chunks, msg.CreatedAt)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return apperrors.Wrap(domain.CodeCatalogUnavailable, "append messages", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return apperrors.Wrap(domain.CodeCatalogUnavailable, "commit append messages transaction", err)
	}
	return nil
}

func (r *PostgresCatalog) GetMessages(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT
			m.id, m.conversation_id, m.role, m.content, m.file_id, m.retrieval_mode, m.retrieved_chunks, m.created_at,
			f.id, f.storage_key, f.status, f.failure_reason, f.created_at, f.updated_at
		FROM chatpdf_messages m
		LEFT JOIN chatpdf_files f ON f.id = m.file_id
		WHERE m.conversation_id = $1
		ORDER BY m.created_at ASC
	`, conversationID)
	if err != nil {
		return nil, apperrors.Wrap(domain.CodeCatalogUnavailable, "get messages", err)
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var (
			msg            domain.Message
			retrievalMode  *domain.RetrievalMode
			fileID         *uuid.UUID
			retrievedRaw   []byte
			fFileID        *uuid.UUID
			fStorageKey    *string
			fStatus        *domain.FileStatus
			fFailureReason *string
			fCreatedAt     *time.Time
			fUpdatedAt     *time.Time
		)
		if err := rows.Scan(
			&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &fileID, &retrievalMode, &retrievedRaw, &msg.CreatedAt,
			&fFileID, &fStorageKey, &fStatus, &fFailureReason, &fCreatedAt, &fUpdatedAt,
		); err != nil {
			return nil, apperrors.Wrap(domain.CodeCatalogUnavailable, "scan message", err)
		}
		msg.FileID = fileID
		msg.RetrievalMode = retrievalMode
		if len(retrievedRaw) > 0 {
			if err := json.Unmarshal(retrievedRaw, &msg.RetrievedChunks); err != nil {
				return nil, apperrors.Wrap(domain.CodeCatalogUnavailable, "decode retrieved chunks", err)
			}
		}
		if fFileID != nil {
			f := domain.File{ID: *fFileID, FailureReason: fFailureReason}
			if fStorageKey != nil {
				f.StorageKey = *fStorageKey
			}
			if fStatus != nil {
				f.Status = *fStatus
			}
			if fCreatedAt != nil {
				f.CreatedAt = *fCreatedAt
			}
			if fUpdatedAt != nil {
				f.UpdatedAt = *fUpdatedAt
			}
			msg.File = &f
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

var _ domain.Catalog = (*PostgresCatalog)(nil)
