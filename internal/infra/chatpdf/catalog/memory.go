package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	domain "github.com/tejasgodse/chatpdf/internal/domain/chatpdf"
	apperrors "github.com/tejasgodse/chatpdf/pkg/errors"
	"github.com/tejasgodse/chatpdf/pkg/util"
)

// MemoryCatalog is a simple in-memory catalog. Useful for tests and
// local dev when no database is configured.
type MemoryCatalog struct {
	mu            sync.RWMutex
	files         map[uuid.UUID]domain.File
	conversations map[uuid.UUID]domain.Conversation
	messages      map[uuid.UUID][]domain.Message
}

// NewMemoryCatalog constructs the catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		files:         make(map[uuid.UUID]domain.File),
		conversations: make(map[uuid.UUID]domain.Conversation),
		messages:      make(map[uuid.UUID][]domain.Message),
	}
}

func (r *MemoryCatalog) CreateFile(_ context.Context, file domain.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[file.ID] = file
	return nil
}

func (r *MemoryCatalog) GetFile(_ context.Context, id uuid.UUID) (domain.File, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	file, ok := r.files[id]
	return file, ok, nil
}

func (r *MemoryCatalog) FindFileByStorageKey(_ context.Context, storageKey string) (domain.File, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, file := range r.files {
		if file.StorageKey == storageKey {
			return file, true, nil
		}
	}
	return domain.File{}, false, nil
}

func (r *MemoryCatalog) UpdateFileStatus(_ context.Context, id uuid.UUID, status domain.FileStatus, failureReason *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	file, ok := r.files[id]
	if !ok {
		return apperrors.Wrap(domain.CodeRecordNotFound, "file not found: "+id.String(), nil)
	}
	file.Status = status
	file.FailureReason = failureReason
	file.UpdatedAt = util.NowUTC()
	r.files[id] = file
	return nil
}

func (r *MemoryCatalog) ListFiles(_ context.Context, limit, offset int) ([]domain.File, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.File, 0, len(r.files))
	for _, file := range r.files {
		out = append(out, file)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, limit, offset), nil
}

func (r *MemoryCatalog) CountFiles(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.files), nil
}

func (r *MemoryCatalog) CreateConversation(_ context.Context, conv domain.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conversations[conv.ID] = conv
	return nil
}

func (r *MemoryCatalog) GetConversation(_ context.Context, id uuid.UUID) (domain.Conversation, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conv, ok := r.conversations[id]
	return conv, ok, nil
}

func (r *MemoryCatalog) ListConversations(_ context.Context, limit, offset int) ([]domain.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Conversation, 0, len(r.conversations))
	for _, conv := range r.conversations {
		out = append(out, conv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, limit, offset), nil
}

func (r *MemoryCatalog) CountConversations(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conversations), nil
}

func (r *MemoryCatalog) CountMessages(_ context.Context, conversationID uuid.UUID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.messages[conversationID]), nil
}

func (r *MemoryCatalog) AppendMessages(_ context.Context, msgs ...domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, msg := range msgs {
		if msg.FileID != nil {
			if file, ok := r.files[*msg.FileID]; ok {
				f := file
				msg.File = &f
			}
		}
		r.messages[msg.ConversationID] = append(r.messages[msg.ConversationID], msg)
	}
	return nil
}

func (r *MemoryCatalog) GetMessages(_ context.Context, conversationID uuid.UUID) ([]domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	msgs := r.messages[conversationID]
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	for i := range out {
		if out[i].FileID == nil {
			continue
		}
		if file, ok := r.files[*out[i].FileID]; ok {
			f := file
			out[i].File = &f
		}
	}
	return out, nil
}

var _ domain.Catalog = (*MemoryCatalog)(nil)

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
