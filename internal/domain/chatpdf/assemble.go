package chatpdf

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/uuid"
)

const (
	maxMessages         = 20
	maxInlineTotalBytes = 50 * 1024 * 1024
	maxInlineFileBytes  = 50 * 1024 * 1024
)

// Assembler builds the LLM input sequence for a chat turn, enforcing
// the inline-payload and message-count budgets and re-rendering stored
// evidence blocks for prior RAG turns.
type Assembler struct {
	blob Blob
}

// NewAssembler constructs the assembler.
func NewAssembler(blob Blob) *Assembler {
	return &Assembler{blob: blob}
}

type inlineCandidate struct {
	fileID      uuid.UUID
	filename    string
	data        []byte
	firstMention Message
}

// Build renders msgs (ascending creation order, the pending turn
// already appended) into LLM messages, downloading and inlining files
// in inlineIDs that fit the 50 MiB budgets. It returns the rendered
// messages and the set of file ids actually inlined.
func (a *Assembler) Build(ctx context.Context, msgs []Message, inlineIDs []uuid.UUID) ([]LLMMessage, map[uuid.UUID]bool, error) {
	inlineSet := make(map[uuid.UUID]bool, len(inlineIDs))
	for _, id := range inlineIDs {
		inlineSet[id] = true
	}

	candidates, err := a.collectInlineFiles(ctx, msgs, inlineSet)
	if err != nil {
		return nil, nil, err
	}
	selected := selectWithinBudget(candidates)
	accepted := make(map[uuid.UUID]bool, len(selected))
	for _, c := range selected {
		accepted[c.fileID] = true
	}

	recent := msgs
	if len(recent) > maxMessages {
		recent = recent[len(recent)-maxMessages:]
	}

	var out []LLMMessage
	firstUserRendered := false
	for _, msg := range recent {
		switch msg.Role {
		case RoleUser:
			if !firstUserRendered {
				firstUserRendered = true
				out = append(out, LLMMessage{Role: "user", Content: renderFirstUserMessage(selected, msg.Content)})
				continue
			}
			out = append(out, LLMMessage{Role: "user", Content: renderUserMessage(msg, accepted)})
		case RoleAssistant:
			out = append(out, LLMMessage{Role: "assistant", Content: msg.Content})
			if msg.RetrievalMode != nil && *msg.RetrievalMode == ModeRAG && len(msg.RetrievedChunks) > 0 {
				out = append(out, LLMMessage{Role: "system", Content: RenderEvidenceBlock(msg.RetrievedChunks)})
			}
		}
	}
	return out, accepted, nil
}

func (a *Assembler) collectInlineFiles(ctx context.Context, msgs []Message, inlineSet map[uuid.UUID]bool) ([]inlineCandidate, error) {
	seen := make(map[uuid.UUID]bool)
	var out []inlineCandidate
	for _, msg := range msgs {
		if msg.FileID == nil || !inlineSet[*msg.FileID] || seen[*msg.FileID] {
			continue
		}
		seen[*msg.FileID] = true
		if msg.File == nil {
			continue
		}
		reader, err := a.blob.Get(ctx, msg.File.StorageKey)
		if err != nil {
			continue
		}
		data, err := io.ReadAll(reader)
		reader.Close()
		if err != nil {
			continue
		}
		if len(data) > maxInlineFileBytes {
			continue
		}
		out = append(out, inlineCandidate{
			fileID:       *msg.FileID,
			filename:     msg.File.Filename(),
			data:         data,
			firstMention: msg,
		})
	}
	return out, nil
}

// selectWithinBudget sorts candidates newest-mention-first and greedily
// accepts them while the running total stays within the inline budget.
func selectWithinBudget(candidates []inlineCandidate) []inlineCandidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].firstMention.CreatedAt.After(candidates[j].firstMention.CreatedAt)
	})
	var selected []inlineCandidate
	var total int
	for _, c := range candidates {
		if total+len(c.data) > maxInlineTotalBytes {
			continue
		}
		selected = append(selected, c)
		total += len(c.data)
	}
	return selected
}

func renderFirstUserMessage(selected []inlineCandidate, text string) string {
	if len(selected) == 0 {
		return text
	}
	var b strings.Builder
	for _, c := range selected {
		fmt.Fprintf(&b, "[Attached file: %s]\ndata:application/pdf;base64,%s\n\n", c.filename, base64.StdEncoding.EncodeToString(c.data))
	}
	b.WriteString(text)
	return b.String()
}

func renderUserMessage(msg Message, accepted map[uuid.UUID]bool) string {
	if msg.FileID == nil || accepted[*msg.FileID] {
		return msg.Content
	}
	filename := "unknown"
	if msg.File != nil {
		filename = msg.File.Filename()
	}
	return fmt.Sprintf("%s [Referring to file: %s]", msg.Content, filename)
}

// RenderEvidenceBlock formats retrieved chunks the way the model saw
// them, for both live RAG turns and historical replay.
func RenderEvidenceBlock(chunks []EvidenceChunk) string {
	var b strings.Builder
	b.WriteString("Context used for this response:\n")
	for i, chunk := range chunks {
		fmt.Fprintf(&b, "\n[Chunk %d] (relevance: %s)\n%s", i+1, formatPercent(chunk.SimilarityScore), chunk.ChunkText)
	}
	return b.String()
}

func formatPercent(score float64) string {
	return fmt.Sprintf("%.1f%%", score*100)
}
