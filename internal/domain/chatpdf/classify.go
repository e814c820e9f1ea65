package chatpdf

import "github.com/google/uuid"

// ClassifyFiles partitions the files referenced by a conversation's
// messages into inline-capable and RAG-capable sets, in first-mention
// order. A file whose status is failed, or that cannot be resolved, is
// dropped from both sets. Each file id is classified once, at its
// first occurrence in msgs; newFile (if non-nil) is classified only
// when it has not already appeared among msgs.
func ClassifyFiles(msgs []Message, newFile *File) (inlineIDs, ragIDs []uuid.UUID) {
	seen := make(map[uuid.UUID]bool)

	classify := func(id uuid.UUID, file *File) {
		if seen[id] {
			return
		}
		seen[id] = true
		if file == nil {
			return
		}
		switch file.Status {
		case FileStatusUploaded:
			inlineIDs = append(inlineIDs, id)
		case FileStatusCompleted:
			ragIDs = append(ragIDs, id)
		case FileStatusFailed:
			// skip: dropped, counted neither inline nor rag
		}
	}

	for _, msg := range msgs {
		if msg.FileID == nil {
			continue
		}
		classify(*msg.FileID, msg.File)
	}

	if newFile != nil && !seen[newFile.ID] {
		classify(newFile.ID, newFile)
	}

	return inlineIDs, ragIDs
}
