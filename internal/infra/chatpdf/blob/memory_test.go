package blob

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	domain "github.com/tejasgodse/chatpdf/internal/domain/chatpdf"
	apperrors "github.com/tejasgodse/chatpdf/pkg/errors"
)

func TestMemoryBlobPutGetRoundTrips(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBlob()
	if err := b.Put(ctx, "uploads/a.pdf", []byte("pdf bytes"), "application/pdf"); err != nil {
		t.Fatalf("put: %v", err)
	}

	reader, err := b.Get(ctx, "uploads/a.pdf")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "pdf bytes" {
		t.Fatalf("unexpected data: %s", data)
	}
}

func TestMemoryBlobGetMissingKeyReturnsBlobNotFound(t *testing.T) {
	b := NewMemoryBlob()
	_, err := b.Get(context.Background(), "uploads/missing.pdf")
	if err == nil {
		t.Fatalf("expected error for missing key")
	}
	if !apperrors.IsCode(err, domain.CodeBlobNotFound) {
		t.Fatalf("expected blob_not_found code, got %v", err)
	}
}

func TestMemoryBlobPresignURLsReferenceKey(t *testing.T) {
	b := NewMemoryBlob()
	putURL, err := b.PresignPut(context.Background(), "uploads/a.pdf", time.Minute)
	if err != nil {
		t.Fatalf("presign put: %v", err)
	}
	if !strings.Contains(putURL, "uploads/a.pdf") || !strings.Contains(putURL, "op=put") {
		t.Fatalf("unexpected presigned put url: %s", putURL)
	}

	getURL, err := b.PresignGet(context.Background(), "uploads/a.pdf", time.Minute)
	if err != nil {
		t.Fatalf("presign get: %v", err)
	}
	if !strings.Contains(getURL, "op=get") {
		t.Fatalf("unexpected presigned get url: %s", getURL)
	}
}

func TestMemoryBlobPutCopiesData(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBlob()
	data := []byte("original")
	if err := b.Put(ctx, "uploads/a.pdf", data, "application/pdf"); err != nil {
		t.Fatalf("put: %v", err)
	}
	data[0] = 'X'

	reader, err := b.Get(ctx, "uploads/a.pdf")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer reader.Close()
	got, _ := io.ReadAll(reader)
	if string(got) != "original" {
		t.Fatalf("expected stored copy to be unaffected by later mutation, got %s", got)
	}
}
