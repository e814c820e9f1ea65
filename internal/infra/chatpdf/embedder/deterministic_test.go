package embedder

import (
	"context"
	"testing"
)

func TestDeterministicEmbedderIsStableAndDimensioned(t *testing.T) {
	e := NewDeterministicEmbedder(16)
	first, err := e.Embed(context.Background(), []string{"needle in a haystack"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := e.Embed(context.Background(), []string{"needle in a haystack"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first[0]) != 16 {
		t.Fatalf("expected vector of configured dim 16, got %d", len(first[0]))
	}
	for i := range first[0] {
		if first[0][i] != second[0][i] {
			t.Fatalf("expected identical text to produce identical vector, diverged at %d", i)
		}
	}
}

func TestDeterministicEmbedderDiffersByContent(t *testing.T) {
	e := NewDeterministicEmbedder(16)
	out, err := e.Embed(context.Background(), []string{"alpha", "beta"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	equal := true
	for i := range out[0] {
		if out[0][i] != out[1][i] {
			equal = false
			break
		}
	}
	if equal {
		t.Fatalf("expected different text to produce a different vector")
	}
}

func TestNewDeterministicEmbedderDefaultsDimension(t *testing.T) {
	e := NewDeterministicEmbedder(0)
	out, err := e.Embed(context.Background(), []string{"x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out[0]) != 32 {
		t.Fatalf("expected default dim 32, got %d", len(out[0]))
	}
}
