package grounding

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/a-h/ragtutor/models"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name       string
		chunks     []models.Chunk
		threshold  float64
		hasContext bool
	}{
		{
			name:       "no chunks is out of context",
			chunks:     nil,
			threshold:  DefaultThreshold,
			hasContext: false,
		},
		{
			name:       "top chunk above the threshold is grounded",
			chunks:     []models.Chunk{{Similarity: 0.31}},
			threshold:  0.25,
			hasContext: true,
		},
		{
			name:       "top chunk equal to the threshold is grounded",
			chunks:     []models.Chunk{{Similarity: 0.25}},
			threshold:  0.25,
			hasContext: true,
		},
		{
			name:       "top chunk below the threshold is out of context",
			chunks:     []models.Chunk{{Similarity: 0.2499}},
			threshold:  0.25,
			hasContext: false,
		},
		{
			name:       "only the first chunk is considered",
			chunks:     []models.Chunk{{Similarity: 0.1}, {Similarity: 0.9}},
			threshold:  0.25,
			hasContext: false,
		},
		{
			name:       "a similarity that isn't a number is out of context",
			chunks:     []models.Chunk{{Similarity: math.NaN()}},
			threshold:  0.25,
			hasContext: false,
		},
		{
			name:       "the threshold is configurable",
			chunks:     []models.Chunk{{Similarity: 0.5}},
			threshold:  0.7,
			hasContext: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.chunks, tt.threshold)
			if d.HasContext != tt.hasContext {
				t.Errorf("expected has_context %v, got %v", tt.hasContext, d.HasContext)
			}
			if d.OutOfContext == d.HasContext {
				t.Errorf("out_of_context must be the negation of has_context")
			}
		})
	}
}

func TestBuild(t *testing.T) {
	chunks := []models.Chunk{
		{DocumentID: "d1", DocumentTitle: "Biology 101", ChunkIndex: 4, Similarity: 0.31, Text: "Plants convert light into energy."},
		{DocumentID: "d2", DocumentTitle: "Chemistry", ChunkIndex: 0, Similarity: 0.2, Text: "Chlorophyll is green."},
	}
	t.Run("grounded prompts include every chunk and the original question", func(t *testing.T) {
		prompt := Build(DefaultPrompts, "Apa itu fotosintesis?", chunks, Decision{HasContext: true})
		if n := strings.Count(prompt, SourceLabel); n != 2 {
			t.Errorf("expected 2 context blocks, got %d", n)
		}
		if !strings.Contains(prompt, "[Source 1] Biology 101 | chunk 4 | similarity 0.310\nPlants convert light into energy.\n\n[Source 2]") {
			t.Errorf("unexpected context formatting:\n%s", prompt)
		}
		if !strings.Contains(prompt, DefaultPrompts.Grounded) {
			t.Error("expected grounded instruction")
		}
		if !strings.HasSuffix(prompt, "Question: Apa itu fotosintesis?") {
			t.Errorf("expected the original question at the end:\n%s", prompt)
		}
	})
	t.Run("ungrounded prompts omit context and flag the gap", func(t *testing.T) {
		prompt := Build(DefaultPrompts, "What is a cell?", chunks, Decision{OutOfContext: true})
		if strings.Contains(prompt, SourceLabel) {
			t.Error("expected no context blocks")
		}
		if !strings.Contains(prompt, DefaultPrompts.Ungrounded) {
			t.Error("expected the no relevant material note")
		}
		if !strings.HasSuffix(prompt, "Question: What is a cell?") {
			t.Errorf("expected the question at the end:\n%s", prompt)
		}
	})
}

func TestLoadPrompts(t *testing.T) {
	t.Run("no file returns the defaults", func(t *testing.T) {
		p, err := LoadPrompts("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p != DefaultPrompts {
			t.Error("expected default prompts")
		}
	})
	t.Run("fields in the file override the defaults", func(t *testing.T) {
		name := filepath.Join(t.TempDir(), "prompts.yaml")
		if err := os.WriteFile(name, []byte("system: You are a physics tutor.\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		p, err := LoadPrompts(name)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.System != "You are a physics tutor." {
			t.Errorf("unexpected system prompt %q", p.System)
		}
		if p.Grounded != DefaultPrompts.Grounded {
			t.Error("expected grounded prompt to keep its default")
		}
	})
	t.Run("missing files are an error", func(t *testing.T) {
		if _, err := LoadPrompts(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Error("expected an error")
		}
	})
}
