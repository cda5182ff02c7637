package grounding

import (
	"fmt"
	"os"
	"strings"

	"github.com/a-h/ragtutor/models"
	"gopkg.in/yaml.v3"
)

const DefaultThreshold = 0.25

// Decision records whether retrieved context is good enough to ground an answer.
type Decision struct {
	HasContext   bool
	OutOfContext bool
}

// Decide compares the top ranked chunk against the threshold. A similarity
// equal to the threshold counts as grounded. A similarity that isn't a number
// never does.
func Decide(chunks []models.Chunk, threshold float64) Decision {
	out := len(chunks) == 0 || !(chunks[0].Similarity >= threshold)
	return Decision{
		HasContext:   !out,
		OutOfContext: out,
	}
}

type Prompts struct {
	System     string `yaml:"system"`
	Grounded   string `yaml:"grounded"`
	Ungrounded string `yaml:"ungrounded"`
}

var DefaultPrompts = Prompts{
	System: `You are a patient tutor helping a student understand their course material. Answer in the same language as the student's question. Be clear and concise, and explain any technical terms you use.`,
	Grounded: `Use only the following context from the course documents to answer the question. If the context doesn't contain the answer, say so.

Context:`,
	Ungrounded: `No relevant material was found in the course documents for this question. Answer it anyway from general knowledge, but start by telling the student that the answer is not based on their course material.`,
}

// LoadPrompts reads prompt overrides from a YAML file. Fields that are missing
// keep their default value.
func LoadPrompts(name string) (p Prompts, err error) {
	p = DefaultPrompts
	if name == "" {
		return p, nil
	}
	f, err := os.Open(name)
	if err != nil {
		return p, fmt.Errorf("failed to open prompts file: %w", err)
	}
	defer f.Close()
	if err = yaml.NewDecoder(f).Decode(&p); err != nil {
		return p, fmt.Errorf("failed to decode prompts file: %w", err)
	}
	return p, nil
}

// Build assembles the prompt sent to the generator. The question is always the
// student's original text, never the translated retrieval query.
func Build(p Prompts, question string, chunks []models.Chunk, d Decision) string {
	var sb strings.Builder
	sb.WriteString(p.System)
	sb.WriteString("\n\n")
	if d.HasContext {
		sb.WriteString(p.Grounded)
		sb.WriteString("\n\n")
		sb.WriteString(FormatChunks(chunks))
	} else {
		sb.WriteString(p.Ungrounded)
	}
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	return sb.String()
}

// SourceLabel starts every serialized context block.
const SourceLabel = "[Source "

// FormatChunks renders each chunk as a labeled block, separated by blank lines.
func FormatChunks(chunks []models.Chunk) string {
	blocks := make([]string, len(chunks))
	for i, c := range chunks {
		blocks[i] = fmt.Sprintf("%s%d] %s | chunk %d | similarity %.3f\n%s", SourceLabel, i+1, c.DocumentTitle, c.ChunkIndex, c.Similarity, c.Text)
	}
	return strings.Join(blocks, "\n\n")
}
