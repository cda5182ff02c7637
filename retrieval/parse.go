package retrieval

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/a-h/ragtutor/models"
)

// Parse reads a retrieval backend response into chunks.
//
// Three shapes are accepted, tried in order:
//
//  1. a bare array of chunks
//  2. {"items": [...]}
//  3. {"items": {"results": [...]}}
//
// Any other shape, or invalid JSON, yields no chunks.
func Parse(body []byte) []models.Chunk {
	chunks, _ := parse(body)
	return chunks
}

// parse is Parse, but also reports whether the body was one of the accepted shapes.
func parse(body []byte) (chunks []models.Chunk, ok bool) {
	var items []map[string]any
	if err := json.Unmarshal(body, &items); err == nil {
		return toChunks(items), true
	}
	var wrapped struct {
		Items json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil || len(wrapped.Items) == 0 {
		return nil, false
	}
	if err := json.Unmarshal(wrapped.Items, &items); err == nil {
		return toChunks(items), true
	}
	var nested struct {
		Results []map[string]any `json:"results"`
	}
	if err := json.Unmarshal(wrapped.Items, &nested); err == nil && nested.Results != nil {
		return toChunks(nested.Results), true
	}
	return nil, false
}

func toChunks(items []map[string]any) []models.Chunk {
	if len(items) == 0 {
		return nil
	}
	chunks := make([]models.Chunk, len(items))
	for i, item := range items {
		id := stringOrDefault(item["document_id"], fmt.Sprintf("doc_%d", i))
		chunks[i] = models.Chunk{
			DocumentID:    id,
			DocumentTitle: stringOrDefault(item["document_title"], id),
			ChunkIndex:    max(int(number(item["chunk_index"])), 0),
			Similarity:    number(item["similarity"]),
			Text:          firstString(item, "text", "content", "body"),
		}
	}
	return chunks
}

func stringOrDefault(v any, defaultValue string) string {
	switch v := v.(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return defaultValue
}

// number coerces JSON numbers and numeric strings, anything else is 0.
func number(v any) float64 {
	switch v := v.(type) {
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return f
	}
	return 0
}

func firstString(item map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := item[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
