package documents

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/a-h/ragtutor/models"
	"github.com/pluja/pocketbase"
)

const DefaultCollection = "documents"

func NewStore(log *slog.Logger, client *pocketbase.Client, collection string) *Store {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{
		log:        log,
		client:     client,
		collection: collection,
		PageSize:   50,
	}
}

// Store keeps document records in a PocketBase collection. Each record has
// an owner, title, url and text field.
type Store struct {
	log        *slog.Logger
	client     *pocketbase.Client
	collection string
	PageSize   int
}

// Lookup returns the document record. Any failure is treated as not found.
func (s *Store) Lookup(ctx context.Context, id string) (doc models.Document, ok bool) {
	if s == nil || s.client == nil || id == "" {
		return doc, false
	}
	item, err := s.client.One(s.collection, id)
	if err != nil {
		s.log.Debug("document lookup failed", slog.String("id", id), slog.Any("error", err))
		return doc, false
	}
	return toDocument(item), true
}

func (s *Store) Create(ctx context.Context, owner string, doc models.Document) (id string, err error) {
	resp, err := s.client.Create(s.collection, map[string]any{
		"owner": owner,
		"title": doc.Title,
		"url":   doc.URL,
		"text":  doc.Text,
	})
	if err != nil {
		return "", fmt.Errorf("documents: create failed: %w", err)
	}
	return resp.ID, nil
}

// List returns the owner's documents, newest first. Text is omitted.
func (s *Store) List(ctx context.Context, owner string) (docs []models.Document, err error) {
	var page int
	for {
		if ctx.Err() != nil {
			return docs, ctx.Err()
		}
		page++
		response, err := s.client.List(s.collection, pocketbase.ParamsList{
			Page:    page,
			Size:    s.PageSize,
			Sort:    "-created",
			Filters: ownerFilter(owner),
		})
		if err != nil {
			return docs, fmt.Errorf("documents: list failed: %w", err)
		}
		for _, item := range response.Items {
			doc := toDocument(item)
			doc.Text = ""
			docs = append(docs, doc)
		}
		if len(response.Items) < s.PageSize {
			return docs, nil
		}
	}
}

// All iterates over every document in the collection, including its text.
// An error is yielded once, and ends the iteration.
func (s *Store) All(ctx context.Context) iter.Seq2[models.Document, error] {
	return func(yield func(models.Document, error) bool) {
		var page int
		for {
			if ctx.Err() != nil {
				yield(models.Document{}, ctx.Err())
				return
			}
			page++
			response, err := s.client.List(s.collection, pocketbase.ParamsList{
				Page: page,
				Size: s.PageSize,
				Sort: "created",
			})
			if err != nil {
				yield(models.Document{}, fmt.Errorf("documents: list failed: %w", err))
				return
			}
			for _, item := range response.Items {
				if !yield(toDocument(item), nil) {
					return
				}
			}
			if len(response.Items) < s.PageSize {
				return
			}
		}
	}
}

func ownerFilter(owner string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return fmt.Sprintf("owner='%s'", r.Replace(owner))
}

func toDocument(item map[string]any) models.Document {
	id := useItemOrDefault(item, []string{"id"}, "")
	return models.Document{
		ID:    id,
		URL:   useItemOrDefault(item, []string{"url"}, ""),
		Title: useItemOrDefault(item, []string{"title", "name"}, id),
		Text:  useItemOrDefault(item, []string{"text"}, ""),
	}
}

func useItemOrDefault(item map[string]any, keys []string, defaultValue string) string {
	for _, key := range keys {
		if value, ok := item[key].(string); ok && value != "" {
			return value
		}
	}
	return defaultValue
}
