package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/a-h/ragtutor/documents"
	"github.com/pluja/pocketbase"
)

type ReindexCommand struct {
	PocketbaseURL        string        `help:"The URL of the Pocketbase server that stores document records." env:"POCKETBASE_URL" required:""`
	PocketbaseCollection string        `help:"The Pocketbase collection of document records." env:"POCKETBASE_COLLECTION" default:"documents"`
	IndexerURL           string        `help:"The index endpoint of the RAG worker." env:"INDEXER_URL" required:""`
	IndexerTimeout       time.Duration `help:"The timeout for each indexing request." env:"INDEXER_TIMEOUT" default:"30s"`
	ID                   string        `help:"The ID of the document to reindex if you just want to reindex a single doc." env:"ID" default:""`
	DryRun               bool          `help:"List the documents without sending them to the indexer." env:"DRY_RUN" default:"false"`
	LogLevel             string        `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

func (c ReindexCommand) Run(ctx context.Context) (err error) {
	log := getLogger(c.LogLevel)
	store := documents.NewStore(log, pocketbase.NewClient(c.PocketbaseURL), c.PocketbaseCollection)
	indexer := documents.NewIndexer(log, c.IndexerURL, c.IndexerTimeout)

	var indexed, failed int
	for doc, err := range store.All(ctx) {
		if err != nil {
			return err
		}
		if c.ID != "" && doc.ID != c.ID {
			continue
		}
		if c.DryRun {
			log.Info("skipping document in dry run mode", slog.String("id", doc.ID), slog.String("title", doc.Title))
			continue
		}
		if err := indexer.Index(ctx, doc); err != nil {
			log.Error("failed to index document", slog.String("id", doc.ID), slog.Any("error", err))
			failed++
			continue
		}
		indexed++
	}
	log.Info("reindex complete", slog.Int("indexed", indexed), slog.Int("failed", failed))
	if failed > 0 {
		return fmt.Errorf("%d documents failed to index", failed)
	}
	return nil
}
