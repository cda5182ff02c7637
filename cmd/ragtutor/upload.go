package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/a-h/ragtutor/client"
	"github.com/a-h/ragtutor/models"
	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
)

type UploadCommand struct {
	RAGServerURL    string   `help:"The URL of the tutoring server." env:"RAG_SERVER_URL" default:"http://localhost:9020"`
	RAGServerAPIKey string   `help:"The API key for the tutoring server." env:"RAG_SERVER_API_KEY" required:""`
	Files           []string `arg:"" help:"PDF or text files to upload." type:"existingfile"`
	Title           string   `help:"The document title. Defaults to the file name." default:""`
	URL             string   `help:"Where students can find the original document." default:""`
	DryRun          bool     `help:"Print the extracted text instead of uploading." env:"DRY_RUN" default:"false"`
	LogLevel        string   `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

func (c UploadCommand) Run(ctx context.Context) (err error) {
	log := getLogger(c.LogLevel)
	rsc := client.New(c.RAGServerURL, c.RAGServerAPIKey)

	for _, name := range c.Files {
		text, err := loadText(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		doc := models.Document{
			Title: titleOrDefault(c.Title, name),
			URL:   c.URL,
			Text:  text,
		}
		if c.DryRun {
			log.Info("skipping upload in dry run mode", slog.String("file", name), slog.String("title", doc.Title))
			fmt.Println(text)
			continue
		}
		resp, err := rsc.DocumentsPost(ctx, models.DocumentsPostRequest{Document: doc})
		if err != nil {
			return fmt.Errorf("failed to upload %s: %w", name, err)
		}
		log.Info("document uploaded", slog.String("file", name), slog.String("id", resp.ID), slog.Bool("indexing", resp.Indexing))
		if !resp.Indexing {
			log.Warn("document was stored but not indexed, run reindex to try again", slog.String("id", resp.ID))
		}
	}
	return nil
}

func titleOrDefault(title, fileName string) string {
	if title != "" {
		return title
	}
	base := filepath.Base(fileName)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// loadText extracts the text of a PDF, or reads any other file as plain text.
func loadText(ctx context.Context, name string) (string, error) {
	f, err := os.Open(name)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var docs []schema.Document
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		fi, err := f.Stat()
		if err != nil {
			return "", err
		}
		docs, err = documentloaders.NewPDF(f, fi.Size()).Load(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to load PDF: %w", err)
		}
	} else {
		docs, err = documentloaders.NewText(f).Load(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to load text: %w", err)
		}
	}

	var sb strings.Builder
	for _, doc := range docs {
		sb.WriteString(doc.PageContent)
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String()), nil
}
