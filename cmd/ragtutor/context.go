package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/a-h/ragtutor/client"
	"github.com/a-h/ragtutor/models"
)

type ContextCommand struct {
	RAGServerURL    string `help:"The URL of the tutoring server." env:"RAG_SERVER_URL" default:"http://localhost:9020"`
	RAGServerAPIKey string `help:"The API key for the tutoring server." env:"RAG_SERVER_API_KEY" default:""`
	Question        string `arg:"" help:"The question to find course material for."`
	Document        string `help:"Only search this document." default:""`
	K               int    `help:"The number of chunks to return." default:"5"`
	Pretty          bool   `help:"Pretty print the JSON output." default:"true"`
	LogLevel        string `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

func (c ContextCommand) Run(ctx context.Context) (err error) {
	rsc := client.New(c.RAGServerURL, c.RAGServerAPIKey)
	resp, err := rsc.ContextPost(ctx, models.ContextPostRequest{
		Question:       c.Question,
		FilterDocument: c.Document,
		K:              c.K,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	if c.Pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(resp)
}
