package main

import (
	"context"
	"fmt"
	"os"

	"github.com/a-h/ragtutor/client"
	"github.com/muesli/reflow/wordwrap"
)

type HistoryCommand struct {
	RAGServerURL    string `help:"The URL of the tutoring server." env:"RAG_SERVER_URL" default:"http://localhost:9020"`
	RAGServerAPIKey string `help:"The API key for the tutoring server." env:"RAG_SERVER_API_KEY" required:""`
	SessionID       string `arg:"" help:"The chat session to print."`
	LogLevel        string `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

func (c HistoryCommand) Run(ctx context.Context) (err error) {
	rsc := client.New(c.RAGServerURL, c.RAGServerAPIKey)
	resp, err := rsc.SessionGet(ctx, c.SessionID)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	for _, m := range resp.Messages {
		fmt.Fprintf(os.Stdout, "%s [%s]\n%s\n\n", m.Role, m.CreatedAt.Format("2006-01-02 15:04:05"), wordwrap.String(m.Content, 80))
	}
	return nil
}
