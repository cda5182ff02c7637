package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/a-h/ragtutor/client"
	"github.com/a-h/ragtutor/models"
	"github.com/muesli/reflow/wordwrap"
)

type AskCommand struct {
	RAGServerURL    string `help:"The URL of the tutoring server." env:"RAG_SERVER_URL" default:"http://localhost:9020"`
	RAGServerAPIKey string `help:"The API key for the tutoring server. Without it, the question isn't saved." env:"RAG_SERVER_API_KEY" default:""`
	Question        string `arg:"" help:"The question to ask."`
	SessionID       string `help:"The chat session to add the question to." default:""`
	Document        string `help:"Only use this document to answer the question." default:""`
	JSON            bool   `help:"Print the full JSON response." default:"false"`
	LogLevel        string `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

func (c AskCommand) Run(ctx context.Context) (err error) {
	rsc := client.New(c.RAGServerURL, c.RAGServerAPIKey)
	resp, err := rsc.ChatPost(ctx, models.ChatPostRequest{
		Question:       c.Question,
		SessionID:      c.SessionID,
		FilterDocument: c.Document,
	})
	if err != nil {
		return fmt.Errorf("failed to ask question: %w", err)
	}
	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	return printAnswer(os.Stdout, resp)
}

func printAnswer(w io.Writer, resp models.ChatPostResponse) (err error) {
	if _, err = fmt.Fprintln(w, wordwrap.String(resp.Answer, 80)); err != nil {
		return err
	}
	if resp.OutOfContext {
		_, err = fmt.Fprintln(w, "\nNo matching course material was found for this question.")
		return err
	}
	if _, err = fmt.Fprintln(w, "\nSources:"); err != nil {
		return err
	}
	for i, c := range resp.Sources {
		if _, err = fmt.Fprintf(w, "  [%d] %s (chunk %d, similarity %.3f)\n", i+1, c.DocumentTitle, c.ChunkIndex, c.Similarity); err != nil {
			return err
		}
	}
	if resp.Saved != nil {
		_, err = fmt.Fprintf(w, "\nSession: %s\n", *resp.Saved)
	}
	return err
}
