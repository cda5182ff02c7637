package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
)

type CLI struct {
	Serve   ServeCommand   `cmd:"serve" help:"Start the tutoring server."`
	Ask     AskCommand     `cmd:"ask" help:"Ask the tutor a question."`
	Context ContextCommand `cmd:"context" help:"Show the course material that would be used to answer a question."`
	Chat    ChatCommand    `cmd:"chat" help:"Chat with the tutor."`
	Upload  UploadCommand  `cmd:"upload" help:"Upload PDF or text files as course documents."`
	Reindex ReindexCommand `cmd:"reindex" help:"Send every stored document to the indexer again."`
	History HistoryCommand `cmd:"history" help:"Print the transcript of a chat session."`
	Version VersionCommand `cmd:"version" help:"Print the version of the tutoring server."`
}

func main() {
	var cli CLI
	ctx := context.Background()
	kctx := kong.Parse(&cli, kong.UsageOnError(), kong.BindTo(ctx, (*context.Context)(nil)))
	if err := kctx.Run(); err != nil {
		log := getLogger("error")
		log.Error("error", slog.Any("error", err))
		os.Exit(1)
	}
}

func getLogger(level string) *slog.Logger {
	ll := slog.LevelInfo
	switch level {
	case "debug":
		ll = slog.LevelDebug
	case "info":
		ll = slog.LevelInfo
	case "warn":
		ll = slog.LevelWarn
	case "error":
		ll = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: ll,
	}))
}
