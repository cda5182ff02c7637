package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/a-h/ragtutor/auth"
	"github.com/a-h/ragtutor/db"
	"github.com/a-h/ragtutor/documents"
	"github.com/a-h/ragtutor/generate"
	"github.com/a-h/ragtutor/grounding"
	chatpost "github.com/a-h/ragtutor/handlers/chat/post"
	contextpost "github.com/a-h/ragtutor/handlers/context/post"
	documentsget "github.com/a-h/ragtutor/handlers/documents/get"
	documentspost "github.com/a-h/ragtutor/handlers/documents/post"
	sessionsget "github.com/a-h/ragtutor/handlers/sessions/get"
	"github.com/a-h/ragtutor/pipeline"
	"github.com/a-h/ragtutor/retrieval"
	"github.com/a-h/ragtutor/transcript"
	"github.com/a-h/ragtutor/translate"
	"github.com/pluja/pocketbase"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

type ServeCommand struct {
	ListenAddr  string `help:"The address to listen on." env:"LISTEN_ADDR" default:"localhost:9020"`
	TLSCertFile string `help:"The TLS certificate file." env:"TLS_CERT_FILE" default:""`
	TLSKeyFile  string `help:"The TLS key file." env:"TLS_KEY_FILE" default:""`
	APIKeysFile string `help:"The file containing a JSON map of API keys to usernames. Without it, every caller is anonymous." env:"API_KEYS_FILE" default:""`

	RetrievalURL     string        `help:"The search endpoint of the RAG worker. Without it, every answer is ungrounded." env:"RETRIEVAL_URL" default:""`
	RetrievalTimeout time.Duration `help:"The timeout for retrieval requests." env:"RETRIEVAL_TIMEOUT" default:"20s"`
	IndexerURL       string        `help:"The index endpoint of the RAG worker." env:"INDEXER_URL" default:""`
	IndexerTimeout   time.Duration `help:"The timeout for indexing requests." env:"INDEXER_TIMEOUT" default:"30s"`

	PocketbaseURL        string `help:"The URL of the Pocketbase server that stores document records." env:"POCKETBASE_URL" default:""`
	PocketbaseCollection string `help:"The Pocketbase collection of document records." env:"POCKETBASE_COLLECTION" default:"documents"`
	RqliteURL            string `help:"The URL of the rqlite server that stores chat transcripts. Without it, transcripts are kept in memory." env:"RQLITE_URL" default:""`
	RedisAddr            string `help:"The address of a Redis server to share the translation cache." env:"REDIS_ADDR" default:""`

	Generator         string        `help:"The text generation backend." env:"GENERATOR" enum:"gemini,ollama" default:"gemini"`
	Model             string        `help:"The model to generate answers with." env:"MODEL" default:"gemini-1.5-flash"`
	FallbackModels    []string      `help:"Models to try, in order, if the model fails." env:"FALLBACK_MODELS" default:"gemini-1.5-flash,gemini-1.5-pro,gemini-pro,text-bison-001"`
	APIKey            string        `help:"The API key or access token for the generative language API." env:"GEMINI_API_KEY" default:""`
	GenerationURL     string        `help:"The base URL of the generative language API." env:"GENERATION_URL" default:"https://generativelanguage.googleapis.com/v1beta"`
	GenerationTimeout time.Duration `help:"The timeout for each generation attempt." env:"GENERATION_TIMEOUT" default:"30s"`
	OllamaURL         string        `help:"The URL of the Ollama server." env:"OLLAMA_URL" default:"http://127.0.0.1:11434/"`
	Temperature       float64       `help:"The sampling temperature for answers." env:"TEMPERATURE" default:"0.2"`
	MaxTokens         int           `help:"The maximum length of an answer in tokens." env:"MAX_TOKENS" default:"1024"`

	Threshold      float64       `help:"The similarity the top chunk needs for an answer to be grounded." env:"SIMILARITY_THRESHOLD" default:"0.25"`
	TopK           int           `help:"The number of chunks to retrieve." env:"TOP_K" default:"5"`
	TranslationTTL time.Duration `help:"How long translated queries are cached." env:"TRANSLATION_TTL" default:"1h"`
	PromptsFile    string        `help:"A YAML file that overrides the system, grounded and ungrounded prompts." env:"PROMPTS_FILE" default:""`

	LogLevel string `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

func (c ServeCommand) Run(ctx context.Context) (err error) {
	log := getLogger(c.LogLevel)
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	prompts, err := grounding.LoadPrompts(c.PromptsFile)
	if err != nil {
		return fmt.Errorf("failed to load prompts: %w", err)
	}

	store, closeStore, err := c.transcriptStore(log)
	if err != nil {
		return err
	}
	defer closeStore()

	llm, err := c.generator(log)
	if err != nil {
		return err
	}

	var docs *documents.Store
	var lookup pipeline.Documents
	if c.PocketbaseURL != "" {
		log.Info("using Pocketbase for document records", slog.String("url", c.PocketbaseURL))
		docs = documents.NewStore(log, pocketbase.NewClient(c.PocketbaseURL), c.PocketbaseCollection)
		lookup = docs
	}

	detached := &transcript.Detached{}
	recorder := transcript.NewRecorder(log, store, detached)
	p := pipeline.New(log,
		pipeline.Config{
			K:           c.TopK,
			Threshold:   c.Threshold,
			Prompts:     prompts,
			Temperature: c.Temperature,
			MaxTokens:   c.MaxTokens,
		},
		translate.New(log, llm, c.translationCache(ctx, log)),
		retrieval.New(log, c.RetrievalURL, c.RetrievalTimeout),
		lookup,
		llm,
		recorder)

	mux := http.NewServeMux()
	mux.Handle("POST /chat", chatpost.New(log, p))
	mux.Handle("POST /context", contextpost.New(log, p, 50))
	mux.Handle("GET /sessions/{id}", sessionsget.New(log, recorder))
	if docs != nil {
		mux.Handle("POST /documents", documentspost.New(log, docs, documents.NewIndexer(log, c.IndexerURL, c.IndexerTimeout)))
		mux.Handle("GET /documents", documentsget.New(log, docs))
	}
	mux.Handle("GET /metrics", promhttp.Handler())

	apiKeyToUserName, err := auth.LoadFromFile(c.APIKeysFile)
	if err != nil {
		return fmt.Errorf("failed to load API keys: %w", err)
	}
	authenticatedMux := auth.New(apiKeyToUserName, mux)
	withCORSAuthenticatedMux := cors.AllowAll().Handler(authenticatedMux)

	log.Info("Listening", slog.String("addr", c.ListenAddr))
	s := &http.Server{
		Addr:    c.ListenAddr,
		Handler: withCORSAuthenticatedMux,
	}
	go func() {
		<-ctx.Done()
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to shut down", slog.Any("error", err))
		}
	}()
	if c.TLSCertFile != "" && c.TLSKeyFile != "" {
		log.Info("Enabling TLS mode")
		var cert tls.Certificate
		cert, err = tls.LoadX509KeyPair(c.TLSCertFile, c.TLSKeyFile)
		if err != nil {
			return fmt.Errorf("failed to load cert: %w", err)
		}
		s.TLSConfig = &tls.Config{
			MinVersion:   tls.VersionTLS12,
			Certificates: []tls.Certificate{cert},
		}
		err = s.ListenAndServeTLS(c.TLSCertFile, c.TLSKeyFile)
	} else {
		err = s.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	// Let transcript writes that are still in flight finish.
	detached.Wait()
	return err
}

func (c ServeCommand) transcriptStore(log *slog.Logger) (store transcript.Store, closer func(), err error) {
	if c.RqliteURL == "" {
		log.Warn("no rqlite URL configured, transcripts will be lost on restart")
		return transcript.NewMemoryStore(), func() {}, nil
	}
	q, closer, err := db.Open(log, c.RqliteURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return q, closer, nil
}

func (c ServeCommand) generator(log *slog.Logger) (llms.Model, error) {
	if c.Generator == "ollama" {
		log.Info("using Ollama for generation", slog.String("url", c.OllamaURL), slog.String("model", c.Model))
		llm, err := ollama.New(
			ollama.WithModel(c.Model),
			ollama.WithHTTPClient(&http.Client{}),
			ollama.WithServerURL(c.OllamaURL))
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM: %w", err)
		}
		return llm, nil
	}
	if c.APIKey == "" {
		log.Warn("no API key configured, every generation request will fail")
	}
	return generate.New(log, c.APIKey, c.Model,
		generate.WithBaseURL(c.GenerationURL),
		generate.WithFallbacks(c.FallbackModels...),
		generate.WithTimeout(c.GenerationTimeout)), nil
}

func (c ServeCommand) translationCache(ctx context.Context, log *slog.Logger) translate.Cache {
	if c.RedisAddr == "" {
		return translate.NewMemoryCache(c.TranslationTTL)
	}
	rc := redis.NewClient(&redis.Options{Addr: c.RedisAddr})
	if err := rc.Ping(ctx).Err(); err != nil {
		log.Warn("Redis unavailable, using an in-memory translation cache", slog.Any("error", err))
		rc.Close()
		return translate.NewMemoryCache(c.TranslationTTL)
	}
	log.Info("using Redis for the translation cache", slog.String("addr", c.RedisAddr))
	return translate.NewRedisCache(log, rc, c.TranslationTTL)
}
