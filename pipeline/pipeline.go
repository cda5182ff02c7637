package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/ragtutor/grounding"
	"github.com/a-h/ragtutor/metrics"
	"github.com/a-h/ragtutor/models"
	"github.com/a-h/ragtutor/transcript"
	"github.com/tmc/langchaingo/llms"
)

var (
	ErrEmptyQuestion    = errors.New("pipeline: question is empty")
	ErrGenerationFailed = errors.New("pipeline: generation failed")
)

const (
	DefaultK         = 5
	DefaultTopChunks = 3
)

type Translator interface {
	Query(ctx context.Context, question string) string
}

type Retriever interface {
	Search(ctx context.Context, query string, k int, filterDocument string) []models.Chunk
}

type Documents interface {
	Lookup(ctx context.Context, id string) (doc models.Document, ok bool)
}

type Recorder interface {
	Resolve(ctx context.Context, user, sessionID string) (t transcript.Target, err error)
	Save(ctx context.Context, t transcript.Target, question, answer string, metadata any) (sessionID string)
}

type Config struct {
	K           int
	Threshold   float64
	Prompts     grounding.Prompts
	Temperature float64
	MaxTokens   int
}

func DefaultConfig() Config {
	return Config{
		K:           DefaultK,
		Threshold:   grounding.DefaultThreshold,
		Prompts:     grounding.DefaultPrompts,
		Temperature: 0.2,
		MaxTokens:   1024,
	}
}

func New(log *slog.Logger, config Config, translator Translator, retriever Retriever, documents Documents, llm llms.Model, recorder Recorder) *Pipeline {
	if config.K <= 0 {
		config.K = DefaultK
	}
	return &Pipeline{
		log:        log,
		config:     config,
		translator: translator,
		retriever:  retriever,
		documents:  documents,
		llm:        llm,
		recorder:   recorder,
	}
}

// Pipeline answers a student's question from their course documents.
type Pipeline struct {
	log        *slog.Logger
	config     Config
	translator Translator
	retriever  Retriever
	documents  Documents
	llm        llms.Model
	recorder   Recorder
}

type Request struct {
	// User is empty for anonymous callers.
	User           string
	Question       string
	SessionID      string
	FilterDocument string
}

func (p *Pipeline) Answer(ctx context.Context, req Request) (resp models.ChatPostResponse, err error) {
	if strings.TrimSpace(req.Question) == "" {
		return resp, ErrEmptyQuestion
	}
	target, err := p.recorder.Resolve(ctx, req.User, req.SessionID)
	if err != nil {
		return resp, err
	}

	cr := p.retrieve(ctx, req.Question, req.FilterDocument, p.config.K)
	d := grounding.Decision{HasContext: cr.HasContext, OutOfContext: cr.OutOfContext}
	prompt := grounding.Build(p.config.Prompts, req.Question, cr.Results, d)

	start := time.Now()
	answer, err := llms.GenerateFromSinglePrompt(ctx, p.llm, prompt,
		llms.WithTemperature(p.config.Temperature),
		llms.WithMaxTokens(p.config.MaxTokens))
	metrics.PipelineDuration.WithLabelValues("generate").Observe(time.Since(start).Seconds())
	if err != nil {
		return resp, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	metrics.Answers.WithLabelValues(strconv.FormatBool(d.HasContext)).Inc()

	resp = models.ChatPostResponse{
		Answer:       answer,
		Query:        cr.Query,
		Sources:      cr.Results,
		TopChunks:    cr.Results[:min(len(cr.Results), DefaultTopChunks)],
		HasContext:   d.HasContext,
		OutOfContext: d.OutOfContext,
	}
	// Sessions are only written once there is an answer to save in them.
	sessionID := p.recorder.Save(ctx, target, req.Question, answer, newMetadata(resp))
	if sessionID != "" {
		resp.Saved = &sessionID
	}
	p.log.Info("answered question",
		slog.String("query", cr.Query),
		slog.Int("chunks", len(cr.Results)),
		slog.Bool("hasContext", d.HasContext),
		slog.String("sessionID", sessionID))
	return resp, nil
}

// Context runs retrieval and grounding without generating an answer.
func (p *Pipeline) Context(ctx context.Context, question, filterDocument string, k int) (resp models.ContextPostResponse, err error) {
	if strings.TrimSpace(question) == "" {
		return resp, ErrEmptyQuestion
	}
	if k <= 0 {
		k = p.config.K
	}
	return p.retrieve(ctx, question, filterDocument, k), nil
}

func (p *Pipeline) retrieve(ctx context.Context, question, filterDocument string, k int) (resp models.ContextPostResponse) {
	start := time.Now()
	query := p.translator.Query(ctx, question)
	metrics.PipelineDuration.WithLabelValues("translate").Observe(time.Since(start).Seconds())

	start = time.Now()
	chunks := p.retriever.Search(ctx, query, k, filterDocument)
	metrics.PipelineDuration.WithLabelValues("retrieve").Observe(time.Since(start).Seconds())
	if chunks == nil {
		chunks = []models.Chunk{}
	}
	p.enrich(ctx, chunks)

	d := grounding.Decide(chunks, p.config.Threshold)
	return models.ContextPostResponse{
		Query:        query,
		Results:      chunks,
		HasContext:   d.HasContext,
		OutOfContext: d.OutOfContext,
	}
}

// enrich replaces defaulted titles with the document record's title, and adds
// the document URL. Lookups that fail leave the chunk as it is.
func (p *Pipeline) enrich(ctx context.Context, chunks []models.Chunk) {
	if p.documents == nil {
		return
	}
	type lookup struct {
		doc models.Document
		ok  bool
	}
	found := make(map[string]lookup)
	for i := range chunks {
		c := &chunks[i]
		l, seen := found[c.DocumentID]
		if !seen {
			l.doc, l.ok = p.documents.Lookup(ctx, c.DocumentID)
			found[c.DocumentID] = l
		}
		if !l.ok {
			continue
		}
		if (c.DocumentTitle == "" || c.DocumentTitle == c.DocumentID) && l.doc.Title != "" {
			c.DocumentTitle = l.doc.Title
		}
		if c.URL == "" {
			c.URL = l.doc.URL
		}
	}
}

type sourceMetadata struct {
	DocumentID    string  `json:"document_id"`
	DocumentTitle string  `json:"document_title"`
	ChunkIndex    int     `json:"chunk_index"`
	Similarity    float64 `json:"similarity"`
}

type metadata struct {
	Query        string           `json:"query"`
	HasContext   bool             `json:"has_context"`
	OutOfContext bool             `json:"out_of_context"`
	Sources      []sourceMetadata `json:"sources"`
}

func newMetadata(resp models.ChatPostResponse) metadata {
	m := metadata{
		Query:        resp.Query,
		HasContext:   resp.HasContext,
		OutOfContext: resp.OutOfContext,
		Sources:      make([]sourceMetadata, len(resp.Sources)),
	}
	for i, c := range resp.Sources {
		m.Sources[i] = sourceMetadata{
			DocumentID:    c.DocumentID,
			DocumentTitle: c.DocumentTitle,
			ChunkIndex:    c.ChunkIndex,
			Similarity:    c.Similarity,
		}
	}
	return m
}
