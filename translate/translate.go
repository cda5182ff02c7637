package translate

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/a-h/ragtutor/metrics"
	"github.com/tmc/langchaingo/llms"
)

// markers are common Indonesian function words. Their presence suggests the
// question should be translated before it's used as a retrieval query.
var markers = []string{
	" itu ",
	" apa ",
	" yang ",
	" dan ",
	" adalah ",
	" bagaimana ",
	" mengapa ",
	" kenapa ",
	" dengan ",
	" untuk ",
	" dari ",
	" jelaskan ",
}

// NeedsTranslation reports whether the text looks like it's written in
// Indonesian rather than English.
func NeedsTranslation(text string) bool {
	padded := " " + strings.ToLower(text) + " "
	for _, m := range markers {
		if strings.Contains(padded, m) {
			return true
		}
	}
	return false
}

const DefaultInstruction = `Translate the following text into English. Keep code, technical terms and proper nouns exactly as written. Reply with the translation only.

Text:
`

func New(log *slog.Logger, llm llms.Model, cache Cache) *Translator {
	return &Translator{
		log:         log,
		llm:         llm,
		cache:       cache,
		Instruction: DefaultInstruction,
		Timeout:     15 * time.Second,
	}
}

// Translator turns a question into the text used for retrieval.
type Translator struct {
	log         *slog.Logger
	llm         llms.Model
	cache       Cache
	Instruction string
	Timeout     time.Duration
}

// Query returns the retrieval query for the question. It never fails: if
// translation isn't needed, or doesn't work, the question is returned as-is.
func (t *Translator) Query(ctx context.Context, question string) string {
	if t == nil || t.llm == nil || !NeedsTranslation(question) {
		return question
	}
	if t.cache != nil {
		if cached, ok := t.cache.Get(ctx, question); ok {
			metrics.TranslationCache.WithLabelValues("hit").Inc()
			return cached
		}
		metrics.TranslationCache.WithLabelValues("miss").Inc()
	}

	ctx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()
	translated, err := llms.GenerateFromSinglePrompt(ctx, t.llm, t.Instruction+question, llms.WithTemperature(0))
	if err != nil {
		t.log.Warn("translation failed, using original question", slog.Any("error", err))
		return question
	}
	translated = strings.TrimSpace(translated)
	if translated == "" {
		t.log.Warn("translation was empty, using original question")
		return question
	}
	if t.cache != nil {
		t.cache.Set(ctx, question, translated)
	}
	t.log.Debug("translated query", slog.String("query", translated))
	return translated
}
