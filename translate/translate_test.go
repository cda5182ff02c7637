package translate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/tmc/langchaingo/llms"
)

type fakeLLM struct {
	reply       string
	err         error
	calls       int
	prompts     []string
	temperature float64
}

func (f *fakeLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.calls++
	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}
	f.temperature = opts.Temperature
	for _, m := range messages {
		for _, p := range m.Parts {
			if tc, ok := p.(llms.TextContent); ok {
				f.prompts = append(f.prompts, tc.Text)
			}
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestNeedsTranslation(t *testing.T) {
	tests := []struct {
		text     string
		expected bool
	}{
		{text: "Apa itu fotosintesis?", expected: true},
		{text: "APA ITU FOTOSINTESIS?", expected: true},
		{text: "Jelaskan hukum Newton", expected: true},
		{text: "What is photosynthesis?", expected: false},
		{text: "Explain the itunes API", expected: false},
		{text: "", expected: false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if actual := NeedsTranslation(tt.text); actual != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, actual)
			}
		})
	}
}

func TestQuery(t *testing.T) {
	t.Run("english questions are passed through without calling the model", func(t *testing.T) {
		llm := &fakeLLM{reply: "ignored"}
		tr := New(discard, llm, NewMemoryCache(time.Hour))
		if actual := tr.Query(context.Background(), "What is a cell?"); actual != "What is a cell?" {
			t.Errorf("unexpected query %q", actual)
		}
		if llm.calls != 0 {
			t.Errorf("expected no calls, got %d", llm.calls)
		}
	})
	t.Run("indonesian questions are translated at temperature 0", func(t *testing.T) {
		llm := &fakeLLM{reply: "  What is photosynthesis?\n", temperature: 1}
		tr := New(discard, llm, NewMemoryCache(time.Hour))
		if actual := tr.Query(context.Background(), "Apa itu fotosintesis?"); actual != "What is photosynthesis?" {
			t.Errorf("unexpected query %q", actual)
		}
		if llm.temperature != 0 {
			t.Errorf("expected temperature 0, got %v", llm.temperature)
		}
		if len(llm.prompts) != 1 || !strings.HasSuffix(llm.prompts[0], "Apa itu fotosintesis?") {
			t.Errorf("unexpected prompts %q", llm.prompts)
		}
	})
	t.Run("repeated questions are served from the cache", func(t *testing.T) {
		llm := &fakeLLM{reply: "What is photosynthesis?"}
		tr := New(discard, llm, NewMemoryCache(time.Hour))
		first := tr.Query(context.Background(), "Apa itu fotosintesis?")
		second := tr.Query(context.Background(), "Apa itu fotosintesis?")
		if first != second {
			t.Errorf("expected identical results, got %q and %q", first, second)
		}
		if llm.calls != 1 {
			t.Errorf("expected 1 call, got %d", llm.calls)
		}
	})
	t.Run("failures fall back to the original question", func(t *testing.T) {
		llm := &fakeLLM{err: errors.New("quota exceeded")}
		tr := New(discard, llm, NewMemoryCache(time.Hour))
		if actual := tr.Query(context.Background(), "Apa itu sel?"); actual != "Apa itu sel?" {
			t.Errorf("unexpected query %q", actual)
		}
	})
	t.Run("empty translations fall back and are not cached", func(t *testing.T) {
		llm := &fakeLLM{reply: "   "}
		tr := New(discard, llm, NewMemoryCache(time.Hour))
		tr.Query(context.Background(), "Apa itu sel?")
		if actual := tr.Query(context.Background(), "Apa itu sel?"); actual != "Apa itu sel?" {
			t.Errorf("unexpected query %q", actual)
		}
		if llm.calls != 2 {
			t.Errorf("expected 2 calls, got %d", llm.calls)
		}
	})
	t.Run("a nil translator returns the question", func(t *testing.T) {
		var tr *Translator
		if actual := tr.Query(context.Background(), "Apa itu sel?"); actual != "Apa itu sel?" {
			t.Errorf("unexpected query %q", actual)
		}
	})
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache(time.Hour)
	c.now = func() time.Time { return now }

	c.Set(ctx, "k", "v")
	if v, ok := c.Get(ctx, "k"); !ok || v != "v" {
		t.Fatalf("expected cached value, got %q, %v", v, ok)
	}

	now = now.Add(time.Hour)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("expected entry to have expired")
	}
	if len(c.entries) != 0 {
		t.Errorf("expected expired entry to be removed, got %d entries", len(c.entries))
	}
}

func TestRedisCache(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	c := NewRedisCache(discard, client, time.Minute)

	if _, ok := c.Get(ctx, "Apa itu sel?"); ok {
		t.Fatal("expected miss on empty cache")
	}
	c.Set(ctx, "Apa itu sel?", "What is a cell?")
	if v, ok := c.Get(ctx, "Apa itu sel?"); !ok || v != "What is a cell?" {
		t.Fatalf("expected cached value, got %q, %v", v, ok)
	}

	mr.FastForward(2 * time.Minute)
	if _, ok := c.Get(ctx, "Apa itu sel?"); ok {
		t.Error("expected entry to have expired")
	}
}

func TestRedisCacheUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	c := NewRedisCache(discard, client, time.Minute)
	c.Set(context.Background(), "k", "v")
	if _, ok := c.Get(context.Background(), "k"); ok {
		t.Error("expected a miss when redis is down")
	}
}
