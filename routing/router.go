package routing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"citychat/models"
	"citychat/providers"
)

// DefaultSystemPrompt is sent as the system turn of every upstream request.
const DefaultSystemPrompt = "You are a helpful assistant specializing in Bangalore city information. " +
	"Provide relevant and helpful information about Bangalore including tourist spots, local cuisine, " +
	"tech parks, transportation, neighborhoods, education, events, and festivals. " +
	"Keep responses concise and informative."

// Params are the sampling parameters sent with each completion request.
type Params struct {
	Temperature      float64 `json:"temperature" yaml:"temperature" toml:"temperature"`
	MaxTokens        int     `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`
	TopP             float64 `json:"top_p" yaml:"top_p" toml:"top_p"`
	FrequencyPenalty float64 `json:"frequency_penalty" yaml:"frequency_penalty" toml:"frequency_penalty"`
	PresencePenalty  float64 `json:"presence_penalty" yaml:"presence_penalty" toml:"presence_penalty"`
}

// DefaultParams returns the stock sampling parameters.
func DefaultParams() Params {
	return Params{
		Temperature: 0.7,
		MaxTokens:   1500,
		TopP:        0.9,
	}
}

// Router walks the model roster until one model produces a usable reply.
// The index of the last model that succeeded is remembered and used as the
// starting point for the next request.
type Router struct {
	roster   *models.Roster
	provider providers.Provider
	prompt   string
	params   Params

	// cursor is shared by every request; last writer wins.
	cursor atomic.Int64
	stats  *Stats
}

// Option configures a Router.
type Option func(*Router)

// WithSystemPrompt overrides DefaultSystemPrompt.
func WithSystemPrompt(prompt string) Option {
	return func(r *Router) {
		if prompt != "" {
			r.prompt = prompt
		}
	}
}

// WithParams overrides DefaultParams.
func WithParams(p Params) Option {
	return func(r *Router) {
		r.params = p
	}
}

// NewRouter creates a router over roster that sends requests through provider.
func NewRouter(roster *models.Roster, provider providers.Provider, opts ...Option) *Router {
	r := &Router{
		roster:   roster,
		provider: provider,
		prompt:   DefaultSystemPrompt,
		params:   DefaultParams(),
		stats:    NewStats(roster.IDs()),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Result is a successful completion.
type Result struct {
	Content  string
	Model    string
	Index    int
	Attempts int
	Usage    providers.Usage
}

// Cursor returns the roster index the next request will start at.
func (r *Router) Cursor() int {
	return int(r.cursor.Load())
}

// Roster returns the roster the router rotates over.
func (r *Router) Roster() *models.Roster {
	return r.roster
}

// Stats returns the per-model counters.
func (r *Router) Stats() *Stats {
	return r.stats
}

// SystemPrompt returns the system instruction sent upstream.
func (r *Router) SystemPrompt() string {
	return r.prompt
}

// Complete sends message to each model in turn, starting at the cursor, and
// returns the first usable reply. Every model is tried at most once. When all
// of them fail the cursor is left untouched and an *ExhaustedError is returned.
func (r *Router) Complete(ctx context.Context, message string) (*Result, error) {
	n := r.roster.Len()
	start := r.Cursor()

	var last error
	for attempt := 0; attempt < n; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fallback aborted after %d attempts: %w", attempt, err)
		}

		index := (start + attempt) % n
		model := r.roster.At(index)
		log.Printf("[Router] Trying model %s (%d/%d) for message: %q", model, attempt+1, n, preview(message, 50))

		resp, err := r.tryModel(ctx, model, message)
		if err != nil {
			log.Printf("[Router] %v", err)
			// an empty completion never hides an earlier failure
			if last == nil || !errors.Is(err, providers.ErrEmptyCompletion) {
				last = err
			}
			continue
		}

		r.cursor.Store(int64(index))
		log.Printf("[Router] Success with model %s", model)
		return &Result{
			Content:  resp.Content(),
			Model:    model,
			Index:    index,
			Attempts: attempt + 1,
			Usage:    resp.Usage,
		}, nil
	}

	return nil, &ExhaustedError{Attempts: n, Last: last}
}

// tryModel issues exactly one upstream request for model
func (r *Router) tryModel(ctx context.Context, model, message string) (*providers.UnifiedResponse, error) {
	req := &providers.UnifiedRequest{
		Model: model,
		Messages: []providers.Message{
			providers.NewSystemMessage(r.prompt),
			providers.NewUserMessage(message),
		},
		Temperature:      r.params.Temperature,
		MaxTokens:        r.params.MaxTokens,
		TopP:             r.params.TopP,
		FrequencyPenalty: r.params.FrequencyPenalty,
		PresencePenalty:  r.params.PresencePenalty,
	}

	start := time.Now()

	providerReq, err := r.provider.TranslateRequest(ctx, req)
	if err != nil {
		err = fmt.Errorf("failed to translate request for %s: %w", model, err)
		r.stats.RecordFailure(model, err, time.Since(start))
		return nil, err
	}

	providerResp, err := r.provider.Execute(ctx, providerReq)
	if err != nil {
		r.stats.RecordFailure(model, err, time.Since(start))
		return nil, err
	}

	unifiedResp, err := r.provider.TranslateResponse(ctx, providerResp)
	if err != nil {
		r.stats.RecordFailure(model, err, time.Since(start))
		return nil, err
	}

	r.stats.RecordSuccess(model, time.Since(start))
	return unifiedResp, nil
}

// preview returns at most n runes of s.
func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
