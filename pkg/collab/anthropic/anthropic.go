// Package anthropic implements the collab.TextService interface on the
// Anthropic Messages API. Model responses are parsed leniently: the
// model is asked for JSON, and anything unparseable degrades to an
// error the callers already know how to absorb.
package anthropic

import (
	"context"
	"fmt"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/tidwall/gjson"

	"github.com/lifedex/lifedex/pkg/collab"
)

const (
	// DefaultModel is used when the config names none.
	DefaultModel = "claude-sonnet-4-20250514"

	defaultMaxTokens = 2048
	synthesisTokens  = 4096
)

// Config holds the adapter settings.
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Service calls the Anthropic API and implements collab.TextService.
type Service struct {
	client  *sdk.Client
	model   string
	timeout time.Duration
}

// New creates a Service.
func New(cfg Config) (*Service, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: api key is required")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	client := sdk.NewClient(option.WithAPIKey(cfg.APIKey))
	return &Service{
		client:  &client,
		model:   model,
		timeout: cfg.Timeout,
	}, nil
}

// complete sends one user message under a system prompt and returns the
// concatenated text blocks of the response.
func (s *Service) complete(ctx context.Context, system, user string, maxTokens int64) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp, err := s.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(s.model),
		MaxTokens: maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(user)),
		},
		System: []sdk.TextBlockParam{
			{Text: system},
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: message call: %w", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("anthropic: empty response")
	}
	return b.String(), nil
}

// jsonBody extracts the outermost JSON object from a model reply, which
// may be wrapped in prose or a code fence.
func jsonBody(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("anthropic: no JSON object in response")
	}
	body := text[start : end+1]
	if !gjson.Valid(body) {
		return "", fmt.Errorf("anthropic: malformed JSON in response")
	}
	return body, nil
}

func stringList(v gjson.Result) []string {
	var out []string
	for _, item := range v.Array() {
		if s := item.String(); s != "" {
			out = append(out, s)
		}
	}
	return out
}

const classifySystem = `You are a taxonomy classifier for a personal profile system.
Given a memory about a person, pick the single best matching index code from the
candidate list, up to three related codes, and your confidence.
Respond with only a JSON object: {"primary_index": "...", "related_indices": [...], "confidence": 0.0}`

// Classify implements collab.TextService.
func (s *Service) Classify(ctx context.Context, req collab.ClassifyRequest) (*collab.Classification, error) {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Memory (%s, importance %d): %s\n", req.Category, req.Importance, req.Content)
	if len(req.People) > 0 {
		fmt.Fprintf(&prompt, "People: %s\n", strings.Join(req.People, ", "))
	}
	if req.Emotion != "" {
		fmt.Fprintf(&prompt, "Emotion: %s\n", req.Emotion)
	}
	prompt.WriteString("\nCandidate codes:\n")
	for _, c := range req.Candidates {
		fmt.Fprintf(&prompt, "%s %s: %s\n", c.Code, c.Name, c.Description)
	}

	text, err := s.complete(ctx, classifySystem, prompt.String(), defaultMaxTokens)
	if err != nil {
		return nil, err
	}
	body, err := jsonBody(text)
	if err != nil {
		return nil, err
	}

	primary := gjson.Get(body, "primary_index").String()
	if primary == "" {
		return nil, fmt.Errorf("anthropic: classification missing primary_index")
	}
	return &collab.Classification{
		PrimaryIndex:   primary,
		RelatedIndices: stringList(gjson.Get(body, "related_indices")),
		Confidence:     gjson.Get(body, "confidence").Float(),
	}, nil
}

const synthesizeSystem = `You are a biographer maintaining one topic document of a personal profile.
Synthesize the given memories into a coherent narrative. When prior content is provided,
update it incrementally instead of starting over.
Respond with only a JSON object:
{"title": "...", "summary": "...", "content": "...", "key_insights": [...],
 "patterns": [...], "recommendations": [...], "confidence": 0.0}
Summary is 2-3 sentences; content is 3-5 paragraphs; 3-5 key insights; 2-4 patterns; 3-5 recommendations.`

// Synthesize implements collab.TextService.
func (s *Service) Synthesize(ctx context.Context, req collab.SynthesisRequest) (*collab.SynthesisResult, error) {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Topic: %s / %s\n%s\n\nMemories:\n", req.DomainName, req.TopicName, req.Description)
	for _, m := range req.Memories {
		fmt.Fprintf(&prompt, "- [importance %d, %s] %s", m.Importance, m.CreatedAt.Format("2006-01-02"), m.Content)
		if m.Emotion != "" {
			fmt.Fprintf(&prompt, " (emotion: %s)", m.Emotion)
		}
		if len(m.People) > 0 {
			fmt.Fprintf(&prompt, " (people: %s)", strings.Join(m.People, ", "))
		}
		prompt.WriteString("\n")
	}
	if req.PriorContent != "" {
		fmt.Fprintf(&prompt, "\nPrior document content:\n%s\n", req.PriorContent)
	}

	text, err := s.complete(ctx, synthesizeSystem, prompt.String(), synthesisTokens)
	if err != nil {
		return nil, err
	}
	body, err := jsonBody(text)
	if err != nil {
		return nil, err
	}

	result := &collab.SynthesisResult{
		Title:           gjson.Get(body, "title").String(),
		Summary:         gjson.Get(body, "summary").String(),
		Content:         gjson.Get(body, "content").String(),
		KeyInsights:     stringList(gjson.Get(body, "key_insights")),
		Patterns:        stringList(gjson.Get(body, "patterns")),
		Recommendations: stringList(gjson.Get(body, "recommendations")),
		Confidence:      gjson.Get(body, "confidence").Float(),
	}
	if result.Title == "" && result.Content == "" {
		return nil, fmt.Errorf("anthropic: synthesis response missing title and content")
	}
	return result, nil
}

const compareSystem = `You compare a new memory about a person against earlier memories.
Bucket each candidate id into at most one of: supersedes (the new memory replaces it),
contradicts (they conflict but neither clearly wins), related_to (same subject, no conflict).
Omit unrelated candidates. Respond with only a JSON object:
{"supersedes": [...], "contradicts": [...], "related_to": [...]}`

// CompareMemories implements collab.TextService.
func (s *Service) CompareMemories(ctx context.Context, newMemory collab.MemorySnapshot, candidates []collab.MemorySnapshot) (*collab.Comparison, error) {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "New memory: %s\n\nCandidates:\n", newMemory.Content)
	for _, c := range candidates {
		fmt.Fprintf(&prompt, "%s: %s\n", c.ID, c.Content)
	}

	text, err := s.complete(ctx, compareSystem, prompt.String(), defaultMaxTokens)
	if err != nil {
		return nil, err
	}
	body, err := jsonBody(text)
	if err != nil {
		return nil, err
	}

	return &collab.Comparison{
		Supersedes:  stringList(gjson.Get(body, "supersedes")),
		Contradicts: stringList(gjson.Get(body, "contradicts")),
		RelatedTo:   stringList(gjson.Get(body, "related_to")),
	}, nil
}
