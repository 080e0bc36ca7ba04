// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pdiddy/paper-radar/pkg/types"
)

const (
	defaultModel     = "gpt-4o-mini"
	defaultMaxTokens = 1024
	defaultTimeout   = 60 * time.Second

	// readmeLimit caps how much README text goes into a classification
	// prompt.
	readmeLimit = 4000

	// abstractLimit caps per-paper abstract text in a summary prompt.
	abstractLimit = 1500
)

// openAIProvider talks to the OpenAI chat completions API.
type openAIProvider struct {
	client    *openai.Client
	model     string
	maxTokens int
	timeout   time.Duration
}

func newOpenAIProvider(cfg types.LLMConfig) (*openAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai provider requires an api key")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	p := &openAIProvider{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
	}
	if p.model == "" {
		p.model = defaultModel
	}
	if p.maxTokens <= 0 {
		p.maxTokens = defaultMaxTokens
	}
	if p.timeout <= 0 {
		p.timeout = defaultTimeout
	}
	return p, nil
}

func (p *openAIProvider) Name() string { return "openai" }

func (p *openAIProvider) Available() bool { return p.client != nil }

func (p *openAIProvider) complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		MaxTokens:   p.maxTokens,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

const classifySystemPrompt = `You judge whether a GitHub repository linked from a research paper contains the paper's actual code or is an empty promise. Answer with exactly one word: "present" if the repository holds a real implementation, "placeholder" if it only promises code, "inconclusive" if you cannot tell.`

func (p *openAIProvider) ClassifyRepo(ctx context.Context, signals types.RepoSignals, readme string) (types.Verdict, error) {
	answer, err := p.complete(ctx, classifySystemPrompt, buildClassifyPrompt(signals, readme))
	if err != nil {
		return types.VerdictInconclusive, err
	}
	return parseVerdict(answer)
}

func buildClassifyPrompt(signals types.RepoSignals, readme string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Top-level files: %d\n", signals.FileCount)
	fmt.Fprintf(&b, "Contains code files: %t\n", signals.HasCodeFiles)
	fmt.Fprintf(&b, "Commits after paper date: %t\n", signals.HasCommitsAfterPaper)
	if !signals.LastCommit.IsZero() {
		fmt.Fprintf(&b, "Last commit: %s\n", signals.LastCommit.Format("2006-01-02"))
	}
	b.WriteString("\nREADME:\n")
	b.WriteString(truncate(readme, readmeLimit))
	return b.String()
}

func parseVerdict(answer string) (types.Verdict, error) {
	switch strings.Trim(strings.ToLower(strings.TrimSpace(answer)), `."'`) {
	case "present":
		return types.VerdictPresent, nil
	case "placeholder":
		return types.VerdictPlaceholder, nil
	case "inconclusive":
		return types.VerdictInconclusive, nil
	}
	return types.VerdictInconclusive, fmt.Errorf("unexpected classification answer %q", answer)
}

const summarizeSystemPrompt = `You summarize research papers for a conference round-up site. For each paper, write one plain-language sentence of at most 40 words stating what the paper does. Respond with a JSON object mapping each paper's key to its summary, and nothing else.`

func (p *openAIProvider) SummarizeBatch(ctx context.Context, papers []*types.CanonicalPaper) (map[string]string, error) {
	if len(papers) == 0 {
		return map[string]string{}, nil
	}

	answer, err := p.complete(ctx, summarizeSystemPrompt, buildSummaryPrompt(papers))
	if err != nil {
		return nil, err
	}

	var summaries map[string]string
	if err := json.Unmarshal([]byte(stripFences(answer)), &summaries); err != nil {
		return nil, fmt.Errorf("parsing summary response: %w", err)
	}

	// Drop keys the model invented.
	known := make(map[string]bool, len(papers))
	for _, paper := range papers {
		known[paper.PaperKey] = true
	}
	for key := range summaries {
		if !known[key] {
			delete(summaries, key)
		}
	}
	return summaries, nil
}

func buildSummaryPrompt(papers []*types.CanonicalPaper) string {
	var b strings.Builder
	for i, paper := range papers {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		fmt.Fprintf(&b, "Key: %s\nTitle: %s\n", paper.PaperKey, paper.Title)
		if paper.Abstract != "" {
			fmt.Fprintf(&b, "Abstract: %s\n", truncate(paper.Abstract, abstractLimit))
		}
	}
	return b.String()
}

// stripFences removes a markdown code fence wrapper, which chat models
// add around JSON despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
