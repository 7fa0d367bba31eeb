// Package tags is the engine's Tagging Service collaborator: it derives short
// finance tags from a definition's note via a chat-completion model, degrading
// to deterministic fallbacks when the model is unavailable.
package tags

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"

	"budgetwise/internal/core"
)

const maxTags = 5

const prompt = `Extract 3-5 relevant, concise personal finance tags (single words or short phrases, no duplicates) for this expense note: "%s". Output only the tags, comma-separated, without any additional text.`

type Extractor struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// New builds an extractor. An empty API key yields an offline extractor that
// only produces word-based fallback tags.
func New(apiKey, model string, timeout time.Duration) *Extractor {
	var client *openai.Client
	if apiKey != "" {
		client = openai.NewClient(apiKey)
	}
	return &Extractor{client: client, model: model, timeout: timeout}
}

// ExtractTags returns up to five short lowercase tags for a note. It never
// fails hard: short input yields the note itself as a single tag, comma-less
// model output or a missing backend yields the first note words, and a model
// error yields no tags so the caller can retry on a later occurrence.
func (e *Extractor) ExtractTags(ctx context.Context, note string) ([]string, error) {
	trimmed := strings.TrimSpace(note)
	if trimmed == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(trimmed) < 5 {
		return core.NormalizeTags([]string{trimmed}, maxTags), nil
	}
	if e == nil || e.client == nil {
		return fallbackTags(trimmed), nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(prompt, trimmed)},
		},
		MaxTokens: 50,
	})
	if err != nil {
		slog.WarnContext(ctx, "Tag extraction failed", "error", err)
		return nil, nil
	}

	var content string
	if len(resp.Choices) > 0 {
		content = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	return ParseTagList(trimmed, content), nil
}

// ParseTagList turns raw model output into normalized tags. Output without a
// comma is treated as unusable and replaced by the note's first words.
func ParseTagList(note, content string) []string {
	if !strings.Contains(content, ",") {
		return fallbackTags(note)
	}
	return core.NormalizeTags(strings.Split(content, ","), maxTags)
}

func fallbackTags(note string) []string {
	words := strings.Fields(note)
	if len(words) > 3 {
		words = words[:3]
	}
	return core.NormalizeTags(words, maxTags)
}
