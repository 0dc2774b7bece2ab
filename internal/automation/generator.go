package automation

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gpt-4o-mini"

// GenerateRequest carries everything the generator needs to draft one reply
type GenerateRequest struct {
	Tone        Tone
	CommentText string
	AuthorName  string
	Provider    string
}

// ReplyGenerator drafts reply text for an inbound comment
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, req GenerateRequest) (string, error)
}

// OpenAIGenerator drafts replies with the OpenAI chat completions API
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator creates a reply generator. An empty model falls back to
// DefaultModel.
func NewOpenAIGenerator(apiKey, model string) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is not set")
	}
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIGenerator{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

// GenerateReply implements the ReplyGenerator interface
func (g *OpenAIGenerator) GenerateReply(ctx context.Context, req GenerateRequest) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.Tone.System},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(req)},
		},
		Temperature: 0.8,
	})
	if err != nil {
		return "", fmt.Errorf("reply generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("reply generation returned no choices")
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", fmt.Errorf("reply generation returned empty text")
	}
	return reply, nil
}

func buildPrompt(req GenerateRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Platform: %s\n", req.Provider)
	if req.AuthorName != "" {
		fmt.Fprintf(&b, "Commenter: %s\n", req.AuthorName)
	}
	fmt.Fprintf(&b, "Comment: %s\n\n", req.CommentText)
	b.WriteString("Write the reply text only, with no quotation marks around it.")
	return b.String()
}
