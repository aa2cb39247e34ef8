// Package claude provides a ploom.ModelClient backed by Anthropic's
// Messages API. Streamed output is drained to completion before returning.
package claude

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/ploom"
)

// Client is a ModelClient for Claude models.
type Client struct {
	client *anthropic.Client

	// defaultModel is the model used for every stage call.
	defaultModel string
}

// Option is a function that configures a Client.
type Option func(*Client)

// WithModel sets the Claude model identifier.
// Default: anthropic.ModelClaude3_5SonnetLatest
func WithModel(modelName string) Option {
	return func(c *Client) {
		c.defaultModel = modelName
	}
}

// New creates a new Claude-backed model client.
func New(ctx context.Context, apiKey string, options ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, goerr.New("API key is required")
	}

	client := &Client{
		defaultModel: anthropic.ModelClaude3_5SonnetLatest,
	}
	for _, option := range options {
		option(client)
	}

	newClient := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	client.client = &newClient

	return client, nil
}

// Generate runs one stage call and drains the stream to completion.
func (c *Client) Generate(ctx context.Context, req *ploom.GenerateRequest) (*ploom.GenerateResponse, error) {
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, msg := range req.Messages {
		block := anthropic.NewTextBlock(msg.Content)
		switch msg.Role {
		case ploom.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(block))
		default:
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     c.defaultModel,
		MaxTokens: int64(req.StepBudget),
		Messages:  messages,
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.SystemPrompt},
		}
	}

	stream := c.client.Messages.NewStreaming(ctx, params)
	if stream == nil {
		return nil, goerr.New("failed to create message stream")
	}

	var text strings.Builder
	for stream.Next() {
		event := stream.Current()
		if event.Type != "content_block_delta" {
			continue
		}
		deltaEvent := event.AsContentBlockDeltaEvent()
		if deltaEvent.Delta.Type == "text_delta" {
			text.WriteString(deltaEvent.Delta.AsTextContentBlockDelta().Text)
		}
	}
	if err := stream.Err(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, goerr.Wrap(err, "claude stream failed")
	}

	return &ploom.GenerateResponse{Text: text.String()}, nil
}
