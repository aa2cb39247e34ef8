// Package openai provides a ploom.ModelClient backed by the OpenAI chat
// completion API. Streamed output is drained to completion before
// returning.
package openai

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/ploom"
	"github.com/sashabaranov/go-openai"
)

// Client is a ModelClient for OpenAI models.
type Client struct {
	client       *openai.Client
	defaultModel string
}

type Option func(*Client)

// WithModel sets the model used for every stage call.
func WithModel(modelName string) Option {
	return func(c *Client) {
		c.defaultModel = modelName
	}
}

// New creates a new OpenAI-backed model client.
func New(ctx context.Context, apiKey string, options ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, goerr.New("API key is required")
	}

	client := &Client{
		defaultModel: openai.GPT4o,
	}
	for _, option := range options {
		option(client)
	}

	client.client = openai.NewClient(apiKey)

	return client, nil
}

// Generate runs one stage call and drains the stream to completion.
func (c *Client) Generate(ctx context.Context, req *ploom.GenerateRequest) (*ploom.GenerateResponse, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	for _, msg := range req.Messages {
		role := openai.ChatMessageRoleUser
		if msg.Role == ploom.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}

	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:     c.defaultModel,
		MaxTokens: req.StepBudget,
		Messages:  messages,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, goerr.Wrap(err, "failed to create chat completion stream")
	}
	defer stream.Close()

	var text, reasoning strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, goerr.Wrap(err, "openai stream failed")
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta
		text.WriteString(delta.Content)
		reasoning.WriteString(delta.ReasoningContent)
	}

	return &ploom.GenerateResponse{
		Text:      text.String(),
		Reasoning: reasoning.String(),
	}, nil
}
