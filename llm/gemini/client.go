// Package gemini provides a ploom.ModelClient backed by Gemini models,
// through either the Gemini API or the Vertex AI backend. Streamed output
// is drained to completion before returning.
package gemini

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/ploom"
	"google.golang.org/genai"
)

const defaultModel = "gemini-2.0-flash"

// Client is a ModelClient for Gemini models.
type Client struct {
	client *genai.Client

	defaultModel string

	// Vertex AI backend configuration. When projectID is set the client
	// talks to Vertex AI instead of the Gemini API.
	projectID string
	location  string
}

type Option func(*Client)

// WithModel sets the model used for every stage call.
func WithModel(modelName string) Option {
	return func(c *Client) {
		c.defaultModel = modelName
	}
}

// WithVertexAI routes calls through the Vertex AI backend of the given
// project and location.
func WithVertexAI(projectID, location string) Option {
	return func(c *Client) {
		c.projectID = projectID
		c.location = location
	}
}

// New creates a new Gemini-backed model client. Without WithVertexAI the
// client uses the Gemini API with credentials from the environment.
func New(ctx context.Context, options ...Option) (*Client, error) {
	client := &Client{
		defaultModel: defaultModel,
	}
	for _, option := range options {
		option(client)
	}

	config := &genai.ClientConfig{}
	if client.projectID != "" {
		config.Project = client.projectID
		config.Location = client.location
		config.Backend = genai.BackendVertexAI
	}

	newClient, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Gemini client")
	}
	client.client = newClient

	return client, nil
}

// Generate runs one stage call and drains the stream to completion.
func (c *Client) Generate(ctx context.Context, req *ploom.GenerateRequest) (*ploom.GenerateResponse, error) {
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, msg := range req.Messages {
		role := "user"
		if msg.Role == ploom.RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(req.StepBudget),
	}
	if req.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		}
	}

	var text, reasoning strings.Builder
	for resp, err := range c.client.Models.GenerateContentStream(ctx, c.defaultModel, contents, config) {
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, goerr.Wrap(err, "gemini stream failed")
		}
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text == "" {
					continue
				}
				if part.Thought {
					reasoning.WriteString(part.Text)
				} else {
					text.WriteString(part.Text)
				}
			}
		}
	}

	return &ploom.GenerateResponse{
		Text:      text.String(),
		Reasoning: reasoning.String(),
	}, nil
}
