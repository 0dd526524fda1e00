// Package gemini provides a thin generation client over the Gemini API.
package gemini

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"
)

// Message is one role-tagged entry of the conversation history sent to the model.
type Message struct {
	Role string // "user", "assistant" or "system"
	Text string
}

// Config configures the Gemini client.
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client wraps the genai SDK for single-shot chat completions.
type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewClient creates a new Gemini generation client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key not configured")
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Client{
		client:  client,
		model:   model,
		timeout: timeout,
	}, nil
}

// Generate sends the message history to the model and returns the raw text output.
// System entries are folded into the system instruction; the rest become the
// alternating chat history.
func (c *Client) Generate(ctx context.Context, messages []Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var system string
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			if system != "" {
				system += "\n\n"
			}
			system += msg.Text
		case "assistant":
			contents = append(contents, &genai.Content{
				Role:  "model",
				Parts: []*genai.Part{{Text: msg.Text}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{{Text: msg.Text}},
			})
		}
	}

	genConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.2),
	}
	if system != "" {
		genConfig.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, genConfig)
	if err != nil {
		return "", fmt.Errorf("generation request failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("generation returned empty output")
	}

	return text, nil
}
