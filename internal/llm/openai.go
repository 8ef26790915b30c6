// Package llm wraps the chat completion API used by the workout generator.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// ErrEmptyReply is returned when the API answers without any choice.
var ErrEmptyReply = errors.New("completion returned no choices")

// Request is one system + user exchange.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int64
}

// Completer returns the raw text of a single completion.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Options configures the OpenAI client. BaseURL may point at any
// OpenAI-compatible endpoint.
type Options struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAICompleter implements Completer with openai-go.
type OpenAICompleter struct {
	client openai.Client
	model  openai.ChatModel
}

// NewOpenAICompleter builds a client with retries disabled: a failed call is
// answered by the caller's fallback, never repeated.
func NewOpenAICompleter(opts Options) *OpenAICompleter {
	clientOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	model := opts.Model
	if model == "" {
		model = string(openai.ChatModelGPT3_5Turbo)
	}
	return &OpenAICompleter{
		client: openai.NewClient(clientOpts...),
		model:  openai.ChatModel(model),
	}
}

func (c *OpenAICompleter) Complete(ctx context.Context, req Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(req.MaxTokens)
	}

	chat, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(chat.Choices) == 0 {
		return "", ErrEmptyReply
	}
	return chat.Choices[0].Message.Content, nil
}
