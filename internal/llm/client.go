package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/skn-ai14-250409/SKN14-3rd-3Team/internal/config"
)

// Message is a role-tagged chat message. Roles are "system", "user" and
// "assistant".
type Message struct {
	Role    string
	Content string
}

// Options tunes a single chat call.
type Options struct {
	JSONMode    bool
	Temperature float64
	MaxTokens   int
}

// Client wraps an OpenAI-compatible chat model and its embedding model.
// Both the query analyzer and the answer synthesizer go through Chat; the
// ingestor and retriever go through CreateEmbedding.
type Client struct {
	model *openai.LLM
}

// New creates a Client from the OpenAI configuration.
func New(cfg config.OpenAIConfig) (*Client, error) {
	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.ChatModel),
		openai.WithEmbeddingModel(cfg.EmbedModel),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("initializing openai client: %w", err)
	}
	return &Client{model: model}, nil
}

// Chat sends the messages to the chat model and returns the assistant's
// response text. A failure here is a generation failure: it is returned to
// the caller unretried.
func (c *Client) Chat(ctx context.Context, messages []Message, opts Options) (string, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		content = append(content, llms.TextParts(messageType(m.Role), m.Content))
	}

	callOpts := []llms.CallOption{}
	if opts.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(opts.Temperature))
	}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}
	if opts.JSONMode {
		callOpts = append(callOpts, llms.WithJSONMode())
	}

	resp, err := c.model.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Content, nil
}

// CreateEmbedding returns one embedding vector per input text.
func (c *Client) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := c.model.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("creating embeddings: %w", err)
	}
	return vecs, nil
}

func messageType(role string) llms.ChatMessageType {
	switch role {
	case "system":
		return llms.ChatMessageTypeSystem
	case "assistant":
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
