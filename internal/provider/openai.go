package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
)

const (
	DefaultBaseURL        = "https://api.openai.com/v1"
	DefaultTimeout        = 60 * time.Second
	DefaultChatModel      = "gpt-4o-mini"
	DefaultEmbeddingModel = "text-embedding-3-small"
)

// OpenAIClient is an LLMProviderPort/EmbeddingProviderPort backed by
// any OpenAI-compatible endpoint, adapted from the teacher's
// internal/llm.Client: OrderFlow only ever needs text-in/JSON-out, so
// the vision-specific transport and image helpers are dropped.
type OpenAIClient struct {
	client       openai.Client
	defaultModel string
	embedModel   string
	priceTable   PriceTable
}

// PriceTable converts token counts to micros-of-currency cost, since
// the LLM budget gate (§4.4) tracks spend, not just call count.
type PriceTable struct {
	InputMicrosPerToken  int64
	OutputMicrosPerToken int64
}

type ClientOption func(*clientConfig)

type clientConfig struct {
	baseURL    string
	timeout    time.Duration
	chatModel  string
	embedModel string
	prices     PriceTable
}

func WithBaseURL(url string) ClientOption {
	return func(cfg *clientConfig) { cfg.baseURL = url }
}

func WithTimeout(d time.Duration) ClientOption {
	return func(cfg *clientConfig) { cfg.timeout = d }
}

func WithChatModel(m string) ClientOption {
	return func(cfg *clientConfig) { cfg.chatModel = m }
}

func WithEmbeddingModel(m string) ClientOption {
	return func(cfg *clientConfig) { cfg.embedModel = m }
}

func WithPriceTable(p PriceTable) ClientOption {
	return func(cfg *clientConfig) { cfg.prices = p }
}

func NewOpenAIClient(apiKey string, opts ...ClientOption) *OpenAIClient {
	cfg := &clientConfig{
		baseURL:    DefaultBaseURL,
		timeout:    DefaultTimeout,
		chatModel:  DefaultChatModel,
		embedModel: DefaultEmbeddingModel,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(cfg.baseURL),
		option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}),
	)

	return &OpenAIClient{client: client, defaultModel: cfg.chatModel, embedModel: cfg.embedModel, priceTable: cfg.prices}
}

func (c *OpenAIClient) Chat(ctx context.Context, req ChatRequest) (ChatResult, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.UserPrompt))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       model,
		Messages:    messages,
		MaxTokens:   param.NewOpt[int64](4096),
		Temperature: param.NewOpt[float64](0.0),
	})
	if err != nil {
		return ChatResult{}, fmt.Errorf("provider.Chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return ChatResult{}, fmt.Errorf("provider.Chat: no choices in response")
	}

	in := int(resp.Usage.PromptTokens)
	out := int(resp.Usage.CompletionTokens)
	return ChatResult{
		Text:         resp.Choices[0].Message.Content,
		InputTokens:  in,
		OutputTokens: out,
		CostMicros:   int64(in)*c.priceTable.InputMicrosPerToken + int64(out)*c.priceTable.OutputMicrosPerToken,
	}, nil
}

func (c *OpenAIClient) Embed(ctx context.Context, req EmbeddingRequest) (EmbeddingResult, error) {
	model := req.Model
	if model == "" {
		model = c.embedModel
	}

	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: model,
		Input: openai.EmbeddingNewParamsInputUnion{OfString: param.NewOpt(req.Input)},
	})
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("provider.Embed: %w", err)
	}
	if len(resp.Data) == 0 {
		return EmbeddingResult{}, fmt.Errorf("provider.Embed: no embeddings in response")
	}

	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}
	return EmbeddingResult{
		Vector:     vec,
		CostMicros: int64(resp.Usage.PromptTokens) * c.priceTable.InputMicrosPerToken,
	}, nil
}
