package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// preferredModels ranks local model families for Q&A generation; the first
// substring match against the server's model list wins.
var preferredModels = []string{
	"qwen2.5", "qwen2", "qwen",
	"llama-3.1", "llama-3", "llama-2", "llama",
	"gemma-2", "gemma",
	"mistral", "mixtral",
	"gpt",
	"instruct", "chat",
}

// ModelInfo describes a model advertised by the server.
type ModelInfo struct {
	ID string
}

// LMStudioClient talks to LM Studio (or any OpenAI-compatible local server)
// through the OpenAI SDK. The model list and selection are cached on the
// instance; Refresh discards both.
type LMStudioClient struct {
	client  *openai.Client
	log     *slog.Logger
	timeout time.Duration

	mu       sync.Mutex
	models   []ModelInfo
	selected string // empty until selected or configured
}

const defaultRequestTimeout = 120 * time.Second

// NewLMStudioClient builds a client for the given base URL. model may be
// empty, in which case the best available model is selected on first use.
func NewLMStudioClient(baseURL, apiKey, model string, log *slog.Logger, timeout time.Duration) (*LMStudioClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("llm base url required")
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	cli := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)
	return &LMStudioClient{
		client:   &cli,
		log:      log,
		timeout:  timeout,
		selected: model,
	}, nil
}

// Models returns the server's model list, fetching it once and caching.
func (c *LMStudioClient) Models(ctx context.Context) ([]ModelInfo, error) {
	c.mu.Lock()
	cached := c.models
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	page, err := c.client.Models.List(reqCtx)
	if err != nil {
		return nil, wrapTimeout(fmt.Errorf("list models: %w", err))
	}
	models := make([]ModelInfo, 0, len(page.Data))
	for _, m := range page.Data {
		models = append(models, ModelInfo{ID: m.ID})
	}

	c.mu.Lock()
	c.models = models
	c.mu.Unlock()
	return models, nil
}

// Refresh invalidates the cached model list and auto-selection so the next
// call re-queries the server.
func (c *LMStudioClient) Refresh() {
	c.mu.Lock()
	c.models = nil
	c.selected = ""
	c.mu.Unlock()
}

// Model resolves the model to use, selecting the best available one when
// none was configured.
func (c *LMStudioClient) Model(ctx context.Context) (string, error) {
	c.mu.Lock()
	selected := c.selected
	c.mu.Unlock()
	if selected != "" {
		return selected, nil
	}

	models, err := c.Models(ctx)
	if err != nil {
		return "", err
	}
	if len(models) == 0 {
		return "", fmt.Errorf("no models available on server")
	}

	selected = selectBestModel(models)
	c.mu.Lock()
	c.selected = selected
	c.mu.Unlock()
	c.log.Info("selected model", "model", selected)
	return selected, nil
}

func selectBestModel(models []ModelInfo) string {
	for _, preferred := range preferredModels {
		for _, m := range models {
			if strings.Contains(strings.ToLower(m.ID), preferred) {
				return m.ID
			}
		}
	}
	return models[0].ID
}

// Complete sends one chat-completion round trip and returns the response
// text. Repeated calls are independent; no session state is kept.
func (c *LMStudioClient) Complete(ctx context.Context, messages []Message, temperature float64, maxTokens int) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("nil llm client")
	}
	model, err := c.Model(ctx)
	if err != nil {
		return "", err
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(reqCtx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    buildMessages(messages),
		Temperature: openai.Float(temperature),
		MaxTokens:   openai.Int(int64(maxTokens)),
	})
	if err != nil {
		return "", wrapTimeout(fmt.Errorf("chat completion: %w", err))
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

func buildMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.ChatCompletionMessageParamUnion{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.String(m.Content),
					},
				},
			})
		case RoleAssistant:
			out = append(out, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Content: openai.ChatCompletionAssistantMessageParamContentUnion{
						OfString: openai.String(m.Content),
					},
				},
			})
		default:
			out = append(out, openai.ChatCompletionMessageParamUnion{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(m.Content),
					},
				},
			})
		}
	}
	return out
}

func wrapTimeout(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
