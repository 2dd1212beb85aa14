// Package ai wraps the hosted language model used to write activity and review summaries.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	openai "github.com/sashabaranov/go-openai"

	"github.com/liamchampton/write-my-performance-review/internal/domain"
	"github.com/liamchampton/write-my-performance-review/internal/observability"
)

var (
	// ErrNotConfigured is returned by NewClient when endpoint or key is missing.
	ErrNotConfigured = errors.New("ai collaborator not configured")
	// ErrUnavailable is returned by summarizers that have no backing client.
	ErrUnavailable = errors.New("ai collaborator unavailable")
	// ErrGeneration wraps any failure to obtain a usable completion.
	ErrGeneration = errors.New("ai summary generation failed")
)

// Operation labels used for logging, metrics and cache keys.
const (
	OperationActivity = "activity"
	OperationReview   = "review"
)

const (
	temperature       = 0.7
	activityMaxTokens = 150
	reviewMaxTokens   = 800

	// DefaultTimeout bounds a single upstream call when Config.Timeout is unset.
	DefaultTimeout = 60 * time.Second

	retryInitialInterval = 500 * time.Millisecond
	retryMaxInterval     = 5 * time.Second
)

// API types accepted in Config.APIType.
const (
	APITypeAzure  = "azure"
	APITypeOpenAI = "openai"
)

// ActivityRequest is the input for a single activity summary.
type ActivityRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// Status reports whether summaries can be generated and with which model.
type Status struct {
	Enabled   bool    `json:"enabled"`
	Available bool    `json:"available"`
	Model     *string `json:"model"`
}

// Summarizer produces summaries or reports that it cannot.
type Summarizer interface {
	SummarizeActivity(ctx context.Context, req ActivityRequest) (string, error)
	SummarizeReview(ctx context.Context, activities []domain.Activity) (string, error)
	Status() Status
}

// Config describes how to reach the collaborator.
type Config struct {
	Endpoint   string
	APIKey     string
	Model      string
	APIType    string
	APIVersion string
	Timeout    time.Duration
	MaxRetries int
}

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Budget is the longest a summary call may take: every attempt running to
// its timeout plus the largest jittered wait between attempts. Calls are
// cancelled once it elapses, so callers can size their own deadlines from it.
func Budget(cfg Config) time.Duration {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return time.Duration(retries+1)*timeout + time.Duration(retries)*(retryMaxInterval*3/2)
}

// Client calls a chat completion API. It is built once at startup and shared.
type Client struct {
	api        chatCompleter
	model      string
	maxRetries int
	budget     time.Duration
	newBackOff func() backoff.BackOff
}

// NewClient builds a Client for an Azure AI Foundry deployment or any
// OpenAI-compatible endpoint.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}

	var config openai.ClientConfig
	switch strings.ToLower(cfg.APIType) {
	case "", APITypeAzure:
		config = openai.DefaultAzureConfig(cfg.APIKey, strings.TrimRight(cfg.Endpoint, "/"))
		if cfg.APIVersion != "" {
			config.APIVersion = cfg.APIVersion
		}
		config.AzureModelMapperFunc = func(model string) string { return model }
	case APITypeOpenAI:
		config = openai.DefaultConfig(cfg.APIKey)
		config.BaseURL = strings.TrimRight(cfg.Endpoint, "/")
	default:
		return nil, fmt.Errorf("unsupported ai api type %q", cfg.APIType)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	config.HTTPClient = &http.Client{Timeout: timeout}

	client := newClient(openai.NewClientWithConfig(config), cfg.Model, cfg.MaxRetries)
	client.budget = Budget(cfg)
	return client, nil
}

func newClient(api chatCompleter, model string, maxRetries int) *Client {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Client{
		api:        api,
		model:      model,
		maxRetries: maxRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = retryInitialInterval
			b.MaxInterval = retryMaxInterval
			return b
		},
	}
}

// SummarizeActivity writes a 2-3 sentence summary of one activity.
func (c *Client) SummarizeActivity(ctx context.Context, req ActivityRequest) (string, error) {
	return c.complete(ctx, OperationActivity, activitySystemPrompt, activityPrompt(req), activityMaxTokens)
}

// SummarizeReview writes a multi-paragraph review from previously summarised activities.
func (c *Client) SummarizeReview(ctx context.Context, activities []domain.Activity) (string, error) {
	return c.complete(ctx, OperationReview, reviewSystemPrompt, reviewPrompt(activities), reviewMaxTokens)
}

// Status implements Summarizer.
func (c *Client) Status() Status {
	model := c.model
	return Status{Enabled: true, Available: true, Model: &model}
}

func (c *Client) complete(ctx context.Context, operation, system, prompt string, maxTokens int) (string, error) {
	if c.budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.budget)
		defer cancel()
	}

	request := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	summary, err := backoff.Retry(ctx, func() (string, error) {
		resp, err := c.api.CreateChatCompletion(ctx, request)
		if err != nil {
			if !retryable(err) {
				return "", backoff.Permanent(err)
			}
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", backoff.Permanent(errors.New("completion returned no choices"))
		}
		text := strings.TrimSpace(resp.Choices[0].Message.Content)
		if text == "" {
			return "", backoff.Permanent(errors.New("completion returned empty content"))
		}
		return text, nil
	}, backoff.WithBackOff(c.newBackOff()), backoff.WithMaxTries(uint(c.maxRetries+1)))
	if err != nil {
		log.Printf("ai: %s summary failed: %v", operation, err)
		observability.RecordAIRequest(operation, "error")
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	observability.RecordAIRequest(operation, "success")
	return summary, nil
}

// retryable reports whether a failed call may succeed when repeated.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return true
}

// Unavailable is the Summarizer used when no collaborator is configured.
type Unavailable struct{}

// SummarizeActivity always fails with ErrUnavailable.
func (Unavailable) SummarizeActivity(context.Context, ActivityRequest) (string, error) {
	observability.RecordAIRequest(OperationActivity, "unavailable")
	return "", ErrUnavailable
}

// SummarizeReview always fails with ErrUnavailable.
func (Unavailable) SummarizeReview(context.Context, []domain.Activity) (string, error) {
	observability.RecordAIRequest(OperationReview, "unavailable")
	return "", ErrUnavailable
}

// Status reports a disabled collaborator with no model.
func (Unavailable) Status() Status {
	return Status{}
}
