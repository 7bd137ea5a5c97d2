package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/pitabwire/loom/internal/config"
	"github.com/pitabwire/loom/internal/observability"
	"github.com/pitabwire/loom/model"
)

// Operation names used for metrics and tracing labels.
const (
	opChatCompletion = "chat_completion"
	opImage          = "image_generation"
	opSpeech         = "speech_synthesis"
	opVideo          = "video_generation"
)

// Gateway is an HTTP Client implementation backed by a single model service.
// All calls go through a retry loop and a shared circuit breaker.
type Gateway struct {
	baseURL      string
	apiKey       string
	defaultModel string
	httpClient   *http.Client
	breaker      *CircuitBreaker
	retry        config.RetryConfig
	logger       *zap.Logger
	metrics      *observability.Metrics
}

// NewGateway creates a model gateway from configuration. The API key is read
// from the environment variable named by cfg.APIKeyEnv. The metrics argument
// may be nil.
func NewGateway(cfg config.ProviderConfig, logger *zap.Logger, metrics *observability.Metrics) *Gateway {
	return &Gateway{
		baseURL:      cfg.BaseURL,
		apiKey:       os.Getenv(cfg.APIKeyEnv),
		defaultModel: cfg.DefaultModel,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		breaker: NewCircuitBreaker(
			cfg.CircuitBreaker.FailureThreshold,
			cfg.CircuitBreaker.SuccessThreshold,
			cfg.CircuitBreaker.Timeout,
		),
		retry:   cfg.Retry,
		logger:  logger,
		metrics: metrics,
	}
}

// HealthCheck probes the provider's health endpoint.
func (g *Gateway) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/v1/health", nil)
	if err != nil {
		return fmt.Errorf("provider health request: %w", err)
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("provider health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("provider health: status %d", resp.StatusCode)
	}
	return nil
}

// BreakerState exposes the circuit breaker state for diagnostics.
func (g *Gateway) BreakerState() BreakerState {
	return g.breaker.State()
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// ChatCompletion sends a conversation and returns the assistant reply.
func (g *Gateway) ChatCompletion(ctx context.Context, messages []Message, mdl string) (string, error) {
	if mdl == "" {
		mdl = g.defaultModel
	}

	var out chatResponse
	err := g.doJSON(ctx, opChatCompletion, "/v1/chat/completions", chatRequest{
		Model:    mdl,
		Messages: messages,
	}, &out)
	if err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", model.NewProviderUnavailableError()
	}
	return out.Choices[0].Message.Content, nil
}

type imageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type speechRequest struct {
	Voice string `json:"voice"`
	Input string `json:"input"`
}

type videoRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type assetResponse struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// GenerateImage synthesizes an image from a prompt.
func (g *Gateway) GenerateImage(ctx context.Context, prompt, mdl string) (Asset, error) {
	var out assetResponse
	err := g.doJSON(ctx, opImage, "/v1/images/generations", imageRequest{
		Model:  mdl,
		Prompt: prompt,
	}, &out)
	if err != nil {
		return Asset{}, err
	}
	return Asset{URL: out.URL, Key: out.Key}, nil
}

// SynthesizeSpeech converts text to audio with the given voice.
func (g *Gateway) SynthesizeSpeech(ctx context.Context, text, voice string) (Asset, error) {
	var out assetResponse
	err := g.doJSON(ctx, opSpeech, "/v1/audio/speech", speechRequest{
		Voice: voice,
		Input: text,
	}, &out)
	if err != nil {
		return Asset{}, err
	}
	return Asset{URL: out.URL, Key: out.Key}, nil
}

// GenerateVideo synthesizes a video from a prompt.
func (g *Gateway) GenerateVideo(ctx context.Context, prompt, mdl string) (Asset, error) {
	var out assetResponse
	err := g.doJSON(ctx, opVideo, "/v1/videos/generations", videoRequest{
		Model:  mdl,
		Prompt: prompt,
	}, &out)
	if err != nil {
		return Asset{}, err
	}
	return Asset{URL: out.URL, Key: out.Key}, nil
}

// doJSON performs one provider operation: breaker check, retry loop with
// exponential backoff, and response decoding. Only 5xx and transport errors
// are retried; 4xx responses fail immediately.
func (g *Gateway) doJSON(ctx context.Context, operation, path string, reqBody, respBody any) error {
	if err := g.breaker.Allow(); err != nil {
		g.updateBreakerMetric()
		g.logger.Warn("provider request rejected by circuit breaker",
			zap.String("operation", operation))
		return err
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal provider request: %w", err)
	}

	maxAttempts := g.retry.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	backoff := g.retry.BackoffInitial
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}

	ctx, span := observability.StartSpan(ctx, "provider."+operation,
		observability.AttrProviderOp.String(operation))
	defer span.End()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if g.metrics != nil {
				g.metrics.RecordProviderRetry()
			}
			select {
			case <-ctx.Done():
				return g.mapContextError(ctx.Err())
			case <-time.After(backoff):
			}
			backoff = g.nextBackoff(backoff)
		}

		retryable, err := g.attempt(ctx, operation, path, payload, respBody)
		if err == nil {
			g.breaker.RecordSuccess()
			g.updateBreakerMetric()
			return nil
		}
		lastErr = err
		if !retryable {
			break
		}
		g.logger.Warn("provider request failed, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}

	g.breaker.RecordFailure()
	g.updateBreakerMetric()
	return lastErr
}

// attempt performs a single HTTP round trip. The bool result reports whether
// the failure is retryable.
func (g *Gateway) attempt(ctx context.Context, operation, path string, payload []byte, respBody any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("build provider request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		if g.metrics != nil {
			g.metrics.RecordProviderRequest(operation, 0, duration)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, g.mapContextError(ctxErr)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return true, model.NewProviderTimeoutError()
		}
		return true, model.NewProviderUnavailableError()
	}
	defer resp.Body.Close()

	if g.metrics != nil {
		g.metrics.RecordProviderRequest(operation, resp.StatusCode, duration)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return true, fmt.Errorf("read provider response: %w", err)
	}

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		g.logger.Warn("provider returned retryable status",
			zap.String("operation", operation),
			zap.Int("status", resp.StatusCode))
		return true, model.NewProviderUnavailableError()
	case resp.StatusCode >= 400:
		// Client errors are not retried; surface the provider message.
		return false, model.NewBadRequestError(providerErrorMessage(body, resp.StatusCode))
	}

	if err := json.Unmarshal(body, respBody); err != nil {
		return false, fmt.Errorf("decode provider response: %w", err)
	}
	return false, nil
}

// mapContextError converts context errors to the API error model.
func (g *Gateway) mapContextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return model.NewProviderTimeoutError()
	}
	return err
}

func (g *Gateway) nextBackoff(current time.Duration) time.Duration {
	multiplier := g.retry.BackoffMultiplier
	if multiplier <= 1 {
		multiplier = 2.0
	}
	next := time.Duration(float64(current) * multiplier)
	if g.retry.BackoffMax > 0 && next > g.retry.BackoffMax {
		next = g.retry.BackoffMax
	}
	return next
}

func (g *Gateway) updateBreakerMetric() {
	if g.metrics == nil {
		return
	}
	var state float64
	switch g.breaker.State() {
	case BreakerClosed:
		state = 0
	case BreakerHalfOpen:
		state = 1
	case BreakerOpen:
		state = 2
	}
	g.metrics.SetProviderCircuitBreakerState(state)
}

// providerErrorMessage extracts a human-readable message from a provider
// error body, falling back to the HTTP status.
func providerErrorMessage(body []byte, status int) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error.Message != "" {
			return envelope.Error.Message
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	return fmt.Sprintf("provider rejected the request (status %d)", status)
}
