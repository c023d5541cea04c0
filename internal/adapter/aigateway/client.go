package aigateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/pscheid92/feedbackpulse/internal/adapter/metrics"
	"github.com/pscheid92/feedbackpulse/internal/domain"
	"github.com/pscheid92/feedbackpulse/internal/platform/retry"
	"github.com/pscheid92/feedbackpulse/internal/platform/version"
)

const (
	DefaultModel   = "google/gemini-2.5-flash"
	defaultTimeout = 8 * time.Second
	maxErrorBody   = 512

	breakerComponent = "ai_gateway"

	systemPrompt = `You are a sentiment analysis expert. Analyze the sentiment of the given text and respond ONLY with a JSON object in this exact format: {"sentiment": "positive" | "negative" | "neutral", "score": 0.0-1.0, "confidence": 0.0-1.0}. The score represents the intensity (0=very negative/neutral, 1=very positive). Keep your response strictly to this JSON format with no additional text.`
)

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client classifies text through an OpenAI-compatible chat completions API.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	timeout    time.Duration
	httpClient *http.Client
	breaker    circuitbreaker.CircuitBreaker[any]
	policy     retry.Policy
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) { c.policy = p }
}

func WithCircuitBreaker(cb circuitbreaker.CircuitBreaker[any]) Option {
	return func(c *Client) { c.breaker = cb }
}

// NewClient builds a gateway client. cbMetrics may be nil.
func NewClient(cfg Config, cbMetrics *metrics.CircuitBreakerMetrics, opts ...Option) *Client {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      model,
		timeout:    timeout,
		httpClient: &http.Client{},
		breaker:    newBreaker(cbMetrics),
		policy: retry.Policy{
			MaxAttempts:      2,
			InitialBackoff:   250 * time.Millisecond,
			RateLimitBackoff: 1 * time.Second,
			MaxBackoff:       2 * time.Second,
			OnRetry: func(attempt int, err error, backoff time.Duration) {
				slog.Debug("Retrying ai gateway call", "attempt", attempt, "backoff", backoff, "error", err)
			},
		},
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// newBreaker opens after a 60% failure rate over at least 5 calls in 10s and
// probes again after 30s.
func newBreaker(cbMetrics *metrics.CircuitBreakerMetrics) circuitbreaker.CircuitBreaker[any] {
	return circuitbreaker.NewBuilder[any]().
		WithFailureRateThreshold(0.6, 5, 10*time.Second).
		WithDelay(30 * time.Second).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Circuit breaker state changed",
				"component", breakerComponent,
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
			if cbMetrics != nil {
				cbMetrics.StateChanges.WithLabelValues(breakerComponent, e.NewState.String()).Inc()
				cbMetrics.State.WithLabelValues(breakerComponent).Set(stateToFloat(e.NewState))
			}
		}).
		Build()
}

func stateToFloat(state circuitbreaker.State) float64 {
	switch state {
	case circuitbreaker.ClosedState:
		return 0
	case circuitbreaker.HalfOpenState:
		return 1
	case circuitbreaker.OpenState:
		return 2
	default:
		return -1
	}
}

// Analyze implements domain.RemoteClassifier.
func (c *Client) Analyze(ctx context.Context, text string) (domain.RemoteAnalysis, error) {
	if !c.breaker.TryAcquirePermit() {
		return domain.RemoteAnalysis{}, fmt.Errorf("ai gateway unavailable: %w", circuitbreaker.ErrOpen)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	analysis, err := retry.Do(ctx, c.policy, classifyError, func(ctx context.Context) (domain.RemoteAnalysis, error) {
		return c.analyzeOnce(ctx, text)
	})

	if countsAsFailure(err) {
		c.breaker.RecordError(err)
	} else {
		c.breaker.RecordSuccess()
	}

	if err != nil {
		return domain.RemoteAnalysis{}, fmt.Errorf("failed to analyze sentiment: %w", err)
	}
	return analysis, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *Client) analyzeOnce(ctx context.Context, text string) (domain.RemoteAnalysis, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Analyze the sentiment of this feedback: %q", text)},
		},
	})
	if err != nil {
		return domain.RemoteAnalysis{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return domain.RemoteAnalysis{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.RemoteAnalysis{}, fmt.Errorf("failed to call ai gateway: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.RemoteAnalysis{}, &rateLimitError{retryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	case resp.StatusCode == http.StatusPaymentRequired:
		return domain.RemoteAnalysis{}, ErrQuotaExceeded
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return domain.RemoteAnalysis{}, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.RemoteAnalysis{}, fmt.Errorf("%w: failed to decode response: %w", ErrMalformedAnalysis, err)
	}
	if len(decoded.Choices) == 0 || strings.TrimSpace(decoded.Choices[0].Message.Content) == "" {
		return domain.RemoteAnalysis{}, ErrEmptyContent
	}

	return parseAnalysis(decoded.Choices[0].Message.Content)
}

func classifyError(err error) retry.Action {
	if errors.Is(err, ErrRateLimited) {
		return retry.After
	}
	if errors.Is(err, ErrQuotaExceeded) ||
		errors.Is(err, ErrMalformedAnalysis) ||
		errors.Is(err, ErrEmptyContent) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return retry.Stop
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode >= 500 {
			return retry.Retry
		}
		return retry.Stop
	}

	return retry.Retry
}

// countsAsFailure reports whether err says the gateway itself is unhealthy.
// A reachable gateway producing an unusable answer does not trip the breaker.
func countsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrMalformedAnalysis) && !errors.Is(err, ErrEmptyContent) && !errors.Is(err, context.Canceled)
}

func parseRetryAfter(value string) time.Duration {
	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
