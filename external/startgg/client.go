package startgg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/brackethq/circuit-metrics/internal/platform/logging"
	"github.com/brackethq/circuit-metrics/internal/platform/resilience"
	"github.com/brackethq/circuit-metrics/internal/usecase"
)

const (
	defaultBaseURL = "https://api.start.gg/gql/alpha"

	defaultSeedsPerPage     = 50
	defaultStandingsPerPage = 50
	defaultSetsPerPage      = 15
	perPageFloor            = 5

	maxResponseBytes = 6 << 20
)

var bearerHeaderRegex = regexp.MustCompile(`(?i)bearer\s+[^\s"']+`)

var (
	errStartggTransient = crerr.New("startgg transient failure")

	// ErrQueryRejected marks a terminal provider-side query failure. It is
	// never retried.
	ErrQueryRejected = crerr.New("startgg query rejected")

	// ErrComplexity marks a provider rejection for an over-budget query.
	// Collection pagers react by shrinking the page size.
	ErrComplexity = crerr.New("startgg query complexity rejected")
)

type ClientConfig struct {
	HTTPClient *http.Client
	BaseURL    string
	Token      string
	Timeout    time.Duration

	Retry          resilience.RetryPolicy
	CircuitBreaker resilience.CircuitBreakerConfig

	ResponseCache *ResponseCache

	SeedsPerPage     int
	StandingsPerPage int
	SetsPerPage      int

	Logger *logging.Logger
}

type Client struct {
	httpClient     *http.Client
	baseURL        string
	token          string
	retry          resilience.RetryPolicy
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
	cache          *ResponseCache

	seedsPerPage     int
	standingsPerPage int
	setsPerPage      int
}

func NewClient(cfg ClientConfig) (*Client, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, fmt.Errorf("startgg api token is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 30 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:       httpClient,
		baseURL:          baseURL,
		token:            token,
		retry:            resilience.NormalizeRetryPolicy(cfg.Retry),
		logger:           logger,
		breaker:          resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled:   breakerCfg.Enabled,
		cache:            cfg.ResponseCache,
		seedsPerPage:     positiveOr(cfg.SeedsPerPage, defaultSeedsPerPage),
		standingsPerPage: positiveOr(cfg.StandingsPerPage, defaultStandingsPerPage),
		setsPerPage:      positiveOr(cfg.SetsPerPage, defaultSetsPerPage),
	}, nil
}

type gqlError struct {
	Message string `json:"message"`
}

type gqlEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

// execute runs one GraphQL query, consulting the response cache first, and
// decodes the envelope's data payload into target.
func (c *Client) execute(ctx context.Context, query string, variables map[string]any, target any) error {
	key := CacheKey(query, variables)

	if raw, ok := c.cache.Load(key); ok {
		if err := decodeEnvelope(raw, target); err == nil {
			return nil
		}
		// A cached payload that no longer decodes is refetched.
	}

	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "startgg circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: tournament provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	body, err := sonic.Marshal(map[string]any{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return fmt.Errorf("encode graphql request: %w", err)
	}

	out, err, _ := c.flight.Do(key, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, body)
		if c.circuitEnabled {
			if reqErr != nil && crerr.Is(reqErr, errStartggTransient) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("unexpected response payload type %T", out)
	}

	if err := decodeEnvelope(raw, target); err != nil {
		return err
	}

	if storeErr := c.cache.Store(key, raw); storeErr != nil {
		c.logger.WarnContext(ctx, "startgg response cache write failed", "error", storeErr)
	}
	return nil
}

func decodeEnvelope(raw []byte, target any) error {
	var envelope gqlEnvelope
	if err := sonic.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode provider payload: %w", err)
	}
	if len(envelope.Errors) > 0 {
		messages := make([]string, 0, len(envelope.Errors))
		complexity := false
		for _, e := range envelope.Errors {
			messages = append(messages, e.Message)
			if strings.Contains(strings.ToLower(e.Message), "complexity") {
				complexity = true
			}
		}
		if complexity {
			return fmt.Errorf("%w: %s", ErrComplexity, strings.Join(messages, "; "))
		}
		return fmt.Errorf("%w: %s", ErrQueryRejected, strings.Join(messages, "; "))
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return fmt.Errorf("%w: empty data payload", ErrQueryRejected)
	}
	if target == nil {
		return nil
	}
	if err := sonic.Unmarshal(envelope.Data, target); err != nil {
		return fmt.Errorf("decode provider data: %w", err)
	}
	return nil
}

func (c *Client) executeRequest(ctx context.Context, body []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.retry.MaxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.token)

		wait := c.retry.Backoff(attempt)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %s", errStartggTransient, c.sanitize(err.Error()))
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: read response body: %v", errStartggTransient, readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case resp.StatusCode == http.StatusTooManyRequests:
				if retryAfter, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok {
					wait = retryAfter
				}
				lastErr = fmt.Errorf("%w: provider throttled status=%d", errStartggTransient, resp.StatusCode)
			case isRetryableStatus(resp.StatusCode):
				lastErr = fmt.Errorf("%w: provider status=%d body=%s", errStartggTransient, resp.StatusCode, abbreviateBody(raw))
			default:
				return nil, fmt.Errorf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.retry.MaxAttempts-1 {
			break
		}
		if waitErr := resilience.Wait(ctx, wait); waitErr != nil {
			return nil, waitErr
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("provider request failed")
	}
	c.logger.WarnContext(ctx, "startgg request failed", "url", c.baseURL, "error", lastErr)
	return nil, lastErr
}

// parseRetryAfter accepts the fractional-seconds form the provider emits.
func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil || seconds < 0 {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func (c *Client) sanitize(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	if c.token != "" {
		value = strings.ReplaceAll(value, c.token, "REDACTED")
	}
	return bearerHeaderRegex.ReplaceAllString(value, "Bearer REDACTED")
}

func abbreviateBody(raw []byte) string {
	const limit = 256
	body := strings.TrimSpace(string(raw))
	if len(body) > limit {
		return body[:limit] + "..."
	}
	return body
}

func positiveOr(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}
