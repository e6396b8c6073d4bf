package bocha

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bochaai/bocha-mcp/internal/httpclient"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the production Bocha API host.
	DefaultBaseURL = "https://api.bochaai.com"

	// webSearchEndpoint is the web search API path.
	webSearchEndpoint = "/v1/web-search"

	// UserAgent for API requests
	UserAgent = "bocha-mcp/1.0"

	// DefaultTimeout for HTTP requests
	DefaultTimeout = 30 * time.Second

	// defaultRateLimit is the client side request budget in requests per
	// second, overridable via BOCHA_RATE_LIMIT.
	defaultRateLimit = 10
)

// Client handles HTTP requests to the Bocha web search API and decodes
// every response through the schema layer. A Client is safe for concurrent
// use.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	sessionID  string
}

// ClientOption adjusts a Client at construction time.
type ClientOption func(*Client)

// WithBaseURL points the client at a different API host, e.g. a test
// server.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithHTTPClient replaces the default proxy aware HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit overrides the client side requests per second budget.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

// NewClient creates a new Bocha API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: httpclient.New(DefaultTimeout),
		limiter:    rate.NewLimiter(rate.Limit(rateLimitFromEnv()), 1),
		sessionID:  uuid.New().String(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func rateLimitFromEnv() float64 {
	if v := os.Getenv("BOCHA_RATE_LIMIT"); v != "" {
		if limit, err := strconv.ParseFloat(v, 64); err == nil && limit > 0 {
			return limit
		}
	}
	return defaultRateLimit
}

// apiEnvelope is the wrapper every Bocha answer arrives in. Data stays raw
// so schema validation can report precise field paths.
type apiEnvelope struct {
	Code int             `json:"code"`
	Msg  *string         `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// APIError is a non success answer from the provider: an HTTP error status
// or a 200 envelope carrying a non 200 code.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("bocha API error (code %d)", e.Code)
	}
	return fmt.Sprintf("bocha API error (code %d): %s", e.Code, e.Message)
}

// WebSearch performs a web search. A returned response has passed schema
// validation; provider side failures come back as *APIError and payloads
// that do not match the declared schema as *ValidationError.
func (c *Client) WebSearch(ctx context.Context, logger *logrus.Logger, req *SearchRequest) (*SearchResponse, error) {
	if req == nil || req.Query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if req.Count < 0 || req.Count > MaxCount {
		return nil, fmt.Errorf("count must be between %d and %d", MinCount, MaxCount)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(req.body())
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	requestID := uuid.New().String()
	logger.WithFields(logrus.Fields{
		"session_id": c.sessionID,
		"request_id": requestID,
		"query":      req.Query,
		"count":      req.count(),
	}).Debug("Making Bocha web search request")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+webSearchEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", UserAgent)
	httpReq.Header.Set("X-Request-Id", requestID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.WithError(closeErr).Warn("Failed to close response body")
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		logger.WithFields(logrus.Fields{
			"session_id":  c.sessionID,
			"request_id":  requestID,
			"status_code": resp.StatusCode,
			"body":        string(respBody),
		}).Error("Bocha API request failed")
		return nil, httpError(resp.StatusCode, respBody)
	}

	var env apiEnvelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, fmt.Errorf("failed to parse API envelope: %w", err)
	}
	if env.Code != http.StatusOK {
		msg := ""
		if env.Msg != nil {
			msg = *env.Msg
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Code: env.Code, Message: msg}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		env.Data = json.RawMessage("{}")
	}

	var result SearchResponse
	if err := json.Unmarshal(env.Data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	pages := 0
	if result.WebPages != nil {
		pages = len(result.WebPages.Value)
	}
	logger.WithFields(logrus.Fields{
		"session_id": c.sessionID,
		"request_id": requestID,
		"pages":      pages,
	}).Debug("Bocha web search request successful")

	return &result, nil
}

// httpError turns a non 200 HTTP answer into an error, preferring the
// provider's own message when the body carries one.
func httpError(status int, body []byte) error {
	var env apiEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Msg != nil && *env.Msg != "" {
		return &APIError{StatusCode: status, Code: env.Code, Message: *env.Msg}
	}

	switch status {
	case http.StatusUnauthorized:
		return fmt.Errorf("authentication failed: invalid API key")
	case http.StatusForbidden:
		return fmt.Errorf("access forbidden: check your API key and plan")
	case http.StatusTooManyRequests:
		return fmt.Errorf("rate limit exceeded: please wait before making more requests")
	default:
		return fmt.Errorf("bocha API request failed with status %d: %s", status, strings.TrimSpace(string(body)))
	}
}
