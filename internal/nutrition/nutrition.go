// Package nutrition implements a client for the Nutritionix
// natural-language tracking API.
package nutrition

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxRetries is the maximum number of retry attempts for transient failures.
const maxRetries = 3

// baseRetryDelay is the initial delay for exponential backoff.
const baseRetryDelay = 1 * time.Second

// defaultBaseURL is the production Nutritionix endpoint.
const defaultBaseURL = "https://trackapi.nutritionix.com/v2"

// Config holds the configuration for creating a Client.
type Config struct {
	BaseURL string
	AppID   string
	AppKey  string
	APICode string
	Timeout time.Duration
}

// Client calls the Nutritionix natural-language endpoints. The nutrients
// endpoint only parses a food description; the sse endpoint also records
// the entry durably against the user's log.
type Client struct {
	baseURL    string
	appID      string
	appKey     string
	apiCode    string
	httpClient *http.Client
}

// Food is one parsed food item. Only the calorie field matters here;
// everything else the API returns is ignored.
type Food struct {
	FoodName string  `json:"food_name"`
	Calories float64 `json:"nf_calories"`
}

// Response is the food list returned by both endpoints.
type Response struct {
	Foods []Food `json:"foods"`
}

// TotalCalories sums the calorie field across all returned foods. An
// absent or empty food list sums to zero.
func (r *Response) TotalCalories() float64 {
	var total float64
	for _, f := range r.Foods {
		total += f.Calories
	}
	return total
}

// New creates a Client with the given configuration.
func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		appID:      cfg.AppID,
		appKey:     cfg.AppKey,
		apiCode:    cfg.APICode,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Nutrients parses a natural-language food description without logging it.
func (c *Client) Nutrients(ctx context.Context, query string) (*Response, error) {
	return c.post(ctx, c.baseURL+"/natural/nutrients", query)
}

// LogFood parses a food description and records it durably against the
// user's food log. The per-user API code and the user's e-mail identify
// the log.
func (c *Client) LogFood(ctx context.Context, query, userEmail string) (*Response, error) {
	params := url.Values{
		"code":  {c.apiCode},
		"email": {userEmail},
	}
	return c.post(ctx, c.baseURL+"/natural/sse?"+params.Encode(), query)
}

// post submits the query form to endpoint with retry for transient
// failures.
func (c *Client) post(ctx context.Context, endpoint, query string) (*Response, error) {
	form := url.Values{"query": {query}}.Encode()

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt)
			slog.Debug("retrying nutrition API request",
				"attempt", attempt,
				"delay", delay,
			)
			if err := sleepWithContext(ctx, delay); err != nil {
				return nil, fmt.Errorf("context cancelled during retry wait: %w", err)
			}
		}

		resp, err := c.doRequest(ctx, endpoint, form)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		apiErr, ok := err.(*apiError)
		if !ok || !apiErr.transient {
			return nil, err
		}
		slog.Warn("transient nutrition API error",
			"attempt", attempt,
			"error", err,
		)
	}

	return nil, fmt.Errorf("nutrition API request failed after %d retries: %w", maxRetries, lastErr)
}

// doRequest performs a single HTTP request against a natural endpoint.
func (c *Client) doRequest(ctx context.Context, endpoint, form string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("x-app-id", c.appID)
	req.Header.Set("x-app-key", c.appKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &apiError{message: fmt.Sprintf("HTTP request failed: %v", err), transient: true}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &apiError{message: fmt.Sprintf("failed to read response: %v", err), transient: true}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyError(resp.StatusCode, string(body))
	}

	var parsed Response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("nutrition API returned malformed JSON: %w", err)
	}

	return &parsed, nil
}

// apiError represents an error response from the nutrition API with
// classification for retry logic.
type apiError struct {
	message    string
	statusCode int
	transient  bool
}

func (e *apiError) Error() string {
	if e.statusCode == 0 {
		return fmt.Sprintf("nutrition API error: %s", e.message)
	}
	return fmt.Sprintf("nutrition API error (HTTP %d): %s", e.statusCode, e.message)
}

// classifyError categorizes an HTTP error response for retry decisions.
func classifyError(statusCode int, message string) *apiError {
	return &apiError{
		message:    message,
		statusCode: statusCode,
		transient:  statusCode == http.StatusTooManyRequests || statusCode >= 500,
	}
}

// backoffDelay returns the exponential backoff delay for the given attempt
// number. Delays are: 1s, 2s, 4s.
func backoffDelay(attempt int) time.Duration {
	delay := baseRetryDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

// sleepWithContext waits for the specified duration or until the context
// is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
