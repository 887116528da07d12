// Package narrative wraps the external text-generation service (Gemini REST
// API). Every model call in the repository routes through this client. The
// client is always optional: callers must carry a deterministic fallback and
// treat any error here as a degraded-output condition, never a failure of the
// structural decision.
package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// #region errors

// ErrRateLimited is returned when the service keeps responding 429 after the
// retry budget is spent.
var ErrRateLimited = errors.New("narrative service rate limited")

// InvalidResponseError reports a response body that could not be parsed.
// Callers recover via their fallback branch; this never propagates past the
// policy layer.
type InvalidResponseError struct {
	Raw string
	Err error
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("invalid narrative response: %v", e.Err)
}

func (e *InvalidResponseError) Unwrap() error { return e.Err }

// #endregion errors

// #region config

// Config holds the narrative service parameters.
type Config struct {
	APIKey       string
	Model        string
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int // retries after the first attempt, 429 only
	RetryBackoff time.Duration
	Enabled      bool
}

// DefaultConfig returns the standard client configuration.
// Reads from env vars: NEXUS_GEMINI_API_KEY, NEXUS_GEMINI_MODEL,
// NEXUS_GEMINI_TIMEOUT, NEXUS_GEMINI_RETRY_BACKOFF, NEXUS_NARRATIVE_ENABLED.
func DefaultConfig() Config {
	cfg := Config{
		APIKey:       os.Getenv("NEXUS_GEMINI_API_KEY"),
		Model:        "gemini-2.0-flash-lite",
		BaseURL:      "https://generativelanguage.googleapis.com",
		Timeout:      30 * time.Second,
		MaxRetries:   2,
		RetryBackoff: 30 * time.Second,
		Enabled:      true,
	}
	if v := os.Getenv("NEXUS_GEMINI_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("NEXUS_GEMINI_TIMEOUT"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
			cfg.Timeout = time.Duration(sec) * time.Second
		}
	}
	if v := os.Getenv("NEXUS_GEMINI_RETRY_BACKOFF"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec >= 0 {
			cfg.RetryBackoff = time.Duration(sec) * time.Second
		}
	}
	if v := os.Getenv("NEXUS_NARRATIVE_ENABLED"); v != "" {
		cfg.Enabled = v == "true" || v == "1"
	}
	return cfg
}

// #endregion config

// #region client

// Client talks to the generateContent endpoint.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a client from the given config.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// #endregion client

// #region wire-types

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// #endregion wire-types

// #region call

const jsonModePrefix = "IMPORTANT: Respond with ONLY valid JSON. " +
	"No markdown, no code fences, no explanation.\n\n"

// Call sends a prompt and returns the raw text response. jsonMode prepends
// the JSON-only instruction. Retries 429 responses up to cfg.MaxRetries with
// a fixed backoff; every other failure is returned immediately.
func (c *Client) Call(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	if jsonMode {
		prompt = jsonModePrefix + prompt
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.cfg.BaseURL, c.cfg.Model, c.cfg.APIKey)

	for attempt := 0; ; attempt++ {
		text, retryable, err := c.post(ctx, url, body)
		if err == nil {
			return text, nil
		}
		if !retryable || attempt >= c.cfg.MaxRetries {
			return "", err
		}
		select {
		case <-time.After(c.cfg.RetryBackoff):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// post performs one request. The second return reports whether the failure
// is a rate limit worth retrying.
func (c *Client) post(ctx context.Context, url string, body []byte) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("narrative request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		io.Copy(io.Discard, resp.Body)
		return "", true, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", false, fmt.Errorf("narrative service status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, fmt.Errorf("read response: %w", err)
	}

	var parsed generateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", false, &InvalidResponseError{Raw: string(raw), Err: err}
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", false, &InvalidResponseError{Raw: string(raw), Err: errors.New("no candidates in response")}
	}
	return strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text), false, nil
}

// #endregion call

// #region call-json

// CallJSON sends a prompt in JSON mode and returns the parsed payload.
// Code fences are stripped before parsing since the model wraps output in
// them regardless of instructions.
func (c *Client) CallJSON(ctx context.Context, prompt string) (json.RawMessage, error) {
	raw, err := c.Call(ctx, prompt, true)
	if err != nil {
		return nil, err
	}

	cleaned := StripFences(raw)
	if !json.Valid([]byte(cleaned)) {
		return nil, &InvalidResponseError{Raw: raw, Err: errors.New("not valid JSON")}
	}
	return json.RawMessage(cleaned), nil
}

// StripFences removes ``` / ```json markers the model wraps around JSON
// output despite being told not to.
func StripFences(raw string) string {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.TrimRight(cleaned, "`")
	return strings.TrimSpace(cleaned)
}

// #endregion call-json
