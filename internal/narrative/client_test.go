package narrative

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testConfig(url string) Config {
	return Config{
		APIKey:       "test-key",
		Model:        "test-model",
		BaseURL:      url,
		MaxRetries:   2,
		RetryBackoff: 0,
		Enabled:      true,
	}
}

func modelResponse(text string) string {
	return fmt.Sprintf(`{"candidates":[{"content":{"parts":[{"text":%q}]}}]}`, text)
}

func TestCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, modelResponse("  the answer  "))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	got, err := c.Call(context.Background(), "question", false)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != "the answer" {
		t.Errorf("got %q, want trimmed text", got)
	}
}

func TestCall_RetriesRateLimit(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, modelResponse("recovered"))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	got, err := c.Call(context.Background(), "question", false)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != "recovered" {
		t.Errorf("got %q", got)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestCall_RateLimitExhausted(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	_, err := c.Call(context.Background(), "question", false)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	// First attempt plus two retries, never more.
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestCall_ServerErrorNotRetried(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	if _, err := c.Call(context.Background(), "question", false); err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestCallJSON_StripsFences(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, modelResponse("```json\n{\"rationale\": \"ok\"}\n```"))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	raw, err := c.CallJSON(context.Background(), "question")
	if err != nil {
		t.Fatalf("CallJSON: %v", err)
	}
	if string(raw) != `{"rationale": "ok"}` {
		t.Errorf("raw = %s", raw)
	}
}

func TestCallJSON_InvalidPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, modelResponse("I cannot produce JSON today"))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	_, err := c.CallJSON(context.Background(), "question")
	var invalid *InvalidResponseError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want InvalidResponseError", err)
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n[1,2]\n```", "[1,2]"},
		{`{"a":1}`, `{"a":1}`},
		{"{\"a\":1}`", `{"a":1}`},
	}
	for _, tt := range tests {
		if got := StripFences(tt.in); got != tt.want {
			t.Errorf("StripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEnrichPatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, modelResponse(`{"rationale": "the soil moved", "site_instructions": "stop work"}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	got, err := c.EnrichPatch(context.Background(), EnrichRequest{
		DeviationPercent: 16.89,
		Severity:         "MODERATE",
		Action:           "Increase founding depth by 350mm.",
	})
	if err != nil {
		t.Fatalf("EnrichPatch: %v", err)
	}
	if got.Rationale != "the soil moved" || got.SiteInstructions != "stop work" {
		t.Errorf("got %+v", got)
	}
}
