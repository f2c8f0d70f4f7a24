package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

// roundTripFunc lets tests stub the transport directly.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// recordSleeps replaces the client's sleep with a recorder so backoff
// timing can be asserted without real waiting.
func recordSleeps(c *Client) *[]time.Duration {
	var sleeps []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return &sleeps
}

func TestGetJSON_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("inputMint"); got != "mintA" {
			t.Errorf("expected inputMint=mintA, got %q", got)
		}
		if r.Header.Get("User-Agent") != DefaultUserAgent {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		w.Write([]byte(`{"outAmount":"150000000"}`))
	}))
	defer server.Close()

	c := New()
	params := url.Values{"inputMint": {"mintA"}}
	status, body, err := c.GetJSON(context.Background(), server.URL, params)
	if err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("expected 200, got %d", status)
	}
	if string(body) != `{"outAmount":"150000000"}` {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestGetJSON_UnparseableBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>gateway error</html>"))
	}))
	defer server.Close()

	c := New()
	status, body, err := c.GetJSON(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("expected 200, got %d", status)
	}
	if body != nil {
		t.Errorf("expected nil body for non-JSON payload, got %s", body)
	}
}

func TestGetJSON_ExhaustsRetriesWithBackoff(t *testing.T) {
	var attempts atomic.Int32
	c := New(WithHTTPClient(&http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			attempts.Add(1)
			return nil, errors.New("dial timeout")
		}),
	}))
	sleeps := recordSleeps(c)

	status, body, err := c.GetJSON(context.Background(), "http://quote.invalid/v6/quote", nil)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if status != 0 || body != nil {
		t.Errorf("expected sentinel (0, nil), got (%d, %v)", status, body)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", got)
	}
	want := []time.Duration{1 * time.Second, 2 * time.Second}
	if len(*sleeps) != len(want) {
		t.Fatalf("expected sleeps %v, got %v", want, *sleeps)
	}
	for i, d := range want {
		if (*sleeps)[i] != d {
			t.Errorf("sleep %d: expected %v, got %v", i, d, (*sleeps)[i])
		}
	}
}

func TestGetJSON_RetryAfterHonored(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	c := New()
	sleeps := recordSleeps(c)

	status, body, err := c.GetJSON(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if status != http.StatusOK || body == nil {
		t.Fatalf("expected recovered 200 with body, got %d %v", status, body)
	}
	// The server hint is used verbatim, not the exponential schedule.
	if len(*sleeps) != 1 || (*sleeps)[0] != 7*time.Second {
		t.Errorf("expected a single 7s wait, got %v", *sleeps)
	}
}

func TestGetJSON_RetryAfterDefault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := New(WithMaxRetries(2))
	sleeps := recordSleeps(c)

	_, _, err := c.GetJSON(context.Background(), server.URL, nil)
	if err == nil {
		t.Fatal("expected error when every attempt is rate limited")
	}
	for i, d := range *sleeps {
		if d != DefaultRetryAfterDelay {
			t.Errorf("sleep %d: expected default %v, got %v", i, DefaultRetryAfterDelay, d)
		}
	}
}

func TestGetJSON_NonOKStatusReturned(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}`))
	}))
	defer server.Close()

	c := New()
	status, body, err := c.GetJSON(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if status != http.StatusNotFound {
		t.Errorf("expected 404 passed through, got %d", status)
	}
	if body == nil {
		t.Error("expected JSON error body to be returned")
	}
}

func TestGetJSON_ContextCanceledDuringBackoff(t *testing.T) {
	c := New(WithHTTPClient(&http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return nil, errors.New("dial timeout")
		}),
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := c.GetJSON(ctx, "http://quote.invalid", nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
