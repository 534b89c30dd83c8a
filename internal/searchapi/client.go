// Package searchapi is a client for the SearchAPI.io search service. It
// provides YouTube caption tracks and Google results for website sources.
package searchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/p-n-ai/pai-kiu/internal/platform/apperror"
	"github.com/p-n-ai/pai-kiu/internal/transcript"
)

const defaultBaseURL = "https://www.searchapi.io/api/v1/search"

var (
	ErrNotConfigured = apperror.New(apperror.KindExternalService, "SearchAPI key is not configured")
	ErrUnavailable   = apperror.New(apperror.KindExternalService, "Service temporarily unavailable. Please try again later.")
	ErrInvalidKey    = apperror.New(apperror.KindExternalService, "Invalid API key. Please check your configuration.")
	ErrQuota         = apperror.New(apperror.KindExternalService, "API quota exceeded. Please try again later.")
	ErrRateLimited   = apperror.New(apperror.KindExternalService, "Too many requests. Please try again in a few moments.")
	ErrRequestFailed = apperror.New(apperror.KindExternalService, "Search service request failed")
)

// Client calls the SearchAPI.io HTTP API.
type Client struct {
	apiKey   string
	baseURL  string
	language string
	client   *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the endpoint (for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithLanguage sets the preferred caption language (default "en").
func WithLanguage(lang string) Option {
	return func(c *Client) {
		c.language = lang
	}
}

// New creates a SearchAPI client.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:   apiKey,
		baseURL:  defaultBaseURL,
		language: "en",
		client:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type transcriptsResponse struct {
	Transcripts []transcript.Segment `json:"transcripts"`
}

// Transcript returns the caption segments of a video for the given track
// kind ("manual" or "auto"). A missing track yields an empty slice.
func (c *Client) Transcript(ctx context.Context, videoID, kind string) ([]transcript.Segment, error) {
	params := url.Values{
		"engine":          {"youtube_transcripts"},
		"video_id":        {videoID},
		"transcript_type": {kind},
		"lang":            {c.language},
	}

	var resp transcriptsResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, err
	}
	return resp.Transcripts, nil
}

// OrganicResult is one Google search hit.
type OrganicResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Source  string `json:"source,omitempty"`
	Date    string `json:"date,omitempty"`
}

type googleResponse struct {
	OrganicResults []OrganicResult `json:"organic_results"`
}

// Search runs a Google query and returns up to num organic results.
func (c *Client) Search(ctx context.Context, query string, num int) ([]OrganicResult, error) {
	params := url.Values{
		"engine": {"google"},
		"q":      {query},
		"num":    {strconv.Itoa(num)},
		"filter": {"1"},
	}

	var resp googleResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, err
	}
	return resp.OrganicResults, nil
}

func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	if c.apiKey == "" {
		return ErrNotConfigured
	}
	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return apperror.Wrap(ErrRequestFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperror.Wrap(ErrRequestFailed, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return classify(resp.StatusCode, errorMessage(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return apperror.Wrap(ErrRequestFailed, fmt.Errorf("unmarshal response: %w", err))
	}
	return nil
}

// errorMessage extracts the error text from either {"error": "..."} or
// {"error": {"message": "..."}}.
func errorMessage(body []byte) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Error) == 0 {
		return strings.TrimSpace(string(body))
	}

	var msg string
	if err := json.Unmarshal(envelope.Error, &msg); err == nil {
		return msg
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(envelope.Error, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return string(envelope.Error)
}

func classify(status int, msg string) error {
	cause := fmt.Errorf("searchapi error (status %d): %s", status, msg)
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "used all of the searches"):
		return apperror.Wrap(ErrUnavailable, cause)
	case strings.Contains(lower, "exceeded your current quota"):
		return apperror.Wrap(ErrQuota, cause)
	case strings.Contains(lower, "rate limit") || status == http.StatusTooManyRequests:
		return apperror.Wrap(ErrRateLimited, cause)
	case strings.Contains(lower, "api key") || status == http.StatusUnauthorized:
		return apperror.Wrap(ErrInvalidKey, cause)
	default:
		return apperror.Wrap(ErrRequestFailed, cause)
	}
}
