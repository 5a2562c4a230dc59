package figma

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
)

const (
	// DefaultBaseURL is the Figma REST API endpoint used when no base URL is configured.
	DefaultBaseURL = "https://api.figma.com/v1"

	// DefaultTimeout bounds a single HTTP exchange. File documents can be very large.
	DefaultTimeout = 10 * time.Minute
)

// Client represents a Figma API client. Every request against the API carries
// the personal access token in the X-Figma-Token header; image downloads from
// rendered URLs do not, as those URLs are already pre-signed.
type Client struct {
	accessToken string
	baseURL     string
	httpClient  *http.Client
}

// ClientOption customizes a Client built by NewClient.
type ClientOption func(*Client)

// WithBaseURL points the client at a different API endpoint, e.g. a test server.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client entirely.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a new Figma API client with the provided personal access token.
// The client is configured with connection pooling and HTTP/2 disabled, which keeps
// transfers of large file documents stable.
func NewClient(accessToken string, opts ...ClientOption) *Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConnsPerHost: 10,
		// Disable HTTP/2 to avoid stream errors with large files
		ForceAttemptHTTP2: false,
	}

	c := &Client{
		accessToken: accessToken,
		baseURL:     DefaultBaseURL,
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: transport,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the API endpoint the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetFile retrieves the file document tree. When ids is not empty it is sent as the
// comma-separated ids query parameter; otherwise the parameter is omitted.
func (c *Client) GetFile(ctx context.Context, fileKey string, ids []string) (*FileResponse, error) {
	query := url.Values{}
	if len(ids) > 0 {
		query.Set("ids", strings.Join(ids, ","))
	}

	var fileResp FileResponse
	if err := c.getJSON(ctx, "/files/"+url.PathEscape(fileKey), query, &fileResp); err != nil {
		return nil, err
	}

	return &fileResp, nil
}

// GetImages asks the render API for image URLs of the given node ids.
// An empty ids slice omits the ids parameter rather than sending an empty value.
func (c *Client) GetImages(ctx context.Context, fileKey string, ids []string, format string, scale float64) (*ImagesResponse, error) {
	query := url.Values{}
	if len(ids) > 0 {
		query.Set("ids", strings.Join(ids, ","))
	}
	if format != "" {
		query.Set("format", format)
	}
	if scale > 0 {
		query.Set("scale", strconv.FormatFloat(scale, 'f', -1, 64))
	}

	var imgResp ImagesResponse
	if err := c.getJSON(ctx, "/images/"+url.PathEscape(fileKey), query, &imgResp); err != nil {
		return nil, err
	}

	if imgResp.Err != "" {
		return nil, fmt.Errorf("render API returned error (status %d): %s", imgResp.Status, imgResp.Err)
	}

	return &imgResp, nil
}

// Download opens a stream to a rendered image URL. The caller must close the body.
func (c *Client) Download(ctx context.Context, imageURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d downloading image", resp.StatusCode)
	}

	return resp.Body, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Figma-Token", c.accessToken)
	// Disable HTTP/2 to avoid stream errors with large files
	req.Header.Set("Connection", "close")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}

// APIError is returned when the Figma API answers with a non-200 status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Body)
}
