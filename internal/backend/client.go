// Package backend is the authenticated client for the dashboard REST API.
//
// Every call takes the caller's context and the session token. A non-empty
// token is sent as "Authorization: Bearer <token>"; an empty one sends no
// Authorization header at all. Any transport failure or non-2xx status is
// returned as an error. There is no retry.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ashureev/socialdash/internal/telemetry"
)

const maxErrorBody = 64 << 10

// APIError is a non-2xx backend response.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend returned %d", e.StatusCode)
}

// ErrorMessage returns the backend's message for err when it carries one.
func ErrorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// Client calls the backend API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a client for baseURL. timeout bounds a whole request; zero
// leaves cancellation to the caller's context.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend url %q is not absolute", baseURL)
	}

	c := &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: telemetry.Transport(nil),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend origin.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// ResolveURL turns a backend-relative media path into an absolute URL.
// Absolute URLs and empty strings are returned unchanged.
func (c *Client) ResolveURL(ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() {
		return ref
	}
	if !strings.HasPrefix(ref, "/") {
		u, _ = url.Parse("/" + ref)
	}
	return c.baseURL.ResolveReference(u).String()
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.String() + path
}

// do sends a JSON request. in may be nil; out may be nil.
func (c *Client) do(ctx context.Context, token, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, token, out)
}

func (c *Client) send(req *http.Request, token string, out any) error {
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(raw),
			Body:       raw,
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

// errorMessage extracts {"error": ...} or {"detail": ...}.
func errorMessage(raw []byte) string {
	var body struct {
		Error  json.RawMessage `json:"error"`
		Detail string          `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if len(body.Error) > 0 {
		var s string
		if err := json.Unmarshal(body.Error, &s); err == nil {
			return s
		}
		return string(body.Error)
	}
	return body.Detail
}

// ObtainToken exchanges credentials for a token pair.
func (c *Client) ObtainToken(ctx context.Context, creds Credentials) (TokenPair, error) {
	var pair TokenPair
	err := c.do(ctx, "", http.MethodPost, "/api/account/token/", creds, &pair)
	return pair, err
}

// Register creates an account and returns its token pair.
func (c *Client) Register(ctx context.Context, reg Registration) (TokenPair, error) {
	var resp registerResponse
	if err := c.do(ctx, "", http.MethodPost, "/api/account/register/", reg, &resp); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: resp.AccessToken, Refresh: resp.RefreshToken}, nil
}

// RefreshToken exchanges a refresh token for a new access token.
func (c *Client) RefreshToken(ctx context.Context, refresh string) (TokenPair, error) {
	var pair TokenPair
	in := map[string]string{"refresh": refresh}
	if err := c.do(ctx, "", http.MethodPost, "/api/account/token/refresh/", in, &pair); err != nil {
		return TokenPair{}, err
	}
	if pair.Refresh == "" {
		pair.Refresh = refresh
	}
	return pair, nil
}

// CreateBusinessAccount links a business profile to the account.
func (c *Client) CreateBusinessAccount(ctx context.Context, token string, in BusinessAccountInput) (BusinessAccount, error) {
	var acct BusinessAccount
	err := c.do(ctx, token, http.MethodPost, "/api/account/business-accounts/", in, &acct)
	return acct, err
}

// GetBusinessAccount fetches a business profile.
func (c *Client) GetBusinessAccount(ctx context.Context, token, id string) (BusinessAccount, error) {
	var acct BusinessAccount
	err := c.do(ctx, token, http.MethodGet, "/api/account/business-accounts/"+url.PathEscape(id)+"/", nil, &acct)
	return acct, err
}

// InstagramInsights fetches account insights.
func (c *Client) InstagramInsights(ctx context.Context, token string) (Insights, error) {
	var resp insightsResponse
	err := c.do(ctx, token, http.MethodGet, "/api/dashboard/instagram/insights/", nil, &resp)
	return resp.Insights, err
}

// InstagramPosts fetches recent posts.
func (c *Client) InstagramPosts(ctx context.Context, token string) ([]Post, error) {
	var resp postsResponse
	err := c.do(ctx, token, http.MethodGet, "/api/dashboard/instagram/posts/", nil, &resp)
	return resp.Posts, err
}

// InstagramProfile fetches the linked account profile.
func (c *Client) InstagramProfile(ctx context.Context, token string) (Profile, error) {
	var resp profileResponse
	err := c.do(ctx, token, http.MethodGet, "/api/dashboard/instagram/profile/", nil, &resp)
	return resp.Profile, err
}

// PostComments fetches comments on a post.
func (c *Client) PostComments(ctx context.Context, token, mediaID string) ([]Comment, error) {
	var resp commentsResponse
	path := "/api/dashboard/instagram/post/" + url.PathEscape(mediaID) + "/comments/"
	err := c.do(ctx, token, http.MethodGet, path, nil, &resp)
	return resp.Comments, err
}

// GeneratePost generates an image and caption from prompt.
func (c *Client) GeneratePost(ctx context.Context, token, prompt string) (GeneratedPost, error) {
	var post GeneratedPost
	in := map[string]string{"prompt": prompt}
	err := c.do(ctx, token, http.MethodPost, "/api/dashboard/generate_post/", in, &post)
	return post, err
}

// GenerateCaption generates a caption only.
func (c *Client) GenerateCaption(ctx context.Context, token string, in CaptionRequest) (string, error) {
	var resp captionResponse
	err := c.do(ctx, token, http.MethodPost, "/api/dashboard/generate_caption/", in, &resp)
	return resp.Caption, err
}

// SentimentAnalysis scores text.
func (c *Client) SentimentAnalysis(ctx context.Context, token, text string) (Sentiment, error) {
	var resp sentimentResponse
	in := map[string]string{"text": text}
	err := c.do(ctx, token, http.MethodPost, "/api/dashboard/sentiment_analysis/", in, &resp)
	return resp.SentimentScore, err
}

// PublishPost publishes a caption and image to the linked account.
func (c *Client) PublishPost(ctx context.Context, token string, in PublishInput) (PublishResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("caption", in.Caption); err != nil {
		return PublishResult{}, fmt.Errorf("encode caption: %w", err)
	}
	if in.ImageURL != "" {
		if err := mw.WriteField("image_url", in.ImageURL); err != nil {
			return PublishResult{}, fmt.Errorf("encode image_url: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return PublishResult{}, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/api/dashboard/publish_post/"), &buf)
	if err != nil {
		return PublishResult{}, fmt.Errorf("build publish request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var result PublishResult
	err = c.send(req, token, &result)
	return result, err
}
