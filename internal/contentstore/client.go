// Package contentstore is the content-addressed blob store client, backed by
// the kubo (IPFS) HTTP API. put(bytes) returns a CID; get(cid) returns the
// bytes or a not-found sentinel.
package contentstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/crdbl/crdbl/internal/platform/config"
	"github.com/crdbl/crdbl/pkg/platform/sentinel"
)

// Client talks to a kubo node's RPC API (/api/v0).
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New constructs a Client from configuration.
func New(cfg config.IPFSConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:    cfg.URL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Put uploads content and returns its CID.
func (c *Client) Put(ctx context.Context, content string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "content")
	if err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}
	if _, err := io.WriteString(part, content); err != nil {
		return "", fmt.Errorf("write upload form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v0/add", &body)
	if err != nil {
		return "", fmt.Errorf("build add request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("content store add: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read add response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("content store add %s: %s", resp.Status, string(raw))
	}

	var added struct {
		Hash string `json:"Hash"`
	}
	if err := json.Unmarshal(raw, &added); err != nil {
		return "", fmt.Errorf("decode add response: %w", err)
	}
	if added.Hash == "" {
		return "", fmt.Errorf("content store add returned no CID")
	}
	return added.Hash, nil
}

// Get retrieves content by CID. A CID the node cannot resolve surfaces as
// sentinel.ErrNotFound.
func (c *Client) Get(ctx context.Context, cid string) (string, error) {
	endpoint := c.baseURL + "/api/v0/cat?arg=" + url.QueryEscape(cid)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build cat request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("content store cat: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", fmt.Errorf("read cat response: %w", err)
	}
	if resp.StatusCode == http.StatusInternalServerError || resp.StatusCode == http.StatusNotFound {
		// kubo reports unknown CIDs as a 500 with an error body.
		return "", fmt.Errorf("content %q: %w", cid, sentinel.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("content store cat %s: %s", resp.Status, string(raw))
	}
	return string(raw), nil
}
