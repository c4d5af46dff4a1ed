package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/crdbl/crdbl/internal/platform/config"
	"github.com/crdbl/crdbl/pkg/apperr"
)

// systemPrompt pins the model to the single-digit protocol DecodeVerdict
// expects.
const systemPrompt = `
You are a contradiction detector.

Output rules
1 → The Statement does not contradict the Context (it may be unrelated or add new, non-conflicting facts).
0 → The Statement contradicts, misstates, or is logically incompatible with any part of the Context.
3 → It is impossible to tell from the Context whether the Statement contradicts it (information missing or ambiguous).

Respond ONLY with the single digit 1, 0, or 3 — no other text.
`

// Client evaluates claims against a chat-completion endpoint.
type Client struct {
	endpoint    string
	model       string
	temperature float64
	apiKey      string
	httpClient  *http.Client
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
func New(cfg config.OracleConfig, opts ...Option) *Client {
	c := &Client{
		endpoint:    cfg.Endpoint,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		apiKey:      cfg.APIKey,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Evaluate judges whether claim is consistent with the given context texts.
// Context texts are authoritative from the model's point of view; the claim
// is the statement under test.
func (c *Client) Evaluate(ctx context.Context, claim string, contextTexts []string) (Verdict, error) {
	prompt := buildPrompt(claim, contextTexts)

	payload, err := json.Marshal(chatRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("encode oracle request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("build oracle request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeUpstream, err, "consistency oracle unreachable")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeUpstream, err, "read oracle response")
	}
	if resp.StatusCode != http.StatusOK {
		return 0, apperr.New(apperr.CodeUpstream, "consistency oracle %s: %s", resp.Status, string(raw))
	}

	var decoded chatResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return 0, apperr.Wrap(apperr.CodeUpstream, err, "decode oracle response")
	}
	if len(decoded.Choices) == 0 {
		return 0, apperr.New(apperr.CodeUpstream, "consistency oracle returned no choices")
	}

	verdict, err := DecodeVerdict(decoded.Choices[0].Message.Content)
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeUpstream, err, "consistency oracle protocol violation")
	}
	return verdict, nil
}

func buildPrompt(claim string, contextTexts []string) string {
	var b bytes.Buffer
	b.WriteString("## Context (authoritative)\n")
	for _, text := range contextTexts {
		b.WriteString(text)
		b.WriteByte('\n')
	}
	b.WriteString("\n## Statement\n")
	b.WriteString(claim)
	return b.String()
}
