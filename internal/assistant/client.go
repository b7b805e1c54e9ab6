package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	modelName      = "gemini-2.0-flash"
)

var (
	// ErrNotConfigured means no API key is set; the assistant is disabled.
	ErrNotConfigured = errors.New("assistant api key not configured")
	// ErrRateLimited maps the upstream 429 response.
	ErrRateLimited = errors.New("assistant rate limit exceeded: you have hit the rate limit, please wait a few minutes and try again")
)

const fallbackReply = "Sorry, I couldn't get a response from the assistant."

// Turn is one message of a conversation. Sender is "user" or "ai".
type Turn struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// Client talks to the Gemini generateContent API. The zero API key disables
// it rather than failing at startup, so the rest of the app runs without an
// assistant.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Gemini request/response wire types.

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type generateRequest struct {
	Contents []geminiContent `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Chat sends the conversation, prefixed by the role-aware standing prompt,
// and returns the model's reply with the trailing self-check line removed.
func (c *Client) Chat(ctx context.Context, role string, turns []Turn) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	contents := make([]geminiContent, 0, len(turns)+1)
	contents = append(contents, geminiContent{
		Role:  "model",
		Parts: []geminiPart{{Text: contextPrompt(role)}},
	})
	for _, turn := range turns {
		wireRole := "user"
		if turn.Sender == "ai" {
			wireRole = "model"
		}
		contents = append(contents, geminiContent{
			Role:  wireRole,
			Parts: []geminiPart{{Text: turn.Text}},
		})
	}

	body, err := json.Marshal(generateRequest{Contents: contents})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, modelName, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("assistant request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusTooManyRequests {
		return "", ErrRateLimited
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("assistant api error: %s", res.Status)
	}

	var decoded generateResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return stripSelfCheck(replyText(decoded)), nil
}

// Ping checks connectivity and key validity via the cheap models listing.
func (c *Client) Ping(ctx context.Context) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	url := fmt.Sprintf("%s/models?key=%s", c.baseURL, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("assistant ping: %w", err)
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)

	if res.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("assistant ping failed: %s", res.Status)
	}
	return nil
}

func replyText(res generateResponse) string {
	if len(res.Candidates) == 0 || len(res.Candidates[0].Content.Parts) == 0 {
		return fallbackReply
	}
	text := res.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return fallbackReply
	}
	return text
}

// stripSelfCheck drops the bare true/false line the standing prompt asks the
// model to append.
func stripSelfCheck(reply string) string {
	lines := strings.Split(strings.TrimSpace(reply), "\n")
	if len(lines) > 1 {
		last := strings.ToLower(strings.TrimSpace(lines[len(lines)-1]))
		if last == "true" || last == "false" {
			return strings.TrimSpace(strings.Join(lines[:len(lines)-1], "\n"))
		}
	}
	return strings.TrimSpace(reply)
}
