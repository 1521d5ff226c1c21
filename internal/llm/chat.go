package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// chatProvider implements Provider against OpenAI-compatible
// /chat/completions endpoints.
type chatProvider struct {
	name    string
	apiKey  string
	model   string
	baseURL string
	client  http.Client
}

type chatRequest struct {
	Model          string       `json:"model"`
	Messages       []chatMsg    `json:"messages"`
	MaxTokens      int          `json:"max_tokens,omitempty"`
	Temperature    float64      `json:"temperature"`
	ResponseFormat *responseFmt `json:"response_format,omitempty"`
}

type chatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFmt struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

const maxRetries = 3

func (p *chatProvider) Name() string {
	return p.name + "/" + p.model
}

func (p *chatProvider) Complete(ctx context.Context, prompt string, opts CompletionOpts) (string, error) {
	messages := make([]chatMsg, 0, 2)
	if opts.System != "" {
		messages = append(messages, chatMsg{Role: "system", Content: opts.System})
	}
	messages = append(messages, chatMsg{Role: "user", Content: prompt})

	req := chatRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: opts.Temperature,
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	if strings.ToLower(opts.Format) == "json" {
		req.ResponseFormat = &responseFmt{Type: "json_object"}
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		content, retryable, err := p.attempt(ctx, req)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !retryable || attempt == maxRetries {
			break
		}

		// Exponential backoff: 1s, 2s, 4s
		backoff := time.Duration(1<<attempt) * time.Second
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}
	return "", lastErr
}

func (p *chatProvider) attempt(ctx context.Context, req chatRequest) (string, bool, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", false, fmt.Errorf("marshaling request: %w", err)
	}

	url := p.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	if p.name == "openrouter" {
		httpReq.Header.Set("HTTP-Referer", "https://github.com/abpatramsft/hackernews-compare-tool")
		httpReq.Header.Set("X-Title", "HN Compare")
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", true, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode == 429 || resp.StatusCode >= 500
		return "", retryable, fmt.Errorf("%s API error (status %d): %s", p.name, resp.StatusCode, string(respBody))
	}

	var cr chatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return "", false, fmt.Errorf("parsing response: %w", err)
	}
	if cr.Error != nil {
		return "", false, fmt.Errorf("%s API error: %s", p.name, cr.Error.Message)
	}
	if len(cr.Choices) == 0 {
		return "", false, fmt.Errorf("empty response from %s API", p.name)
	}
	return strings.TrimSpace(cr.Choices[0].Message.Content), false, nil
}
