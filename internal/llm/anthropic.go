package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

const (
	defaultAnthropicModel = "claude-3-5-haiku-latest"
	anthropicURL          = "https://api.anthropic.com/v1/messages"
)

// ==========================================
// Anthropic Provider
// ==========================================
type AnthropicProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (string, error) {
	body := map[string]interface{}{
		"model":       p.model,
		"max_tokens":  req.MaxTokens,
		"temperature": req.Temperature,
		"messages": []map[string]string{
			{"role": "user", "content": req.Prompt},
		},
	}
	if len(req.Stop) > 0 {
		body["stop_sequences"] = req.Stop
	}
	reqBody, err := json.Marshal(body)
	if err != nil {
		return "", remoteErr(Anthropic, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(reqBody))
	if err != nil {
		return "", remoteErr(Anthropic, err)
	}
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")
	httpReq.Header.Set("content-type", "application/json")

	resp, err := httpClient(p.client).Do(httpReq)
	if err != nil {
		return "", remoteErr(Anthropic, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", remoteErrf(Anthropic, "api error: %d - %s", resp.StatusCode, string(bodyBytes))
	}

	var anthResp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&anthResp); err != nil {
		return "", remoteErr(Anthropic, err)
	}

	// Some models return several text blocks.
	var sb strings.Builder
	for _, block := range anthResp.Content {
		if block.Type == "" || block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", remoteErrf(Anthropic, "no text content in response")
	}
	return sb.String(), nil
}

func httpClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return http.DefaultClient
}
