package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
)

const (
	defaultHuggingFaceModel = "mistralai/Mistral-7B-Instruct-v0.3"
	huggingFaceURL          = "https://router.huggingface.co/hf-inference/v1/chat/completions"
)

// ==========================================
// HuggingFace Provider (v1/chat/completions)
// ==========================================
type HuggingFaceProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func (p *HuggingFaceProvider) Complete(ctx context.Context, req Request) (string, error) {
	body := map[string]interface{}{
		"model": p.model,
		"messages": []map[string]string{
			{"role": "user", "content": req.Prompt},
		},
		"max_tokens":  req.MaxTokens,
		"temperature": req.Temperature,
		"stream":      false,
	}
	if len(req.Stop) > 0 {
		body["stop"] = req.Stop
	}
	reqBody, err := json.Marshal(body)
	if err != nil {
		return "", remoteErr(HuggingFace, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(reqBody))
	if err != nil {
		return "", remoteErr(HuggingFace, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := httpClient(p.client).Do(httpReq)
	if err != nil {
		return "", remoteErr(HuggingFace, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", remoteErrf(HuggingFace, "api error: %d - %s", resp.StatusCode, string(bodyBytes))
	}

	var chatResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", remoteErr(HuggingFace, err)
	}
	if len(chatResp.Choices) == 0 {
		return "", remoteErrf(HuggingFace, "empty response")
	}
	return chatResp.Choices[0].Message.Content, nil
}
