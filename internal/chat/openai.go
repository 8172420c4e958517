package chat

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

const (
	defaultOpenAIModel = "gpt-3.5-turbo"
	openAITemperature  = 0.7
	openAIMaxTokens    = 500
)

// OpenAIProvider вызывает chat completions API
type OpenAIProvider struct {
	apiKey     string
	apiURL     string
	model      string
	httpClient *http.Client
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

// NewOpenAIProvider создает провайдера; пустая модель означает gpt-3.5-turbo
func NewOpenAIProvider(apiKey, apiURL, model string, timeout time.Duration) *OpenAIProvider {
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIProvider{
		apiKey: apiKey,
		apiURL: apiURL,
		model:  model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Generate(ctx context.Context, prompt Prompt) (string, error) {
	messages := make([]openAIMessage, 0, len(prompt.History)+2)
	messages = append(messages, openAIMessage{Role: "system", Content: prompt.System})
	for _, m := range prompt.History {
		role := "assistant"
		if m.IsUser {
			role = "user"
		}
		messages = append(messages, openAIMessage{Role: role, Content: m.Content})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: prompt.Message})

	jsonData, err := json.Marshal(openAIRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: openAITemperature,
		MaxTokens:   openAIMaxTokens,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.apiKey))

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("openai API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}

	return out.Choices[0].Message.Content, nil
}
