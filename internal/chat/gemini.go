package chat

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiProvider вызывает Gemini через официальный GenAI SDK
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider создает клиента GenAI; пустая модель означает gemini-2.0-flash
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if model == "" {
		model = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiProvider{client: client, model: model}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Generate(ctx context.Context, prompt Prompt) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(openAITemperature)),
		MaxOutputTokens: openAIMaxTokens,
	}
	if prompt.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: prompt.System}},
		}
	}

	result, err := p.client.Models.GenerateContent(ctx, p.model, geminiContents(prompt), config)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("no response from gemini")
	}
	return text, nil
}

// geminiContents переводит историю в роли user/model
func geminiContents(prompt Prompt) []*genai.Content {
	contents := make([]*genai.Content, 0, len(prompt.History)+1)
	for _, m := range prompt.History {
		role := "model"
		if m.IsUser {
			role = "user"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return append(contents, &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt.Message}},
	})
}
