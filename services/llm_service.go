package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"google.golang.org/genai"
)

const DefaultTemperature = 0.3

// LanguageModel turns a system prompt and a user prompt into a completion.
type LanguageModel interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// LangChainModel adapts any langchaingo llms.Model.
type LangChainModel struct {
	model       llms.Model
	temperature float64
}

func NewLangChainModel(model llms.Model, temperature float64) *LangChainModel {
	return &LangChainModel{model: model, temperature: temperature}
}

// NewOpenAICompatibleModel builds a model for any OpenAI-compatible chat API,
// Groq included.
func NewOpenAICompatibleModel(apiKey, modelName, baseURL string, temperature float64) (*LangChainModel, error) {
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(modelName),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}
	return NewLangChainModel(llm, temperature), nil
}

func (m *LangChainModel) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}
	resp, err := m.model.GenerateContent(ctx, messages, llms.WithTemperature(m.temperature))
	if err != nil {
		return "", fmt.Errorf("llm call failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("llm returned no choices")
	}
	return resp.Choices[0].Content, nil
}

// GeminiModel calls a Gemini model through the genai client.
type GeminiModel struct {
	client      *genai.Client
	modelName   string
	temperature float32
}

func NewGeminiModel(ctx context.Context, apiKey, modelName string, temperature float64) (*GeminiModel, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiModel{client: client, modelName: modelName, temperature: float32(temperature)}, nil
}

func (m *GeminiModel) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	result, err := m.client.Models.GenerateContent(ctx, m.modelName, genai.Text(userPrompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(m.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("gemini api call failed: %w", err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini returned no candidates")
	}

	var responseText strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		if p.Text != "" {
			responseText.WriteString(p.Text)
		}
	}
	return responseText.String(), nil
}
