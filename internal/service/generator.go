package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"bitwise74/recipe-api/config"
	"bitwise74/recipe-api/pkg/apperr"
)

const RecipeGenerationPrompt = "You are a helpful chef. Write a complete recipe with a title, a list of ingredients with quantities and numbered step by step instructions, using mainly the following ingredients:"

// Generator turns a prompt into text using some generative model
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ChatGenerator talks to any OpenAI compatible chat completion API, which
// covers OpenAI, Ollama and Gemini's compatibility endpoint
type ChatGenerator struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

func NewChatGenerator(c config.AIConfig) *ChatGenerator {
	return &ChatGenerator{
		client:  &http.Client{Timeout: c.Timeout},
		baseURL: strings.TrimRight(c.BaseURL, "/"),
		apiKey:  c.APIKey,
		model:   c.Model,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (g *ChatGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:    g.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request, %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request, %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call model, %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response, %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("model returned %d: %s", resp.StatusCode, string(respBody))
	}

	var out chatResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("failed to decode response, %w", err)
	}

	if len(out.Choices) == 0 {
		return "", errors.New("model returned no choices")
	}

	return out.Choices[0].Message.Content, nil
}

// GenerateRecipe asks g for a recipe that uses the given ingredients. The
// model's answer is returned as is.
func GenerateRecipe(ctx context.Context, g Generator, ingredients string) (string, error) {
	ingredients = strings.TrimSpace(ingredients)
	if ingredients == "" {
		return "", apperr.New(apperr.Validation, "This field may not be blank.")
	}

	text, err := g.Generate(ctx, RecipeGenerationPrompt+" "+ingredients)
	if err != nil {
		return "", apperr.Wrap(apperr.Upstream, "Failed to generate recipe. Please try again.", err)
	}

	return text, nil
}
