package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bitwise74/recipe-api/config"
	"bitwise74/recipe-api/internal/service"
	"bitwise74/recipe-api/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatGenerator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		if assert.Len(t, req.Messages, 1) {
			assert.Equal(t, "hello", req.Messages[0].Content)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Omelette"}}]}`))
	}))
	defer srv.Close()

	g := service.NewChatGenerator(config.AIConfig{
		BaseURL: srv.URL + "/v1/",
		APIKey:  "key",
		Model:   "test-model",
		Timeout: time.Second,
	})

	out, err := g.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Omelette", out)
}

func TestChatGeneratorErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"upstream error", http.StatusTooManyRequests, `{"error":"slow down"}`},
		{"no choices", http.StatusOK, `{"choices":[]}`},
		{"bad json", http.StatusOK, `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			g := service.NewChatGenerator(config.AIConfig{BaseURL: srv.URL, Model: "m", Timeout: time.Second})
			_, err := g.Generate(context.Background(), "hello")
			assert.Error(t, err)
		})
	}
}

func TestGenerateRecipe(t *testing.T) {
	g := &fakeGenerator{text: "Tomato omelette"}

	out, err := service.GenerateRecipe(context.Background(), g, "  eggs, tomatoes ")
	require.NoError(t, err)
	assert.Equal(t, "Tomato omelette", out)
	assert.True(t, strings.HasPrefix(g.prompt, service.RecipeGenerationPrompt))
	assert.True(t, strings.HasSuffix(g.prompt, "eggs, tomatoes"))

	_, err = service.GenerateRecipe(context.Background(), g, "   ")
	requireKind(t, err, apperr.Validation, "This field may not be blank.")

	g.err = errors.New("boom")
	_, err = service.GenerateRecipe(context.Background(), g, "eggs")
	requireKind(t, err, apperr.Upstream, "Failed to generate recipe. Please try again.")
	assert.Equal(t, http.StatusInternalServerError, apperr.Status(err))
}
