package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"project/backend/config"
)

// Provider - внешняя языковая модель: принимает текстовый промпт,
// возвращает свободный текст. Ответ всегда считается недоверенным.
type Provider interface {
	// GenerateText - обычный текстовый ответ
	GenerateText(ctx context.Context, prompt string) (string, error)
	// GenerateJSON - ответ в JSON-режиме (модель всё равно может вернуть мусор)
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// ProviderFunc адаптирует функцию под интерфейс Provider (удобно в тестах)
type ProviderFunc func(ctx context.Context, prompt string, jsonMode bool) (string, error)

func (f ProviderFunc) GenerateText(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt, false)
}

func (f ProviderFunc) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt, true)
}

// GroqClient ходит в OpenAI-совместимый chat completions endpoint.
// Ключи ротируются через инжектируемый pick, чтобы тесты были детерминированными.
type GroqClient struct {
	baseURL    string
	model      string
	apiKeys    []string
	pick       func(n int) int
	httpClient *http.Client
}

func NewGroqClient(cfg *config.Config) *GroqClient {
	timeout := time.Duration(cfg.AITimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &GroqClient{
		baseURL:    strings.TrimRight(cfg.GroqBaseURL, "/"),
		model:      cfg.GroqModel,
		apiKeys:    cfg.GroqAPIKeys,
		pick:       rand.Intn,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithKeySelector заменяет стратегию выбора API ключа
func (g *GroqClient) WithKeySelector(pick func(n int) int) *GroqClient {
	g.pick = pick
	return g
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat *formatSpec   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type formatSpec struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (g *GroqClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	return g.complete(ctx, prompt, nil)
}

func (g *GroqClient) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	return g.complete(ctx, prompt, &formatSpec{Type: "json_object"})
}

func (g *GroqClient) complete(ctx context.Context, prompt string, format *formatSpec) (string, error) {
	if len(g.apiKeys) == 0 {
		return "", &GenerationError{Reason: "no API keys configured"}
	}
	apiKey := g.apiKeys[g.pick(len(g.apiKeys))]

	body, err := json.Marshal(chatRequest{
		Model:          g.model,
		Messages:       []chatMessage{{Role: "user", Content: prompt}},
		ResponseFormat: format,
	})
	if err != nil {
		return "", &GenerationError{Reason: "encode request", Err: err}
	}

	url := g.baseURL + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", &GenerationError{Reason: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", &GenerationError{Reason: "provider unreachable", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &GenerationError{Reason: "read response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &GenerationError{
			Reason: fmt.Sprintf("provider returned status %d", resp.StatusCode),
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &GenerationError{Reason: "decode response", Err: err}
	}
	if len(parsed.Choices) == 0 {
		return "", &GenerationError{Reason: "empty choices in response"}
	}

	return parsed.Choices[0].Message.Content, nil
}
