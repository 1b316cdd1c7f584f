package llm

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

	"ai-roleplay-platform/backend/pkg/logger"
	"ai-roleplay-platform/backend/pkg/resilience"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Gateway failure modes. Callers decide on retries; the gateway never
// retries on its own.
var (
	// ErrProvider covers transport, quota and provider-side failures.
	ErrProvider = errors.New("language model provider failure")
	// ErrEmptyResponse is returned when the provider answers with no text.
	ErrEmptyResponse = errors.New("language model returned no text")
)

// Config holds provider settings for the gateway.
type Config struct {
	APIKey        string
	BaseURL       string
	Model         string
	UseLocalModel bool
	LocalModelURL string
	Timeout       time.Duration
}

// Gateway sends assembled prompt payloads to a generation provider and
// normalizes the returned text. It isolates provider-specific formatting:
// role-prefix echoes and stray markup never reach the controllers.
type Gateway struct {
	config     Config
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	log        *logger.Logger

	generations metric.Int64Counter
	latency     metric.Float64Histogram
}

// New creates a gateway for the configured provider.
func New(config Config, log *logger.Logger) (*Gateway, error) {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.openai.com/v1"
	}
	if config.Model == "" {
		config.Model = "gpt-4o"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.UseLocalModel && config.LocalModelURL == "" {
		return nil, errors.New("local model URL is required when the local model is enabled")
	}
	if !config.UseLocalModel && config.APIKey == "" {
		return nil, errors.New("provider API key is required")
	}

	meter := otel.Meter("llm")
	generations, err := meter.Int64Counter("llm_generations_total",
		metric.WithDescription("Completed generation calls, by outcome"))
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram("llm_generation_duration_seconds",
		metric.WithDescription("Latency of generation calls"))
	if err != nil {
		return nil, err
	}

	return &Gateway{
		config:      config,
		httpClient:  &http.Client{Timeout: config.Timeout},
		breaker:     resilience.New(resilience.DefaultConfig("llm-provider"), log),
		log:         log,
		generations: generations,
		latency:     latency,
	}, nil
}

// Generate sends an assembled payload to the provider and returns the
// cleaned reply. speaker is the display name of the character whose turn is
// being generated; it is needed to strip a leading role-prefix echo.
func (g *Gateway) Generate(ctx context.Context, payload string, speaker string) (string, error) {
	start := time.Now()

	var raw string
	err := g.breaker.Execute(func() error {
		var callErr error
		if g.config.UseLocalModel {
			raw, callErr = g.generateLocal(ctx, payload)
		} else {
			raw, callErr = g.generateOpenAI(ctx, payload)
		}
		return callErr
	})

	g.latency.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		g.generations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "error")))
		if errors.Is(err, ErrEmptyResponse) {
			return "", err
		}
		g.log.LogError(err, "generation call failed")
		return "", fmt.Errorf("%w: %v", ErrProvider, err)
	}

	cleaned := Clean(raw, speaker)
	if cleaned == "" {
		g.generations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "empty")))
		return "", ErrEmptyResponse
	}

	g.generations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ok")))
	return cleaned, nil
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (g *Gateway) generateOpenAI(ctx context.Context, payload string) (string, error) {
	requestBody := chatRequest{
		Model: g.config.Model,
		Messages: []chatMessage{
			{Role: "user", Content: payload},
		},
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("error marshaling request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.config.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("error creating request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.config.APIKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error making API request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API request failed with status code %d: %s", resp.StatusCode, string(body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("error unmarshaling response: %v", err)
	}

	if parsed.Error != nil {
		return "", fmt.Errorf("API error: %s", parsed.Error.Message)
	}

	if len(parsed.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	return parsed.Choices[0].Message.Content, nil
}

func (g *Gateway) generateLocal(ctx context.Context, payload string) (string, error) {
	requestBody := struct {
		Prompt string `json:"prompt"`
	}{Prompt: payload}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("error marshaling request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.config.LocalModelURL+"/generate", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("error creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error making API request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("local API request failed with status code %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Response string `json:"response"`
		Error    string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("error unmarshaling response: %v", err)
	}

	if parsed.Error != "" {
		return "", fmt.Errorf("local API error: %s", parsed.Error)
	}

	if parsed.Response == "" {
		return "", ErrEmptyResponse
	}

	return parsed.Response, nil
}

// Clean normalizes provider output: strips a leading role-prefix echo
// ("Assistant:" or the speaker's own name), removes emphasis markup wrapping
// whole lines, and trims surrounding whitespace. Providers are known to leak
// these tokens, so cleanup runs regardless of provider.
func Clean(raw string, speaker string) string {
	text := strings.TrimSpace(raw)

	for _, prefix := range []string{"Assistant:", speaker + ":"} {
		if prefix == ":" {
			continue
		}
		if len(text) >= len(prefix) && strings.EqualFold(text[:len(prefix)], prefix) {
			text = strings.TrimSpace(text[len(prefix):])
		}
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		// Strip markup only when it wraps the whole line, so emphasis inside
		// a sentence survives.
		if len(trimmed) > 1 && isMarkup(trimmed[0]) && isMarkup(trimmed[len(trimmed)-1]) {
			lines[i] = strings.TrimSpace(strings.Trim(trimmed, "*_"))
		} else {
			lines[i] = line
		}
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func isMarkup(c byte) bool {
	return c == '*' || c == '_'
}
