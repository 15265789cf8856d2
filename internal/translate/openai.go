package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"samplevault/internal/errors"
)

const systemPrompt = `You are a professional sound effect translator.
Translate the given audio filenames into the requested target language.
Rules:
1. Do NOT include file extensions. Output only the translated name stem.
2. Use standard audio post-production terminology.
3. Keep numbering and take markers (01, 02, take3) unchanged.
Return a valid JSON object:
{"results": [{"original": "<input>", "translated": "<translation>"}]}`

// OpenAIConfig configures the OpenAI-compatible chat backend.
type OpenAIConfig struct {
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
}

// OpenAITranslator translates names through any OpenAI-compatible chat
// completions endpoint. Transient failures retry with backoff; inputs
// the model drops come back as per-item errors, never as invented text.
type OpenAITranslator struct {
	client *http.Client
	config OpenAIConfig
	retry  errors.RetryConfig

	mu     sync.RWMutex
	closed bool
}

var _ Translator = (*OpenAITranslator)(nil)

// NewOpenAITranslator creates the chat backend.
func NewOpenAITranslator(cfg OpenAIConfig) (*OpenAITranslator, error) {
	if cfg.BaseURL == "" {
		return nil, errors.ConfigError("translation base URL is required", nil)
	}
	if cfg.Model == "" {
		return nil, errors.ConfigError("translation model is required", nil)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &OpenAITranslator{
		client: &http.Client{},
		config: cfg,
		retry:  errors.DefaultRetryConfig(),
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type translationItem struct {
	Original   string `json:"original"`
	Translated string `json:"translated"`
}

// TranslateBatch sends one chat request for the whole batch and aligns
// the model's answers back to the inputs by their original text.
func (t *OpenAITranslator) TranslateBatch(ctx context.Context, texts []string, targetLang string) ([]Result, error) {
	t.mu.RLock()
	closed := t.closed
	t.mu.RUnlock()
	if closed {
		return nil, errors.New(errors.ErrCodeInternal, "translator is closed", nil)
	}
	if len(texts) == 0 {
		return nil, nil
	}

	var content string
	err := errors.Retry(ctx, t.retry, func() error {
		var err error
		content, err = t.complete(ctx, texts, targetLang)
		return err
	})
	if err != nil {
		return nil, err
	}
	return alignResults(content, texts), nil
}

func (t *OpenAITranslator) complete(ctx context.Context, texts []string, targetLang string) (string, error) {
	userList, err := json.Marshal(texts)
	if err != nil {
		return "", errors.InternalError("encode translation inputs", err)
	}
	reqBody := chatRequest{
		Model: t.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf(
				"Translate the following audio filenames to %s:\n%s", targetLang, userList)},
		},
		Temperature: 0.2,
		ResponseFormat: &struct {
			Type string `json:"type"`
		}{Type: "json_object"},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", errors.InternalError("encode chat request", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()

	url := strings.TrimSuffix(t.config.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", errors.InternalError("build chat request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.config.APIKey)

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return "", errors.New(errors.ErrCodeNetworkTimeout,
				fmt.Sprintf("translation request timed out after %s", t.config.Timeout), err)
		}
		return "", errors.New(errors.ErrCodeNetworkUnavailable, "translation endpoint unreachable", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", errors.New(errors.ErrCodeNetworkUnavailable, "read chat response", err)
	}
	// 429 and 5xx are worth retrying; 4xx means the request itself is bad.
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", errors.New(errors.ErrCodeNetworkUnavailable,
			fmt.Sprintf("translation endpoint returned %d", resp.StatusCode), nil)
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.New(errors.ErrCodeTranslationFailed,
			fmt.Sprintf("translation endpoint returned %d: %s", resp.StatusCode, truncate(string(data), 200)), nil)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", errors.New(errors.ErrCodeTranslationFailed, "decode chat response", err)
	}
	if parsed.Error != nil {
		return "", errors.New(errors.ErrCodeTranslationFailed, parsed.Error.Message, nil)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New(errors.ErrCodeTranslationFailed, "chat response has no choices", nil)
	}

	slog.Debug("translate_batch",
		slog.Int("items", len(texts)),
		slog.Duration("elapsed", time.Since(start)))
	return parsed.Choices[0].Message.Content, nil
}

var (
	fencedJSON = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")
	// Salvages individual {"original": ..., "translated": ...} objects
	// from responses whose surrounding JSON is malformed.
	pairPattern = regexp.MustCompile(`\{[^{}]*"original"\s*:\s*"([^"]*)"[^{}]*"translated"\s*:\s*"([^"]*)"[^{}]*\}`)
)

// alignResults maps the model's output back onto the input order. An
// input the model dropped gets a per-item error so the caller can record
// the failure instead of silently keeping the old name.
func alignResults(content string, texts []string) []Result {
	clean := strings.TrimSpace(content)
	if m := fencedJSON.FindStringSubmatch(clean); m != nil {
		clean = m[1]
	}

	byOriginal := make(map[string]string)
	var payload struct {
		Results []translationItem `json:"results"`
	}
	if err := json.Unmarshal([]byte(clean), &payload); err == nil && len(payload.Results) > 0 {
		for _, item := range payload.Results {
			if item.Original != "" {
				byOriginal[item.Original] = item.Translated
			}
		}
	} else {
		var items []translationItem
		if err := json.Unmarshal([]byte(clean), &items); err == nil {
			for _, item := range items {
				if item.Original != "" {
					byOriginal[item.Original] = item.Translated
				}
			}
		}
	}
	if len(byOriginal) == 0 {
		for _, m := range pairPattern.FindAllStringSubmatch(clean, -1) {
			if m[1] != "" {
				byOriginal[m[1]] = m[2]
			}
		}
	}

	out := make([]Result, len(texts))
	for i, text := range texts {
		translated, ok := byOriginal[text]
		if !ok || strings.TrimSpace(translated) == "" {
			out[i] = Result{Original: text, Err: errors.New(errors.ErrCodeTranslationFailed,
				fmt.Sprintf("no translation returned for %q", text), nil)}
			continue
		}
		out[i] = Result{Original: text, Translated: translated}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// ModelVersion returns the configured model identifier.
func (t *OpenAITranslator) ModelVersion() string { return t.config.Model }

// Close marks the translator closed.
func (t *OpenAITranslator) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.client.CloseIdleConnections()
	return nil
}
