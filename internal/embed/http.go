package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"samplevault/internal/errors"
)

var errClosed = errors.New(errors.ErrCodeInternal, "embedder is closed", nil)

// HTTPConfig configures the local inference server backend.
type HTTPConfig struct {
	Endpoint   string
	Model      string
	Dimensions int
	BatchSize  int
	Timeout    time.Duration
}

// HTTPEmbedder calls a local CLAP inference server over HTTP. The
// server loads the audio itself, so requests carry item paths, not
// waveforms.
type HTTPEmbedder struct {
	client    *http.Client
	transport *http.Transport
	config    HTTPConfig

	mu     sync.RWMutex
	closed bool
}

var _ Embedder = (*HTTPEmbedder)(nil)

type embedRequest struct {
	Model  string   `json:"model"`
	Inputs []string `json:"inputs"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

// NewHTTPEmbedder creates the HTTP backend. The inference server keeps
// the model resident, so no health probe or warm-up is attempted here;
// the first batch pays the load cost.
func NewHTTPEmbedder(cfg HTTPConfig) (*HTTPEmbedder, error) {
	if cfg.Endpoint == "" {
		return nil, errors.ConfigError("embedding endpoint is required", nil)
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	// Short idle timeout: indexing runs are finite and connections
	// should drop quickly after a cancel.
	transport := &http.Transport{
		MaxIdleConns:        4,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     10 * time.Second,
	}
	// No client-level timeout; per-request contexts carry it so a
	// caller's deadline is never silently overridden.
	return &HTTPEmbedder{
		client:    &http.Client{Transport: transport},
		transport: transport,
		config:    cfg,
	}, nil
}

// Embed embeds one item.
func (e *HTTPEmbedder) Embed(ctx context.Context, input string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{input})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds up to BatchSize items per request, splitting larger
// inputs transparently.
func (e *HTTPEmbedder) EmbedBatch(ctx context.Context, inputs []string) ([][]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, errClosed
	}
	if len(inputs) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(inputs))
	for start := 0; start < len(inputs); start += e.config.BatchSize {
		end := start + e.config.BatchSize
		if end > len(inputs) {
			end = len(inputs)
		}
		vecs, err := e.doEmbed(ctx, inputs[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *HTTPEmbedder) doEmbed(ctx context.Context, inputs []string) ([][]float32, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	body, err := json.Marshal(embedRequest{Model: e.config.Model, Inputs: inputs})
	if err != nil {
		return nil, errors.InternalError("encode embed request", err)
	}

	url := strings.TrimSuffix(e.config.Endpoint, "/") + "/embed"
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.InternalError("build embed request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return nil, errors.New(errors.ErrCodeNetworkTimeout,
				fmt.Sprintf("embedding request timed out after %s", e.config.Timeout), err)
		}
		return nil, errors.New(errors.ErrCodeNetworkUnavailable,
			"embedding server unreachable", err).
			WithSuggestion("check that the inference server is running")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, errors.New(errors.ErrCodeNetworkUnavailable, "read embed response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(errors.ErrCodeNetworkUnavailable,
			fmt.Sprintf("embedding server returned %d: %s", resp.StatusCode, truncate(string(data), 200)), nil)
	}

	var parsed embedResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, errors.New(errors.ErrCodeEmbeddingFailed, "decode embed response", err)
	}
	if parsed.Error != "" {
		return nil, errors.New(errors.ErrCodeEmbeddingFailed, parsed.Error, nil)
	}
	if len(parsed.Embeddings) != len(inputs) {
		return nil, errors.New(errors.ErrCodeEmbeddingFailed,
			fmt.Sprintf("server returned %d embeddings for %d inputs", len(parsed.Embeddings), len(inputs)), nil)
	}
	for i, vec := range parsed.Embeddings {
		if len(vec) != e.config.Dimensions {
			return nil, errors.New(errors.ErrCodeDimensionMismatch,
				fmt.Sprintf("embedding %d has %d dims, expected %d", i, len(vec), e.config.Dimensions), nil)
		}
		parsed.Embeddings[i] = normalizeVector(vec)
	}

	slog.Debug("embed_batch",
		slog.Int("items", len(inputs)),
		slog.Duration("elapsed", time.Since(start)))
	return parsed.Embeddings, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Dimensions returns the configured vector length.
func (e *HTTPEmbedder) Dimensions() int { return e.config.Dimensions }

// ModelName returns the configured model identifier.
func (e *HTTPEmbedder) ModelName() string { return e.config.Model }

// Close shuts down idle connections.
func (e *HTTPEmbedder) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.transport.CloseIdleConnections()
	return nil
}
