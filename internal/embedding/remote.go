package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const remoteProviderName = "remote"

// Remote calls an OpenAI-compatible /embeddings endpoint.
type Remote struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

// NewRemote creates a remote embedding client.
func NewRemote(cfg Config) *Remote {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Remote{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		http:    &http.Client{Timeout: timeout},
	}
}

// Name returns "remote".
func (r *Remote) Name() string { return remoteProviderName }

// Embed sends text to the embeddings endpoint. The returned vector's length
// defines the result dimensions.
func (r *Remote) Embed(ctx context.Context, text string) (*Result, error) {
	body := map[string]any{
		"model": r.model,
		"input": []string{text},
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/embeddings", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote embed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote embed: %s: %s", resp.Status, respBody)
	}

	var result struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, err
	}
	if len(result.Data) == 0 {
		return nil, fmt.Errorf("remote embed: empty response")
	}

	vec := result.Data[0].Embedding
	return &Result{
		Provider:   remoteProviderName,
		Model:      r.model,
		Dimensions: len(vec),
		Vector:     vec,
	}, nil
}
