package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// OllamaClient talks to a local Ollama server. Text only; the pipeline
// routes image stages to the vision client.
type OllamaClient struct {
	http  *resty.Client
	model string
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

func NewOllamaClient(baseURL, model string) *OllamaClient {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(120 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})
	return &OllamaClient{http: http, model: model}
}

func (o *OllamaClient) Name() string { return "Ollama:" + o.model }
func (o *OllamaClient) Close() error { return nil }

func (o *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	var out ollamaResponse
	resp, err := o.http.R().
		SetContext(ctx).
		SetBody(ollamaRequest{Model: o.model, Prompt: prompt}).
		SetResult(&out).
		Post("/api/generate")
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("ollama returned %d: %s", resp.StatusCode(), resp.String())
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama: %s", out.Error)
	}
	if out.Response == "" {
		return "", ErrEmptyResponse
	}
	return out.Response, nil
}

func (o *OllamaClient) GenerateWithImage(ctx context.Context, prompt, imageURL string) (string, error) {
	return "", ErrNoVision
}
