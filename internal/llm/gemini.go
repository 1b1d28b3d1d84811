package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	genai "google.golang.org/genai"
)

// GeminiClient is a thin wrapper around the official genai client. It is
// the vision-capable tier of the pipeline.
type GeminiClient struct {
	cli   *genai.Client
	model string
	http  *resty.Client
}

func NewGeminiClient(ctx context.Context, model string) (*GeminiClient, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	http := resty.New().
		SetTimeout(20 * time.Second).
		SetHeader("User-Agent", "Mozilla/5.0 (X11; Linux x86_64)")
	return &GeminiClient{cli: cli, model: model, http: http}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }
func (g *GeminiClient) Close() error { return nil }

func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, []*genai.Part{{Text: prompt}})
}

func (g *GeminiClient) GenerateWithImage(ctx context.Context, prompt, imageURL string) (string, error) {
	data, mime, err := g.fetchImage(ctx, imageURL)
	if err != nil {
		return "", fmt.Errorf("fetch image: %w", err)
	}
	parts := []*genai.Part{
		{Text: prompt},
		{InlineData: &genai.Blob{MIMEType: mime, Data: data}},
	}
	return g.generate(ctx, parts)
}

// GenerateWithImages attaches several images to one prompt, for
// comparisons that need both sides in frame.
func (g *GeminiClient) GenerateWithImages(ctx context.Context, prompt string, imageURLs []string) (string, error) {
	parts := []*genai.Part{{Text: prompt}}
	for _, u := range imageURLs {
		data, mime, err := g.fetchImage(ctx, u)
		if err != nil {
			return "", fmt.Errorf("fetch image: %w", err)
		}
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: mime, Data: data}})
	}
	return g.generate(ctx, parts)
}

func (g *GeminiClient) generate(ctx context.Context, parts []*genai.Part) (string, error) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		resp, err := g.cli.Models.GenerateContent(ctx, g.model,
			[]*genai.Content{{Parts: parts}}, nil)
		if err != nil {
			lastErr = err
		} else if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil ||
			len(resp.Candidates[0].Content.Parts) == 0 {
			lastErr = ErrEmptyResponse
		} else {
			return resp.Candidates[0].Content.Parts[0].Text, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Duration(300*(1<<attempt)) * time.Millisecond):
		}
	}
	return "", lastErr
}

func (g *GeminiClient) fetchImage(ctx context.Context, url string) ([]byte, string, error) {
	resp, err := g.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode() != 200 {
		return nil, "", fmt.Errorf("image fetch returned %d", resp.StatusCode())
	}
	mime := resp.Header().Get("Content-Type")
	if mime == "" {
		mime = "image/jpeg"
	}
	return resp.Body(), mime, nil
}
