package llm

import (
	"context"
	"strings"
	"sync"
)

// FakeClient returns canned responses for testing. Responses are matched
// by substring against the prompt, in registration order; unmatched
// prompts get Default.
type FakeClient struct {
	mu      sync.Mutex
	rules   []fakeRule
	Default string
	Err     error

	// Prompts records every prompt seen, for call-count assertions.
	Prompts []string
	// ImageURLs records the image URL of each vision call.
	ImageURLs []string
}

type fakeRule struct {
	substr   string
	response string
}

func NewFakeClient() *FakeClient {
	return &FakeClient{Default: "NO"}
}

// Respond registers a canned response for prompts containing substr.
func (f *FakeClient) Respond(substr, response string) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, fakeRule{substr: substr, response: response})
	return f
}

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Prompts = append(f.Prompts, prompt)
	if f.Err != nil {
		return "", f.Err
	}
	for _, r := range f.rules {
		if strings.Contains(prompt, r.substr) {
			return r.response, nil
		}
	}
	return f.Default, nil
}

func (f *FakeClient) GenerateWithImage(ctx context.Context, prompt, imageURL string) (string, error) {
	f.mu.Lock()
	f.ImageURLs = append(f.ImageURLs, imageURL)
	f.mu.Unlock()
	return f.Generate(ctx, prompt)
}

func (f *FakeClient) GenerateWithImages(ctx context.Context, prompt string, imageURLs []string) (string, error) {
	f.mu.Lock()
	f.ImageURLs = append(f.ImageURLs, imageURLs...)
	f.mu.Unlock()
	return f.Generate(ctx, prompt)
}
