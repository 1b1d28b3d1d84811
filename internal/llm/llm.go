package llm

import (
	"context"
	"errors"
)

var (
	// ErrEmptyResponse means the model returned no usable text.
	ErrEmptyResponse = errors.New("llm: empty response from model")
	// ErrNoVision means the client cannot accept image input.
	ErrNoVision = errors.New("llm: client does not support image input")
)

// Client is a text-in, text-out language model. Responses are raw model
// text; parsing into structured answers happens in the callers.
type Client interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
	// GenerateWithImage sends the prompt together with an image fetched
	// from url. Clients without vision support return ErrNoVision.
	GenerateWithImage(ctx context.Context, prompt, imageURL string) (string, error)
	Close() error
}
