package llm

import "context"

// GenerateOptions mirrors the sampling knobs both backends understand.
// Zero values mean "let the server decide".
type GenerateOptions struct {
	MaxTokens     int
	Temperature   float32
	TopP          float32
	RepeatPenalty float32
	Stop          []string
}

type Provider interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// GenerateStream calls onToken for each token as it arrives. Returning an
	// error from onToken aborts the generation.
	GenerateStream(ctx context.Context, prompt string, opts GenerateOptions, onToken func(token string) error) error
}
