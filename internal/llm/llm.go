package llm

import (
	"context"
	"errors"
)

// ChatInput carries the two prompt blocks for one completion request.
type ChatInput struct {
	SystemPrompt string
	UserPrompt   string
	// Label identifies the request in logs and timings.
	Label string
}

// Completion is the successful outcome of a chat-completion attempt.
type Completion struct {
	// Content is the raw, untrusted completion text.
	Content string
	// Model is the identifier of the model that produced the content.
	Model string
}

// Client abstracts chat-completion providers.
type Client interface {
	Complete(ctx context.Context, input ChatInput) (Completion, error)
}

// ErrAllModelsFailed is returned when every candidate in the model chain
// has been tried and none produced a usable completion.
var ErrAllModelsFailed = errors.New("all models failed")

// ErrMissingAPIKey indicates a broken deployment, not bad input. It is
// raised before any network call is made.
var ErrMissingAPIKey = errors.New("OPENROUTER_API_KEY is required")
