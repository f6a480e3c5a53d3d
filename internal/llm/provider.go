package llm

import "context"

// Provider defines the interface for LLM completion providers.
//
// Implementations report transport failures (network, auth, quota) as
// *errs.ProviderError and never retry on their own; retry policy belongs
// to the caller.
type Provider interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name returns the name of this provider.
	Name() string
}
