package llm

import "context"

type Message struct {
	Role    string
	Content string
}

type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Client is a provider-agnostic chat completion client. Both collaborators
// (analysis and response generation) are built on top of it, so either
// provider can serve either role.
type Client interface {
	Generate(ctx context.Context, messages []Message) (Response, error)
}
