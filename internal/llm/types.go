package llm

// Role identifies who a chat message speaks as.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the conversation sent to a provider. Stage prompts
// are a system message plus a single user message carrying the manuscript.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest is a provider-neutral completion call. JSONMode asks the
// provider to constrain output to a JSON object where the API supports it;
// stage agents set it because their payloads are decoded structurally.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	JSONMode    bool
}

// CompletionResponse is what came back: the text plus whatever usage
// accounting the provider reported.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}

// TokensUsed is the combined prompt and completion token count, zero when
// the provider reports no usage.
func (r *CompletionResponse) TokensUsed() int {
	return r.InputTokens + r.OutputTokens
}
