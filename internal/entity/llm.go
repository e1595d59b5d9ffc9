package entity

// ChatTurn is one message in the wire format of the chat completion API.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatOptions struct {
	Temperature float64 `json:"temperature"`
	NumCtx      int     `json:"num_ctx,omitempty"`
}

// LLMChatRequest is the Ollama /api/chat request body.
type LLMChatRequest struct {
	Model    string      `json:"model"`
	Messages []ChatTurn  `json:"messages"`
	Stream   bool        `json:"stream"`
	Options  ChatOptions `json:"options"`
}

type LLMChatResponse struct {
	Model     string   `json:"model"`
	Message   ChatTurn `json:"message"`
	Done      bool     `json:"done"`
	TotalNS   int64    `json:"total_duration,omitempty"`
	EvalCount int      `json:"eval_count,omitempty"`
}

// EmbedRequest is the Ollama /api/embed request body. Input is batched:
// one vector comes back per input text.
type EmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type EmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

type ASRTranscribeResponse struct {
	Text string `json:"text"`
}
