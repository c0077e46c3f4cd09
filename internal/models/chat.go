package models

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// SeedGreeting is always transcript index 0 and never sent upstream.
const SeedGreeting = "Hello! I'm the Health Yaar AI assistant. How can I help you today? You can ask me general health questions."

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	Role string `json:"role"` // "user" or "assistant"
	Text string `json:"text"`
}

// ChatRequest is the payload sent to the chat endpoint.
type ChatRequest struct {
	Message string `json:"message" validate:"required"`
}

// ChatResponse carries the reply and the transcript after it was appended.
type ChatResponse struct {
	Reply    string        `json:"reply"`
	Fallback bool          `json:"fallback"`
	Messages []ChatMessage `json:"messages"`
}

type TranscriptResponse struct {
	Messages []ChatMessage `json:"messages"`
}
