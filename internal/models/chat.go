package models

// ChatRole distinguishes user messages from bot replies.
type ChatRole string

const (
	ChatRoleUser ChatRole = "user"
	ChatRoleBot  ChatRole = "bot"
)

// ChatMessage is one entry of the append-only conversation log. The log
// is bounded by the session length, not by a buffer cap; only the
// suggestion list is capped.
type ChatMessage struct {
	ID          string       `json:"id"`
	Role        ChatRole     `json:"role"`
	Text        string       `json:"text"`
	Suggestions []string     `json:"suggestions,omitempty"` // capped at 3
	Timestamp   FlexibleTime `json:"timestamp"`
}

// ChatRequest is the backend chatbot request body.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the backend chatbot reply.
type ChatResponse struct {
	Timestamp   FlexibleTime `json:"timestamp"`
	Answer      string       `json:"answer"`
	Suggestions []string     `json:"suggestions"`
}
