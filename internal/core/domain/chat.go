package domain

// ChatRole tags a chat-completion message
type ChatRole string

const (
	ChatRoleSystem    ChatRole = "system"
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one role-tagged message of a chat-completion request
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// IsValid returns true if the role is one the chat services accept
func (r ChatRole) IsValid() bool {
	return r == ChatRoleSystem || r == ChatRoleUser || r == ChatRoleAssistant
}
