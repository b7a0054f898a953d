// Package conversation contains the immutable conversation model shared by
// all analyzers. The engine only ever reads a conversation; callers own the
// message sequence and its persistence.
package conversation

// Role identifies who produced a message.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is a single conversational turn. Immutable once appended.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is a chronological, append-only sequence of messages.
// The last element is the turn being judged.
type Conversation []Message

// Last returns the final message. ok is false for an empty conversation.
func (c Conversation) Last() (Message, bool) {
	if len(c) == 0 {
		return Message{}, false
	}
	return c[len(c)-1], true
}

// LastIsUser reports whether the turn under judgment is a user turn.
func (c Conversation) LastIsUser() bool {
	last, ok := c.Last()
	return ok && last.Role == RoleUser
}

// Tail returns the trailing n messages (the whole conversation if shorter).
func (c Conversation) Tail(n int) Conversation {
	if n <= 0 || len(c) <= n {
		return c
	}
	return c[len(c)-n:]
}

// LastAssistant returns the most recent assistant message strictly before
// the final turn. ok is false when no assistant turn exists.
func (c Conversation) LastAssistant() (Message, bool) {
	for i := len(c) - 2; i >= 0; i-- {
		if c[i].Role == RoleAssistant {
			return c[i], true
		}
	}
	return Message{}, false
}

// CountRoles returns the number of user and assistant turns.
func (c Conversation) CountRoles() (users, assistants int) {
	for _, m := range c {
		switch m.Role {
		case RoleUser:
			users++
		case RoleAssistant:
			assistants++
		}
	}
	return users, assistants
}
