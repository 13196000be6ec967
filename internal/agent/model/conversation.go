package model

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a Turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one immutable message of a Conversation.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// UserTurn and AssistantTurn stamp a new Turn with the current time.
func UserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content, CreatedAt: time.Now().UTC()}
}

func AssistantTurn(content string) Turn {
	return Turn{Role: RoleAssistant, Content: content, CreatedAt: time.Now().UTC()}
}

// Conversation is the ordered, append-only Turn log of one session.
type Conversation struct {
	SessionKey string
	Turns      []Turn
}

// Append returns a new Conversation with turns placed after the existing ones.
// The receiver is never modified.
func (c Conversation) Append(turns ...Turn) Conversation {
	out := make([]Turn, 0, len(c.Turns)+len(turns))
	out = append(out, c.Turns...)
	out = append(out, turns...)
	return Conversation{SessionKey: c.SessionKey, Turns: out}
}

// Len returns the number of turns.
func (c Conversation) Len() int {
	return len(c.Turns)
}

// Window returns a copy of the most recent exchanges, where one exchange is a
// user turn plus an assistant turn. exchanges <= 0 yields nothing.
func (c Conversation) Window(exchanges int) []Turn {
	if exchanges <= 0 || len(c.Turns) == 0 {
		return nil
	}
	n := 2 * exchanges
	src := c.Turns
	if len(src) > n {
		src = src[len(src)-n:]
	}
	out := make([]Turn, len(src))
	copy(out, src)
	return out
}

// SessionSummary describes one stored session for recency listings.
type SessionSummary struct {
	SessionKey string    `json:"session_key"`
	TurnCount  int       `json:"turn_count"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type ConversationRepository interface {
	// AppendTurns appends turns, in order, to the session's log in a single write.
	AppendTurns(ctx context.Context, sessionKey string, turns ...Turn) error

	// LoadConversation returns every turn of the session; unknown keys yield an empty Conversation.
	LoadConversation(ctx context.Context, sessionKey string) (*Conversation, error)

	// ListSessions returns known sessions, most recently updated first.
	ListSessions(ctx context.Context, limit int) ([]SessionSummary, error)
}

// NewSessionKey returns a fresh session key of the form conv_<8 hex>.
func NewSessionKey() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "conv_" + id[:8]
}
