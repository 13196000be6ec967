package model

// AppState stores per-invocation state for the Eino Graph.
// Concurrency model:
//   - Registered as Graph Local State via compose.WithGenLocalState.
//   - Read and written only inside Eino state handlers or compose.ProcessState,
//     which serialise access, so no extra locking is needed.
//   - Persistence goes through the conversations manager at the commit node.
type AppState struct {
	Request Request
	Route   Route
	Forced  bool // route came from a valid ForceBranch

	History Conversation // turns that existed before this request
	Pending []Turn       // turns produced by this request, committed at the end

	Degraded bool // a model call failed and a fallback answer was used

	// Accumulated total LLM cost (USD) across model invocations for this request
	TotalCostUSD float64
}

// Conversation returns the history with this request's pending turns applied.
func (s *AppState) Conversation() Conversation {
	return s.History.Append(s.Pending...)
}

// Request is the inbound payload of one turn.
type Request struct {
	Question     string `json:"question"`
	ContractText string `json:"contract_text,omitempty"`
	SessionKey   string `json:"session_key,omitempty"`
	ForceBranch  string `json:"force_branch,omitempty"`
}

// Response is returned to the caller once the turn is committed.
type Response struct {
	Router   Route         `json:"router"`
	Response string        `json:"response"`
	State    StateSnapshot `json:"state"`
}

// StateSnapshot is the diagnostic view of the state after the turn.
type StateSnapshot struct {
	SessionKey   string        `json:"session_key"`
	Question     string        `json:"question"`
	ContractText string        `json:"contract_text,omitempty"`
	Router       Route         `json:"router"`
	Forced       bool          `json:"forced"`
	Degraded     bool          `json:"degraded"`
	TotalCostUSD float64       `json:"total_cost_usd"`
	Messages     []MessageView `json:"messages"`
}

// MessageView is the {role, content} rendering of a Turn.
type MessageView struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Views renders turns as {role, content} pairs.
func Views(turns []Turn) []MessageView {
	out := make([]MessageView, 0, len(turns))
	for _, t := range turns {
		out = append(out, MessageView{Role: t.Role, Content: t.Content})
	}
	return out
}
