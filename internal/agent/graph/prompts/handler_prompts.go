package prompts

import (
	"context"
	_ "embed"
	"strings"

	"github.com/cloudwego/eino/schema"
)

var (
	//go:embed template/memory.txt
	memoryPrompt string
	//go:embed template/draft.txt
	draftPrompt string
	//go:embed template/review_system.txt
	reviewSystemPrompt string
	//go:embed template/review_user.txt
	reviewUserPrompt string
	//go:embed template/lookup_system.txt
	lookupSystemPrompt string
	//go:embed template/lookup_user.txt
	lookupUserPrompt string
)

// RenderMemory asks for a bulleted recap of the given history text.
func RenderMemory(ctx context.Context, history string) ([]*schema.Message, error) {
	return render(ctx, "memory", map[string]any{"History": history},
		schema.UserMessage(memoryPrompt),
	)
}

// RenderDraft treats requirements as the contract elements; empty input asks
// for a generic draft.
func RenderDraft(ctx context.Context, requirements string) ([]*schema.Message, error) {
	if strings.TrimSpace(requirements) == "" {
		requirements = DefaultDraftRequest
	}
	return render(ctx, "draft", map[string]any{"Requirements": requirements},
		schema.UserMessage(draftPrompt),
	)
}

// ReviewTarget picks what to review: contract text, then question, then a
// placeholder. ok is false when only the placeholder is available.
func ReviewTarget(contractText, question string) (target string, ok bool) {
	if t := strings.TrimSpace(contractText); t != "" {
		return t, true
	}
	if q := strings.TrimSpace(question); q != "" {
		return q, true
	}
	return NoReviewTarget, false
}

// RenderReview builds the structured risk-review prompt.
func RenderReview(ctx context.Context, target string) ([]*schema.Message, error) {
	return render(ctx, "review", map[string]any{"Target": target},
		schema.SystemMessage(reviewSystemPrompt),
		schema.UserMessage(reviewUserPrompt),
	)
}

// LookupInput carries the material for a web-augmented answer.
type LookupInput struct {
	Question string
	History  string
	Context  string
	Snippets string
}

// RenderLookup builds the lookup prompt; empty sections get placeholders.
func RenderLookup(ctx context.Context, in LookupInput) ([]*schema.Message, error) {
	snippets := in.Snippets
	if strings.TrimSpace(snippets) == "" {
		snippets = NoSnippetsPlaceholder
	}
	return render(ctx, "lookup", map[string]any{
		"Question": in.Question,
		"History":  orNone(in.History),
		"Context":  orNone(strings.TrimSpace(in.Context)),
		"Snippets": snippets,
	},
		schema.SystemMessage(lookupSystemPrompt),
		schema.UserMessage(lookupUserPrompt),
	)
}

// RenderSmalltalk passes the question through unframed.
func RenderSmalltalk(question string) []*schema.Message {
	if strings.TrimSpace(question) == "" {
		question = DefaultGreeting
	}
	return []*schema.Message{schema.UserMessage(question)}
}
