package prompts

import (
	"context"
	_ "embed"

	"github.com/cloudwego/eino/schema"
)

//go:embed template/router_system.txt
var routerSystemPrompt string

//go:embed template/router_user.txt
var routerUserPrompt string

// RenderRouter builds the classification prompt from the recent history text
// and the current question.
func RenderRouter(ctx context.Context, history, question string) ([]*schema.Message, error) {
	return render(ctx, "router", map[string]any{
		"History":  orNone(history),
		"Question": question,
	},
		schema.SystemMessage(routerSystemPrompt),
		schema.UserMessage(routerUserPrompt),
	)
}
