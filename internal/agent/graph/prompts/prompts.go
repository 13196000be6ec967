package prompts

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// Fixed texts shared by the branch handlers.
const (
	EmptyRecap             = "暂无可回顾的历史~"
	DefaultDraftRequest    = "请起草合同。"
	DefaultGreeting        = "你好"
	NoReviewTarget         = "（暂无合同文本，仅能给出一般性审阅建议）"
	InsufficientInfoNote   = "信息完整性评估：未提供合同文本，信息不足，以下仅为一般性建议，不引用任何具体条款（文本未提供）。"
	NonePlaceholder        = "（无）"
	NoSnippetsPlaceholder  = "（未检索到有效资料或暂时不可用）"
	TemporarilyUnavailable = "抱歉，暂时无法回答，请稍后重试。"
)

// render formats templates through the Eino prompt component so prompt
// callbacks fire for every rendered prompt.
func render(ctx context.Context, name string, vars map[string]any, templates ...schema.MessagesTemplate) ([]*schema.Message, error) {
	tpl := prompt.FromMessages(schema.GoTemplate, templates...)
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("%s prompt render: %w", name, err)
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("%s prompt render: empty result", name)
	}
	for _, m := range msgs {
		if m == nil {
			return nil, fmt.Errorf("%s prompt render: nil message", name)
		}
	}
	return msgs, nil
}

func orNone(s string) string {
	if s == "" {
		return NonePlaceholder
	}
	return s
}
