package nodes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-core-poc-v1/lexroute/internal/agent/graph/prompts"
	"github.com/Chative-core-poc-v1/lexroute/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/lexroute/pkg/logger"
)

// errEmptyAnswer is returned when the model replied with no text.
var errEmptyAnswer = errors.New("model returned empty content")

// generate runs one bounded model call and records its usage cost in state.
// Panics inside the model client are converted into errors.
func generate(
	ctx context.Context,
	cm einomodel.BaseChatModel,
	modelName, node string,
	timeout time.Duration,
	msgs []*schema.Message,
) (content string, err error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s model call panicked: %v", node, r)
		}
	}()

	// Model callbacks fire under the handler node's name.
	ctx = callbacks.ReuseHandlers(ctx, &callbacks.RunInfo{
		Name:      node,
		Component: components.ComponentOfChatModel,
	})
	out, err := cm.Generate(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("%s model call: %w", node, err)
	}
	if out == nil {
		return "", fmt.Errorf("%s model call: %w", node, errEmptyAnswer)
	}
	recordUsage(ctx, node, modelName, out)
	return strings.TrimSpace(out.Content), nil
}

// recordUsage computes and logs usage cost and accumulates it into state.
func recordUsage(ctx context.Context, node, modelName string, out *schema.Message) {
	if out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
		return
	}
	usage := out.ResponseMeta.Usage
	cost := model.ResolvePricing(modelName).Cost(usage)

	var sessionKey string
	var running float64
	_ = compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
		state.TotalCostUSD += cost.Total()
		sessionKey = state.Request.SessionKey
		running = state.TotalCostUSD
		return nil
	})

	logx.Debug().
		Str("session_key", sessionKey).
		Str("node", node).
		Str("model", modelName).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Int("total_tokens", usage.TotalTokens).
		Float64("input_cost_usd", cost.Input).
		Float64("output_cost_usd", cost.Output).
		Float64("total_cost_usd", cost.Total()).
		Float64("running_cost_usd", running).
		Msg("LLM usage")
}

// answerOrFallback turns a handler failure into the user-safe reply and
// marks the state degraded.
func answerOrFallback(ctx context.Context, node, answer string, err error) string {
	if err == nil && answer != "" {
		return answer
	}
	if err == nil {
		err = errEmptyAnswer
	}
	markDegraded(ctx, node, err)
	return prompts.TemporarilyUnavailable
}

func markDegraded(ctx context.Context, node string, err error) {
	if err == nil {
		err = errEmptyAnswer
	}
	var sessionKey string
	_ = compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
		state.Degraded = true
		sessionKey = state.Request.SessionKey
		return nil
	})
	logx.Error().
		Err(err).
		Str("session_key", sessionKey).
		Str("node", node).
		Msg("Handler model call failed; returning fallback answer")
}
