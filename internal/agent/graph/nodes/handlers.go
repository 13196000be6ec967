package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"

	"github.com/Chative-core-poc-v1/lexroute/internal/agent/graph/conversations"
	"github.com/Chative-core-poc-v1/lexroute/internal/agent/graph/prompts"
	"github.com/Chative-core-poc-v1/lexroute/internal/agent/model"
	"github.com/Chative-core-poc-v1/lexroute/internal/agent/search"
	logx "github.com/Chative-core-poc-v1/lexroute/pkg/logger"
)

const reviewInsufficientDetail = "请提供合同全文或需要审阅的关键条款，以便给出具体的风险评估。"

type handlerInput struct {
	Request model.Request
	History model.Conversation
}

func readInput(ctx context.Context) (handlerInput, error) {
	var in handlerInput
	err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
		in.Request = state.Request
		in.History = state.History
		return nil
	})
	if err != nil {
		return handlerInput{}, fmt.Errorf("failed to access state: %w", err)
	}
	return in, nil
}

// finish records the assistant turn for this request.
func finish(ctx context.Context, node, answer string) (string, error) {
	err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
		state.Pending = append(state.Pending, model.AssistantTurn(answer))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to access state: %w", err)
	}
	logx.Debug().Str("node", node).Int("answer_len", len(answer)).Msg("Handler answered")
	return answer, nil
}

// NewMemoryNode recaps earlier turns. An empty history yields a fixed reply
// without calling the model.
func NewMemoryNode(mm *conversations.MessagesManager, cms *ChatModels) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ model.Route) (string, error) {
		in, err := readInput(ctx)
		if err != nil {
			return "", err
		}

		window := mm.MemoryWindow(in.History)
		history := conversations.FormatTurns(window)
		if history == "" {
			return finish(ctx, NodeMemory, prompts.EmptyRecap)
		}

		msgs, err := prompts.RenderMemory(ctx, history)
		if err != nil {
			return finish(ctx, NodeMemory, answerOrFallback(ctx, NodeMemory, "", err))
		}
		answer, err := generate(ctx, cms.Response, cms.ResponseModelName, NodeMemory, cms.ResponseTimeout, msgs)
		if err == nil && answer == "" {
			answer = prompts.EmptyRecap
		}
		return finish(ctx, NodeMemory, answerOrFallback(ctx, NodeMemory, answer, err))
	})
}

// NewDraftNode drafts a contract from the question.
func NewDraftNode(cms *ChatModels) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ model.Route) (string, error) {
		in, err := readInput(ctx)
		if err != nil {
			return "", err
		}

		msgs, err := prompts.RenderDraft(ctx, in.Request.Question)
		if err != nil {
			return finish(ctx, NodeDraft, answerOrFallback(ctx, NodeDraft, "", err))
		}
		answer, err := generate(ctx, cms.Response, cms.ResponseModelName, NodeDraft, cms.ResponseTimeout, msgs)
		return finish(ctx, NodeDraft, answerOrFallback(ctx, NodeDraft, answer, err))
	})
}

// NewReviewNode produces a structured risk review. Without any material to
// review the answer always opens with the insufficiency note.
func NewReviewNode(cms *ChatModels) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ model.Route) (string, error) {
		in, err := readInput(ctx)
		if err != nil {
			return "", err
		}

		target, ok := prompts.ReviewTarget(in.Request.ContractText, in.Request.Question)
		msgs, err := prompts.RenderReview(ctx, target)
		var answer string
		if err == nil {
			answer, err = generate(ctx, cms.Response, cms.ResponseModelName, NodeReview, cms.ResponseTimeout, msgs)
		}

		if !ok {
			if err != nil || answer == "" {
				markDegraded(ctx, NodeReview, err)
				return finish(ctx, NodeReview, prompts.InsufficientInfoNote+"\n\n"+reviewInsufficientDetail)
			}
			if !strings.HasPrefix(answer, prompts.InsufficientInfoNote) {
				answer = prompts.InsufficientInfoNote + "\n\n" + answer
			}
			return finish(ctx, NodeReview, answer)
		}
		return finish(ctx, NodeReview, answerOrFallback(ctx, NodeReview, answer, err))
	})
}

// NewLookupNode answers with web snippets, recent turns and any contract text.
// Search trouble only leaves the snippets section empty.
func NewLookupNode(mm *conversations.MessagesManager, cms *ChatModels, searcher search.Searcher, maxResults int) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ model.Route) (string, error) {
		in, err := readInput(ctx)
		if err != nil {
			return "", err
		}

		var snippets string
		if in.Request.Question != "" && searcher != nil {
			snippets = searcher.Search(ctx, in.Request.Question, maxResults)
		}
		logx.Debug().
			Str("session_key", in.Request.SessionKey).
			Bool("has_snippets", snippets != "").
			Msg("Lookup search finished")

		msgs, err := prompts.RenderLookup(ctx, prompts.LookupInput{
			Question: in.Request.Question,
			History:  conversations.FormatTurns(mm.LookupWindow(in.History)),
			Context:  in.Request.ContractText,
			Snippets: snippets,
		})
		if err != nil {
			return finish(ctx, NodeLookup, answerOrFallback(ctx, NodeLookup, "", err))
		}
		answer, err := generate(ctx, cms.Response, cms.ResponseModelName, NodeLookup, cms.ResponseTimeout, msgs)
		return finish(ctx, NodeLookup, answerOrFallback(ctx, NodeLookup, answer, err))
	})
}

// NewSmalltalkNode passes the question to the model as is.
func NewSmalltalkNode(cms *ChatModels) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ model.Route) (string, error) {
		in, err := readInput(ctx)
		if err != nil {
			return "", err
		}

		msgs := prompts.RenderSmalltalk(in.Request.Question)
		answer, err := generate(ctx, cms.Response, cms.ResponseModelName, NodeSmalltalk, cms.ResponseTimeout, msgs)
		return finish(ctx, NodeSmalltalk, answerOrFallback(ctx, NodeSmalltalk, answer, err))
	})
}
