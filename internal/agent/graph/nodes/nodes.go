package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"

	"github.com/Chative-core-poc-v1/lexroute/internal/agent/graph/conversations"
	"github.com/Chative-core-poc-v1/lexroute/internal/agent/graph/intent"
	"github.com/Chative-core-poc-v1/lexroute/internal/agent/graph/parsers"
	"github.com/Chative-core-poc-v1/lexroute/internal/agent/graph/prompts"
	"github.com/Chative-core-poc-v1/lexroute/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/lexroute/pkg/logger"
)

// Node names
const (
	NodeLoadConversation = "load_conversation"
	NodeClassify         = "classify"
	NodeMemory           = "memory"
	NodeDraft            = "draft"
	NodeReview           = "review"
	NodeLookup           = "lookup"
	NodeSmalltalk        = "smalltalk"
	NodeCommit           = "commit"
)

var routeNodes = map[model.Route]string{
	model.RouteMemory:    NodeMemory,
	model.RouteDraft:     NodeDraft,
	model.RouteReview:    NodeReview,
	model.RouteLookup:    NodeLookup,
	model.RouteSmalltalk: NodeSmalltalk,
}

// HandlerNode returns the handler node name for a route. Unknown routes map
// to the small-talk handler.
func HandlerNode(route model.Route) string {
	if n, ok := routeNodes[route]; ok {
		return n
	}
	return NodeSmalltalk
}

// HandlerNodes lists every branch target of the classifier.
func HandlerNodes() map[string]bool {
	out := make(map[string]bool, len(routeNodes))
	for _, n := range routeNodes {
		out[n] = true
	}
	return out
}

// NormalizeRequest trims the inbound fields and fills in the default session.
func NormalizeRequest(in model.Request, defaultSession string) model.Request {
	in.Question = strings.TrimSpace(in.Question)
	in.SessionKey = strings.TrimSpace(in.SessionKey)
	in.ForceBranch = strings.TrimSpace(in.ForceBranch)
	if in.SessionKey == "" {
		in.SessionKey = defaultSession
	}
	return in
}

// NewLoadConversationNode reads the session history into state.
func NewLoadConversationNode(mm *conversations.MessagesManager, defaultSession string) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.Request) (model.Request, error) {
		req := NormalizeRequest(in, defaultSession)

		history, err := mm.Load(ctx, req.SessionKey)
		if err != nil {
			return model.Request{}, err
		}

		err = compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			state.Request = req
			state.History = history
			state.Pending = nil
			state.TotalCostUSD = 0
			return nil
		})
		if err != nil {
			return model.Request{}, fmt.Errorf("failed to access state: %w", err)
		}

		logx.Debug().
			Str("session_key", req.SessionKey).
			Int("history_turns", history.Len()).
			Msg("Conversation loaded")
		return req, nil
	})
}

// NewClassifyNode picks the route for the request and records the user turn.
// A valid force_branch bypasses the model; an invalid one is ignored.
func NewClassifyNode(mm *conversations.MessagesManager, cms *ChatModels) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, req model.Request) (model.Route, error) {
		var history model.Conversation
		if err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			history = state.History
			return nil
		}); err != nil {
			return "", fmt.Errorf("failed to access state: %w", err)
		}

		route, forced := model.ParseRoute(req.ForceBranch)
		source := "force_branch"
		if !forced {
			if req.ForceBranch != "" {
				logx.Warn().
					Str("session_key", req.SessionKey).
					Str("force_branch", req.ForceBranch).
					Msg("Ignoring unknown force_branch")
			}
			route, source = classify(ctx, mm, cms, history, req)
		}

		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			state.Route = route
			state.Forced = forced
			state.Pending = append(state.Pending, model.UserTurn(req.Question))
			return nil
		})
		if err != nil {
			return "", fmt.Errorf("failed to access state: %w", err)
		}

		logx.Info().
			Str("session_key", req.SessionKey).
			Str("route", route.String()).
			Str("source", source).
			Msg("Request routed")
		return route, nil
	})
}

// classify asks the router model and falls back to keyword rules when the
// call fails or its output cannot be parsed.
func classify(
	ctx context.Context,
	mm *conversations.MessagesManager,
	cms *ChatModels,
	history model.Conversation,
	req model.Request,
) (model.Route, string) {
	msgs, err := prompts.RenderRouter(ctx, conversations.FormatTurns(mm.RouterWindow(history)), req.Question)
	if err != nil {
		logx.Warn().Err(err).Str("session_key", req.SessionKey).Msg("Router prompt failed; using keyword fallback")
		return intent.Fallback(req.Question), "fallback"
	}

	content, err := generate(ctx, cms.Router, cms.RouterModelName, NodeClassify, cms.RouterTimeout, msgs)
	if err != nil {
		logx.Warn().Err(err).Str("session_key", req.SessionKey).Msg("Router model failed; using keyword fallback")
		return intent.Fallback(req.Question), "fallback"
	}

	route, err := parsers.ParseRouterOutput(content)
	if err != nil {
		logx.Debug().Err(err).Str("session_key", req.SessionKey).Msg("Router output unusable; using keyword fallback")
		return intent.Fallback(req.Question), "fallback"
	}
	return route, "model"
}

// NewRouteCondition maps the classified route to its handler node.
func NewRouteCondition() func(context.Context, model.Route) (string, error) {
	return func(ctx context.Context, route model.Route) (string, error) {
		return HandlerNode(route), nil
	}
}

// NewCommitNode persists the pending turns and assembles the response.
func NewCommitNode(mm *conversations.MessagesManager) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, answer string) (*model.Response, error) {
		var (
			req     model.Request
			pending []model.Turn
			resp    model.Response
		)
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			req = state.Request
			pending = append([]model.Turn(nil), state.Pending...)
			resp = model.Response{
				Router:   state.Route,
				Response: answer,
				State: model.StateSnapshot{
					SessionKey:   req.SessionKey,
					Question:     req.Question,
					ContractText: req.ContractText,
					Router:       state.Route,
					Forced:       state.Forced,
					Degraded:     state.Degraded,
					TotalCostUSD: state.TotalCostUSD,
					Messages:     model.Views(state.Conversation().Turns),
				},
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		if err := mm.Commit(ctx, req.SessionKey, pending); err != nil {
			return nil, err
		}

		logx.Debug().
			Str("session_key", req.SessionKey).
			Int("committed_turns", len(pending)).
			Float64("total_cost_usd", resp.State.TotalCostUSD).
			Msg("Turn committed")
		return &resp, nil
	})
}
