package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/compose"

	"github.com/Chative-core-poc-v1/lexroute/internal/agent/graph/conversations"
	"github.com/Chative-core-poc-v1/lexroute/internal/agent/graph/nodes"
	"github.com/Chative-core-poc-v1/lexroute/internal/agent/graph/observers"
	"github.com/Chative-core-poc-v1/lexroute/internal/agent/model"
	"github.com/Chative-core-poc-v1/lexroute/internal/agent/search"
	errx "github.com/Chative-core-poc-v1/lexroute/internal/core/error"
	logx "github.com/Chative-core-poc-v1/lexroute/pkg/logger"
)

// graphName is reported to callbacks as the name of the compiled graph.
const graphName = "lexroute"

// maxRunSteps covers load, classify, one handler and commit.
const maxRunSteps = 10

// Runner executes one request through the compiled router graph.
type Runner interface {
	Invoke(ctx context.Context, in model.Request) (*model.Response, error)
}

// Config holds everything needed to compose the full router graph end-to-end.
// This is a convenience layer over GraphConfig that also constructs ChatModels,
// the search adapter and the MessagesManager.
type Config struct {
	APIKey           string
	BaseURL          string
	RouterModel      model.RouterModelConfig
	ResponseModel    model.ResponseModelConfig
	Search           model.SearchConfig
	Conversation     model.ConversationConfig
	ConversationRepo model.ConversationRepository

	// Optional overrides; built from the fields above when nil.
	ChatModels *nodes.ChatModels
	Searcher   search.Searcher
}

// GraphConfig holds all configuration needed to build the graph
type GraphConfig struct {
	ChatModels       *nodes.ChatModels
	MessagesManager  *conversations.MessagesManager
	Searcher         search.Searcher
	SearchMaxResults int
	DefaultSession   string
}

// GraphBuilder handles the construction of the router graph
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.Request, *model.Response]
}

type graphRunner struct {
	runnable       compose.Runnable[model.Request, *model.Response]
	mm             *conversations.MessagesManager
	defaultSession string
}

// Invoke serialises requests per session so each request reads the turns
// committed by the previous one.
func (r *graphRunner) Invoke(ctx context.Context, in model.Request) (*model.Response, error) {
	req := nodes.NormalizeRequest(in, r.defaultSession)

	unlock := r.mm.LockSession(req.SessionKey)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := r.runnable.Invoke(ctx, req, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil {
		logx.Error().
			Err(err).
			Str("session_key", req.SessionKey).
			Bool("state_unavailable", errors.Is(err, errx.ErrStateUnavailable)).
			Msg("Router graph failed")
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("router graph returned no response")
	}
	return out, nil
}

// BuildRouterGraph composes ChatModels, the searcher and MessagesManager,
// builds the graph, and returns a Runner.
func BuildRouterGraph(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.ConversationRepo == nil {
		return nil, fmt.Errorf("conversation repo is nil")
	}

	cms := cfg.ChatModels
	if cms == nil {
		var err error
		cms, err = nodes.NewChatModels(ctx, nodes.ChatModelConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			RouterConfig: &cfg.RouterModel,
			RespConfig:   &cfg.ResponseModel,
		})
		if err != nil {
			return nil, err
		}
	}

	searcher := cfg.Searcher
	if searcher == nil {
		searcher = search.NewTavilyClient(cfg.Search, nil)
	}

	mm := conversations.NewMessagesManager(cfg.ConversationRepo, cfg.Conversation)

	runnable, err := BuildGraph(ctx, &GraphConfig{
		ChatModels:       cms,
		MessagesManager:  mm,
		Searcher:         searcher,
		SearchMaxResults: cfg.Search.MaxResults,
		DefaultSession:   cfg.Conversation.DefaultSession,
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().Msg("Router graph built successfully")
	return &graphRunner{
		runnable:       runnable,
		mm:             mm,
		defaultSession: cfg.Conversation.DefaultSession,
	}, nil
}

// BuildGraph constructs and returns the compiled router graph
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.Request, *model.Response], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if err := config.ChatModels.Validate(); err != nil {
		return nil, err
	}
	if config.MessagesManager == nil {
		return nil, fmt.Errorf("messages manager is nil")
	}
	if config.DefaultSession == "" {
		config.DefaultSession = "conv_default"
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.Request, *model.Response](
			compose.WithGenLocalState(func(ctx context.Context) *model.AppState {
				return &model.AppState{}
			}),
		),
	}

	if err := builder.addNodes(); err != nil {
		return nil, err
	}
	if err := builder.addEdges(); err != nil {
		return nil, err
	}
	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes() error {
	cms := b.config.ChatModels
	mm := b.config.MessagesManager

	lambdas := []struct {
		name   string
		lambda *compose.Lambda
	}{
		{nodes.NodeLoadConversation, nodes.NewLoadConversationNode(mm, b.config.DefaultSession)},
		{nodes.NodeClassify, nodes.NewClassifyNode(mm, cms)},
		{nodes.NodeMemory, nodes.NewMemoryNode(mm, cms)},
		{nodes.NodeDraft, nodes.NewDraftNode(cms)},
		{nodes.NodeReview, nodes.NewReviewNode(cms)},
		{nodes.NodeLookup, nodes.NewLookupNode(mm, cms, b.config.Searcher, b.config.SearchMaxResults)},
		{nodes.NodeSmalltalk, nodes.NewSmalltalkNode(cms)},
		{nodes.NodeCommit, nodes.NewCommitNode(mm)},
	}

	for _, l := range lambdas {
		if err := b.graph.AddLambdaNode(l.name, l.lambda, compose.WithNodeName(l.name)); err != nil {
			logx.Error().Err(err).Str("node", l.name).Msg("Error adding node")
			return fmt.Errorf("error adding node %s: %w", l.name, err)
		}
	}
	return nil
}

// addEdges creates the main flow connections between nodes
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeLoadConversation},
		{nodes.NodeLoadConversation, nodes.NodeClassify},
		{nodes.NodeCommit, compose.END},
	}
	for handler := range nodes.HandlerNodes() {
		edges = append(edges, [2]string{handler, nodes.NodeCommit})
	}

	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			logx.Error().Err(err).Str("from", edge[0]).Str("to", edge[1]).Msg("Error adding edge")
			return fmt.Errorf("error adding edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches dispatches the classified route to exactly one handler
func (b *GraphBuilder) addBranches() error {
	routeBranch := compose.NewGraphBranch(nodes.NewRouteCondition(), nodes.HandlerNodes())
	if err := b.graph.AddBranch(nodes.NodeClassify, routeBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding route branch")
		return fmt.Errorf("error adding route branch: %w", err)
	}
	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.Request, *model.Response], error) {
	runnable, err := b.graph.Compile(ctx,
		compose.WithGraphName(graphName),
		compose.WithMaxRunSteps(maxRunSteps),
	)
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
