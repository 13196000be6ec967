package nodes

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/Chative-core-poc-v1/lexroute/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/lexroute/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	APIKey       string
	BaseURL      string
	RouterConfig *model.RouterModelConfig
	RespConfig   *model.ResponseModelConfig
}

// ChatModels holds the classifier and the response model. It is passed to the
// nodes explicitly so tests can substitute fakes.
type ChatModels struct {
	Router            einomodel.BaseChatModel
	Response          einomodel.BaseChatModel
	RouterModelName   string
	ResponseModelName string
	RouterTimeout     time.Duration
	ResponseTimeout   time.Duration
}

// NewChatModels creates both Gemini chat models with the given configuration
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	if config.RouterConfig == nil || config.RespConfig == nil {
		return nil, fmt.Errorf("chat model config is incomplete")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	routerModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.RouterConfig.Model,
		Temperature: &config.RouterConfig.Temperature,
		MaxTokens:   &config.RouterConfig.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating router model")
		return nil, fmt.Errorf("error creating router model: %w", err)
	}

	respCfg := &gemini.Config{
		Client:      client,
		Model:       config.RespConfig.Model,
		Temperature: &config.RespConfig.Temperature,
		MaxTokens:   &config.RespConfig.MaxTokens,
	}
	// a negative budget leaves thinking at the model default
	if config.RespConfig.ThinkingBudget >= 0 {
		respCfg.ThinkingConfig = &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  genai.Ptr(config.RespConfig.ThinkingBudget),
		}
	}
	responseModel, err := gemini.NewChatModel(ctx, respCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating response model")
		return nil, fmt.Errorf("error creating response model: %w", err)
	}

	return &ChatModels{
		Router:            routerModel,
		Response:          responseModel,
		RouterModelName:   config.RouterConfig.Model,
		ResponseModelName: config.RespConfig.Model,
		RouterTimeout:     config.RouterConfig.Timeout,
		ResponseTimeout:   config.RespConfig.Timeout,
	}, nil
}

// Validate reports whether both models are present.
func (cm *ChatModels) Validate() error {
	if cm == nil || cm.Router == nil || cm.Response == nil {
		return fmt.Errorf("chat models are not properly initialized")
	}
	return nil
}
