package model

import "time"

// ================ Config ================
type ConversationConfig struct {
	TTL            time.Duration `envconfig:"CONVERSATION_TTL" default:"0s"`
	DefaultSession string        `envconfig:"CONVERSATION_DEFAULT_SESSION" default:"conv_default"`
	Router         struct {
		MaxTurns int `envconfig:"CONVERSATION_ROUTER_MAX_TURNS" default:"6"`
	}
	Memory struct {
		MaxTurns int `envconfig:"CONVERSATION_MEMORY_MAX_TURNS" default:"12"`
	}
	Lookup struct {
		MaxTurns int `envconfig:"CONVERSATION_LOOKUP_MAX_TURNS" default:"4"`
	}
}

type RouterModelConfig struct {
	Model       string        `envconfig:"ROUTER_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int           `envconfig:"ROUTER_MAX_TOKENS" default:"256"`
	Temperature float32       `envconfig:"ROUTER_TEMPERATURE" default:"0"`
	Timeout     time.Duration `envconfig:"ROUTER_TIMEOUT" default:"20s"`
}

type ResponseModelConfig struct {
	Model          string        `envconfig:"RESPONSE_MODEL" default:"gemini-2.5-flash"`
	MaxTokens      int           `envconfig:"RESPONSE_MAX_TOKENS" default:"4096"`
	Temperature    float32       `envconfig:"RESPONSE_TEMPERATURE" default:"0"`
	Timeout        time.Duration `envconfig:"RESPONSE_TIMEOUT" default:"90s"`
	ThinkingBudget int32         `envconfig:"MODEL_THINKING_BUDGET" default:"0"` // negative keeps the model default
}

type SearchConfig struct {
	APIKey     string        `envconfig:"TAVILY_API_KEY"`
	Endpoint   string        `envconfig:"SEARCH_ENDPOINT" default:"https://api.tavily.com/search"`
	MaxResults int           `envconfig:"SEARCH_MAX_RESULTS" default:"5"`
	Timeout    time.Duration `envconfig:"SEARCH_TIMEOUT" default:"15s"`
	Depth      string        `envconfig:"SEARCH_DEPTH" default:"basic"`
}
