package model

import (
	"strings"

	"github.com/cloudwego/eino/schema"
)

// Pricing is the USD price per one million text tokens.
type Pricing struct {
	InputPerM  float64
	OutputPerM float64
}

// CallCost is the priced usage of one model call, in USD.
type CallCost struct {
	Input  float64
	Output float64
}

// Total returns input plus output cost.
func (c CallCost) Total() float64 {
	return c.Input + c.Output
}

// Gemini standard text pricing.
var pricingTable = map[string]Pricing{
	"gemini-2.5-pro":        {InputPerM: 1.25, OutputPerM: 10.00},
	"gemini-2.5-flash":      {InputPerM: 0.30, OutputPerM: 2.50},
	"gemini-2.5-flash-lite": {InputPerM: 0.10, OutputPerM: 0.40},
}

// ResolvePricing looks a model up by name. A "models/" prefix and trailing
// version or preview suffixes are ignored; unknown models cost zero.
func ResolvePricing(name string) Pricing {
	name = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), "models/")
	for name != "" {
		if p, ok := pricingTable[name]; ok {
			return p
		}
		i := strings.LastIndex(name, "-")
		if i < 0 {
			break
		}
		name = name[:i]
	}
	return Pricing{}
}

// Cost prices token usage; nil usage costs nothing.
func (p Pricing) Cost(usage *schema.TokenUsage) CallCost {
	if usage == nil {
		return CallCost{}
	}
	return CallCost{
		Input:  p.InputPerM * float64(usage.PromptTokens) / 1e6,
		Output: p.OutputPerM * float64(usage.CompletionTokens) / 1e6,
	}
}
