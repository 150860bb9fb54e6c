package model

import (
	"strings"

	"github.com/cloudwego/eino/schema"
)

// Pricing defines USD cost per 1M tokens for input/output.
type Pricing struct {
	InputPerM  float64
	OutputPerM float64
}

// Gemini standard text pricing.
var defaultPricing = map[string]Pricing{
	"gemini-2.5-flash":      {InputPerM: 0.30, OutputPerM: 2.50},
	"gemini-2.5-flash-lite": {InputPerM: 0.10, OutputPerM: 0.40},
	"gemini-2.5-pro":        {InputPerM: 1.25, OutputPerM: 10.00},
}

// ResolvePricing returns pricing for a model name; versioned names ("models/gemini-2.5-flash-001")
// resolve to their base entry. Unknown models cost zero.
func ResolvePricing(model string) Pricing {
	name := strings.TrimPrefix(model, "models/")
	if p, ok := defaultPricing[name]; ok {
		return p
	}
	best := ""
	for known := range defaultPricing {
		if strings.HasPrefix(name, known) && len(known) > len(best) {
			best = known
		}
	}
	return defaultPricing[best]
}

// UsageCost is the priced token usage of one model call.
type UsageCost struct {
	PromptTokens     int
	CompletionTokens int
	InputUSD         float64
	OutputUSD        float64
}

func (c UsageCost) TotalUSD() float64 {
	return c.InputUSD + c.OutputUSD
}

// ComputeCost converts token usage to USD cost using per-1M Pricing.
func ComputeCost(usage *schema.TokenUsage, p Pricing) UsageCost {
	if usage == nil {
		return UsageCost{}
	}
	return UsageCost{
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		InputUSD:         p.InputPerM * float64(usage.PromptTokens) / 1_000_000.0,
		OutputUSD:        p.OutputPerM * float64(usage.CompletionTokens) / 1_000_000.0,
	}
}
