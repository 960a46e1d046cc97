package llm

import "strings"

// modelPrice is the cost in cents per 1K tokens, split by direction.
type modelPrice struct {
	inCentsPer1K  float64
	outCentsPer1K float64
}

// priceTable maps model identifier prefixes to prices. Longest prefix
// wins; unknown models use defaultPrice so cost accounting never
// silently drops a call.
var priceTable = map[string]modelPrice{
	"gpt-4o-mini":     {inCentsPer1K: 0.015, outCentsPer1K: 0.06},
	"gpt-4o":          {inCentsPer1K: 0.25, outCentsPer1K: 1.0},
	"claude-sonnet":   {inCentsPer1K: 0.3, outCentsPer1K: 1.5},
	"claude-haiku":    {inCentsPer1K: 0.08, outCentsPer1K: 0.4},
	"gemini-2.0-flash": {inCentsPer1K: 0.01, outCentsPer1K: 0.04},
	"gemini-2.5-pro":  {inCentsPer1K: 0.125, outCentsPer1K: 1.0},

	"text-embedding-3-small": {inCentsPer1K: 0.002},
	"text-embedding-3-large": {inCentsPer1K: 0.013},
}

var defaultPrice = modelPrice{inCentsPer1K: 0.3, outCentsPer1K: 1.5}

// CostCents computes the estimated cost of a call in cents.
func CostCents(model string, tokensIn, tokensOut int) float64 {
	price := defaultPrice
	bestLen := 0
	for prefix, p := range priceTable {
		if strings.HasPrefix(model, prefix) && len(prefix) > bestLen {
			price, bestLen = p, len(prefix)
		}
	}
	return price.inCentsPer1K*float64(tokensIn)/1000 + price.outCentsPer1K*float64(tokensOut)/1000
}
