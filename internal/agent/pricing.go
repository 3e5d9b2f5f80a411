package agent

import "strings"

// price is USD per million tokens.
type price struct {
	input  float64
	output float64
}

// Ordered longest prefix first; model ids carry a date suffix.
var prices = []struct {
	prefix string
	price  price
}{
	{"claude-opus-4-5", price{5, 25}},
	{"claude-opus-4", price{15, 75}},
	{"claude-sonnet-4", price{3, 15}},
	{"claude-haiku-4-5", price{1, 5}},
	{"claude-3-7-sonnet", price{3, 15}},
	{"claude-3-5-sonnet", price{3, 15}},
	{"claude-3-5-haiku", price{0.8, 4}},
	{"claude-3-haiku", price{0.25, 1.25}},
}

// EstimateCost returns the USD cost of usage on model, or nil when the
// model's price is unknown.
func EstimateCost(model string, usage Usage) *float64 {
	for _, p := range prices {
		if strings.HasPrefix(model, p.prefix) {
			cost := (float64(usage.InputTokens)*p.price.input + float64(usage.OutputTokens)*p.price.output) / 1e6
			return &cost
		}
	}
	return nil
}
