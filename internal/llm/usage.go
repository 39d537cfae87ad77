package llm

import (
	"fmt"
	"strings"
	"sync"
)

// Usage is the token count and estimated cost of one or more model calls.
type Usage struct {
	Model        string
	InputTokens  int64
	OutputTokens int64
	Cost         float64 // USD
}

// Add returns the sum of u and o. The model name is kept when both agree.
func (u Usage) Add(o Usage) Usage {
	model := u.Model
	if model == "" {
		model = o.Model
	} else if o.Model != "" && o.Model != model {
		model = "mixed"
	}
	return Usage{
		Model:        model,
		InputTokens:  u.InputTokens + o.InputTokens,
		OutputTokens: u.OutputTokens + o.OutputTokens,
		Cost:         u.Cost + o.Cost,
	}
}

func (u Usage) String() string {
	return fmt.Sprintf(
		"%d input + %d output tokens ($%.4f)",
		u.InputTokens,
		u.OutputTokens,
		u.Cost,
	)
}

// Price is the USD cost per million tokens.
type Price struct {
	Input  float64
	Output float64
}

// Pricing maps model name prefixes to prices.
type Pricing map[string]Price

// DefaultPricing lists published per-million-token prices for the default
// models of each provider.
var DefaultPricing = Pricing{
	"gemini-2.5-flash-lite": {Input: 0.10, Output: 0.40},
	"gemini-2.5-flash":      {Input: 0.30, Output: 2.50},
	"gemini-2.5-pro":        {Input: 1.25, Output: 10.00},
	"gemini-3-flash":        {Input: 0.50, Output: 3.00},
	"gemini-3-pro":          {Input: 2.00, Output: 12.00},
	"gpt-5-nano":            {Input: 0.05, Output: 0.40},
	"gpt-5-mini":            {Input: 0.25, Output: 2.00},
	"gpt-5":                 {Input: 1.25, Output: 10.00},
	"claude-haiku-4-5":      {Input: 1.00, Output: 5.00},
	"claude-sonnet-4-5":     {Input: 3.00, Output: 15.00},
	"claude-opus-4-5":       {Input: 5.00, Output: 25.00},
}

// Lookup finds the price for model by longest matching prefix.
func (p Pricing) Lookup(model string) (Price, bool) {
	model = strings.ToLower(strings.TrimSpace(model))
	best := ""
	for prefix := range p {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return Price{}, false
	}
	return p[best], true
}

// Usage builds a Usage for one call, pricing it when the model is known.
func (p Pricing) Usage(model string, input, output int64) Usage {
	u := Usage{Model: model, InputTokens: input, OutputTokens: output}
	if price, ok := p.Lookup(model); ok {
		u.Cost = (float64(input)*price.Input + float64(output)*price.Output) / 1_000_000
	}
	return u
}

// Session accumulates usage over one pipeline run. It is safe for
// concurrent use.
type Session struct {
	mu      sync.Mutex
	total   Usage
	calls   int
	byStage map[string]Usage
}

func NewSession() *Session {
	return &Session{byStage: make(map[string]Usage)}
}

// Add records usage under a stage name such as "analyze" or "correct".
func (s *Session) Add(stage string, u Usage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.byStage == nil {
		s.byStage = make(map[string]Usage)
	}
	s.total = s.total.Add(u)
	s.byStage[stage] = s.byStage[stage].Add(u)
	s.calls++
}

func (s *Session) Total() Usage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *Session) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Stages returns a copy of the per-stage totals.
func (s *Session) Stages() map[string]Usage {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Usage, len(s.byStage))
	for k, v := range s.byStage {
		out[k] = v
	}
	return out
}
