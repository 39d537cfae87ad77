// Package llmtest provides an in-memory llm.Client for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/mgpai22/trimsub/internal/llm"
)

type Fake struct {
	// Respond produces the reply text for a request.
	Respond func(req llm.Request) (string, error)
	// usage reported for every successful call
	Usage llm.Usage

	mu       sync.Mutex
	requests []llm.Request
}

// Reply returns a Fake that always answers text.
func Reply(text string) *Fake {
	return &Fake{Respond: func(llm.Request) (string, error) { return text, nil }}
}

func (f *Fake) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	text, err := f.Respond(req)
	if err != nil {
		return nil, err
	}
	return &llm.Response{Text: text, Usage: f.Usage}, nil
}

func (f *Fake) Model() string {
	if f.Usage.Model != "" {
		return f.Usage.Model
	}
	return "fake"
}

func (f *Fake) Requests() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]llm.Request, len(f.requests))
	copy(out, f.requests)
	return out
}
