package correct

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/mgpai22/trimsub/internal/llm"
)

// implements Corrector on top of any llm.Client
type LLMCorrector struct {
	client  llm.Client
	options Options
}

func New(client llm.Client, opts Options) (*LLMCorrector, error) {
	if client == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	return &LLMCorrector{client: client, options: opts}, nil
}

func (c *LLMCorrector) batches(items []Item) [][]Item {
	size := c.options.batchSize()
	var batches [][]Item
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[i:end])
	}
	return batches
}

func (c *LLMCorrector) Correct(
	ctx context.Context,
	items []Item,
) ([]Result, llm.Usage, error) {
	return c.CorrectWithConcurrency(ctx, items, c.options.concurrency())
}

// Items are split into batches of BatchSize. Workers (up to concurrency) pull
// batches from a shared queue. A failed batch does not stop the others; its
// items are missing from the results and the returned error wraps ErrPartial.
func (c *LLMCorrector) CorrectWithConcurrency(
	ctx context.Context,
	items []Item,
	concurrency int,
) ([]Result, llm.Usage, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if len(items) == 0 {
		return []Result{}, llm.Usage{}, nil
	}

	batches := c.batches(items)

	type batchResult struct {
		Index   int
		Results []Result
		Usage   llm.Usage
		Error   error
	}

	workChan := make(chan int)
	resultChan := make(chan batchResult, len(batches))

	var wg sync.WaitGroup
	for i := 0; i < concurrency && i < len(batches); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batchIdx := range workChan {
				if ctx.Err() != nil {
					resultChan <- batchResult{Index: batchIdx, Error: ctx.Err()}
					continue
				}
				results, usage, err := c.correctBatch(ctx, batches[batchIdx])
				resultChan <- batchResult{
					Index:   batchIdx,
					Results: results,
					Usage:   usage,
					Error:   err,
				}
			}
		}()
	}

	go func() {
		defer close(workChan)
		for i := range batches {
			workChan <- i
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	var (
		collected []batchResult
		usage     llm.Usage
		errs      []error
	)
	for result := range resultChan {
		usage = usage.Add(result.Usage)
		if result.Error != nil {
			errs = append(errs, fmt.Errorf("batch %d failed: %w", result.Index, result.Error))
			continue
		}
		collected = append(collected, result)
	}

	if len(collected) == 0 {
		return nil, usage, errors.Join(errs...)
	}

	sort.Slice(collected, func(i, j int) bool {
		return collected[i].Index < collected[j].Index
	})

	var allResults []Result
	for _, r := range collected {
		allResults = append(allResults, r.Results...)
	}

	if len(errs) > 0 {
		sort.Slice(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })
		return allResults, usage, fmt.Errorf("%w: %w", ErrPartial, errors.Join(errs...))
	}
	return allResults, usage, nil
}

func (c *LLMCorrector) correctBatch(
	ctx context.Context,
	items []Item,
) ([]Result, llm.Usage, error) {
	resp, err := c.client.Complete(ctx, llm.Request{
		Prompt: BuildPrompt(c.options, items),
		JSON:   true,
	})
	if err != nil {
		return nil, llm.Usage{}, fmt.Errorf("correction failed: %w", err)
	}

	results, err := extractResults(resp.Text)
	if err != nil {
		return nil, resp.Usage, fmt.Errorf(
			"failed to parse JSON response: %w (response: %s)",
			err,
			llm.Truncate(resp.Text, 200),
		)
	}

	return results, resp.Usage, nil
}
