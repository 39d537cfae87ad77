package correct

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mgpai22/trimsub/internal/llm"
	"github.com/mgpai22/trimsub/internal/subtitle"
)

// single subtitle text to correct
type Item struct {
	Index int    `json:"id"`
	Text  string `json:"text"`
}

// corrected subtitle text
type Result struct {
	Index int    `json:"id"`
	Text  string `json:"text"`
}

// ErrPartial is wrapped when some batches failed and others succeeded.
var ErrPartial = errors.New("some batches failed")

// interface for subtitle text correction
type Corrector interface {
	Correct(ctx context.Context, items []Item) ([]Result, llm.Usage, error)
}

// optional interface for correctors that support concurrent batch processing
type ConcurrentCorrector interface {
	Corrector
	CorrectWithConcurrency(
		ctx context.Context,
		items []Item,
		concurrency int,
	) ([]Result, llm.Usage, error)
}

const (
	DefaultBatchSize   = 50
	DefaultConcurrency = 3
)

type Options struct {
	Language    string // ISO 639-1 code, "en" when empty
	Topic       string
	Prompt      string
	BatchSize   int // items per API request (default 50)
	Concurrency int
}

func (o Options) batchSize() int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return DefaultBatchSize
}

func (o Options) concurrency() int {
	if o.Concurrency > 0 {
		return o.Concurrency
	}
	return DefaultConcurrency
}

func (o Options) language() string {
	if o.Language != "" {
		return o.Language
	}
	return "en"
}

// Items lists the text of every record keyed by its index.
func Items(track subtitle.Track) []Item {
	items := make([]Item, len(track))
	for i, rec := range track {
		items[i] = Item{Index: rec.Index, Text: rec.Text}
	}
	return items
}

// Apply returns a copy of track with corrected text. Records without a
// result, or with an empty one, keep their text.
func Apply(track subtitle.Track, results []Result) (subtitle.Track, int) {
	byID := make(map[int]string, len(results))
	for _, r := range results {
		if strings.TrimSpace(r.Text) != "" {
			byID[r.Index] = r.Text
		}
	}

	out := track.Clone()
	changed := 0
	for i := range out {
		text, ok := byID[out[i].Index]
		if !ok || text == out[i].Text {
			continue
		}
		out[i].Text = text
		changed++
	}
	return out, changed
}

// BuildPrompt creates the correction prompt for one batch
func BuildPrompt(opts Options, items []Item) string {
	var sb strings.Builder

	sb.WriteString("You are a professional transcription editor. ")
	sb.WriteString(fmt.Sprintf(
		"The following JSON contains subtitle segments in language '%s'.\n",
		opts.language(),
	))
	if opts.Topic != "" {
		sb.WriteString(fmt.Sprintf(
			"The recording is about: \"%s\". Use this context to fix names and technical terms.\n",
			opts.Topic,
		))
	}
	sb.WriteString("\n")

	sb.WriteString("IMPORTANT INSTRUCTIONS:\n")
	sb.WriteString("1. Correct spelling, grammar and punctuation in the 'text' field.\n")
	sb.WriteString("2. Do NOT change the 'id' values.\n")
	sb.WriteString("3. Do NOT merge, split, add or remove items.\n")
	sb.WriteString("4. Keep the meaning and the speaking style.\n")
	sb.WriteString("5. Return ONLY a JSON array of objects with 'id' and 'text' fields.\n")
	sb.WriteString("6. Do not add any explanation or markdown formatting.\n\n")

	if opts.Prompt != "" {
		sb.WriteString(
			fmt.Sprintf("Additional instructions: %s\n\n", opts.Prompt),
		)
	}

	sb.WriteString("Input JSON:\n")

	inputJSON, _ := json.MarshalIndent(items, "", "  ")
	sb.Write(inputJSON)

	sb.WriteString("\n\nOutput the corrected JSON array only:")

	return sb.String()
}

func extractResults(text string) ([]Result, error) {
	text = llm.FixInvalidEscapes(llm.CleanJSON(text))

	for i := 0; i < len(text); i++ {
		if text[i] != '[' && text[i] != '{' {
			continue
		}
		decoder := json.NewDecoder(strings.NewReader(text[i:]))
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			continue
		}
		if results, ok := tryExtractResults(raw); ok {
			return results, nil
		}
	}
	return nil, fmt.Errorf("no valid correction JSON found in response")
}

func tryExtractResults(raw json.RawMessage) ([]Result, bool) {
	var results []Result
	if err := json.Unmarshal(raw, &results); err == nil && validateResults(results) {
		return results, true
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, false
	}

	for _, key := range []string{"results", "corrections", "segments", "data", "items"} {
		if fieldRaw, exists := wrapper[key]; exists {
			var fieldResults []Result
			if err := json.Unmarshal(fieldRaw, &fieldResults); err == nil &&
				validateResults(fieldResults) {
				return fieldResults, true
			}
		}
	}

	for _, fieldRaw := range wrapper {
		var fieldResults []Result
		if err := json.Unmarshal(fieldRaw, &fieldResults); err == nil &&
			validateResults(fieldResults) {
			return fieldResults, true
		}
	}

	return nil, false
}

func validateResults(results []Result) bool {
	for _, r := range results {
		if r.Text != "" {
			return true
		}
	}
	return false
}
