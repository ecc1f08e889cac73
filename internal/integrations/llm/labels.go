package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/sync/errgroup"

	"devdigest/internal/domain"
)

const (
	defaultBatchSize     = 50
	maxBatchConcurrency  = 4
	maxResponseTokens    = 4096
	releaseSystemPrompt  = `You tag pull request titles for release notes. Pick exactly one label per title from: %s. Use OTHERS when none fits. Reply with only a JSON array of objects {"id": <number>, "label": "<LABEL>"}, one per input title.`
	releaseUserPromptFmt = "Titles:\n%s"
)

type LLMUsage struct {
	InputTokens  int64
	OutputTokens int64
}

func (u *LLMUsage) Add(other LLMUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// Labeler tags work items with one release label each.
type Labeler struct {
	client    anthropic.Client
	model     string
	batchSize int
}

func NewLabeler(apiKey, model string, opts ...option.RequestOption) *Labeler {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Labeler{
		client:    anthropic.NewClient(opts...),
		model:     model,
		batchSize: defaultBatchSize,
	}
}

type labeledItem struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

// Label returns copies of items with ReleaseLabel set. Issues are always
// ISSUE; pull requests with a conventional-commit title keep that type, and
// the rest are classified by the model in concurrent batches.
func (l *Labeler) Label(ctx context.Context, items []domain.WorkItem) ([]domain.WorkItem, LLMUsage, error) {
	out := make([]domain.WorkItem, len(items))
	var prIdx []int
	for i, it := range items {
		if !it.IsPR() {
			out[i] = it.WithReleaseLabel(LabelIssue)
			continue
		}
		if label, ok := prefixLabel(it.Title); ok {
			out[i] = it.WithReleaseLabel(label)
			continue
		}
		prIdx = append(prIdx, i)
		out[i] = it
	}
	if len(prIdx) == 0 {
		return out, LLMUsage{}, nil
	}

	var batches [][]int
	for start := 0; start < len(prIdx); start += l.batchSize {
		end := start + l.batchSize
		if end > len(prIdx) {
			end = len(prIdx)
		}
		batches = append(batches, prIdx[start:end])
	}

	usages := make([]LLMUsage, len(batches))
	labels := make([]map[int]string, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(llmBatchConcurrencyLimit(len(batches)))
	for i, batch := range batches {
		g.Go(func() error {
			userPrompt := buildLabelPrompt(items, batch)
			log.Printf("llm release-label model=%s items=%d batch=%d", l.model, len(batch), i)
			text, usage, err := l.call(gctx, fmt.Sprintf(releaseSystemPrompt, strings.Join(ReleaseLabels, ", ")), userPrompt)
			usages[i] = usage
			if err != nil {
				return err
			}
			parsed, err := parseLabelResponse(text)
			if err != nil {
				return err
			}
			labels[i] = parsed
			return nil
		})
	}
	err := g.Wait()

	var total LLMUsage
	for _, u := range usages {
		total.Add(u)
	}
	if err != nil {
		return nil, total, err
	}
	merged := make(map[int]string, len(prIdx))
	for _, m := range labels {
		for idx, label := range m {
			merged[idx] = label
		}
	}
	for _, idx := range prIdx {
		label, ok := merged[idx]
		if !ok {
			label = LabelOthers
		}
		out[idx] = out[idx].WithReleaseLabel(label)
	}
	log.Printf("llm release-label done prs=%d tokens_in=%d tokens_out=%d", len(prIdx), total.InputTokens, total.OutputTokens)
	return out, total, nil
}

func llmBatchConcurrencyLimit(total int) int {
	if total < 1 {
		return 1
	}
	if total > maxBatchConcurrency {
		return maxBatchConcurrency
	}
	return total
}

// buildLabelPrompt lists titles keyed by their index in items so responses
// map back without relying on order.
func buildLabelPrompt(items []domain.WorkItem, batch []int) string {
	var b strings.Builder
	for _, idx := range batch {
		fmt.Fprintf(&b, "%d: %s\n", idx, strings.TrimSpace(items[idx].Title))
	}
	return fmt.Sprintf(releaseUserPromptFmt, b.String())
}

func parseLabelResponse(responseText string) (map[int]string, error) {
	responseText = strings.TrimSpace(responseText)
	responseText = strings.TrimPrefix(responseText, "```json")
	responseText = strings.TrimPrefix(responseText, "```")
	responseText = strings.TrimSuffix(responseText, "```")
	responseText = strings.TrimSpace(responseText)

	var labeled []labeledItem
	if err := json.Unmarshal([]byte(responseText), &labeled); err != nil {
		return nil, fmt.Errorf("parsing LLM label response: %w (response: %s)", err, responseText)
	}
	out := make(map[int]string, len(labeled))
	for _, it := range labeled {
		out[it.ID] = normalizeLabel(it.Label)
	}
	return out, nil
}

func (l *Labeler) call(ctx context.Context, systemPrompt, userPrompt string) (string, LLMUsage, error) {
	message, err := l.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(l.model),
		MaxTokens: maxResponseTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt, CacheControl: anthropic.NewCacheControlEphemeralParam()},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		log.Printf("llm anthropic error: %v", err)
		return "", LLMUsage{}, fmt.Errorf("Anthropic API error: %w", err)
	}
	usage := LLMUsage{
		InputTokens:  message.Usage.InputTokens,
		OutputTokens: message.Usage.OutputTokens,
	}
	for _, block := range message.Content {
		if block.Type == "text" {
			log.Printf("llm anthropic response size=%d tokens_in=%d tokens_out=%d", len(block.Text), usage.InputTokens, usage.OutputTokens)
			return block.Text, usage, nil
		}
	}
	return "", usage, fmt.Errorf("no text content in Anthropic response")
}
