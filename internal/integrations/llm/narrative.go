package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"abcdreport/internal/domain"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

type LLMUsage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

func (u *LLMUsage) Add(other LLMUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheCreationInputTokens += other.CacheCreationInputTokens
	u.CacheReadInputTokens += other.CacheReadInputTokens
}

const narrativeSystemPrompt = `You summarize ABCD/BCD classification results for a daily report.
Each hour lists the numbers that qualified as ABCD (seen on at least two of the three reference days A, B, C and on D)
and BCD (seen on D and on exactly one of B or C, never A). Write one short plain-language paragraph per hour,
mention the strongest topics, and do not invent numbers that are not in the data. No headings, no lists.`

var callAnthropicFn = callAnthropic

// Narrator turns a run into a short prose paragraph for the report.
type Narrator struct {
	apiKey string
	model  string
	client *http.Client
	logger *zap.Logger
}

func NewNarrator(apiKey, model string, client *http.Client, logger *zap.Logger) *Narrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Narrator{apiKey: apiKey, model: model, client: client, logger: logger}
}

func (n *Narrator) Narrate(ctx context.Context, run domain.Run) (string, LLMUsage, error) {
	if len(run.Hours) == 0 {
		return "", LLMUsage{}, nil
	}
	prompt, err := buildNarrativePrompt(run)
	if err != nil {
		return "", LLMUsage{}, err
	}
	text, usage, err := callAnthropicFn(ctx, n.client, n.apiKey, n.model, narrativeSystemPrompt, prompt)
	if err != nil {
		return "", usage, err
	}
	n.logger.Info("narrative generated",
		zap.String("user", run.UserID),
		zap.String("date", domain.DayKey(run.AnalysisDate())),
		zap.Int64("tokens_in", usage.InputTokens),
		zap.Int64("tokens_out", usage.OutputTokens),
	)
	return strings.TrimSpace(text), usage, nil
}

type topicDigest struct {
	Topic string `json:"topic"`
	ABCD  []int  `json:"abcd"`
	BCD   []int  `json:"bcd"`
}

type hourDigest struct {
	HR            int           `json:"hr"`
	Planet        string        `json:"planet"`
	OverallABCD   []int         `json:"overall_abcd"`
	OverallBCD    []int         `json:"overall_bcd"`
	DDayCount     int           `json:"d_day_count"`
	QualifiedRate float64       `json:"qualification_rate"`
	Topics        []topicDigest `json:"topics"`
}

// buildNarrativePrompt sends only topics with qualifying numbers to keep the
// prompt small.
func buildNarrativePrompt(run domain.Run) (string, error) {
	hours := make([]hourDigest, 0, len(run.Hours))
	for _, hour := range run.Hours {
		h := hourDigest{
			HR:            hour.HR,
			Planet:        hour.Planet,
			OverallABCD:   hour.Overall.ABCD,
			OverallBCD:    hour.Overall.BCD,
			DDayCount:     hour.Overall.Summary.DDayCount,
			QualifiedRate: hour.Overall.Summary.QualificationRate,
		}
		for _, topic := range hour.Order {
			res := hour.Topics[topic]
			if res.Empty() {
				continue
			}
			h.Topics = append(h.Topics, topicDigest{Topic: topic, ABCD: res.ABCD, BCD: res.BCD})
		}
		hours = append(hours, h)
	}
	data, err := json.MarshalIndent(hours, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding run digest: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analysis date: %s\n", domain.DayKey(run.AnalysisDate()))
	fmt.Fprintf(&b, "Reference days: %s\n\n", run.Sequence.String())
	b.WriteString("Results:\n")
	b.Write(data)
	b.WriteString("\n")
	return b.String(), nil
}

func callAnthropic(ctx context.Context, httpClient *http.Client, apiKey, model, systemPrompt, userPrompt string) (string, LLMUsage, error) {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	client := anthropic.NewClient(opts...)

	message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt, CacheControl: anthropic.NewCacheControlEphemeralParam()},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", LLMUsage{}, fmt.Errorf("Anthropic API error: %w", err)
	}
	usage := LLMUsage{
		InputTokens:              message.Usage.InputTokens,
		OutputTokens:             message.Usage.OutputTokens,
		CacheCreationInputTokens: message.Usage.CacheCreationInputTokens,
		CacheReadInputTokens:     message.Usage.CacheReadInputTokens,
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text, usage, nil
		}
	}
	return "", usage, fmt.Errorf("no text content in Anthropic response")
}
