package slackbot

import (
	"fmt"
	"net/http"
	"strings"

	"abcdreport/internal/domain"
	"abcdreport/internal/report"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// Poster is the part of *slack.Client the notifier needs.
type Poster interface {
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
}

type Notifier struct {
	api     Poster
	channel string
	logger  *zap.Logger
}

func NewNotifier(token, channelID string, client *http.Client, logger *zap.Logger) *Notifier {
	var opts []slack.Option
	if client != nil {
		opts = append(opts, slack.OptionHTTPClient(client))
	}
	return NewNotifierWithPoster(slack.New(token, opts...), channelID, logger)
}

func NewNotifierWithPoster(api Poster, channelID string, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{api: api, channel: channelID, logger: logger}
}

// PostRun sends the per-hour overall lines of a run to the report channel.
func (n *Notifier) PostRun(run domain.Run, reportPath string) error {
	if n == nil || n.channel == "" {
		return nil
	}
	summary := report.RenderSummary(run)
	blocks := buildRunBlocks(run, reportPath)

	_, ts, err := n.api.PostMessage(n.channel,
		slack.MsgOptionText(summary, false),
		slack.MsgOptionBlocks(blocks...),
	)
	if err != nil {
		return fmt.Errorf("posting %s %s to slack: %w", run.UserID, domain.DayKey(run.AnalysisDate()), err)
	}
	n.logger.Info("posted run summary",
		zap.String("user", run.UserID),
		zap.String("date", domain.DayKey(run.AnalysisDate())),
		zap.String("channel", n.channel),
		zap.String("ts", ts),
	)
	return nil
}

func buildRunBlocks(run domain.Run, reportPath string) []slack.Block {
	blocks := []slack.Block{
		slack.NewHeaderBlock(
			slack.NewTextBlockObject(slack.PlainTextType,
				fmt.Sprintf("ABCD/BCD %s %s", run.UserID, domain.DayKey(run.AnalysisDate())),
				false, false,
			),
		),
		slack.NewContextBlock("",
			slack.NewTextBlockObject(slack.MarkdownType, run.Sequence.String(), false, false),
		),
	}

	if len(run.Hours) == 0 {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, "No hour has a planet selected.", false, false),
			nil, nil,
		))
	}
	for _, hour := range run.Hours {
		s := hour.Overall.Summary
		text := fmt.Sprintf("*HR %d (%s)*\nABCD: %s\nBCD: %s\n%d/%d qualified (%s%%)",
			hour.HR, hour.Planet,
			numberList(hour.Overall.ABCD), numberList(hour.Overall.BCD),
			s.TotalQualified, s.DDayCount, s.RateString(),
		)
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, text, false, false),
			nil, nil,
		))
	}

	if reportPath != "" {
		blocks = append(blocks, slack.NewContextBlock("",
			slack.NewTextBlockObject(slack.MarkdownType, "Report: `"+reportPath+"`", false, false),
		))
	}
	return blocks
}

func numberList(ns []int) string {
	if len(ns) == 0 {
		return "-"
	}
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}
