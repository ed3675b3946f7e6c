package slackbot

import (
	"errors"
	"strings"
	"testing"
	"time"

	"abcdreport/internal/domain"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePoster struct {
	channel string
	text    string
	blocks  string
	err     error
	calls   int
}

func (f *fakePoster) PostMessage(channelID string, options ...slack.MsgOption) (string, string, error) {
	f.calls++
	f.channel = channelID
	_, values, err := slack.UnsafeApplyMsgOptions("xoxb-test", channelID, "https://slack.test/api/", options...)
	if err != nil {
		return "", "", err
	}
	f.text = values.Get("text")
	f.blocks = values.Get("blocks")
	return channelID, "1720000000.000100", f.err
}

func testRun() domain.Run {
	d := func(s string) time.Time {
		t, _ := domain.ParseDayKey(s)
		return t
	}
	return domain.Run{
		ID:     "run-1",
		UserID: "alice",
		Sequence: domain.ReferenceSequence{
			A: d("2025-07-01"), B: d("2025-07-02"), C: d("2025-07-03"), D: d("2025-07-04"),
		},
		Hours: []domain.HourResult{{
			HR:     2,
			Planet: "Mo",
			Overall: domain.ClassificationResult{
				ABCD:    []int{1, 4},
				BCD:     []int{},
				Summary: domain.Summary{DDayCount: 5, ABCDCount: 2, TotalQualified: 2, QualificationRate: 40},
			},
		}},
	}
}

func TestPostRun(t *testing.T) {
	poster := &fakePoster{}
	n := NewNotifierWithPoster(poster, "C123", nil)

	require.NoError(t, n.PostRun(testRun(), "/tmp/reports/alice_20250704.md"))
	assert.Equal(t, 1, poster.calls)
	assert.Equal(t, "C123", poster.channel)
	assert.Contains(t, poster.text, "HR 2 (Mo): ABCD: 1, 4 | BCD: -, 2/5 qualified (40.0%)")
	assert.Contains(t, poster.blocks, "ABCD/BCD alice 2025-07-04")
	assert.Contains(t, poster.blocks, "A=2025-07-01 B=2025-07-02 C=2025-07-03 D=2025-07-04")
	assert.Contains(t, poster.blocks, "alice_20250704.md")
}

func TestPostRunError(t *testing.T) {
	poster := &fakePoster{err: errors.New("channel_not_found")}
	n := NewNotifierWithPoster(poster, "C123", nil)

	err := n.PostRun(testRun(), "")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "channel_not_found"))
}

func TestPostRunWithoutChannel(t *testing.T) {
	poster := &fakePoster{}
	require.NoError(t, NewNotifierWithPoster(poster, "", nil).PostRun(testRun(), ""))
	assert.Zero(t, poster.calls)

	var nilNotifier *Notifier
	assert.NoError(t, nilNotifier.PostRun(testRun(), ""))
}

func TestBuildRunBlocksNoHours(t *testing.T) {
	run := testRun()
	run.Hours = nil
	blocks := buildRunBlocks(run, "")
	require.Len(t, blocks, 3)
	section, ok := blocks[2].(*slack.SectionBlock)
	require.True(t, ok)
	assert.Equal(t, "No hour has a planet selected.", section.Text.Text)
}
