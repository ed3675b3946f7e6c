package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"abcdreport/internal/domain"
	"abcdreport/internal/roster"
)

// Options controls RenderMarkdown. A nil Defaults disables fallbacks.
type Options struct {
	Verbose   bool
	Defaults  roster.DefaultsProvider
	Narrative string
}

const fallbackMarker = "_(fallback)_"

// RenderMarkdown renders a run as one section per hour-context. Live results
// always win; stored defaults only fill topics that came back empty and are
// marked as such.
func RenderMarkdown(run domain.Run, opts Options) string {
	defaults := opts.Defaults
	if defaults == nil {
		defaults = roster.NoDefaults
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# ABCD/BCD Report: %s %s\n\n", run.UserID, domain.DayKey(run.AnalysisDate()))
	fmt.Fprintf(&b, "Sequence: %s\n", run.Sequence.String())
	if run.ID != "" {
		fmt.Fprintf(&b, "Run: %s\n", run.ID)
	}

	if len(run.Hours) == 0 {
		b.WriteString("\nNo hour has a planet selected.\n")
	}

	for _, hour := range run.Hours {
		fmt.Fprintf(&b, "\n### HR %d (%s)\n\n", hour.HR, hour.Planet)
		if len(hour.Order) == 0 {
			b.WriteString("- No topics with data\n")
		}
		for _, topic := range hour.Order {
			res := hour.Topics[topic]
			if res.Empty() {
				if f, ok := defaults.Fallback(topic, hour.HR); ok {
					fmt.Fprintf(&b, "- **%s** %s %s\n", topic, badges(f.ABCD, f.BCD), fallbackMarker)
					continue
				}
				fmt.Fprintf(&b, "- **%s** no qualifying numbers\n", topic)
				continue
			}
			fmt.Fprintf(&b, "- **%s** %s\n", topic, badges(res.ABCD, res.BCD))
		}
		fmt.Fprintf(&b, "- **Overall** %s (D: %d, qualified %s%%)\n",
			badges(hour.Overall.ABCD, hour.Overall.BCD),
			hour.Overall.Summary.DDayCount,
			hour.Overall.Summary.RateString(),
		)

		if opts.Verbose {
			writeAudit(&b, hour)
		}
	}

	if strings.TrimSpace(opts.Narrative) != "" {
		b.WriteString("\n### Notes\n\n")
		b.WriteString(strings.TrimSpace(opts.Narrative))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderSummary is the short form posted to chat: the overall line of every hour.
func RenderSummary(run domain.Run) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*ABCD/BCD %s %s*\n", run.UserID, domain.DayKey(run.AnalysisDate()))
	if len(run.Hours) == 0 {
		b.WriteString("No hour has a planet selected.\n")
		return b.String()
	}
	for _, hour := range run.Hours {
		s := hour.Overall.Summary
		fmt.Fprintf(&b, "HR %d (%s): %s, %d/%d qualified (%s%%)\n",
			hour.HR, hour.Planet, badges(hour.Overall.ABCD, hour.Overall.BCD),
			s.TotalQualified, s.DDayCount, s.RateString())
	}
	return b.String()
}

func badges(abcd, bcd []int) string {
	return "ABCD: " + joinNumbers(abcd) + " | BCD: " + joinNumbers(bcd)
}

func joinNumbers(ns []int) string {
	if len(ns) == 0 {
		return "-"
	}
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}

func writeAudit(b *strings.Builder, hour domain.HourResult) {
	for _, topic := range hour.Order {
		res := hour.Topics[topic]
		if len(res.Detailed) == 0 {
			continue
		}
		numbers := make([]int, 0, len(res.Detailed))
		for n := range res.Detailed {
			numbers = append(numbers, n)
		}
		sort.Ints(numbers)

		fmt.Fprintf(b, "\n#### %s\n\n", topic)
		b.WriteString("| # | A | B | C | Type | Reason |\n")
		b.WriteString("|---|---|---|---|------|--------|\n")
		for _, n := range numbers {
			a := res.Detailed[n]
			typ := string(a.Type)
			if typ == "" {
				typ = "-"
			}
			fmt.Fprintf(b, "| %d | %s | %s | %s | %s | %s |\n",
				n, mark(a.InA), mark(a.InB), mark(a.InC), typ, a.Reason)
		}
	}
}

func mark(in bool) string {
	if in {
		return "x"
	}
	return ""
}
