package report

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

func WriteReportFile(content, outputDir string, reportDate time.Time, userID string) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}
	filename := fmt.Sprintf("%s_%s.md", sanitizeFilename(userID), reportDate.Format("20060102"))
	path := filepath.Join(outputDir, filename)
	return path, os.WriteFile(path, []byte(content), 0644)
}

func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_", " ", "_")
	name := strings.TrimLeft(replacer.Replace(strings.TrimSpace(s)), ".")
	if name == "" {
		return "report"
	}
	return name
}

var boldTokenRe = regexp.MustCompile(`\*\*([^*]+)\*\*`)

// PlainText flattens report markdown for chat clients: headings lose their
// hashes, bold markers are dropped and blank runs collapse to one line.
func PlainText(body string) string {
	var out []string
	prevBlank := false
	for _, line := range strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			line = strings.TrimSpace(strings.TrimLeft(trimmed, "# "))
		}
		line = boldTokenRe.ReplaceAllString(line, "$1")
		if strings.TrimSpace(line) == "" {
			if prevBlank {
				continue
			}
			prevBlank = true
			out = append(out, "")
			continue
		}
		prevBlank = false
		out = append(out, line)
	}
	return strings.TrimRight(strings.Join(out, "\n"), "\n") + "\n"
}
