package crawl

import (
	"fmt"

	"github.com/fwojciec/harvest"
)

// TruncateURL shortens a URL for display, keeping the end which is more informative.
func TruncateURL(url string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if maxLen < 4 {
		return url[:min(len(url), maxLen)]
	}
	if len(url) <= maxLen {
		return url
	}
	return "..." + url[len(url)-maxLen+3:]
}

// SuccessRate formats the share of attempted entries that succeeded.
// A run that attempted nothing reports "n/a".
func SuccessRate(stats harvest.RunStatistics) string {
	if stats.Attempted == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", float64(stats.Succeeded)*100/float64(stats.Attempted))
}

// FormatProgress renders an entry event as a single status line.
func FormatProgress(e ProgressEvent, maxLen int) string {
	line := fmt.Sprintf("[%d/%d] %s %s", e.Completed, e.Total, e.Outcome, e.Name)
	if e.Error != nil {
		line += ": " + TruncateURL(harvest.ErrorMessage(e.Error), maxLen)
	}
	return line
}
