package domain

import (
	"strings"
	"time"
)

// Turn roles. The transcript is append-only; entries are never edited,
// reordered, or removed.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Turn is one transcript entry.
type Turn struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Score bounds for the interest score.
const (
	MinInterestScore = 0
	MaxInterestScore = 100
)

// ClampScore bounds a score to [MinInterestScore, MaxInterestScore].
func ClampScore(score int) int {
	if score < MinInterestScore {
		return MinInterestScore
	}
	if score > MaxInterestScore {
		return MaxInterestScore
	}
	return score
}

// SummaryMaxLen bounds the stored conversation summary.
const SummaryMaxLen = 600

// summaryWindow is how many of the most recent turns feed the summary.
const summaryWindow = 6

// Summarize derives a bounded summary from the most recent transcript turns.
func Summarize(transcript []Turn) string {
	start := len(transcript) - summaryWindow
	if start < 0 {
		start = 0
	}

	var sb strings.Builder
	for _, turn := range transcript[start:] {
		if sb.Len() > 0 {
			sb.WriteString(" | ")
		}
		sb.WriteString(turn.Role)
		sb.WriteString(": ")
		sb.WriteString(turn.Text)
	}

	summary := sb.String()
	// Truncate on a rune boundary so a multibyte character is never split.
	if runes := []rune(summary); len(runes) > SummaryMaxLen {
		summary = string(runes[:SummaryMaxLen-3]) + "..."
	}
	return summary
}
