package services

import (
	"strings"
	"unicode"

	"github.com/tropicaldog17/replyqueue/internal/models"
)

// DetectLanguage picks Thai when the text contains any Thai-script rune, English otherwise.
func DetectLanguage(text string) string {
	for _, r := range text {
		if unicode.Is(unicode.Thai, r) {
			return models.LangThai
		}
	}
	return models.LangEnglish
}

// Truncate collapses whitespace and cuts s to at most n runes, ending in "…" when cut.
func Truncate(s string, n int) string {
	t := strings.Join(strings.Fields(s), " ")
	if n <= 0 {
		return ""
	}
	runes := []rune(t)
	if len(runes) <= n {
		return t
	}
	return string(runes[:n-1]) + "…"
}

func containsAny(text string, keywords []string) (string, bool) {
	lower := strings.ToLower(text)
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" && strings.Contains(lower, k) {
			return k, true
		}
	}
	return "", false
}
