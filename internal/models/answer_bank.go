package models

import "strings"

const (
	LangEnglish = "en"
	LangThai    = "th"
)

// AnswerBank is the curated set of canned replies used as retrieval candidates.
type AnswerBank struct {
	Version   int               `json:"version" yaml:"version"`
	Languages []string          `json:"languages" yaml:"languages"`
	Answers   []AnswerBankEntry `json:"answers" yaml:"answers"`
}

// AnswerBankEntry is one canned reply template.
type AnswerBankEntry struct {
	ID   string `json:"id" yaml:"id"`
	Lang string `json:"lang" yaml:"lang"`
	Text string `json:"text" yaml:"text"`
	Safe *bool  `json:"safe,omitempty" yaml:"safe,omitempty"`
}

// IsSafe treats a missing flag as safe; only an explicit false excludes the entry.
func (e AnswerBankEntry) IsSafe() bool {
	return e.Safe == nil || *e.Safe
}

// Language returns the entry language, defaulting to English.
func (e AnswerBankEntry) Language() string {
	if strings.TrimSpace(e.Lang) == "" {
		return LangEnglish
	}
	return e.Lang
}

// Usable reports whether the entry can be offered as a reply.
func (e AnswerBankEntry) Usable() bool {
	return strings.TrimSpace(e.Text) != "" && e.IsSafe()
}

// ProposedReply is a vetted candidate reply with its impact score.
type ProposedReply struct {
	Text  string `json:"text"`
	Score int    `json:"score"`
}

// ImpactJudgment is the structured verdict returned by the impact/risk check.
type ImpactJudgment struct {
	Score  int    `json:"score"`
	Risk   string `json:"risk"`
	Reason string `json:"reason"`
}

const (
	RiskLow    = "low"
	RiskMedium = "med"
	RiskHigh   = "high"
)
