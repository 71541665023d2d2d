package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tropicaldog17/replyqueue/internal/models"
	"github.com/tropicaldog17/replyqueue/internal/repositories"
)

const (
	judgeAccept = `{"score": 90, "risk": "low", "reason": "warm and relevant"}`
	thanksText  = "Thanks for your support!"
)

func boolPtr(b bool) *bool { return &b }

func newEngine(t *testing.T, answers []models.AnswerBankEntry, model *mockModel, rnd RandomSource) (*ProposalEngine, repositories.VectorCacheRepository) {
	t.Helper()
	store := repositories.NewVectorCacheRepository(newTestDB(t))
	bank := StaticAnswerBank{Bank: &models.AnswerBank{Version: 1, Answers: answers}}
	engine := NewProposalEngine(bank, NewEmbeddingCache(store, model, nil), model, rnd, DefaultProposalConfig(), nil)
	return engine, store
}

// never rewrites: IntN(100)+1 == 100 > 30
func noRewrite() RandomSource { return &seqRandom{values: []int{99}} }

// always rewrites: IntN(100)+1 == 1
func alwaysRewrite() RandomSource { return &seqRandom{values: []int{0}} }

func thanksBank() []models.AnswerBankEntry {
	return []models.AnswerBankEntry{{ID: "a1", Lang: "en", Text: thanksText}}
}

func TestProposalEngine_ThanksScenarioAccepted(t *testing.T) {
	model := newMockModel(judgeAccept)
	engine, _ := newEngine(t, thanksBank(), model, noRewrite())

	got := engine.Propose(context.Background(), "thank you so much")
	require.NotNil(t, got)
	assert.Equal(t, thanksText, got.Text)
	assert.LessOrEqual(t, len([]rune(got.Text)), DefaultProposalConfig().MaxReplyChars)
	assert.GreaterOrEqual(t, got.Score, 75)
	assert.Equal(t, 90, got.Score)
}

func TestProposalEngine_ThanksScenarioLowScore(t *testing.T) {
	model := newMockModel(`{"score": 40, "risk": "low", "reason": "generic"}`)
	engine, _ := newEngine(t, thanksBank(), model, noRewrite())

	assert.Nil(t, engine.Propose(context.Background(), "thank you so much"))
}

func TestProposalEngine_DenylistSkipsEverything(t *testing.T) {
	model := newMockModel(judgeAccept)
	engine, _ := newEngine(t, thanksBank(), model, noRewrite())

	assert.Nil(t, engine.Propose(context.Background(), "I want a REFUND now"))
	assert.Empty(t, model.embedCalls)
	assert.Empty(t, model.completeCalls)
}

func TestProposalEngine_EmptyBank(t *testing.T) {
	model := newMockModel(judgeAccept)
	answers := []models.AnswerBankEntry{
		{ID: "blank", Text: "   "},
		{ID: "unsafe", Text: "Sure, DM me", Safe: boolPtr(false)},
	}
	engine, _ := newEngine(t, answers, model, noRewrite())

	assert.Nil(t, engine.Propose(context.Background(), "love this"))
	assert.Empty(t, model.embedCalls)
}

func TestProposalEngine_RiskGate(t *testing.T) {
	cases := []struct {
		name     string
		judgment string
		accept   bool
	}{
		{"medium risk", `{"score": 95, "risk": "med", "reason": "x"}`, false},
		{"high risk", `{"score": 95, "risk": "high", "reason": "x"}`, false},
		{"below threshold", `{"score": 74, "risk": "low", "reason": "x"}`, false},
		{"at threshold", `{"score": 75, "risk": "low", "reason": "x"}`, true},
		{"missing risk", `{"score": 95}`, false},
		{"malformed", `score: 95, risk: low`, false},
		{"fenced", "```json\n{\"score\": 80, \"risk\": \"low\", \"reason\": \"ok\"}\n```", true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			model := newMockModel(c.judgment)
			engine, _ := newEngine(t, thanksBank(), model, noRewrite())
			got := engine.Propose(context.Background(), "thank you so much")
			if c.accept {
				require.NotNil(t, got)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestProposalEngine_EmbeddingCachedOnce(t *testing.T) {
	ctx := context.Background()
	model := newMockModel(judgeAccept)
	engine, store := newEngine(t, thanksBank(), model, noRewrite())

	require.NotNil(t, engine.Propose(ctx, "thank you so much"))
	require.Len(t, model.embedCalls, 2)
	assert.Equal(t, []string{thanksText}, model.embedCalls[0])
	assert.Equal(t, []string{"thank you so much"}, model.embedCalls[1])

	cached, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, thanksText, cached[0].Text)
	assert.Equal(t, "a1", cached[0].AnswerID)

	require.NotNil(t, engine.Propose(ctx, "thanks again"))
	require.Len(t, model.embedCalls, 3)
	assert.Equal(t, []string{"thanks again"}, model.embedCalls[2])
}

func TestProposalEngine_EmbedFailureDegradesToNone(t *testing.T) {
	ctx := context.Background()
	model := newMockModel(judgeAccept)
	model.embedErr = errors.New("rate limited")
	engine, store := newEngine(t, thanksBank(), model, noRewrite())

	assert.Nil(t, engine.Propose(ctx, "thank you so much"))
	cached, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, cached)

	// recovers on the next call
	model.embedErr = nil
	assert.NotNil(t, engine.Propose(ctx, "thank you so much"))
}

func TestProposalEngine_LanguageFilter(t *testing.T) {
	model := newMockModel(judgeAccept)
	engine, _ := newEngine(t, thanksBank(), model, noRewrite())

	assert.Nil(t, engine.Propose(context.Background(), "ขอบคุณมากครับ"))
	assert.Empty(t, model.completeCalls)

	thai := []models.AnswerBankEntry{
		{ID: "en", Lang: "en", Text: thanksText},
		{ID: "th", Lang: "th", Text: "ขอบคุณที่ติดตามนะครับ"},
	}
	model = newMockModel(judgeAccept)
	engine, _ = newEngine(t, thai, model, noRewrite())
	got := engine.Propose(context.Background(), "ขอบคุณมากครับ")
	require.NotNil(t, got)
	assert.Equal(t, "ขอบคุณที่ติดตามนะครับ", got.Text)
	require.NotEmpty(t, model.completeCalls)
	assert.Contains(t, model.completeCalls[0], "ประเมิน")
}

func TestProposalEngine_PicksMostSimilarFirst(t *testing.T) {
	answers := []models.AnswerBankEntry{
		{ID: "a", Text: "Happy to help anytime."},
		{ID: "b", Text: "Thanks so much for watching!"},
		{ID: "c", Text: "See you next week."},
	}
	model := newMockModel(judgeAccept)
	model.vectors = map[string][]float32{
		"Happy to help anytime.":       {0, 1},
		"Thanks so much for watching!": {1, 0.1},
		"See you next week.":           {1, 1},
		"great video, thanks":          {1, 0},
	}
	engine, _ := newEngine(t, answers, model, noRewrite())

	got := engine.Propose(context.Background(), "great video, thanks")
	require.NotNil(t, got)
	assert.Equal(t, "Thanks so much for watching!", got.Text)
	assert.Equal(t, 1, model.judgeCalls())
}

func TestProposalEngine_TriesAtMostTopK(t *testing.T) {
	var answers []models.AnswerBankEntry
	for _, s := range []string{"one", "two", "three", "four", "five", "six", "seven"} {
		answers = append(answers, models.AnswerBankEntry{ID: s, Text: "Reply " + s})
	}
	model := newMockModel(`{"score": 10, "risk": "high", "reason": "off"}`)
	engine, _ := newEngine(t, answers, model, noRewrite())

	assert.Nil(t, engine.Propose(context.Background(), "nice"))
	assert.Equal(t, 5, model.judgeCalls())
}

func TestProposalEngine_RewriteFailureSkipsCandidate(t *testing.T) {
	answers := []models.AnswerBankEntry{
		{ID: "a", Text: "Thanks for your support!"},
		{ID: "b", Text: "Appreciate you being here!"},
	}
	model := newMockModel(judgeAccept)
	model.vectors = map[string][]float32{
		"Thanks for your support!":   {1, 0},
		"Appreciate you being here!": {0.5, 0.5},
		"thank you so much":          {1, 0},
	}
	rewrites := 0
	model.complete = func(prompt string) (string, error) {
		if isJudgePrompt(prompt) {
			return judgeAccept, nil
		}
		rewrites++
		if rewrites == 1 {
			return "", errors.New("upstream timeout")
		}
		assert.Contains(t, prompt, "TEMPLATE: Appreciate you being here!")
		return "  Really appreciate   you being here! " + strings.Repeat("x", 200), nil
	}
	engine, _ := newEngine(t, answers, model, alwaysRewrite())

	got := engine.Propose(context.Background(), "thank you so much")
	require.NotNil(t, got)
	assert.True(t, strings.HasPrefix(got.Text, "Really appreciate you being here!"))
	assert.Equal(t, 140, len([]rune(got.Text)))
	assert.True(t, strings.HasSuffix(got.Text, "…"))
	assert.Equal(t, 2, rewrites)
}

func TestProposalEngine_VerbatimIsTruncated(t *testing.T) {
	long := strings.Repeat("Thank you ", 30)
	model := newMockModel(judgeAccept)
	engine, _ := newEngine(t, []models.AnswerBankEntry{{ID: "long", Text: long}}, model, noRewrite())

	got := engine.Propose(context.Background(), "thank you")
	require.NotNil(t, got)
	assert.Len(t, []rune(got.Text), 140)
}

func TestParseImpactJudgment(t *testing.T) {
	j, err := ParseImpactJudgment(`{"score": 82.6, "risk": "LOW", "reason": "kind"}`)
	require.NoError(t, err)
	assert.Equal(t, &models.ImpactJudgment{Score: 83, Risk: models.RiskLow, Reason: "kind"}, j)

	j, err = ParseImpactJudgment(`{"reason": "no fields"}`)
	require.NoError(t, err)
	assert.Equal(t, 0, j.Score)
	assert.Equal(t, models.RiskHigh, j.Risk)

	j, err = ParseImpactJudgment(`{"score":"90","risk":"low"}`)
	require.NoError(t, err)
	assert.Equal(t, 90, j.Score)
	assert.Equal(t, models.RiskLow, j.Risk)

	j, err = ParseImpactJudgment(`{"score":"very high","risk":"low"}`)
	require.NoError(t, err)
	assert.Equal(t, 0, j.Score)

	for _, bad := range []string{"", "ok", `{"score": 90`, `{"score": 90} {"score": 10}`, `[{"score": 90}]`} {
		_, err := ParseImpactJudgment(bad)
		assert.Error(t, err, bad)
	}
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{0, 0}, []float32{0, 1}), 1e-9)
}
