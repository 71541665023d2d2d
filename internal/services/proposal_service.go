package services

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/tropicaldog17/replyqueue/internal/logger"
	"github.com/tropicaldog17/replyqueue/internal/models"
)

// DefaultRiskyKeywords is the hard denylist applied before any model call.
var DefaultRiskyKeywords = []string{"refund", "payment", "scam", "ban", "hack", "suicide", "kill"}

// ProposalConfig tunes the retrieval/rewrite/judgment pipeline.
type ProposalConfig struct {
	RewritePercent int      `yaml:"rewrite_percent"`
	MaxReplyChars  int      `yaml:"max_reply_chars"`
	MinImpactScore int      `yaml:"min_impact_score"`
	RiskyKeywords  []string `yaml:"risky_keywords"`
	TopK           int      `yaml:"top_k"`
}

func DefaultProposalConfig() ProposalConfig {
	return ProposalConfig{
		RewritePercent: 30,
		MaxReplyChars:  140,
		MinImpactScore: 75,
		RiskyKeywords:  DefaultRiskyKeywords,
		TopK:           5,
	}
}

// ProposalEngine turns a comment into a vetted reply drawn from the answer bank.
type ProposalEngine struct {
	bank   AnswerBankLoader
	cache  *EmbeddingCache
	model  LanguageModel
	rnd    RandomSource
	cfg    ProposalConfig
	logger *zap.Logger
}

func NewProposalEngine(bank AnswerBankLoader, cache *EmbeddingCache, model LanguageModel, rnd RandomSource, cfg ProposalConfig, log *zap.Logger) *ProposalEngine {
	def := DefaultProposalConfig()
	if cfg.MaxReplyChars <= 0 {
		cfg.MaxReplyChars = def.MaxReplyChars
	}
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.RiskyKeywords == nil {
		cfg.RiskyKeywords = def.RiskyKeywords
	}
	if rnd == nil {
		rnd = DefaultRandom()
	}
	return &ProposalEngine{bank: bank, cache: cache, model: model, rnd: rnd, cfg: cfg, logger: logger.OrNop(log)}
}

type scoredCandidate struct {
	entry models.AnswerBankEntry
	sim   float64
}

// Propose returns the first candidate that passes the impact gate, or nil.
// External failures never escape; they only remove candidates.
func (p *ProposalEngine) Propose(ctx context.Context, commentText string) *models.ProposedReply {
	commentText = strings.TrimSpace(commentText)
	if commentText == "" {
		return nil
	}

	bank := p.bank.Load(ctx)
	if bank == nil || len(bank.Answers) == 0 {
		return nil
	}
	if kw, hit := containsAny(commentText, p.cfg.RiskyKeywords); hit {
		p.logger.Debug("comment hit risky keyword", zap.String("keyword", kw))
		return nil
	}

	lang := DetectLanguage(commentText)
	vectors := p.cache.Ensure(ctx, bank.Answers)

	var candidates []models.AnswerBankEntry
	for _, e := range bank.Answers {
		if e.Language() != lang {
			continue
		}
		if _, ok := vectors[e.Text]; ok {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	embedded, err := p.model.Embed(ctx, []string{commentText})
	if err != nil || len(embedded) == 0 || len(embedded[0]) == 0 {
		p.logger.Warn("embedding comment failed", zap.Error(err))
		return nil
	}
	commentVec := embedded[0]

	scored := make([]scoredCandidate, len(candidates))
	for i, c := range candidates {
		scored[i] = scoredCandidate{entry: c, sim: Cosine(commentVec, vectors[c.Text])}
	}
	slices.SortStableFunc(scored, func(a, b scoredCandidate) int {
		return cmp.Compare(b.sim, a.sim)
	})
	if len(scored) > p.cfg.TopK {
		scored = scored[:p.cfg.TopK]
	}

	for _, cand := range scored {
		text := p.candidateText(ctx, lang, commentText, cand.entry.Text)
		if text == "" {
			continue
		}
		judgment := p.judge(ctx, lang, commentText, text)
		if judgment == nil {
			continue
		}
		if judgment.Risk != models.RiskLow || judgment.Score < p.cfg.MinImpactScore {
			p.logger.Debug("candidate rejected by impact gate",
				zap.String("answer_id", cand.entry.ID),
				zap.Int("score", judgment.Score),
				zap.String("risk", judgment.Risk),
				zap.String("reason", judgment.Reason))
			continue
		}
		return &models.ProposedReply{Text: text, Score: judgment.Score}
	}
	return nil
}

func (p *ProposalEngine) candidateText(ctx context.Context, lang, comment, template string) string {
	if !p.shouldRewrite() {
		return Truncate(template, p.cfg.MaxReplyChars)
	}
	out, err := p.model.Complete(ctx, rewritePrompt(lang, comment, template, p.cfg.MaxReplyChars))
	if err != nil {
		p.logger.Warn("rewrite failed", zap.Error(err))
		return ""
	}
	return Truncate(out, p.cfg.MaxReplyChars)
}

func (p *ProposalEngine) shouldRewrite() bool {
	if p.cfg.RewritePercent <= 0 {
		return false
	}
	return p.rnd.IntN(100)+1 <= p.cfg.RewritePercent
}

func (p *ProposalEngine) judge(ctx context.Context, lang, comment, reply string) *models.ImpactJudgment {
	out, err := p.model.Complete(ctx, impactPrompt(lang, comment, reply))
	if err != nil {
		p.logger.Warn("impact check failed", zap.Error(err))
		return nil
	}
	j, err := ParseImpactJudgment(out)
	if err != nil {
		p.logger.Warn("impact judgment malformed", zap.Error(err))
		return nil
	}
	return j
}

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// judgmentScore accepts a JSON number or a numeric string. Any other string
// scores 0 so the gate rejects it.
type judgmentScore float64

func (s *judgmentScore) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		f, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			f = 0
		}
		*s = judgmentScore(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*s = judgmentScore(f)
	return nil
}

// ParseImpactJudgment decodes a single JSON object verdict. A missing score counts
// as 0 and a missing risk as high.
func ParseImpactJudgment(raw string) (*models.ImpactJudgment, error) {
	body := strings.TrimSpace(raw)
	if m := fencedJSON.FindStringSubmatch(body); len(m) > 1 {
		body = m[1]
	}
	if body == "" {
		return nil, fmt.Errorf("empty judgment")
	}

	var payload struct {
		Score  *judgmentScore `json:"score"`
		Risk   *string        `json:"risk"`
		Reason *string        `json:"reason"`
	}
	dec := json.NewDecoder(strings.NewReader(body))
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode judgment: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after judgment object")
	}

	j := &models.ImpactJudgment{Risk: models.RiskHigh}
	if payload.Score != nil {
		j.Score = int(math.Round(float64(*payload.Score)))
	}
	if payload.Risk != nil {
		j.Risk = strings.ToLower(strings.TrimSpace(*payload.Risk))
	}
	if payload.Reason != nil {
		j.Reason = *payload.Reason
	}
	return j, nil
}

// Cosine returns the cosine similarity of a and b over their common length.
func Cosine(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	return dot / (math.Sqrt(na)*math.Sqrt(nb) + 1e-12)
}
