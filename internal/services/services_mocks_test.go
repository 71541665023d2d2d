package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tropicaldog17/replyqueue/internal/db"
	"github.com/tropicaldog17/replyqueue/internal/models"
)

// ---- Test doubles for the external collaborators ----

func newTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Connect(&db.Config{Driver: db.DriverSQLite, SQLitePath: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(models.All()...))
	t.Cleanup(func() { _ = database.Close() })
	return database
}

// stepClock returns start, start+step, start+2*step, ...
func stepClock(start time.Time, step time.Duration) Clock {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(step)
		return t
	}
}

func fixedClock(t time.Time) Clock { return func() time.Time { return t } }

type sentReply struct {
	CommentID string
	Text      string
}

type mockPlatform struct {
	mu sync.Mutex

	posts       []models.Post
	postsErr    error
	comments    map[string][]models.Comment
	commentsErr map[string]error
	replied     map[string]bool
	repliedErr  map[string]error

	replyID  string
	replyErr error

	repliedChecks []string
	sent          []sentReply
}

func (m *mockPlatform) ListRecentPosts(ctx context.Context, lookbackDays int) ([]models.Post, error) {
	if m.postsErr != nil {
		return nil, m.postsErr
	}
	return m.posts, nil
}

func (m *mockPlatform) ListTopLevelComments(ctx context.Context, postID string) ([]models.Comment, error) {
	if err := m.commentsErr[postID]; err != nil {
		return nil, err
	}
	return m.comments[postID], nil
}

func (m *mockPlatform) HasAccountReplied(ctx context.Context, commentID string) (bool, error) {
	m.mu.Lock()
	m.repliedChecks = append(m.repliedChecks, commentID)
	m.mu.Unlock()
	if err := m.repliedErr[commentID]; err != nil {
		return false, err
	}
	return m.replied[commentID], nil
}

func (m *mockPlatform) PostReply(ctx context.Context, commentID, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentReply{CommentID: commentID, Text: text})
	if m.replyErr != nil {
		return "", m.replyErr
	}
	return m.replyID, nil
}

// mockModel embeds by lookup and answers completions through a callback.
type mockModel struct {
	mu sync.Mutex

	vectors  map[string][]float32
	embedErr error
	complete func(prompt string) (string, error)

	embedCalls    [][]string
	completeCalls []string
}

func newMockModel(judgment string) *mockModel {
	return &mockModel{
		vectors: map[string][]float32{},
		complete: func(prompt string) (string, error) {
			return judgment, nil
		},
	}
}

func (m *mockModel) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedCalls = append(m.embedCalls, append([]string(nil), texts...))
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := m.vectors[t]; ok {
			out[i] = v
		} else {
			out[i] = []float32{1, 1, 1}
		}
	}
	return out, nil
}

func (m *mockModel) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.completeCalls = append(m.completeCalls, prompt)
	m.mu.Unlock()
	return m.complete(prompt)
}

func (m *mockModel) embeddedTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []string
	for _, c := range m.embedCalls {
		all = append(all, c...)
	}
	return all
}

func (m *mockModel) judgeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.completeCalls {
		if isJudgePrompt(p) {
			n++
		}
	}
	return n
}

func isJudgePrompt(p string) bool {
	return strings.Contains(p, "REPLY: ")
}

type mockNotifier struct {
	previews []*models.BatchPreview
	err      error
}

func (m *mockNotifier) PresentBatch(ctx context.Context, preview *models.BatchPreview) error {
	m.previews = append(m.previews, preview)
	return m.err
}

type mockProposer struct {
	calls   []string
	propose func(text string) *models.ProposedReply
}

func (m *mockProposer) Propose(ctx context.Context, text string) *models.ProposedReply {
	m.calls = append(m.calls, text)
	if m.propose == nil {
		return &models.ProposedReply{Text: "Thanks for your support!", Score: 90}
	}
	return m.propose(text)
}

// seqRandom cycles through values, each reduced modulo n.
type seqRandom struct {
	values []int
	i      int
}

func (r *seqRandom) IntN(n int) int {
	v := r.values[r.i%len(r.values)]
	r.i++
	return v % n
}

// compile-time checks that mocks satisfy interfaces
var _ PlatformClient = (*mockPlatform)(nil)
var _ LanguageModel = (*mockModel)(nil)
var _ ReviewNotifier = (*mockNotifier)(nil)
var _ Proposer = (*mockProposer)(nil)
var _ Proposer = (*ProposalEngine)(nil)
var _ RandomSource = (*seqRandom)(nil)
var _ AnswerBankLoader = (*FileAnswerBank)(nil)
var _ AnswerBankLoader = StaticAnswerBank{}
