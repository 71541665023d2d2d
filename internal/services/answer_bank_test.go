package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tropicaldog17/replyqueue/internal/models"
	"github.com/tropicaldog17/replyqueue/internal/repositories"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFileAnswerBank_JSON(t *testing.T) {
	path := writeFile(t, "bank.json", `{
		"version": 3,
		"languages": ["en"],
		"answers": [
			{"id": "a1", "lang": "en", "text": "Thanks for your support!"},
			{"id": "a2", "text": "Glad you liked it"},
			{"id": "a3", "text": "   "},
			{"id": "a4", "text": "Message us privately", "safe": false},
			{"id": "a5", "lang": "th", "text": "ขอบคุณครับ", "safe": true}
		]
	}`)

	bank := NewFileAnswerBank(path, nil).Load(context.Background())
	assert.Equal(t, 3, bank.Version)
	assert.Equal(t, []string{"en"}, bank.Languages)
	require.Len(t, bank.Answers, 3)
	assert.Equal(t, "a1", bank.Answers[0].ID)
	assert.Equal(t, models.LangEnglish, bank.Answers[1].Lang)
	assert.Equal(t, models.LangThai, bank.Answers[2].Lang)
}

func TestFileAnswerBank_YAML(t *testing.T) {
	path := writeFile(t, "bank.yaml", `
version: 2
answers:
  - id: y1
    lang: en
    text: Thanks for watching!
  - id: y2
    text: nope
    safe: false
`)

	bank := NewFileAnswerBank(path, nil).Load(context.Background())
	assert.Equal(t, 2, bank.Version)
	assert.Equal(t, []string{models.LangThai, models.LangEnglish}, bank.Languages)
	require.Len(t, bank.Answers, 1)
	assert.Equal(t, "Thanks for watching!", bank.Answers[0].Text)
}

func TestFileAnswerBank_FailuresYieldEmptyBank(t *testing.T) {
	for name, path := range map[string]string{
		"missing":   filepath.Join(t.TempDir(), "nope.json"),
		"malformed": writeFile(t, "bad.json", `{"answers": [`),
	} {
		t.Run(name, func(t *testing.T) {
			bank := NewFileAnswerBank(path, nil).Load(context.Background())
			require.NotNil(t, bank)
			assert.Empty(t, bank.Answers)
			assert.Equal(t, 1, bank.Version)
		})
	}
}

func TestEmbeddingCache_FileStoreAndDedup(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewFileVectorCache(filepath.Join(t.TempDir(), "vectors.json"))
	model := newMockModel(judgeAccept)
	cache := NewEmbeddingCache(store, model, nil)

	entries := []models.AnswerBankEntry{
		{ID: "a", Text: "same text"},
		{ID: "b", Text: "same text"},
		{ID: "c", Lang: "th", Text: "ขอบคุณ"},
	}
	vectors := cache.Ensure(ctx, entries)
	assert.Len(t, vectors, 2)
	require.Len(t, model.embedCalls, 1)
	assert.Equal(t, []string{"same text", "ขอบคุณ"}, model.embedCalls[0])

	// a fresh cache over the same file needs no embedding
	model2 := newMockModel(judgeAccept)
	vectors = NewEmbeddingCache(store, model2, nil).Ensure(ctx, entries)
	assert.Len(t, vectors, 2)
	assert.Empty(t, model2.embedCalls)

	// rewording is a miss; the old row stays
	entries[2].Text = "ขอบคุณมาก"
	vectors = NewEmbeddingCache(store, model2, nil).Ensure(ctx, entries)
	assert.Len(t, vectors, 3)
	assert.Equal(t, [][]string{{"ขอบคุณมาก"}}, model2.embedCalls)

	all, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestEmbeddingCache_CountMismatchIgnored(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewVectorCacheRepository(newTestDB(t))
	cache := NewEmbeddingCache(store, shortModel{}, nil)

	vectors := cache.Ensure(ctx, []models.AnswerBankEntry{{Text: "one"}, {Text: "two"}})
	assert.Empty(t, vectors)
	all, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

type shortModel struct{}

func (shortModel) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return [][]float32{{1}}, nil
}

func (shortModel) Complete(ctx context.Context, prompt string) (string, error) { return "", nil }
