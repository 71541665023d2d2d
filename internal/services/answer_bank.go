package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/tropicaldog17/replyqueue/internal/logger"
	"github.com/tropicaldog17/replyqueue/internal/models"
)

// AnswerBankLoader returns the current answer bank. It is consulted on every proposal
// so edits to the bank take effect without a restart.
type AnswerBankLoader interface {
	Load(ctx context.Context) *models.AnswerBank
}

// FileAnswerBank reads the bank from a JSON or YAML file (chosen by extension).
type FileAnswerBank struct {
	path   string
	logger *zap.Logger
}

func NewFileAnswerBank(path string, log *zap.Logger) *FileAnswerBank {
	return &FileAnswerBank{path: path, logger: logger.OrNop(log)}
}

// Load never fails: an unreadable or malformed file yields an empty bank.
func (b *FileAnswerBank) Load(ctx context.Context) *models.AnswerBank {
	bank, err := b.read()
	if err != nil {
		b.logger.Warn("answer bank load failed", zap.String("path", b.path), zap.Error(err))
		return emptyBank()
	}
	return bank
}

func (b *FileAnswerBank) read() (*models.AnswerBank, error) {
	raw, err := os.ReadFile(b.path)
	if err != nil {
		return nil, err
	}

	var bank models.AnswerBank
	switch strings.ToLower(filepath.Ext(b.path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &bank)
	default:
		err = json.Unmarshal(raw, &bank)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", b.path, err)
	}
	return CleanBank(&bank), nil
}

// CleanBank drops entries without text or explicitly marked unsafe and fills defaults.
func CleanBank(bank *models.AnswerBank) *models.AnswerBank {
	out := emptyBank()
	if bank == nil {
		return out
	}
	if bank.Version != 0 {
		out.Version = bank.Version
	}
	if len(bank.Languages) > 0 {
		out.Languages = bank.Languages
	}
	for _, e := range bank.Answers {
		if !e.Usable() {
			continue
		}
		e.Lang = e.Language()
		out.Answers = append(out.Answers, e)
	}
	return out
}

func emptyBank() *models.AnswerBank {
	return &models.AnswerBank{
		Version:   1,
		Languages: []string{models.LangThai, models.LangEnglish},
		Answers:   []models.AnswerBankEntry{},
	}
}

// StaticAnswerBank serves a fixed bank.
type StaticAnswerBank struct {
	Bank *models.AnswerBank
}

func (s StaticAnswerBank) Load(ctx context.Context) *models.AnswerBank {
	return CleanBank(s.Bank)
}
