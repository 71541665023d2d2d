package notifier

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/tropicaldog17/replyqueue/internal/errors"
	"github.com/tropicaldog17/replyqueue/internal/logger"
	"github.com/tropicaldog17/replyqueue/internal/models"
	"github.com/tropicaldog17/replyqueue/internal/services"
)

const (
	KindDiscord  = "discord"
	KindTelegram = "telegram"
	KindNone     = "none"

	itemsPerBlock = 8
	previewChars  = 160

	blockSeparator = "\n\n---\n\n"
)

// Config selects the review channel.
type Config struct {
	Kind              string `yaml:"kind"`
	DiscordWebhookURL string `yaml:"-"`
	TelegramBotToken  string `yaml:"-"`
	TelegramChatID    string `yaml:"telegram_chat_id"`
}

// New returns the notifier named by cfg.Kind.
func New(cfg Config, log *zap.Logger) (services.ReviewNotifier, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "", KindDiscord:
		if cfg.DiscordWebhookURL == "" {
			return nil, &apperrors.ErrConfig{Key: "DISCORD_WEBHOOK_URL", Message: "is required for the discord notifier"}
		}
		return NewDiscord(cfg.DiscordWebhookURL, log), nil
	case KindTelegram:
		if cfg.TelegramBotToken == "" || cfg.TelegramChatID == "" {
			return nil, &apperrors.ErrConfig{Key: "TELEGRAM_BOT_TOKEN", Message: "bot token and TELEGRAM_CHAT_ID are required for the telegram notifier"}
		}
		return NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID, log), nil
	case KindNone:
		return NewLog(log), nil
	default:
		return nil, &apperrors.ErrConfig{Key: "NOTIFIER", Message: fmt.Sprintf("unknown notifier %q", cfg.Kind)}
	}
}

func header(p *models.BatchPreview) string {
	return strings.Join([]string{
		"🧪 FB AUTO-REPLY PREVIEW",
		"Batch: " + p.BatchID,
		fmt.Sprintf("Total: %d", len(p.Items)),
		"",
		"✅ Approve: " + p.ApproveURL,
		"❌ Reject: " + p.RejectURL,
	}, "\n")
}

func groupTitle(g models.PostGroup) string {
	if g.PostLink != "" {
		return "Post: " + g.PostLink
	}
	return "Post: " + g.PostID
}

func itemBlock(it models.PreviewItem) string {
	mark := "🟢 PENDING"
	if it.Status == models.ItemStatusRemoved {
		mark = "🗑️ REMOVED"
	}
	impact := "-"
	if it.ImpactScore != nil {
		impact = fmt.Sprintf("%d", *it.ImpactScore)
	}
	reply := it.ProposedReply
	if reply == "" {
		reply = "(no proposal)"
	}
	return strings.Join([]string{
		fmt.Sprintf("#%d %s | Impact: %s", it.ItemID, mark, impact),
		"C: " + services.Truncate(it.CommentText, previewChars),
		"R: " + services.Truncate(reply, previewChars),
		"Remove: " + it.RemoveURL,
	}, "\n")
}

// section is one titled chunk of at most itemsPerBlock items.
type section struct {
	Title string
	Body  string
}

func sections(p *models.BatchPreview) []section {
	var out []section
	for _, g := range p.GroupByPost() {
		title := groupTitle(g)
		for start := 0; start < len(g.Items); start += itemsPerBlock {
			end := min(start+itemsPerBlock, len(g.Items))
			blocks := make([]string, 0, end-start)
			for _, it := range g.Items[start:end] {
				blocks = append(blocks, itemBlock(it))
			}
			t := title
			if start > 0 {
				t = title + " (cont.)"
			}
			out = append(out, section{Title: t, Body: strings.Join(blocks, blockSeparator)})
		}
	}
	return out
}

// LogNotifier writes previews to the log instead of a chat.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLog(log *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.OrNop(log)}
}

func (n *LogNotifier) PresentBatch(ctx context.Context, p *models.BatchPreview) error {
	n.logger.Info("batch ready for review",
		zap.String("batch_id", p.BatchID),
		zap.Int("items", len(p.Items)),
		zap.String("approve_url", p.ApproveURL),
		zap.String("reject_url", p.RejectURL))
	for _, s := range sections(p) {
		n.logger.Info(s.Title, zap.String("items", s.Body))
	}
	return nil
}
