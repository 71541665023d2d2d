package notifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tropicaldog17/replyqueue/internal/logger"
	"github.com/tropicaldog17/replyqueue/internal/models"
)

const defaultTelegramAPI = "https://api.telegram.org"

// TelegramNotifier sends batch previews to a Telegram chat via the bot API.
type TelegramNotifier struct {
	apiURL   string
	botToken string
	chatID   string
	client   *http.Client
	logger   *zap.Logger
}

func NewTelegram(botToken, chatID string, log *zap.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		apiURL:   defaultTelegramAPI,
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger.OrNop(log),
	}
}

// PresentBatch sends the header followed by one message per post section.
// Plain text is used since links carry characters Markdown would mangle.
func (n *TelegramNotifier) PresentBatch(ctx context.Context, p *models.BatchPreview) error {
	if n.botToken == "" || n.chatID == "" {
		return fmt.Errorf("telegram notifier misconfigured")
	}
	if len(p.Items) == 0 {
		return nil
	}

	messages := []string{header(p)}
	for _, s := range sections(p) {
		messages = append(messages, s.Title+"\n\n"+s.Body)
	}
	for i, m := range messages {
		if err := n.send(ctx, m); err != nil {
			return fmt.Errorf("telegram message %d/%d: %w", i+1, len(messages), err)
		}
	}
	n.logger.Info("telegram preview sent", zap.String("batch_id", p.BatchID), zap.Int("messages", len(messages)))
	return nil
}

func (n *TelegramNotifier) send(ctx context.Context, text string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiURL, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		// the request URL embeds the bot token
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}
	return nil
}
