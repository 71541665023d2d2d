package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/tropicaldog17/replyqueue/internal/logger"
	"github.com/tropicaldog17/replyqueue/internal/models"
	"github.com/tropicaldog17/replyqueue/internal/services"
)

// Discord webhook limits. The total counts every embed title and description
// of one message; the budget leaves headroom below Discord's 6000.
const (
	embedsPerMessage   = 10
	embedTitleChars    = 256
	embedDescChars     = 4096
	messageEmbedBudget = 5800
)

// DiscordNotifier posts batch previews to a Discord webhook.
type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
	logger     *zap.Logger
}

func NewDiscord(webhookURL string, log *zap.Logger) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger.OrNop(log),
	}
}

type discordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type discordMessage struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds,omitempty"`
}

func (n *DiscordNotifier) PresentBatch(ctx context.Context, p *models.BatchPreview) error {
	if len(p.Items) == 0 {
		return nil
	}
	msgs := packMessages(header(p), discordEmbeds(p))
	for i, m := range msgs {
		if err := n.send(ctx, m); err != nil {
			return fmt.Errorf("discord message %d/%d: %w", i+1, len(msgs), err)
		}
	}
	n.logger.Info("discord preview sent", zap.String("batch_id", p.BatchID), zap.Int("messages", len(msgs)))
	return nil
}

func (e discordEmbed) size() int {
	return utf8.RuneCountInString(e.Title) + utf8.RuneCountInString(e.Description)
}

// discordEmbeds builds one embed per post group chunk. A chunk closes at
// itemsPerBlock items or when the next item would overflow the description.
func discordEmbeds(p *models.BatchPreview) []discordEmbed {
	var out []discordEmbed
	for _, g := range p.GroupByPost() {
		title := services.Truncate(groupTitle(g), embedTitleChars)
		contTitle := services.Truncate(groupTitle(g)+" (cont.)", embedTitleChars)
		// one embed alone must fit the message budget
		descLimit := min(embedDescChars, messageEmbedBudget-utf8.RuneCountInString(contTitle))
		sepLen := utf8.RuneCountInString(blockSeparator)

		var blocks []string
		size := 0
		t := title
		flush := func() {
			if len(blocks) == 0 {
				return
			}
			out = append(out, discordEmbed{Title: t, Description: strings.Join(blocks, blockSeparator)})
			blocks, size, t = nil, 0, contTitle
		}
		for _, it := range g.Items {
			block := clip(itemBlock(it), descLimit)
			sz := utf8.RuneCountInString(block)
			if len(blocks) == itemsPerBlock || (len(blocks) > 0 && size+sepLen+sz > descLimit) {
				flush()
			}
			if len(blocks) > 0 {
				size += sepLen
			}
			blocks = append(blocks, block)
			size += sz
		}
		flush()
	}
	return out
}

// clip cuts s to n runes and keeps its line breaks.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// packMessages fills each message up to embedsPerMessage embeds and
// messageEmbedBudget characters. The first message carries content.
func packMessages(content string, embeds []discordEmbed) []discordMessage {
	msgs := []discordMessage{{Content: content}}
	used := 0
	for _, e := range embeds {
		last := &msgs[len(msgs)-1]
		if len(last.Embeds) > 0 && (len(last.Embeds) == embedsPerMessage || used+e.size() > messageEmbedBudget) {
			msgs = append(msgs, discordMessage{})
			last = &msgs[len(msgs)-1]
			used = 0
		}
		last.Embeds = append(last.Embeds, e)
		used += e.size()
	}
	return msgs
}

func (n *DiscordNotifier) send(ctx context.Context, m discordMessage) error {
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("discord error: %s", resp.Status)
	}
	return nil
}
