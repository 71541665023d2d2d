package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tropicaldog17/replyqueue/internal/logger"
	"github.com/tropicaldog17/replyqueue/internal/models"
)

// DefaultGraphURL is the Graph API version the client is written against.
const DefaultGraphURL = "https://graph.facebook.com/v24.0"

const (
	postsPageSize    = 25
	commentsPageSize = 50
	repliesPageSize  = 25
)

// Config holds the page credentials and result caps.
type Config struct {
	PageID      string        `yaml:"page_id"`
	AccessToken string        `yaml:"-"`
	BaseURL     string        `yaml:"graph_url"`
	MaxPosts    int           `yaml:"max_posts"`
	MaxComments int           `yaml:"max_comments_per_post"`
	MaxReplies  int           `yaml:"max_replies_checked"`
	Timeout     time.Duration `yaml:"timeout"`
}

// GraphClient talks to the Facebook Graph API on behalf of a single page.
type GraphClient struct {
	cfg        Config
	httpClient *http.Client
	now        func() time.Time
	logger     *zap.Logger
}

// GraphError is the error envelope returned by the Graph API.
type GraphError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
	Type       string `json:"type"`
	Code       int    `json:"code"`
}

func (e *GraphError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("graph api status %d", e.StatusCode)
	}
	return fmt.Sprintf("graph api status %d: (#%d) %s", e.StatusCode, e.Code, e.Message)
}

// NewGraphClient creates a new Graph API client
func NewGraphClient(cfg Config, log *zap.Logger) *GraphClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGraphURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.MaxPosts <= 0 {
		cfg.MaxPosts = 300
	}
	if cfg.MaxComments <= 0 {
		cfg.MaxComments = 800
	}
	if cfg.MaxReplies <= 0 {
		cfg.MaxReplies = 100
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &GraphClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		now:        time.Now,
		logger:     logger.OrNop(log),
	}
}

type page[T any] struct {
	Data   []T `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

// ListRecentPosts returns page posts created within the lookback window, newest first.
func (c *GraphClient) ListRecentPosts(ctx context.Context, lookbackDays int) ([]models.Post, error) {
	since := c.now().AddDate(0, 0, -lookbackDays).Unix()
	q := url.Values{
		"since":  {strconv.FormatInt(since, 10)},
		"limit":  {strconv.Itoa(postsPageSize)},
		"fields": {"id,permalink_url,created_time"},
	}
	return collect[models.Post](ctx, c, c.endpoint(c.cfg.PageID+"/feed", q), c.cfg.MaxPosts)
}

type author struct {
	ID string `json:"id"`
}

type graphComment struct {
	ID      string  `json:"id"`
	Message string  `json:"message"`
	From    *author `json:"from"`
}

// ListTopLevelComments returns the top-level comments of a post in reverse
// chronological order. Comments written by the page itself are left out.
func (c *GraphClient) ListTopLevelComments(ctx context.Context, postID string) ([]models.Comment, error) {
	q := url.Values{
		"filter": {"toplevel"},
		"order":  {"reverse_chronological"},
		"limit":  {strconv.Itoa(commentsPageSize)},
		"fields": {"id,message,from,created_time"},
	}
	raw, err := collect[graphComment](ctx, c, c.endpoint(postID+"/comments", q), c.cfg.MaxComments)
	if err != nil {
		return nil, err
	}
	out := make([]models.Comment, 0, len(raw))
	for _, rc := range raw {
		if rc.From != nil && rc.From.ID == c.cfg.PageID {
			continue
		}
		out = append(out, models.Comment{ID: rc.ID, Text: rc.Message})
	}
	return out, nil
}

type replyAuthor struct {
	ID   string  `json:"id"`
	From *author `json:"from"`
}

// HasAccountReplied reports whether the page itself has already answered the comment.
func (c *GraphClient) HasAccountReplied(ctx context.Context, commentID string) (bool, error) {
	q := url.Values{
		"limit":  {strconv.Itoa(repliesPageSize)},
		"fields": {"id,from"},
	}
	replies, err := collect[replyAuthor](ctx, c, c.endpoint(commentID+"/comments", q), c.cfg.MaxReplies)
	if err != nil {
		return false, err
	}
	for _, r := range replies {
		if r.From != nil && r.From.ID == c.cfg.PageID {
			return true, nil
		}
	}
	return false, nil
}

// PostReply publishes a reply under the comment and returns the new comment id.
func (c *GraphClient) PostReply(ctx context.Context, commentID, text string) (string, error) {
	q := url.Values{"message": {text}}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, c.endpoint(commentID+"/comments", q), &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *GraphClient) endpoint(path string, q url.Values) string {
	q.Set("access_token", c.cfg.AccessToken)
	return c.cfg.BaseURL + "/" + strings.TrimLeft(path, "/") + "?" + q.Encode()
}

// collect follows paging.next links until the cap is reached or the pages run out.
func collect[T any](ctx context.Context, c *GraphClient, next string, limit int) ([]T, error) {
	var out []T
	for next != "" && len(out) < limit {
		var p page[T]
		if err := c.do(ctx, http.MethodGet, next, &p); err != nil {
			if len(out) > 0 {
				c.logger.Warn("graph pagination stopped early", zap.Int("collected", len(out)), zap.Error(err))
				return out, nil
			}
			return nil, err
		}
		out = append(out, p.Data...)
		if len(p.Data) == 0 {
			break
		}
		next = p.Paging.Next
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (c *GraphClient) do(ctx context.Context, method, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graph request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("failed to read graph response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope struct {
			Error GraphError `json:"error"`
		}
		_ = json.Unmarshal(body, &envelope)
		envelope.Error.StatusCode = resp.StatusCode
		return &envelope.Error
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode graph response: %w", err)
	}
	return nil
}
