package services

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/tropicaldog17/replyqueue/internal/models"
)

// PlatformClient is the social platform boundary. Implementations paginate
// transparently and cap result sizes.
type PlatformClient interface {
	ListRecentPosts(ctx context.Context, lookbackDays int) ([]models.Post, error)
	ListTopLevelComments(ctx context.Context, postID string) ([]models.Comment, error)
	HasAccountReplied(ctx context.Context, commentID string) (bool, error)
	// PostReply returns the platform id of the created reply.
	PostReply(ctx context.Context, commentID, text string) (string, error)
}

// LanguageModel is the embedding + completion boundary.
type LanguageModel interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Complete(ctx context.Context, prompt string) (string, error)
}

// ReviewNotifier presents a batch to a human. Delivery is best effort.
type ReviewNotifier interface {
	PresentBatch(ctx context.Context, preview *models.BatchPreview) error
}

// Proposer turns a comment into a vetted reply, or nil.
type Proposer interface {
	Propose(ctx context.Context, commentText string) *models.ProposedReply
}

// RandomSource is the injectable source for rewrite coin flips and send jitter.
type RandomSource interface {
	IntN(n int) int
}

// Clock returns the current time.
type Clock func() time.Time

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// DefaultRandom uses the process-wide math/rand/v2 source.
func DefaultRandom() RandomSource { return globalRand{} }

func utcNow() time.Time { return time.Now().UTC() }
