package models

import "time"

// BatchStatus is the lifecycle state of a review cycle.
type BatchStatus string

const (
	BatchStatusPendingReview BatchStatus = "PENDING_REVIEW"
	BatchStatusApproved      BatchStatus = "APPROVED"
	BatchStatusRejected      BatchStatus = "REJECTED"
)

// IsDecision reports whether s is a terminal human decision.
func (s BatchStatus) IsDecision() bool {
	return s == BatchStatusApproved || s == BatchStatusRejected
}

// ItemStatus is the curation state of a single candidate reply.
type ItemStatus string

const (
	ItemStatusPending ItemStatus = "PENDING"
	ItemStatusRemoved ItemStatus = "REMOVED"
)

// ReviewBatch groups the candidate replies that await one human go/no-go decision.
// At most one batch is PENDING_REVIEW at a time; batches are never deleted.
type ReviewBatch struct {
	BatchID   string      `json:"batch_id" gorm:"primaryKey;column:batch_id;type:varchar(64)"`
	Status    BatchStatus `json:"status" gorm:"column:status;type:varchar(20);not null;default:'PENDING_REVIEW';index"`
	CreatedAt time.Time   `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	DecidedAt *time.Time  `json:"decided_at,omitempty" gorm:"column:decided_at"`
}

func (ReviewBatch) TableName() string { return "review_batches" }

// ReviewItem is one proposed reply to one platform comment.
// CommentID is unique across every item ever created.
type ReviewItem struct {
	ID            int64      `json:"id" gorm:"primaryKey;autoIncrement;column:id"`
	BatchID       string     `json:"batch_id" gorm:"column:batch_id;type:varchar(64);not null;index"`
	PostID        string     `json:"post_id" gorm:"column:post_id;type:text;not null"`
	PostLink      string     `json:"post_link" gorm:"column:post_link;type:text"`
	CommentID     string     `json:"comment_id" gorm:"column:comment_id;type:varchar(255);not null;uniqueIndex"`
	CommentText   string     `json:"comment_text" gorm:"column:comment_text;type:text;not null"`
	ProposedReply *string    `json:"proposed_reply" gorm:"column:proposed_reply;type:text"`
	ImpactScore   *int       `json:"impact_score" gorm:"column:impact_score"`
	Status        ItemStatus `json:"status" gorm:"column:status;type:varchar(20);not null;default:'PENDING'"`
	CreatedAt     time.Time  `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (ReviewItem) TableName() string { return "review_items" }

// Reply returns the proposed reply or "" when none was recorded.
func (i *ReviewItem) Reply() string {
	if i.ProposedReply == nil {
		return ""
	}
	return *i.ProposedReply
}

// BatchDetail is a batch together with its items, as exposed to the admin API.
type BatchDetail struct {
	Batch *ReviewBatch  `json:"batch"`
	Items []*ReviewItem `json:"items"`
}

// ScanResult summarizes one scan cycle.
type ScanResult struct {
	BatchID       string `json:"batch_id,omitempty"`
	Skipped       bool   `json:"skipped"`
	PostsSeen     int    `json:"posts_seen"`
	CommentsSeen  int    `json:"comments_seen"`
	ItemsAdded    int    `json:"items_added"`
	TotalItems    int64  `json:"total_items"`
	Locked        bool   `json:"locked"`
	NotifyFailure string `json:"notify_failure,omitempty"`
	Interrupted   string `json:"interrupted,omitempty"`
}

// DecisionResult reports the outcome of a human decision on a batch.
type DecisionResult struct {
	BatchID     string      `json:"batch_id"`
	Status      BatchStatus `json:"status"`
	Queued      int         `json:"queued"`
	FirstSendAt *time.Time  `json:"first_send_at,omitempty"`
	LastSendAt  *time.Time  `json:"last_send_at,omitempty"`
}
