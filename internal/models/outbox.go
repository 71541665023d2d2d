package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OutboxStatus is the delivery state of a scheduled reply.
type OutboxStatus string

const (
	OutboxStatusQueued   OutboxStatus = "QUEUED"
	OutboxStatusSent     OutboxStatus = "SENT"
	OutboxStatusFailed   OutboxStatus = "FAILED"
	OutboxStatusCanceled OutboxStatus = "CANCELED"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s OutboxStatus) IsTerminal() bool {
	return s == OutboxStatusSent || s == OutboxStatusFailed || s == OutboxStatusCanceled
}

// OutboxEntry is one approved reply waiting for (or past) its scheduled send time.
// A comment receives at most one entry ever.
type OutboxEntry struct {
	ID          string       `json:"id" gorm:"primaryKey;column:id;type:varchar(36)"`
	BatchID     string       `json:"batch_id" gorm:"column:batch_id;type:varchar(64);not null;index"`
	PostID      string       `json:"post_id" gorm:"column:post_id;type:text;not null"`
	PostLink    string       `json:"post_link" gorm:"column:post_link;type:text"`
	CommentID   string       `json:"comment_id" gorm:"column:comment_id;type:varchar(255);not null;uniqueIndex"`
	ReplyText   string       `json:"reply_text" gorm:"column:reply_text;type:text;not null"`
	ScheduledAt time.Time    `json:"scheduled_at" gorm:"column:scheduled_at;not null;index:idx_outbox_due,priority:2"`
	Status      OutboxStatus `json:"status" gorm:"column:status;type:varchar(20);not null;default:'QUEUED';index:idx_outbox_due,priority:1"`
	SentAt      *time.Time   `json:"sent_at,omitempty" gorm:"column:sent_at"`
	FailReason  *string      `json:"fail_reason,omitempty" gorm:"column:fail_reason;type:text"`
	CreatedAt   time.Time    `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (OutboxEntry) TableName() string { return "outbox_replies" }

func (e *OutboxEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// OutboxFilter narrows outbox listings.
type OutboxFilter struct {
	BatchID string
	Status  OutboxStatus
	Limit   int
	Offset  int
}

// TickResult describes what one dispatcher tick did. A nil result means nothing was due.
type TickResult struct {
	EntryID    string       `json:"entry_id"`
	CommentID  string       `json:"comment_id"`
	Status     OutboxStatus `json:"status"`
	ReplyID    string       `json:"reply_id,omitempty"`
	FailReason string       `json:"fail_reason,omitempty"`
	DryRun     bool         `json:"dry_run"`
}
