package models

import "time"

// CachedVector maps an exact answer text to its embedding. The cache is append-only;
// editing an answer's wording produces a new row and leaves the old one orphaned.
type CachedVector struct {
	Text      string    `json:"text" gorm:"primaryKey;column:text;type:text"`
	AnswerID  string    `json:"id" gorm:"column:answer_id;type:text"`
	Lang      string    `json:"lang" gorm:"column:lang;type:varchar(16)"`
	Vector    []float32 `json:"vec" gorm:"column:vec;type:text;serializer:json;not null"`
	CreatedAt time.Time `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
}

func (CachedVector) TableName() string { return "answer_vectors" }
