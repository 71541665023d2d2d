package models

// StateKeyReviewLock is the system_state key holding the review lock flag.
const StateKeyReviewLock = "review_lock"

// SystemState is a persisted key/value pair for process-wide flags.
type SystemState struct {
	Key   string `json:"key" gorm:"primaryKey;column:key;type:varchar(64)"`
	Value string `json:"value" gorm:"column:value;type:text;not null"`
}

func (SystemState) TableName() string { return "system_state" }
