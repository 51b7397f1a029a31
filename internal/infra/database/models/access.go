package models

import (
	"time"
)

type InviteCode struct {
	Code       string     `json:"code" gorm:"primaryKey;type:text"`
	BoundEmail *string    `json:"boundEmail" gorm:"type:text"`
	MaxUses    int        `json:"maxUses" gorm:"not null"`
	UsedCount  int        `json:"usedCount" gorm:"not null;default:0"`
	ExpiresAt  *time.Time `json:"expiresAt" gorm:"type:timestamp with time zone"`
	ScopeID    string     `json:"scopeID" gorm:"type:text;not null;default:'';index"`
	CreatedAt  time.Time  `json:"createdAt" gorm:"type:timestamp with time zone;not null"`
	ConsumedAt *time.Time `json:"consumedAt" gorm:"type:timestamp with time zone"`
}

type Grant struct {
	ID        string    `json:"id" gorm:"primaryKey;type:text"`
	SubjectID string    `json:"subjectID" gorm:"type:text;not null;uniqueIndex:uniq_grant_subject_scope"`
	ScopeID   string    `json:"scopeID" gorm:"type:text;not null;default:'';uniqueIndex:uniq_grant_subject_scope"`
	Code      string    `json:"code" gorm:"type:text;index"`
	IssuedAt  time.Time `json:"issuedAt" gorm:"type:timestamp with time zone;not null"`
}
