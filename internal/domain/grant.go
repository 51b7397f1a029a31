package domain

import "time"

// Grant records that a subject was authorized for a scope.
type Grant struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"subjectId"`
	ScopeID   string    `json:"scopeId,omitempty"`
	Code      string    `json:"-"`
	IssuedAt  time.Time `json:"issuedAt"`
}

// GrantEvent is published whenever a grant is issued.
type GrantEvent struct {
	Type      string    `json:"type"`
	GrantID   string    `json:"grantId"`
	SubjectID string    `json:"subjectId"`
	ScopeID   string    `json:"scopeId,omitempty"`
	IssuedAt  time.Time `json:"issuedAt"`
}

const GrantEventIssued = "grant.issued"

// AccessDecision is the result of an access query. Indeterminate is set when
// the answer could not be computed; Allowed is then always false.
type AccessDecision struct {
	Allowed       bool
	Indeterminate bool
	Err           error
}

// RedeemInput is what the code store needs to consume a code and record a
// grant in one step.
type RedeemInput struct {
	Code      string
	Email     string
	SubjectID string
	Mode      ScopeMode
	Now       time.Time
}
