package curatorgate

import "time"

const (
	Version = "1.0"

	SessionCookieName = "curator_session"
)

// Reason is the wire value carried by a failed verification.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonInvalid       Reason = "invalid"
	ReasonNotFound      Reason = "not_found"
	ReasonExpired       Reason = "expired"
	ReasonAlreadyUsed   Reason = "already_used"
	ReasonEmailMismatch Reason = "email_mismatch"
	ReasonRateLimited   Reason = "rate_limited"
	ReasonServerError   Reason = "server_error"
)

type VerifyRequest struct {
	Email *string `json:"email,omitempty"`
	Code  *string `json:"code"`
}

type VerifyResponse struct {
	OK     bool   `json:"ok"`
	Reason Reason `json:"reason,omitempty"`
}

type CheckResponse struct {
	HasAccess bool `json:"hasAccess"`
}

type IssueRequest struct {
	Code       string  `json:"code,omitempty"`
	BoundEmail *string `json:"boundEmail,omitempty"`
	MaxUses    *int    `json:"maxUses,omitempty"`
	// TTLSeconds of zero falls back to the server default.
	TTLSeconds int64  `json:"ttlSeconds,omitempty"`
	ScopeID    string `json:"scopeId,omitempty"`
}

type Endpoint struct {
	Template string    `json:"template"`
	Method   string    `json:"method"`
	Query    *[]string `json:"query,omitempty"`
}

type WellKnownCuratorgate struct {
	Version   string              `json:"version"`
	Domain    string              `json:"domain"`
	ScopeMode string              `json:"scopeMode"`
	Endpoints map[string]Endpoint `json:"endpoints"`
}

// IssuedCode is the admin view of an invite code.
type IssuedCode struct {
	Code       string     `json:"code"`
	BoundEmail *string    `json:"boundEmail,omitempty"`
	MaxUses    int        `json:"maxUses"`
	UsedCount  int        `json:"usedCount"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	ScopeID    string     `json:"scopeId,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	Status     string     `json:"status"`
}
