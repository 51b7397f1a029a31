package domain

import (
	"time"

	"github.com/totegamma/curatorgate"
)

// GlobalScope is the scope of codes and grants not tied to a curator.
const GlobalScope = ""

// InviteCode is a secret token gating access to a scope.
type InviteCode struct {
	Code       string     `json:"code"`
	BoundEmail *string    `json:"boundEmail,omitempty"`
	MaxUses    int        `json:"maxUses"` // 0 = unlimited
	UsedCount  int        `json:"usedCount"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	ScopeID    string     `json:"scopeId,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	ConsumedAt *time.Time `json:"consumedAt,omitempty"`
}

func (c InviteCode) Status(now time.Time) CodeStatus {
	if c.ExpiresAt != nil && !c.ExpiresAt.After(now) {
		return CodeStatusExpired
	}
	if c.MaxUses > 0 && c.UsedCount >= c.MaxUses {
		return CodeStatusConsumed
	}
	return CodeStatusActive
}

// Redeemable reports why email cannot redeem the code at now, if at all.
// Expiry wins over every other condition.
func (c InviteCode) Redeemable(email string, now time.Time) error {
	if c.Status(now) == CodeStatusExpired {
		return ErrExpired
	}
	if c.BoundEmail != nil && *c.BoundEmail != "" {
		if curatorgate.NormalizeEmail(*c.BoundEmail) != curatorgate.NormalizeEmail(email) {
			return ErrEmailMismatch
		}
	}
	if c.Status(now) == CodeStatusConsumed {
		return ErrAlreadyUsed
	}
	return nil
}

// InviteCodeView is an InviteCode annotated with its status for admins.
type InviteCodeView struct {
	InviteCode
	Status CodeStatus `json:"status"`
}
