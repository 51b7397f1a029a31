package domain

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

type ctxKey string

const (
	RequesterIdCtxKey   ctxKey = "cg-requesterId"
	RequesterAnonCtxKey ctxKey = "cg-requesterIsAnonymous"
)

const AnonymousSubjectPrefix = "anon:"

// WithSubject attaches the current subject to ctx.
func WithSubject(ctx context.Context, subjectID string) context.Context {
	ctx = context.WithValue(ctx, RequesterIdCtxKey, subjectID)
	return context.WithValue(ctx, RequesterAnonCtxKey, IsAnonymousSubject(subjectID))
}

// SubjectFromContext returns the subject placed by the identity middleware.
func SubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(RequesterIdCtxKey).(string)
	if !ok || subject == "" {
		return "", false
	}
	return subject, true
}

func NewAnonymousSubject() string {
	return AnonymousSubjectPrefix + uuid.NewString()
}

func IsAnonymousSubject(subjectID string) bool {
	return strings.HasPrefix(subjectID, AnonymousSubjectPrefix)
}

type CodeStatus string

const (
	CodeStatusActive   CodeStatus = "ACTIVE"
	CodeStatusConsumed CodeStatus = "CONSUMED"
	CodeStatusExpired  CodeStatus = "EXPIRED"
)

// ScopeMode decides which scope a redeemed code grants.
type ScopeMode string

const (
	// ScopeModeCurator grants the code's own scope.
	ScopeModeCurator ScopeMode = "curator"
	// ScopeModeGlobal grants every redemption globally.
	ScopeModeGlobal ScopeMode = "global"
)

func ParseScopeMode(s string) (ScopeMode, bool) {
	switch ScopeMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopeModeCurator:
		return ScopeModeCurator, true
	case ScopeModeGlobal:
		return ScopeModeGlobal, true
	default:
		return "", false
	}
}

func (m ScopeMode) GrantScope(code InviteCode) string {
	if m == ScopeModeGlobal {
		return GlobalScope
	}
	return code.ScopeID
}
