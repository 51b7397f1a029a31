package usecase

import (
	"context"

	"github.com/totegamma/curatorgate/internal/domain"
)

// InviteCodeRepository is the code store. Redeem must consume the code and
// record the grant atomically with respect to concurrent redemptions.
type InviteCodeRepository interface {
	Create(ctx context.Context, code domain.InviteCode) error
	Get(ctx context.Context, code string) (domain.InviteCode, error)
	Redeem(ctx context.Context, input domain.RedeemInput) (domain.Grant, error)
}

// GrantRepository is the read side of the grant set.
type GrantRepository interface {
	Exists(ctx context.Context, subjectID, scopeID string) (bool, error)
	ListBySubject(ctx context.Context, subjectID string) ([]domain.Grant, error)
}

// RateLimiter throttles verification attempts per key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// SignalPublisher fans grant events out to listeners.
type SignalPublisher interface {
	Publish(ctx context.Context, event domain.GrantEvent) error
}
