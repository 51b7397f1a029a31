package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/curatorgate"
	"github.com/totegamma/curatorgate/internal/domain"
)

var tracer = otel.Tracer("usecase")

type VerifyInput struct {
	Code      string
	Email     string
	SubjectID string
	ClientIP  string
}

type VerifyResult struct {
	OK     bool
	Reason curatorgate.Reason
	// SubjectID is the subject the grant was recorded for. It differs from
	// the input when an anonymous subject had to be minted.
	SubjectID string
	Minted    bool
	Grant     *domain.Grant
}

type AccessUsecase struct {
	codes   InviteCodeRepository
	grants  GrantRepository
	limiter RateLimiter
	signal  SignalPublisher
	config  domain.Config

	now        func() time.Time
	newSubject func() string
}

func NewAccessUsecase(
	codes InviteCodeRepository,
	grants GrantRepository,
	limiter RateLimiter,
	signal SignalPublisher,
	config domain.Config,
) *AccessUsecase {
	return &AccessUsecase{
		codes:      codes,
		grants:     grants,
		limiter:    limiter,
		signal:     signal,
		config:     config,
		now:        time.Now,
		newSubject: domain.NewAnonymousSubject,
	}
}

// Verify redeems an invite code for the requester. Every failure is folded
// into the result's reason; no outcome returns faster than MinLatency.
func (uc *AccessUsecase) Verify(ctx context.Context, input VerifyInput) (result VerifyResult) {
	ctx, span := tracer.Start(ctx, "Access.Usecase.Verify")
	defer span.End()

	floor := time.Now().Add(uc.config.MinLatency)
	defer holdUntil(ctx, floor)

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("verify panicked: %v", r)
			span.RecordError(err)
			slog.ErrorContext(ctx, err.Error(), slog.String("module", "access"))
			result = VerifyResult{Reason: curatorgate.ReasonServerError}
		}
	}()

	code, ok := curatorgate.NormalizeCode(input.Code)
	if !ok {
		return VerifyResult{Reason: curatorgate.ReasonInvalid}
	}
	fingerprint := domain.Fingerprint(code)
	span.SetAttributes(attribute.String("CodeFingerprint", fingerprint))

	email := curatorgate.NormalizeEmail(input.Email)

	if !uc.allow(ctx, input.ClientIP, email) {
		slog.InfoContext(
			ctx, "verification rate limited",
			slog.String("code", fingerprint),
			slog.String("module", "access"),
		)
		return VerifyResult{Reason: curatorgate.ReasonRateLimited}
	}

	subject := input.SubjectID
	minted := false
	if subject == "" {
		subject = uc.newSubject()
		minted = true
	}

	storageCtx, cancel := uc.storageContext(ctx)
	defer cancel()

	grant, err := uc.codes.Redeem(storageCtx, domain.RedeemInput{
		Code:      code,
		Email:     email,
		SubjectID: subject,
		Mode:      uc.config.ScopeMode,
		Now:       uc.now().UTC(),
	})
	if err != nil {
		reason := domain.ReasonOf(err)
		if reason == curatorgate.ReasonServerError {
			span.RecordError(err)
			slog.ErrorContext(
				ctx, "failed to redeem invite code",
				slog.String("error", err.Error()),
				slog.String("code", fingerprint),
				slog.String("module", "access"),
			)
		} else {
			slog.InfoContext(
				ctx, "invite code rejected",
				slog.String("reason", string(reason)),
				slog.String("code", fingerprint),
				slog.String("module", "access"),
			)
		}
		return VerifyResult{Reason: reason}
	}

	slog.InfoContext(
		ctx, "grant issued",
		slog.String("subject", grant.SubjectID),
		slog.String("scope", grant.ScopeID),
		slog.String("code", fingerprint),
		slog.String("module", "access"),
	)

	if uc.signal != nil {
		err := uc.signal.Publish(ctx, domain.GrantEvent{
			Type:      domain.GrantEventIssued,
			GrantID:   grant.ID,
			SubjectID: grant.SubjectID,
			ScopeID:   grant.ScopeID,
			IssuedAt:  grant.IssuedAt,
		})
		if err != nil {
			slog.WarnContext(
				ctx, "failed to publish grant event",
				slog.String("error", err.Error()),
				slog.String("module", "access"),
			)
		}
	}

	return VerifyResult{
		OK:        true,
		SubjectID: subject,
		Minted:    minted,
		Grant:     &grant,
	}
}

// Check answers whether subjectID holds a grant for scopeID (or any grant
// when scopeID is empty). Faults are reported as indeterminate, never allowed.
func (uc *AccessUsecase) Check(ctx context.Context, subjectID, scopeID string) (decision domain.AccessDecision) {
	if subjectID == "" {
		return domain.AccessDecision{}
	}

	ctx, span := tracer.Start(ctx, "Access.Usecase.Check")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("access check panicked: %v", r)
			span.RecordError(err)
			slog.ErrorContext(ctx, err.Error(), slog.String("module", "access"))
			decision = domain.AccessDecision{Indeterminate: true, Err: err}
		}
	}()

	storageCtx, cancel := uc.storageContext(ctx)
	defer cancel()

	allowed, err := uc.grants.Exists(storageCtx, subjectID, scopeID)
	if err != nil {
		span.RecordError(err)
		slog.WarnContext(
			ctx, "access check indeterminate",
			slog.String("error", err.Error()),
			slog.String("subject", subjectID),
			slog.String("scope", scopeID),
			slog.String("module", "access"),
		)
		return domain.AccessDecision{Indeterminate: true, Err: err}
	}

	return domain.AccessDecision{Allowed: allowed}
}

// HasAccess is the fail-closed boolean view of Check.
func (uc *AccessUsecase) HasAccess(ctx context.Context, subjectID, scopeID string) bool {
	return uc.Check(ctx, subjectID, scopeID).Allowed
}

func (uc *AccessUsecase) allow(ctx context.Context, clientIP, email string) bool {
	if uc.limiter == nil {
		return true
	}

	keys := make([]string, 0, 2)
	if clientIP != "" {
		keys = append(keys, "ip:"+clientIP)
	}
	if email != "" {
		keys = append(keys, "email:"+email)
	}

	for _, key := range keys {
		ok, err := uc.limiter.Allow(ctx, key)
		if err != nil {
			// fail open: the code store still enforces validity
			slog.WarnContext(
				ctx, "rate limiter unavailable",
				slog.String("error", err.Error()),
				slog.String("module", "access"),
			)
			continue
		}
		if !ok {
			return false
		}
	}
	return true
}

func (uc *AccessUsecase) storageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if uc.config.StorageTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, uc.config.StorageTimeout)
}

func holdUntil(ctx context.Context, deadline time.Time) {
	d := time.Until(deadline)
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
