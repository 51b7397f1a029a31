package usecase

import (
	"context"
	"crypto/rand"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/totegamma/curatorgate"
	"github.com/totegamma/curatorgate/internal/domain"
)

const (
	codeAlphabet          = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	defaultGeneratedCodes = 10
)

type IssueInput struct {
	Code       string
	BoundEmail *string
	MaxUses    *int
	TTL        time.Duration
	ScopeID    string
}

type CodeUsecase struct {
	codes  InviteCodeRepository
	grants GrantRepository
	config domain.Config
	now    func() time.Time
}

func NewCodeUsecase(codes InviteCodeRepository, grants GrantRepository, config domain.Config) *CodeUsecase {
	return &CodeUsecase{
		codes:  codes,
		grants: grants,
		config: config,
		now:    time.Now,
	}
}

func (uc *CodeUsecase) Issue(ctx context.Context, input IssueInput) (domain.InviteCodeView, error) {
	ctx, span := tracer.Start(ctx, "Code.Usecase.Issue")
	defer span.End()

	var code string
	if strings.TrimSpace(input.Code) == "" {
		generated, err := generateCode(uc.generatedLength())
		if err != nil {
			span.RecordError(err)
			return domain.InviteCodeView{}, errors.Wrap(err, "failed to generate invite code")
		}
		code = generated
	} else {
		normalized, ok := curatorgate.NormalizeCode(input.Code)
		if !ok {
			return domain.InviteCodeView{}, domain.ErrInvalidInput
		}
		code = normalized
	}

	maxUses := uc.config.DefaultMaxUses
	if input.MaxUses != nil {
		maxUses = *input.MaxUses
	}
	if maxUses < 0 || input.TTL < 0 {
		return domain.InviteCodeView{}, domain.ErrInvalidInput
	}

	now := uc.now().UTC()

	ttl := input.TTL
	if ttl == 0 {
		ttl = uc.config.DefaultCodeTTL
	}
	var expiresAt *time.Time
	if ttl > 0 {
		exp := now.Add(ttl)
		expiresAt = &exp
	}

	var boundEmail *string
	if input.BoundEmail != nil {
		email := curatorgate.NormalizeEmail(*input.BoundEmail)
		if email != "" {
			boundEmail = &email
		}
	}

	invite := domain.InviteCode{
		Code:       code,
		BoundEmail: boundEmail,
		MaxUses:    maxUses,
		ExpiresAt:  expiresAt,
		ScopeID:    strings.TrimSpace(input.ScopeID),
		CreatedAt:  now,
	}

	if err := uc.codes.Create(ctx, invite); err != nil {
		span.RecordError(err)
		return domain.InviteCodeView{}, err
	}

	return domain.InviteCodeView{InviteCode: invite, Status: invite.Status(now)}, nil
}

func (uc *CodeUsecase) Get(ctx context.Context, code string) (domain.InviteCodeView, error) {
	normalized, ok := curatorgate.NormalizeCode(code)
	if !ok {
		return domain.InviteCodeView{}, domain.ErrInvalidInput
	}
	invite, err := uc.codes.Get(ctx, normalized)
	if err != nil {
		return domain.InviteCodeView{}, err
	}
	return domain.InviteCodeView{InviteCode: invite, Status: invite.Status(uc.now().UTC())}, nil
}

func (uc *CodeUsecase) ListGrants(ctx context.Context, subjectID string) ([]domain.Grant, error) {
	if strings.TrimSpace(subjectID) == "" {
		return nil, domain.ErrInvalidInput
	}
	return uc.grants.ListBySubject(ctx, subjectID)
}

func (uc *CodeUsecase) generatedLength() int {
	if uc.config.GeneratedLength > 0 {
		return uc.config.GeneratedLength
	}
	return defaultGeneratedCodes
}

func generateCode(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	// len(codeAlphabet) divides 256, so the modulo is unbiased
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
