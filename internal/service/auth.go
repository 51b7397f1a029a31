package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/totegamma/curatorgate/internal/domain"
	"github.com/totegamma/curatorgate/jwt"
)

var tracer = otel.Tracer("auth")

type AuthService struct {
	config domain.Config
	now    func() time.Time
}

func NewAuthService(config domain.Config) *AuthService {
	return &AuthService{
		config: config,
		now:    time.Now,
	}
}

type AuthResult struct {
	SubjectID string
}

func (s *AuthService) AuthJwt(ctx context.Context, token string) (*AuthResult, error) {
	_, span := tracer.Start(ctx, "Auth.Service.AuthJwt")
	defer span.End()

	claims, err := jwt.Validate(token, s.config.SessionSecret, s.config.FQDN, s.now())
	if err != nil {
		err = errors.Wrap(err, "jwt validation failed")
		span.RecordError(err)
		return nil, err
	}

	return &AuthResult{SubjectID: claims.Subject}, nil
}

// IssueSession mints a session token binding the caller to subjectID.
func (s *AuthService) IssueSession(ctx context.Context, subjectID string) (string, error) {
	_, span := tracer.Start(ctx, "Auth.Service.IssueSession")
	defer span.End()

	if subjectID == "" {
		err := fmt.Errorf("empty subject")
		span.RecordError(err)
		return "", err
	}

	token, err := jwt.Create(jwt.NewClaims(subjectID, s.config.FQDN, s.now(), s.config.SessionTTL), s.config.SessionSecret)
	if err != nil {
		err = errors.Wrap(err, "failed to sign session")
		span.RecordError(err)
		return "", err
	}

	return token, nil
}
