package middleware

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/curatorgate"
	"github.com/totegamma/curatorgate/internal/domain"
	"github.com/totegamma/curatorgate/internal/present/rest/presenter"
	"github.com/totegamma/curatorgate/internal/service"
)

var tracer = otel.Tracer("auth")

type AuthMiddleware struct {
	auth   *service.AuthService
	config domain.Config
}

func NewAuthMiddleware(
	auth *service.AuthService,
	config domain.Config,
) *AuthMiddleware {
	return &AuthMiddleware{
		auth:   auth,
		config: config,
	}
}

// IdentifyIdentity resolves the session token from the Authorization header
// or the session cookie. Requests without a valid token continue anonymously.
func (s *AuthMiddleware) IdentifyIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Auth.Middleware.IdentifyIdentity")
		defer span.End()

		token, err := sessionToken(c)
		if err != nil {
			span.RecordError(err)
		}

		if token != "" {
			result, err := s.auth.AuthJwt(ctx, token)
			if err != nil {
				span.RecordError(errors.Wrap(err, "AuthMiddleware.IdentifyIdentity: s.auth.AuthJwt failed"))
			} else {
				ctx = domain.WithSubject(ctx, result.SubjectID)
				span.SetAttributes(attribute.String("RequesterId", result.SubjectID))
			}
		}

		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// RequireAdmin guards the admin routes with the configured bearer token. The
// routes do not exist when no token is configured.
func (s *AuthMiddleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.config.AdminToken == "" {
			return presenter.NotFound(c, "not found")
		}

		token, ok := bearer(c.Request().Header.Get("authorization"))
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.config.AdminToken)) != 1 {
			return presenter.Unauthorized(c)
		}

		return next(c)
	}
}

func sessionToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("authorization")
	if authHeader != "" {
		token, ok := bearer(authHeader)
		if !ok {
			return "", fmt.Errorf("only Bearer is acceptable")
		}
		return token, nil
	}

	cookie, err := c.Cookie(curatorgate.SessionCookieName)
	if err != nil {
		return "", nil
	}
	return cookie.Value, nil
}

func bearer(header string) (string, bool) {
	split := strings.Split(header, " ")
	if len(split) != 2 || split[0] != "Bearer" || split[1] == "" {
		return "", false
	}
	return split[1], true
}
