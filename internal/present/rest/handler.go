package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/totegamma/curatorgate"
	"github.com/totegamma/curatorgate/internal/domain"
	"github.com/totegamma/curatorgate/internal/present/rest/presenter"
	"github.com/totegamma/curatorgate/internal/usecase"
)

type AccessService interface {
	Verify(ctx context.Context, input usecase.VerifyInput) usecase.VerifyResult
	HasAccess(ctx context.Context, subjectID, scopeID string) bool
}

type CodeService interface {
	Issue(ctx context.Context, input usecase.IssueInput) (domain.InviteCodeView, error)
	Get(ctx context.Context, code string) (domain.InviteCodeView, error)
	ListGrants(ctx context.Context, subjectID string) ([]domain.Grant, error)
}

type SessionIssuer interface {
	IssueSession(ctx context.Context, subjectID string) (string, error)
}

type GrantFeed interface {
	Realtime(ctx context.Context, output chan<- domain.GrantEvent)
}

type Handler struct {
	config  domain.Config
	access  AccessService
	codes   CodeService
	session SessionIssuer
	feed    GrantFeed
}

func NewHandler(
	config domain.Config,
	access AccessService,
	codes CodeService,
	session SessionIssuer,
	feed GrantFeed,
) *Handler {
	return &Handler{
		config:  config,
		access:  access,
		codes:   codes,
		session: session,
		feed:    feed,
	}
}

// RegisterRoutes mounts the public routes on e and the admin routes behind
// admin. identify must run before every public route.
func (h *Handler) RegisterRoutes(e *echo.Echo, identify, admin echo.MiddlewareFunc) {
	e.GET("/.well-known/curatorgate", h.handleWellKnown)

	g := e.Group("/access", identify)
	g.POST("/verify", h.handleVerify, recoverVerify)
	g.GET("/check", h.handleCheck)

	a := e.Group("/admin", admin)
	a.POST("/codes", h.handleIssueCode)
	a.GET("/codes/:code", h.handleGetCode)
	a.GET("/subjects/:subject/grants", h.handleListGrants)
	a.GET("/realtime", h.handleRealtime)
}

func (h *Handler) handleWellKnown(c echo.Context) error {
	wellknown := curatorgate.WellKnownCuratorgate{
		Version:   curatorgate.Version,
		Domain:    h.config.FQDN,
		ScopeMode: string(h.config.ScopeMode),
		Endpoints: map[string]curatorgate.Endpoint{
			"net.curatorgate.verify": {
				Template: "/access/verify",
				Method:   "POST",
			},
			"net.curatorgate.check": {
				Template: "/access/check",
				Method:   "GET",
				Query:    &[]string{"scope"},
			},
		},
	}
	return presenter.OK(c, wellknown)
}

func (h *Handler) handleVerify(c echo.Context) error {
	ctx := c.Request().Context()

	// undecodable bodies still go through Verify so they share its latency floor
	var req curatorgate.VerifyRequest
	malformed := c.Bind(&req) != nil || req.Code == nil

	input := usecase.VerifyInput{ClientIP: c.RealIP()}
	if malformed {
		h.access.Verify(ctx, input)
		return presenter.Verify(c, curatorgate.VerifyResponse{Reason: curatorgate.ReasonInvalid})
	}

	input.Code = *req.Code
	if req.Email != nil {
		input.Email = *req.Email
	}

	// anonymous callers get their session before the code is spent
	var session string
	if subject, ok := domain.SubjectFromContext(ctx); ok {
		input.SubjectID = subject
	} else {
		input.SubjectID = domain.NewAnonymousSubject()
		token, err := h.session.IssueSession(ctx, input.SubjectID)
		if err != nil {
			slog.ErrorContext(
				ctx, "Failed to issue session",
				slog.String("error", err.Error()),
				slog.String("module", "rest"),
			)
			return presenter.Verify(c, curatorgate.VerifyResponse{Reason: curatorgate.ReasonServerError})
		}
		session = token
	}

	result := h.access.Verify(ctx, input)
	if !result.OK {
		return presenter.Verify(c, curatorgate.VerifyResponse{Reason: result.Reason})
	}

	if session != "" {
		c.SetCookie(h.sessionCookie(c, session))
	}

	return presenter.Verify(c, curatorgate.VerifyResponse{OK: true})
}

// recoverVerify answers a panic with a server_error verdict.
func recoverVerify(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				slog.ErrorContext(
					c.Request().Context(), "Verify panicked",
					slog.String("error", fmt.Sprint(r)),
					slog.String("module", "rest"),
				)
				err = presenter.Verify(c, curatorgate.VerifyResponse{Reason: curatorgate.ReasonServerError})
			}
		}()
		return next(c)
	}
}

func (h *Handler) sessionCookie(c echo.Context, token string) *http.Cookie {
	return &http.Cookie{
		Name:     curatorgate.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.config.SessionTTL / time.Second),
		HttpOnly: true,
		Secure:   c.Scheme() == "https",
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *Handler) handleCheck(c echo.Context) error {
	ctx := c.Request().Context()

	subject, _ := domain.SubjectFromContext(ctx)
	allowed := h.access.HasAccess(ctx, subject, c.QueryParam("scope"))

	return presenter.OK(c, curatorgate.CheckResponse{HasAccess: allowed})
}

func (h *Handler) handleIssueCode(c echo.Context) error {
	ctx := c.Request().Context()

	var req curatorgate.IssueRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}
	if req.TTLSeconds < 0 {
		return presenter.BadRequestMessage(c, "ttlSeconds must not be negative")
	}

	view, err := h.codes.Issue(ctx, usecase.IssueInput{
		Code:       req.Code,
		BoundEmail: req.BoundEmail,
		MaxUses:    req.MaxUses,
		TTL:        time.Duration(req.TTLSeconds) * time.Second,
		ScopeID:    req.ScopeID,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			return presenter.BadRequestMessage(c, "invalid invite code parameters")
		case errors.Is(err, domain.ErrAlreadyExists):
			return presenter.Conflict(c, "invite code already exists")
		}
		return presenter.InternalError(c, err)
	}

	return c.JSON(http.StatusCreated, view)
}

func (h *Handler) handleGetCode(c echo.Context) error {
	ctx := c.Request().Context()

	view, err := h.codes.Get(ctx, c.Param("code"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			return presenter.BadRequestMessage(c, "invalid invite code")
		case errors.Is(err, domain.ErrNotFound):
			return presenter.NotFound(c, "invite code not found")
		}
		return presenter.InternalError(c, err)
	}

	return presenter.OK(c, view)
}

func (h *Handler) handleListGrants(c echo.Context) error {
	ctx := c.Request().Context()

	grants, err := h.codes.ListGrants(ctx, c.Param("subject"))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return presenter.BadRequestMessage(c, "subject is required")
		}
		return presenter.InternalError(c, err)
	}
	if grants == nil {
		grants = []domain.Grant{}
	}

	return presenter.OK(c, grants)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (h *Handler) handleRealtime(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	output := make(chan domain.GrantEvent)
	go h.feed.Realtime(ctx, output)

	// the admin only listens; reading detects the close
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				var closeErr *websocket.CloseError
				if errors.As(err, &closeErr) && (closeErr.Code == websocket.CloseNormalClosure || closeErr.Code == websocket.CloseGoingAway) {
					return
				}
				slog.DebugContext(
					ctx, "WebSocket closed",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-output:
			if err := ws.WriteJSON(event); err != nil {
				slog.ErrorContext(
					ctx, "Error writing message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}
