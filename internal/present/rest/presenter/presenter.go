package presenter

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/trace"

	"github.com/totegamma/curatorgate"
)

type errorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"traceId,omitempty"`
}

// OK wraps a successful response.
func OK(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, payload)
}

// Verify writes a verification outcome. invalid maps to 400 and
// server_error to 500; every other outcome is a 200.
func Verify(c echo.Context, resp curatorgate.VerifyResponse) error {
	status := http.StatusOK
	switch resp.Reason {
	case curatorgate.ReasonInvalid:
		status = http.StatusBadRequest
	case curatorgate.ReasonServerError:
		status = http.StatusInternalServerError
	}
	return c.JSON(status, resp)
}

func BadRequest(c echo.Context, err error) error {
	slog.DebugContext(c.Request().Context(), "Bad request", slog.String("error", err.Error()), slog.String("module", "rest"))
	return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func BadRequestMessage(c echo.Context, msg string) error {
	slog.DebugContext(c.Request().Context(), "Bad request", slog.String("error", msg), slog.String("module", "rest"))
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}

func Unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
}

func NotFound(c echo.Context, msg string) error {
	return c.JSON(http.StatusNotFound, errorResponse{Error: msg})
}

func Conflict(c echo.Context, msg string) error {
	return c.JSON(http.StatusConflict, errorResponse{Error: msg})
}

// InternalError logs err and hides it from the caller. The trace id is
// returned so operators can find the failing request.
func InternalError(c echo.Context, err error) error {
	ctx := c.Request().Context()
	traceID := trace.SpanContextFromContext(ctx).TraceID()
	slog.ErrorContext(
		ctx, "Internal error",
		slog.String("error", err.Error()),
		slog.String("traceID", traceID.String()),
		slog.String("module", "rest"),
	)
	resp := errorResponse{Error: "internal error"}
	if traceID.IsValid() {
		resp.TraceID = traceID.String()
	}
	return c.JSON(http.StatusInternalServerError, resp)
}
