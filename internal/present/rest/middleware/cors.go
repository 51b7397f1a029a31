package middleware

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// CORS only lets the listed origins send credentials. Without a list any
// origin may call, but browsers will not attach the session cookie.
func CORS(origins []string) echo.MiddlewareFunc {
	if len(origins) == 0 {
		return echomw.CORS()
	}
	return echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     origins,
		AllowCredentials: true,
	})
}
