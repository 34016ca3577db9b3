package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// maxHeaderValue caps any single header value.
const maxHeaderValue = 8192

var (
	// Logged as a warning; the repository layer only uses bind parameters.
	sqlPattern = regexp.MustCompile(`(?i)(UNION\s+SELECT\b|'\s*;\s*DROP\b|'\s+OR\s+1\s*=\s*1)`)

	// Rejected outright.
	scriptPattern = regexp.MustCompile(`(?i)(<script|javascript\s*:|on\w+\s*=)`)
)

// Sanitize rejects requests carrying path traversal, null bytes, header
// injection or script fragments before they reach a handler. Suspicious
// SQL-looking query values are logged but allowed through.
func Sanitize(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path
			if raw := req.URL.RawPath; raw != "" {
				path = path + "\n" + raw
			}

			if hasTraversal(path) {
				return echo.NewHTTPError(http.StatusBadRequest, "Invalid request path")
			}
			if hasNullByte(path) {
				return echo.NewHTTPError(http.StatusBadRequest, "Invalid request path")
			}

			for name, values := range req.Header {
				for _, v := range values {
					if len(v) > maxHeaderValue {
						return echo.NewHTTPError(http.StatusBadRequest, "Header too large: "+name)
					}
					if strings.ContainsAny(v, "\r\n") {
						return echo.NewHTTPError(http.StatusBadRequest, "Invalid header: "+name)
					}
				}
			}

			for key, values := range req.URL.Query() {
				if hasNullByte(key) || scriptPattern.MatchString(key) {
					return echo.NewHTTPError(http.StatusBadRequest, "Invalid query parameter")
				}
				for _, v := range values {
					if hasNullByte(v) {
						return echo.NewHTTPError(http.StatusBadRequest, "Invalid query parameter")
					}
					if scriptPattern.MatchString(v) {
						return echo.NewHTTPError(http.StatusBadRequest, "Invalid query parameter")
					}
					if sqlPattern.MatchString(v) {
						logger.Warn().
							Str("param", key).
							Str("path", req.URL.Path).
							Str("remote_ip", c.RealIP()).
							Msg("suspicious query parameter")
					}
				}
			}

			return next(c)
		}
	}
}

func hasTraversal(s string) bool {
	if strings.Contains(s, "..") {
		return true
	}
	lower := strings.ToLower(s)
	return strings.Contains(lower, "%2e%2e") || strings.Contains(lower, "%252e")
}

func hasNullByte(s string) bool {
	return strings.ContainsRune(s, '\x00') || strings.Contains(strings.ToLower(s), "%00")
}
