package httpapi

import (
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"homework_portal/internal/infra/metrics"
)

const (
	tokenCookie  = "hw_token"
	adminCookie  = "hw_admin"
	adminHeader  = "x-admin-secret"
	tokenMaxAge  = 180 * 24 * time.Hour
	localToken   = "student_token"
	localRequest = "correlation_id"
)

// CorrelationID ensures every request carries a correlation identifier.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		incoming := strings.TrimSpace(c.Get("X-Correlation-ID"))
		if incoming == "" {
			incoming = strings.TrimSpace(c.Get("X-Request-ID"))
		}
		if incoming == "" {
			incoming = uuid.NewString()
		}

		c.Locals(localRequest, incoming)
		c.Set("X-Correlation-ID", incoming)
		return c.Next()
	}
}

func correlationID(c *fiber.Ctx) string {
	if id, ok := c.Locals(localRequest).(string); ok {
		return id
	}
	return ""
}

func requestLogger(base *logrus.Entry, c *fiber.Ctx) *logrus.Entry {
	if id := correlationID(c); id != "" {
		return base.WithField("correlation_id", id)
	}
	return base
}

// RequestLogger records metrics and one log line per request.
func RequestLogger(logger *logrus.Entry) fiber.Handler {
	metrics.Register()

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		duration := time.Since(start)

		// let the app error handler decide the status before we read it
		if err != nil {
			if handlerErr := c.App().ErrorHandler(c, err); handlerErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		route := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}
		status := c.Response().StatusCode()
		metrics.HTTPRequests().WithLabelValues(c.Method(), route, fmt.Sprintf("%d", status)).Inc()
		metrics.HTTPLatency().WithLabelValues(c.Method(), route).Observe(duration.Seconds())

		entry := requestLogger(logger, c).WithFields(logrus.Fields{
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     status,
			"latency_ms": float64(duration) / float64(time.Millisecond),
		})
		switch {
		case status >= fiber.StatusInternalServerError:
			entry.Error("Request failed")
		case status >= fiber.StatusBadRequest:
			entry.Warn("Request completed with client error")
		default:
			entry.Debug("Request completed")
		}
		return nil
	}
}

// StudentToken copies the hw_token cookie into the request locals.
func StudentToken() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := strings.TrimSpace(c.Cookies(tokenCookie)); token != "" {
			c.Locals(localToken, token)
		}
		return c.Next()
	}
}

func studentToken(c *fiber.Ctx) string {
	if token, ok := c.Locals(localToken).(string); ok {
		return token
	}
	return ""
}

// AdminAuth accepts the shared secret from the x-admin-secret header or the
// hw_admin cookie. Without a configured secret the admin API does not exist.
func AdminAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return sendError(c, fiber.StatusNotFound, "未配置管理员")
		}
		if secretMatches(c.Get(adminHeader), secret) || secretMatches(c.Cookies(adminCookie), secret) {
			return c.Next()
		}
		return sendError(c, fiber.StatusUnauthorized, "未授权")
	}
}

func secretMatches(provided, secret string) bool {
	return provided != "" && subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) == 1
}

func setTokenCookie(c *fiber.Ctx, token string, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     tokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(tokenMaxAge.Seconds()),
		Expires:  time.Now().Add(tokenMaxAge),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func setAdminCookie(c *fiber.Ctx, secret string, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     adminCookie,
		Value:    secret,
		Path:     "/",
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
