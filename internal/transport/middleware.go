package transport

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/anime-shed/authenticity-validator-go/internal/controller"
	apperrors "github.com/anime-shed/authenticity-validator-go/internal/errors"
	"github.com/anime-shed/authenticity-validator-go/internal/logger"
	"github.com/anime-shed/authenticity-validator-go/internal/session"
	"github.com/anime-shed/authenticity-validator-go/pkg/models"
)

const (
	sessionIDKey  = "sid"
	controllerKey = "upload_controller"
)

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":             c.Request.Method,
			"path":               c.Request.URL.Path,
			"status":             c.Writer.Status(),
			"ip":                 c.ClientIP(),
			"processing_time_ms": time.Since(start).Milliseconds(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("Request handled")
			return
		}
		entry.Debug("Request handled")
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			respondError(c, c.Errors.Last().Err)
		}
	}
}

func newCORS(origins []string) (gin.HandlerFunc, error) {
	cfg := cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid CORS configuration: %w", err)
	}
	return cors.New(cfg), nil
}

// sessionController binds the browser session to its UploadController,
// issuing a new session id when the cookie is missing or tampered with.
// Every request refreshes the cookie so active sessions never expire.
func sessionController(registry *session.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessions.Default(c)
		id, _ := s.Get(sessionIDKey).(string)
		if !session.ValidID(id) {
			id = session.NewID()
			s.Set(sessionIDKey, id)
		}
		if err := s.Save(); err != nil {
			_ = c.Error(apperrors.NewInternalError("failed to save session", err))
			c.Abort()
			return
		}

		c.Set(controllerKey, registry.Get(id))
		c.Next()
	}
}

func controllerFrom(c *gin.Context) *controller.UploadController {
	return c.MustGet(controllerKey).(*controller.UploadController)
}

// respondError answers with the error's public message only; the cause is logged
func respondError(c *gin.Context, err error) {
	code := apperrors.GetStatusCode(err)
	message := "request processing failed"
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}

	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: message,
	})
}
