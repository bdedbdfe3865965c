package transport

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/anime-shed/authenticity-validator-go/internal/config"
	"github.com/anime-shed/authenticity-validator-go/internal/render"
	"github.com/anime-shed/authenticity-validator-go/internal/repository"
	"github.com/anime-shed/authenticity-validator-go/internal/session"
)

const (
	sessionCookieName = "validator_session"

	// multipartOverhead is allowed on top of MaxUploadSize for boundaries and headers
	multipartOverhead = 1 << 20
)

// Dependencies are the collaborators served over HTTP.
// History and Metrics are optional.
type Dependencies struct {
	Sessions *session.Registry
	History  repository.AttemptRepository
	Metrics  prometheus.Gatherer
}

func NewHandler(deps Dependencies, cfg *config.Config) (http.Handler, error) {
	tmpl, err := render.Templates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	r := gin.New()
	r.SetHTMLTemplate(tmpl)

	// Add middleware
	r.Use(
		gin.Recovery(),
		requestLogger(),
		requestSizeLimiter(cfg.MaxUploadSize+multipartOverhead),
		errorHandler(),
	)
	if len(cfg.CORSAllowedOrigins) > 0 {
		corsMiddleware, err := newCORS(cfg.CORSAllowedOrigins)
		if err != nil {
			return nil, err
		}
		r.Use(corsMiddleware)
	}

	// Configure routes
	r.GET("/health", healthCheck(deps.Sessions))
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{})))
	}

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionIdleTimeout / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	ui := r.Group("/", sessions.Sessions(sessionCookieName, store), sessionController(deps.Sessions))
	ui.GET("/", showPage)
	ui.POST("/select", selectForm(cfg.MaxUploadSize))
	ui.POST("/submit", submitForm)

	api := ui.Group("/api")
	api.GET("/state", getState)
	api.POST("/selection", postSelection(cfg.MaxUploadSize))
	api.DELETE("/selection", deleteSelection)
	api.POST("/submit", postSubmit)
	api.GET("/history", getHistory(deps.History))

	return r, nil
}

func healthCheck(registry *session.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "available",
			"version":  "1.0.0",
			"sessions": registry.Len(),
			"time":     time.Now().UTC().Format(time.RFC3339),
		})
	}
}
