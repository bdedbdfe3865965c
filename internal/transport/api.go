package transport

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/anime-shed/authenticity-validator-go/internal/errors"
	"github.com/anime-shed/authenticity-validator-go/internal/repository"
	"github.com/anime-shed/authenticity-validator-go/pkg/models"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

func getState(c *gin.Context) {
	c.JSON(http.StatusOK, controllerFrom(c).State().Response())
}

func postSelection(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		sel, err := readSelection(c, maxSize)
		if err != nil {
			_ = c.Error(err)
			return
		}
		if sel == nil {
			_ = c.Error(apperrors.NewValidationError("file is required", nil))
			return
		}
		respondState(c, controllerFrom(c).SelectFile(c.Request.Context(), sel), http.StatusOK)
	}
}

func deleteSelection(c *gin.Context) {
	respondState(c, controllerFrom(c).SelectFile(c.Request.Context(), nil), http.StatusOK)
}

// postSubmit runs an attempt. With async=true it answers 202 as soon as the
// upload is in flight; poll /api/state for the outcome.
func postSubmit(c *gin.Context) {
	ctrl := controllerFrom(c)
	ctx := context.WithoutCancel(c.Request.Context())

	if c.Query("async") != "true" {
		respondState(c, ctrl.Submit(ctx), http.StatusOK)
		return
	}

	st, _, started := ctrl.Start(ctx)
	if started {
		c.JSON(http.StatusAccepted, st.Response())
		return
	}
	respondState(c, st, http.StatusOK)
}

// respondState answers 409 when the call was ignored because an attempt is in flight
func respondState(c *gin.Context, st models.InteractionState, code int) {
	if st.Busy() {
		code = http.StatusConflict
	}
	c.JSON(code, st.Response())
}

func getHistory(repo repository.AttemptRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if repo == nil {
			_ = c.Error(apperrors.NewNotFoundError("attempt history is disabled", nil))
			return
		}

		limit := defaultHistoryLimit
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				_ = c.Error(apperrors.NewValidationError("limit must be a positive integer", err))
				return
			}
			limit = min(n, maxHistoryLimit)
		}

		var (
			attempts []repository.Attempt
			err      error
		)
		if c.Query("scope") == "all" {
			attempts, err = repo.RecentAttempts(c.Request.Context(), limit)
		} else {
			attempts, err = repo.SessionAttempts(c.Request.Context(), controllerFrom(c).ID(), limit)
		}
		if err != nil {
			_ = c.Error(apperrors.NewInternalError("failed to load history", err))
			return
		}

		resp := models.HistoryResponse{Attempts: make([]models.AttemptSummary, 0, len(attempts))}
		for _, a := range attempts {
			resp.Attempts = append(resp.Attempts, a.Summary())
		}
		c.JSON(http.StatusOK, resp)
	}
}
