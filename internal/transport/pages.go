package transport

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anime-shed/authenticity-validator-go/internal/render"
)

func showPage(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.HTML(http.StatusOK, render.PageTemplate, render.NewView(controllerFrom(c).State()))
}

// selectForm handles the file picker. Submitting the form without a file clears the selection.
func selectForm(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		sel, err := readSelection(c, maxSize)
		if err != nil {
			_ = c.Error(err)
			return
		}
		controllerFrom(c).SelectFile(c.Request.Context(), sel)
		c.Redirect(http.StatusSeeOther, "/")
	}
}

// submitForm blocks until the attempt completes. The attempt outlives the
// request so its outcome is still shown if the browser gives up waiting.
func submitForm(c *gin.Context) {
	controllerFrom(c).Submit(context.WithoutCancel(c.Request.Context()))
	c.Redirect(http.StatusSeeOther, "/")
}
