package transport

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anime-shed/authenticity-validator-go/internal/client"
	apperrors "github.com/anime-shed/authenticity-validator-go/internal/errors"
	"github.com/anime-shed/authenticity-validator-go/pkg/models"
)

// readSelection reads the multipart "file" field. A form without a file
// yields a nil selection.
func readSelection(c *gin.Context, maxSize int64) (*models.Selection, error) {
	fh, err := c.FormFile(client.FileField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, http.ErrMissingFile):
			return nil, nil
		case errors.As(err, &tooLarge):
			return nil, apperrors.NewTooLargeError("request body too large", err)
		default:
			return nil, apperrors.NewValidationError("invalid multipart form", err)
		}
	}

	if maxSize > 0 && fh.Size > maxSize {
		return nil, apperrors.NewTooLargeError(
			fmt.Sprintf("file exceeds the %d byte upload limit", maxSize), models.ErrSelectionTooLarge)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to open uploaded file", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to read uploaded file", err)
	}
	return models.NewSelection(fh.Filename, data), nil
}
