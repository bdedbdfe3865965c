package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/anime-shed/authenticity-validator-go/internal/errors"
	"github.com/anime-shed/authenticity-validator-go/pkg/models"
)

const (
	// UploadPath is appended to the configured base endpoint
	UploadPath = "/upload"
	// FileField is the multipart field the service reads the document from
	FileField = "file"

	maxDiscardBytes = 64 * 1024
)

// ValidationService is the external collaborator that analyses a document
type ValidationService interface {
	Validate(ctx context.Context, sel *models.Selection) (*models.ValidationResult, error)
}

// HTTPValidationClient posts the selected file to <base>/upload as multipart/form-data.
// It never retries; a failed attempt is surfaced to the caller as is.
type HTTPValidationClient struct {
	client    *http.Client
	uploadURL string
}

// NewHTTPValidationClient creates a client for the given base endpoint.
// A zero timeout leaves the request bounded only by ctx.
func NewHTTPValidationClient(baseURL *url.URL, timeout time.Duration) *HTTPValidationClient {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 16 * 1024,
	}

	return &HTTPValidationClient{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,

			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		uploadURL: resolveUploadURL(baseURL),
	}
}

func resolveUploadURL(base *url.URL) string {
	u := *base
	u.Path = strings.TrimRight(u.Path, "/") + UploadPath
	u.RawPath = ""
	return u.String()
}

// UploadURL returns the fully resolved endpoint the client posts to
func (c *HTTPValidationClient) UploadURL() string {
	return c.uploadURL
}

// Validate uploads the selection and decodes the verdict.
// Errors are *apperrors.AppError of type transport (non-2xx status),
// timeout or network (no usable response, including an undecodable body).
func (c *HTTPValidationClient) Validate(ctx context.Context, sel *models.Selection) (*models.ValidationResult, error) {
	body, contentType, err := encodeSelection(sel)
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to prepare upload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, body)
	if err != nil {
		return nil, apperrors.NewNetworkError("invalid upload request", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Authenticity-Validator/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, apperrors.NewTimeoutError("validation request timed out", err)
		}
		return nil, apperrors.NewNetworkError("validation request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Body is ignored; drain a bounded amount so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDiscardBytes))
		return nil, apperrors.NewTransportError(resp.StatusCode)
	}

	var result *models.ValidationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		if isTimeout(err) {
			return nil, apperrors.NewTimeoutError("reading validation result timed out", err)
		}
		return nil, apperrors.NewNetworkError("failed to decode validation result", err)
	}
	// A JSON null decodes without error but carries no verdict
	if result == nil {
		return nil, apperrors.NewNetworkError("validation service returned an empty result", nil)
	}

	return result, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeSelection(sel *models.Selection) (*bytes.Buffer, string, error) {
	if sel == nil {
		return nil, "", errors.New("no selection")
	}

	src, err := sel.Open()
	if err != nil {
		return nil, "", fmt.Errorf("failed to open %s: %w", sel.Name, err)
	}
	defer src.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	contentType := sel.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="%s"; filename="%s"`, FileField, quoteEscaper.Replace(sel.Name)))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, src); err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", sel.Name, err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return body, writer.FormDataContentType(), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
