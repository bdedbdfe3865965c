package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/anime-shed/authenticity-validator-go/pkg/models"
)

// ArchivedVerdict is the document written for every successful validation
type ArchivedVerdict struct {
	SessionID  string                   `json:"session_id"`
	FileName   string                   `json:"file_name"`
	ArchivedAt time.Time                `json:"archived_at"`
	Result     *models.ValidationResult `json:"result"`
}

// ResultArchive stores verdicts outside the process
type ResultArchive interface {
	Archive(ctx context.Context, verdict ArchivedVerdict) (string, error)
}

type azureArchive struct {
	client    *azblob.Client
	container string
}

// NewAzureArchive creates an archive writing JSON blobs into container
func NewAzureArchive(accountName, accountKey, container string) (ResultArchive, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid azure credentials: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	return &azureArchive{client: client, container: container}, nil
}

// Archive uploads the verdict and returns the blob name
func (s *azureArchive) Archive(ctx context.Context, verdict ArchivedVerdict) (string, error) {
	data, err := json.Marshal(verdict)
	if err != nil {
		return "", fmt.Errorf("failed to encode verdict: %w", err)
	}

	name := BlobName(verdict)
	if _, err := s.client.UploadBuffer(ctx, s.container, name, data, nil); err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	return name, nil
}

var blobNameReplacer = strings.NewReplacer("/", "_", "\\", "_", " ", "_", "?", "_", "#", "_")

// BlobName lays verdicts out by day and session:
// 2026/10/19/<session>/<unix-nanos>-<file>.json
func BlobName(v ArchivedVerdict) string {
	at := v.ArchivedAt.UTC()
	file := blobNameReplacer.Replace(v.FileName)
	if file == "" {
		file = "unnamed"
	}
	session := blobNameReplacer.Replace(v.SessionID)
	if session == "" {
		session = "anonymous"
	}
	return path.Join(
		at.Format("2006/01/02"),
		session,
		fmt.Sprintf("%d-%s.json", at.UnixNano(), file),
	)
}
