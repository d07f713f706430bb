package export

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/storage"

	"github.com/dvloznov/finance-insights/internal/logger"
	"github.com/dvloznov/finance-insights/internal/store"
)

// Exporter writes audit bundles to a GCS bucket.
// It assumes Application Default Credentials are configured (gcloud auth application-default login).
type Exporter struct {
	client *storage.Client
	bucket string
}

// NewExporter creates an exporter targeting the given bucket.
func NewExporter(ctx context.Context, bucket string) (*Exporter, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewExporter: create storage client: %w", err)
	}
	return &Exporter{client: client, bucket: bucket}, nil
}

// Close releases the underlying storage client.
func (e *Exporter) Close() error {
	return e.client.Close()
}

// ExportUser builds and uploads the audit bundle for one user. Returns the
// gs:// URI of the uploaded object.
func (e *Exporter) ExportUser(ctx context.Context, repo store.RecommendationStore, userID string, at time.Time) (string, error) {
	log := logger.FromContext(ctx)

	rows, err := repo.ListRecommendationsByUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("ExportUser: list recommendations: %w", err)
	}

	bundle := BuildBundle(userID, rows, at)
	data, err := bundle.Marshal()
	if err != nil {
		return "", err
	}

	objectName := ObjectName(userID, at)
	if err := e.upload(ctx, objectName, data); err != nil {
		return "", fmt.Errorf("ExportUser: %w", err)
	}

	uri := fmt.Sprintf("gs://%s/%s", e.bucket, objectName)

	log.Info().
		Str("user_id", userID).
		Str("uri", uri).
		Int("recommendations", len(bundle.Recommendations)).
		Int("parse_errors", bundle.ParseErrors).
		Msg("audit bundle exported")

	return uri, nil
}

// ExportUsers exports bundles for each user, continuing past per-user
// failures. Returns the URIs of the bundles that were written.
func (e *Exporter) ExportUsers(ctx context.Context, repo store.RecommendationStore, userIDs []string, at time.Time) ([]string, error) {
	log := logger.FromContext(ctx)

	var uris []string
	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			return uris, err
		}

		uri, err := e.ExportUser(ctx, repo, userID, at)
		if err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("audit export failed for user")
			continue
		}
		uris = append(uris, uri)
	}

	return uris, nil
}

func (e *Exporter) upload(ctx context.Context, objectName string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	obj := e.client.Bucket(e.bucket).Object(objectName)

	w := obj.NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object %s: %w", objectName, err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload of %s: %w", objectName, err)
	}

	return nil
}
