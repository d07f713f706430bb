package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// DefaultDatasetID is the dataset holding the insights tables.
const DefaultDatasetID = "insights"

// Repository provides BigQuery-backed implementations of the store
// interfaces. All repositories share one client.
type Repository struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// NewRepository creates a repository with its own BigQuery client.
func NewRepository(ctx context.Context, projectID, datasetID string) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w", err)
	}
	if datasetID == "" {
		datasetID = DefaultDatasetID
	}
	return &Repository{client: client, projectID: projectID, datasetID: datasetID}, nil
}

// NewRepositoryWithClient wraps an existing BigQuery client.
func NewRepositoryWithClient(client *bigquery.Client, projectID, datasetID string) *Repository {
	if datasetID == "" {
		datasetID = DefaultDatasetID
	}
	return &Repository{client: client, projectID: projectID, datasetID: datasetID}
}

// Close releases the underlying client.
func (r *Repository) Close() error {
	return r.client.Close()
}

// table returns the fully qualified, backtick-quoted table name.
func (r *Repository) table(name string) string {
	return "`" + r.projectID + "." + r.datasetID + "." + name + "`"
}

// runDML executes a DML statement and waits for the job to finish.
func (r *Repository) runDML(ctx context.Context, statement string, params []bigquery.QueryParameter) error {
	q := r.client.Query(statement)
	q.Parameters = params

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("run query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("wait for job: %w", err)
	}

	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}

	return nil
}

// runDMLAffected executes a DML statement and returns the number of rows it
// touched.
func (r *Repository) runDMLAffected(ctx context.Context, statement string, params []bigquery.QueryParameter) (int, error) {
	q := r.client.Query(statement)
	q.Parameters = params

	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("run query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("wait for job: %w", err)
	}

	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("job error: %w", err)
	}

	if stats, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
		return int(stats.NumDMLAffectedRows), nil
	}
	return 0, nil
}
