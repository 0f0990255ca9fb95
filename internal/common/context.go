package common

import "context"

// JobIDKey is the context key for the per-invocation compression job ID.
// cmd/hlc attaches it to the context of a compress run and logs the same ID
// as a job_id field on that run's log lines.
type contextKey string

const JobIDKey = contextKey("job-id")

// GetJobID extracts the job ID from context, or "" if none was set.
func GetJobID(ctx context.Context) string {
	if jobID, ok := ctx.Value(JobIDKey).(string); ok {
		return jobID
	}
	return ""
}

// WithJobID attaches a job ID to the context.
func WithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, JobIDKey, jobID)
}
