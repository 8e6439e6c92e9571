package jobs

import "context"

type ContextKey string

var (
	JobNameKey = ContextKey("X-Job-Name")
	RunIDKey   = ContextKey("X-Run-Id")
)

func SetJobName(ctx context.Context, jobName string) context.Context {
	return context.WithValue(ctx, JobNameKey, jobName)
}

func GetJobName(ctx context.Context) string {
	value, ok := ctx.Value(JobNameKey).(string)
	if !ok {
		return ""
	}
	return value
}

func SetRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

func GetRunID(ctx context.Context) string {
	value, ok := ctx.Value(RunIDKey).(string)
	if !ok {
		return ""
	}
	return value
}
