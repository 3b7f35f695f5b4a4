package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/iyedlimem/Flenci-server-side/db"

	"github.com/redis/go-redis/v9"
)

// JobRecord is the externally visible state of one pipeline job. It is kept
// in Redis so that status and failure kinds survive the request that created
// them and can be inspected out-of-band.
type JobRecord struct {
	JobID     string `json:"jobId"`
	Kind      string `json:"kind"`  // upload, mix, trim
	State     string `json:"state"` // pipeline state machine state
	ErrorKind string `json:"errorKind,omitempty"`
	Warning   string `json:"warning,omitempty"` // e.g. non-fatal cover write failure
	UpdatedAt int64  `json:"updatedAt"`
}

const jobRecordTTL = 24 * time.Hour

func jobKey(jobID string) string {
	return fmt.Sprintf("pipeline:job:%s", jobID)
}

// PutJobRecord writes the current state of a pipeline job.
func PutJobRecord(ctx context.Context, rec JobRecord) error {
	if db.RedisClient == nil {
		return nil // Cache is best-effort; the pipeline does not depend on it
	}

	rec.UpdatedAt = time.Now().Unix()
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal job record: %w", err)
	}

	if err := db.RedisClient.Set(ctx, jobKey(rec.JobID), data, jobRecordTTL).Err(); err != nil {
		return fmt.Errorf("failed to store job record: %w", err)
	}
	return nil
}

// GetJobRecord fetches the state of a pipeline job. Returns nil when the job
// is unknown or the record has expired.
func GetJobRecord(ctx context.Context, jobID string) (*JobRecord, error) {
	if db.RedisClient == nil {
		return nil, nil
	}

	data, err := db.RedisClient.Get(ctx, jobKey(jobID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read job record: %w", err)
	}

	var rec JobRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job record: %w", err)
	}
	return &rec, nil
}
