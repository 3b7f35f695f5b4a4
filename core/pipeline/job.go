package pipeline

import (
	"context"
	"os"
	"sync"

	"github.com/iyedlimem/Flenci-server-side/cache"
	"github.com/iyedlimem/Flenci-server-side/logger"

	"github.com/google/uuid"
)

// State is a pipeline job state. Jobs advance strictly forward through the
// sequence below; Failed is reachable from every non-terminal state.
type State string

const (
	StateReceived          State = "Received"
	StateStaged            State = "Staged"
	StateNormalizing       State = "Normalizing"
	StateNormalized        State = "Normalized"
	StateMetadataExtracted State = "MetadataExtracted"
	StateCompleted         State = "Completed"
	StateFailed            State = "Failed"
)

// Job tracks one pipeline run: its state, the temporary files it created, and
// the warning (if any) attached to an otherwise successful run. Each job owns
// exactly the files it registered; release removes them exactly once,
// whichever exit path runs first.
type Job struct {
	ID      string
	Kind    string // upload, mix, trim
	state   State
	warning string

	mu       sync.Mutex
	tempList []string
	released sync.Once
}

func newJob(kind string) *Job {
	return &Job{
		ID:    uuid.NewString(),
		Kind:  kind,
		state: StateReceived,
	}
}

// track registers a temporary file for removal when the job terminates.
func (j *Job) track(path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.tempList = append(j.tempList, path)
}

// release deletes every temporary file the job created. Guarded so that
// double invocation (deferred release after an explicit one) is harmless.
func (j *Job) release() {
	j.released.Do(func() {
		j.mu.Lock()
		paths := j.tempList
		j.tempList = nil
		j.mu.Unlock()

		for _, path := range paths {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				logger.Warn("failed to remove temporary file",
					logger.String("jobId", j.ID),
					logger.String("path", path),
					logger.ErrorField(err))
			}
		}
	})
}

// to advances the job to the given state and records the transition.
func (j *Job) to(ctx context.Context, state State) {
	j.state = state
	logger.Debug("pipeline job transition",
		logger.String("jobId", j.ID),
		logger.String("kind", j.Kind),
		logger.String("state", string(state)))
	j.putRecord(ctx, "")
}

// fail moves the job to Failed, records the failure kind, and releases the
// job's temporary files.
func (j *Job) fail(ctx context.Context, err error) {
	j.state = StateFailed
	kind := KindOf(err)
	logger.Error("pipeline job failed",
		logger.String("jobId", j.ID),
		logger.String("kind", j.Kind),
		logger.String("errorKind", string(kind)),
		logger.ErrorField(err))
	j.putRecord(ctx, string(kind))
	j.release()
}

// complete moves the job to Completed and releases its temporary files.
func (j *Job) complete(ctx context.Context) {
	j.to(ctx, StateCompleted)
	j.release()
}

// warn attaches a non-fatal warning to the job, observable through the job
// record.
func (j *Job) warn(ctx context.Context, msg string) {
	j.warning = msg
	logger.Warn("pipeline job warning",
		logger.String("jobId", j.ID),
		logger.String("kind", j.Kind),
		logger.String("warning", msg))
	j.putRecord(ctx, "")
}

func (j *Job) putRecord(ctx context.Context, errorKind string) {
	rec := cache.JobRecord{
		JobID:     j.ID,
		Kind:      j.Kind,
		State:     string(j.state),
		ErrorKind: errorKind,
		Warning:   j.warning,
	}
	if err := cache.PutJobRecord(ctx, rec); err != nil {
		logger.Warn("failed to store job record",
			logger.String("jobId", j.ID),
			logger.ErrorField(err))
	}
}
