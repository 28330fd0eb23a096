// Package jobs persists PDF extraction job records in a key-value store.
package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/joseph-ayodele/studydeck/constants"
	"github.com/joseph-ayodele/studydeck/internal/common"
)

// Job is the whole record stored under one key. Every transition rewrites it.
type Job struct {
	ID          string              `json:"id,omitempty"`
	Status      constants.JobStatus `json:"status"`
	Progress    int                 `json:"progress"`
	Result      string              `json:"result,omitempty"`
	Pages       int                 `json:"pages,omitempty"`
	Error       string              `json:"error,omitempty"`
	CreatedAt   *time.Time          `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time          `json:"updatedAt,omitempty"`
	StartedAt   *time.Time          `json:"startedAt,omitempty"`
	CompletedAt *time.Time          `json:"completedAt,omitempty"`
	FailedAt    *time.Time          `json:"failedAt,omitempty"`
}

// ErrInvalidTransition is returned when a transition would move a job backwards.
var ErrInvalidTransition = errors.New("invalid job transition")

// NewJob returns the initial processing record.
func NewJob(id string, now time.Time) Job {
	t := now.UTC()
	return Job{
		ID:        id,
		Status:    constants.JobStatusProcessing,
		Progress:  constants.ProgressStarted,
		CreatedAt: &t,
		UpdatedAt: &t,
		StartedAt: &t,
	}
}

// Advance moves a processing job to a higher progress value.
func (j Job) Advance(progress int, now time.Time) (Job, error) {
	if j.Status.IsTerminal() || progress < j.Progress || progress >= constants.ProgressDone {
		return j, fmt.Errorf("%w: %s at %d to progress %d", ErrInvalidTransition, j.Status, j.Progress, progress)
	}
	t := now.UTC()
	j.Progress = progress
	j.UpdatedAt = &t
	return j, nil
}

// Complete marks the job done with the extracted text.
func (j Job) Complete(result string, pages int, now time.Time) (Job, error) {
	if j.Status.IsTerminal() {
		return j, fmt.Errorf("%w: %s to completed", ErrInvalidTransition, j.Status)
	}
	t := now.UTC()
	j.Status = constants.JobStatusCompleted
	j.Progress = constants.ProgressDone
	j.Result = result
	j.Pages = pages
	j.UpdatedAt = &t
	j.CompletedAt = &t
	return j, nil
}

// Fail marks the job failed. Progress keeps the last value reached.
func (j Job) Fail(message string, now time.Time) (Job, error) {
	if j.Status.IsTerminal() {
		return j, fmt.Errorf("%w: %s to failed", ErrInvalidTransition, j.Status)
	}
	if message == "" {
		message = "PDF extraction failed"
	}
	t := now.UTC()
	j.Status = constants.JobStatusFailed
	j.Error = message
	j.UpdatedAt = &t
	j.FailedAt = &t
	return j, nil
}

// DecodeJob accepts whatever a KV client hands back: raw bytes or a string holding JSON, an
// already decoded map, or a Job. Anything else, or JSON that is not a job record, is
// reported as common.ErrCorrupted. A nil value is common.ErrNotFound.
func DecodeJob(v any) (Job, error) {
	switch val := v.(type) {
	case nil:
		return Job{}, common.ErrNotFound
	case Job:
		return val, nil
	case *Job:
		if val == nil {
			return Job{}, common.ErrNotFound
		}
		return *val, nil
	case []byte:
		return decodeBytes(val)
	case string:
		return decodeBytes([]byte(val))
	case map[string]any:
		b, err := json.Marshal(val)
		if err != nil {
			return Job{}, corrupted(err)
		}
		return decodeBytes(b)
	default:
		return Job{}, corrupted(fmt.Errorf("unsupported value type %T", v))
	}
}

func decodeBytes(b []byte) (Job, error) {
	var j Job
	if err := json.Unmarshal(b, &j); err != nil {
		return Job{}, corrupted(err)
	}
	if !j.Status.Valid() {
		return Job{}, corrupted(fmt.Errorf("unknown status %q", j.Status))
	}
	return j, nil
}

func corrupted(cause error) error {
	return fmt.Errorf("%w: %w", common.ErrCorrupted, cause)
}
