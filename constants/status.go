package constants

// JobStatus is the canonical status stored in a pdf-job record.
type JobStatus string

// Stable values (store these exact strings).
const (
	JobStatusProcessing JobStatus = "processing" // extraction in progress
	JobStatusCompleted  JobStatus = "completed"  // terminal success, result set
	JobStatusFailed     JobStatus = "failed"     // terminal failure, error set
)

// Progress checkpoints written by the extraction worker.
const (
	ProgressStarted   = 0
	ProgressReading   = 30
	ProgressExtracted = 70
	ProgressDone      = 100
)

// IsTerminal reports whether no further transitions are allowed.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Valid reports whether s is one of the known statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}
