package jobs

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/studydeck/constants"
	"github.com/joseph-ayodele/studydeck/internal/common"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestJobLifecycleMovesForward(t *testing.T) {
	t.Parallel()

	j := NewJob("abc", t0)
	assert.Equal(t, constants.JobStatusProcessing, j.Status)
	assert.Equal(t, 0, j.Progress)
	require.NotNil(t, j.StartedAt)

	j, err := j.Advance(constants.ProgressReading, t0.Add(time.Second))
	require.NoError(t, err)
	j, err = j.Advance(constants.ProgressExtracted, t0.Add(2*time.Second))
	require.NoError(t, err)
	j, err = j.Complete("text", 3, t0.Add(3*time.Second))
	require.NoError(t, err)

	assert.Equal(t, constants.JobStatusCompleted, j.Status)
	assert.Equal(t, 100, j.Progress)
	assert.Equal(t, "text", j.Result)
	assert.Equal(t, 3, j.Pages)
	require.NotNil(t, j.CompletedAt)
	assert.Equal(t, t0.Add(3*time.Second), *j.CompletedAt)

	_, err = j.Fail("late", t0)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = j.Advance(70, t0)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAdvanceRejectsRegression(t *testing.T) {
	t.Parallel()

	j, err := NewJob("abc", t0).Advance(70, t0)
	require.NoError(t, err)

	_, err = j.Advance(30, t0)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = j.Advance(100, t0)
	assert.ErrorIs(t, err, ErrInvalidTransition, "100 is reserved for Complete")
}

func TestFailKeepsProgressAndDefaultsMessage(t *testing.T) {
	t.Parallel()

	j, err := NewJob("abc", t0).Advance(30, t0)
	require.NoError(t, err)
	j, err = j.Fail("", t0)
	require.NoError(t, err)

	assert.Equal(t, constants.JobStatusFailed, j.Status)
	assert.Equal(t, 30, j.Progress)
	assert.Equal(t, "PDF extraction failed", j.Error)
	assert.NotNil(t, j.FailedAt)
}

func TestDecodeJob(t *testing.T) {
	t.Parallel()

	want := Job{Status: constants.JobStatusProcessing, Progress: 30}

	tests := []struct {
		name    string
		in      any
		want    Job
		wantErr error
	}{
		{name: "bytes", in: []byte(`{"status":"processing","progress":30}`), want: want},
		{name: "string", in: `{"status":"processing","progress":30}`, want: want},
		{name: "decoded map", in: map[string]any{"status": "processing", "progress": 30}, want: want},
		{name: "job", in: want, want: want},
		{name: "job pointer", in: &want, want: want},
		{name: "nil", in: nil, wantErr: common.ErrNotFound},
		{name: "garbage", in: "{not json", wantErr: common.ErrCorrupted},
		{name: "json scalar", in: `"done"`, wantErr: common.ErrCorrupted},
		{name: "unknown status", in: `{"status":"queued"}`, wantErr: common.ErrCorrupted},
		{name: "bad progress type", in: map[string]any{"status": "failed", "progress": "high"}, wantErr: common.ErrCorrupted},
		{name: "unsupported type", in: 42, wantErr: common.ErrCorrupted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := DecodeJob(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJobJSONUsesRecordFieldNames(t *testing.T) {
	t.Parallel()

	j, err := NewJob("abc", t0).Fail("boom", t0)
	require.NoError(t, err)

	b, err := json.Marshal(j)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "abc",
		"status": "failed",
		"progress": 0,
		"error": "boom",
		"createdAt": "2026-03-01T12:00:00Z",
		"updatedAt": "2026-03-01T12:00:00Z",
		"startedAt": "2026-03-01T12:00:00Z",
		"failedAt": "2026-03-01T12:00:00Z"
	}`, string(b))
}
