package domain

import "time"

// Step is a discrete, independently retried unit of the ingestion pipeline.
type Step string

// Ingestion steps in execution order.
const (
	StepParse Step = "parse"
	StepChunk Step = "chunk"
	StepEmbed Step = "embed"
	StepStore Step = "store"
	StepDone  Step = "done"
)

// Next returns the step that follows s. StepDone is its own successor.
func (s Step) Next() Step {
	switch s {
	case StepParse:
		return StepChunk
	case StepChunk:
		return StepEmbed
	case StepEmbed:
		return StepStore
	default:
		return StepDone
	}
}

// IsValid returns true if the step is recognised.
func (s Step) IsValid() bool {
	switch s {
	case StepParse, StepChunk, StepEmbed, StepStore, StepDone:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s Step) String() string {
	return string(s)
}

// PipelineSteps returns the executable steps in order.
func PipelineSteps() []Step {
	return []Step{StepParse, StepChunk, StepEmbed, StepStore}
}

// JobState is the overall state of an ingestion job.
type JobState string

// Job states.
const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobDone      JobState = "done"
	JobFailed    JobState = "failed"
	JobCancelled JobState = "cancelled"
)

// IsTerminal returns true if the job will make no further progress.
func (s JobState) IsTerminal() bool {
	return s == JobDone || s == JobFailed || s == JobCancelled
}

// IngestionJob is the persisted orchestration state of one ingestion attempt.
// It is written before and after every step so a restarted process resumes
// at CurrentStep without redoing completed steps.
type IngestionJob struct {
	// ID is the job handle returned to the caller.
	ID string

	// DocumentID is the document being ingested.
	DocumentID string

	// CurrentStep is the first step whose effects are not yet recorded.
	CurrentStep Step

	// State is the overall job state.
	State JobState

	// Attempts counts executions per step, including the current one.
	Attempts map[Step]int

	// LastError is the most recent step failure, if any.
	LastError string

	// CancelRequested is set by Cancel and honoured between steps.
	CancelRequested bool

	// MIMEType is the declared content type of Content.
	MIMEType string

	// Content holds the raw upload until the Parse step completes.
	Content []byte

	// ParsedText is the Parse step output.
	ParsedText string

	// Chunks is the Chunk step output; embeddings are filled by Embed.
	Chunks []Chunk

	// CreatedAt is when the job was created.
	CreatedAt time.Time

	// UpdatedAt is when the job state was last persisted.
	UpdatedAt time.Time
}

// NewIngestionJob creates a queued job positioned at the Parse step.
func NewIngestionJob(id, documentID, mimeType string, content []byte, now time.Time) *IngestionJob {
	return &IngestionJob{
		ID:          id,
		DocumentID:  documentID,
		CurrentStep: StepParse,
		State:       JobQueued,
		Attempts:    make(map[Step]int),
		MIMEType:    mimeType,
		Content:     content,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// RecordAttempt increments the attempt counter for the current step and
// returns the new count.
func (j *IngestionJob) RecordAttempt(now time.Time) int {
	if j.Attempts == nil {
		j.Attempts = make(map[Step]int)
	}
	j.Attempts[j.CurrentStep]++
	j.UpdatedAt = now
	return j.Attempts[j.CurrentStep]
}

// Advance marks the current step complete and moves to the next one.
func (j *IngestionJob) Advance(now time.Time) {
	j.CurrentStep = j.CurrentStep.Next()
	j.LastError = ""
	if j.CurrentStep == StepDone {
		j.State = JobDone
	}
	j.UpdatedAt = now
}

// Fail terminates the job with the given reason.
func (j *IngestionJob) Fail(reason string, now time.Time) {
	j.State = JobFailed
	j.LastError = reason
	j.UpdatedAt = now
}

// IsTerminal returns true if the job has finished, failed or been cancelled.
func (j *IngestionJob) IsTerminal() bool {
	return j.State.IsTerminal()
}

// JobStatus is the caller-facing view of a job and its document.
type JobStatus struct {
	Job      IngestionJob
	Document Document
}
