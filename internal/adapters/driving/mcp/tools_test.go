package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
	"github.com/SanjayDoppalapudi/RAG/internal/core/ports/driving"
)

func newTestServer(t *testing.T, ports *Ports) *Server {
	t.Helper()
	if ports.Answer == nil {
		ports.Answer = &mockAnswerService{}
	}
	server, err := NewServer(ports)
	require.NoError(t, err)
	return server
}

func TestServer_handleQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("returns answer with sources", func(t *testing.T) {
		answer := &mockAnswerService{qc: &domain.QueryContext{
			QueryText: "what is x?",
			Answer:    "x is y",
			Retrieved: []domain.RetrievedChunk{{
				ChunkID: "doc-1#0",
				Metadata: domain.ChunkMetadata{
					DocumentID:    "doc-1",
					DocumentName:  "notes.txt",
					SequenceIndex: 0,
					Text:          "x is y, mostly",
				},
				Score: 0.91,
			}},
		}}
		server := newTestServer(t, &Ports{Answer: answer})

		_, output, err := server.handleQuery(ctx, nil, QueryInput{Question: "what is x?", TopK: 3})
		require.NoError(t, err)

		assert.Equal(t, "what is x?", answer.lastQuery)
		assert.Equal(t, 3, answer.lastTopK)
		assert.Equal(t, "x is y", output.Answer)
		assert.False(t, output.NoContext)
		require.Len(t, output.Sources, 1)
		assert.Equal(t, "doc-1", output.Sources[0].DocumentID)
		assert.Equal(t, "notes.txt", output.Sources[0].DocumentName)
		assert.Equal(t, 0.91, output.Sources[0].Score)
		assert.Equal(t, "x is y, mostly", output.Sources[0].Text)
	})

	t.Run("no context yields empty sources", func(t *testing.T) {
		answer := &mockAnswerService{qc: &domain.QueryContext{
			Answer:    domain.NoRelevantContextAnswer,
			NoContext: true,
		}}
		server := newTestServer(t, &Ports{Answer: answer})

		_, output, err := server.handleQuery(ctx, nil, QueryInput{Question: "anything"})
		require.NoError(t, err)
		assert.True(t, output.NoContext)
		assert.NotNil(t, output.Sources)
		assert.Empty(t, output.Sources)
	})

	t.Run("places the question in a visualize session", func(t *testing.T) {
		answer := &mockAnswerService{qc: &domain.QueryContext{Answer: "a", QueryEmbedding: []float32{1, 2}}}
		viz := &mockVisualizationService{point: domain.Point3{0.5, -1, 2}}
		server := newTestServer(t, &Ports{Answer: answer, Visualization: viz})

		_, output, err := server.handleQuery(ctx, nil, QueryInput{Question: "q", SessionID: "sess-1"})
		require.NoError(t, err)
		assert.Equal(t, "sess-1", viz.lastSession)
		assert.Equal(t, []float32{1, 2}, viz.projected)
		require.NotNil(t, output.QueryPoint)
		assert.Equal(t, [3]float64{0.5, -1, 2}, *output.QueryPoint)
	})

	t.Run("stale session still answers without a point", func(t *testing.T) {
		answer := &mockAnswerService{qc: &domain.QueryContext{Answer: "a", QueryEmbedding: []float32{1, 2}}}
		viz := &mockVisualizationService{projectErr: domain.ErrStaleProjection}
		server := newTestServer(t, &Ports{Answer: answer, Visualization: viz})

		_, output, err := server.handleQuery(ctx, nil, QueryInput{Question: "q", SessionID: "sess-1"})
		require.NoError(t, err)
		assert.Equal(t, "a", output.Answer)
		assert.Nil(t, output.QueryPoint)
	})

	t.Run("no session skips projection", func(t *testing.T) {
		answer := &mockAnswerService{qc: &domain.QueryContext{Answer: "a", QueryEmbedding: []float32{1}}}
		viz := &mockVisualizationService{}
		server := newTestServer(t, &Ports{Answer: answer, Visualization: viz})

		_, output, err := server.handleQuery(ctx, nil, QueryInput{Question: "q"})
		require.NoError(t, err)
		assert.Nil(t, viz.projected)
		assert.Nil(t, output.QueryPoint)
	})

	t.Run("returns error on failure", func(t *testing.T) {
		answer := &mockAnswerService{err: domain.ErrGenerationUnavailable}
		server := newTestServer(t, &Ports{Answer: answer})

		_, _, err := server.handleQuery(ctx, nil, QueryInput{Question: "q"})
		assert.ErrorIs(t, err, domain.ErrGenerationUnavailable)
	})
}

func TestServer_handleIngest(t *testing.T) {
	ctx := context.Background()
	job := &domain.IngestionJob{
		ID:          "job-1",
		DocumentID:  "doc-1",
		State:       domain.JobQueued,
		CurrentStep: domain.StepParse,
	}

	t.Run("queues and returns handle", func(t *testing.T) {
		ingest := &mockIngestionService{job: job}
		server := newTestServer(t, &Ports{Ingestion: ingest})

		_, output, err := server.handleIngest(ctx, nil, IngestInput{Name: "notes.md", Content: "# hi"})
		require.NoError(t, err)

		assert.Equal(t, "job-1", output.JobID)
		assert.Equal(t, "doc-1", output.DocumentID)
		assert.Equal(t, "queued", output.State)
		assert.Equal(t, "parse", output.Step)
		assert.Equal(t, "notes.md", ingest.lastReq.DisplayName)
		assert.Equal(t, []byte("# hi"), ingest.lastReq.Content)
		assert.NotEmpty(t, ingest.lastReq.MIMEType, "mime type is detected from the name")
		assert.False(t, ingest.waited)
	})

	t.Run("explicit mime type and document id pass through", func(t *testing.T) {
		ingest := &mockIngestionService{job: job}
		server := newTestServer(t, &Ports{Ingestion: ingest})

		_, _, err := server.handleIngest(ctx, nil, IngestInput{
			Name: "a", Content: "b", MIMEType: "text/plain", DocumentID: "doc-9",
		})
		require.NoError(t, err)
		assert.Equal(t, "text/plain", ingest.lastReq.MIMEType)
		assert.Equal(t, "doc-9", ingest.lastReq.DocumentID)
	})

	t.Run("wait returns final status", func(t *testing.T) {
		ingest := &mockIngestionService{
			job: job,
			status: &domain.JobStatus{
				Job:      domain.IngestionJob{ID: "job-1", DocumentID: "doc-1", State: domain.JobDone, CurrentStep: domain.StepDone},
				Document: domain.Document{ID: "doc-1", Status: domain.StatusReady, ChunkCount: 4},
			},
		}
		server := newTestServer(t, &Ports{Ingestion: ingest})

		_, output, err := server.handleIngest(ctx, nil, IngestInput{Name: "a.txt", Content: "b", Wait: true})
		require.NoError(t, err)
		assert.True(t, ingest.waited)
		assert.Equal(t, "done", output.State)
		assert.Equal(t, "ready", output.DocumentStatus)
		assert.Equal(t, 4, output.ChunkCount)
	})

	t.Run("wait failure is wrapped", func(t *testing.T) {
		ingest := &mockIngestionService{job: job, waitErr: context.DeadlineExceeded}
		server := newTestServer(t, &Ports{Ingestion: ingest})

		_, _, err := server.handleIngest(ctx, nil, IngestInput{Name: "a.txt", Content: "b", Wait: true})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Contains(t, err.Error(), "job-1")
	})

	t.Run("rejected upload", func(t *testing.T) {
		ingest := &mockIngestionService{err: domain.ErrInvalidInput}
		server := newTestServer(t, &Ports{Ingestion: ingest})

		_, _, err := server.handleIngest(ctx, nil, IngestInput{Name: "a.txt"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("unavailable without ingestion port", func(t *testing.T) {
		server := newTestServer(t, &Ports{})
		_, _, err := server.handleIngest(ctx, nil, IngestInput{Name: "a.txt", Content: "b"})
		assert.ErrorIs(t, err, errUnavailable)
	})
}

func TestServer_handleJobStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("reports failure reason", func(t *testing.T) {
		ingest := &mockIngestionService{status: &domain.JobStatus{
			Job:      domain.IngestionJob{ID: "job-1", DocumentID: "doc-1", State: domain.JobFailed, CurrentStep: domain.StepEmbed},
			Document: domain.Document{ID: "doc-1", Status: domain.StatusFailed, LastError: "embedding: quota"},
		}}
		server := newTestServer(t, &Ports{Ingestion: ingest})

		_, output, err := server.handleJobStatus(ctx, nil, JobInput{JobID: "job-1"})
		require.NoError(t, err)
		assert.Equal(t, "failed", output.State)
		assert.Equal(t, "embed", output.Step)
		assert.Equal(t, "embedding: quota", output.Error)
	})

	t.Run("unknown job", func(t *testing.T) {
		ingest := &mockIngestionService{err: domain.ErrNotFound}
		server := newTestServer(t, &Ports{Ingestion: ingest})

		_, _, err := server.handleJobStatus(ctx, nil, JobInput{JobID: "nope"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestServer_handleDeleteDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes", func(t *testing.T) {
		docs := &mockDocumentService{}
		server := newTestServer(t, &Ports{Document: docs})

		_, output, err := server.handleDeleteDocument(ctx, nil, DocumentInput{DocumentID: "doc-1"})
		require.NoError(t, err)
		assert.True(t, output.Deleted)
		assert.Equal(t, "doc-1", docs.deleted)
	})

	t.Run("propagates error", func(t *testing.T) {
		docs := &mockDocumentService{err: domain.ErrNotFound}
		server := newTestServer(t, &Ports{Document: docs})

		_, _, err := server.handleDeleteDocument(ctx, nil, DocumentInput{DocumentID: "doc-1"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("unavailable without document port", func(t *testing.T) {
		server := newTestServer(t, &Ports{})
		_, _, err := server.handleDeleteDocument(ctx, nil, DocumentInput{DocumentID: "doc-1"})
		assert.ErrorIs(t, err, errUnavailable)
	})
}

func TestServer_handleVisualize(t *testing.T) {
	ctx := context.Background()

	t.Run("maps points", func(t *testing.T) {
		viz := &mockVisualizationService{viz: &domain.Visualization{
			SessionID: "s-1",
			Version:   "v1",
			Points: []domain.ProjectedPoint{
				{ID: "doc-1#0", Kind: domain.PointKindChunk, DocumentID: "doc-1", Group: "a.txt", Label: "hello", Point: domain.Point3{1, 2, 3}},
				{ID: "query", Kind: domain.PointKindQuery, Group: "query", Label: "hi?", Point: domain.Point3{0, 0, 1}},
			},
		}}
		server := newTestServer(t, &Ports{Visualization: viz})

		_, output, err := server.handleVisualize(ctx, nil, VisualizeInput{SessionID: "s-1", Query: "hi?"})
		require.NoError(t, err)

		assert.Equal(t, "s-1", viz.lastSession)
		assert.Equal(t, "hi?", viz.lastQuery)
		assert.Equal(t, "s-1", output.SessionID)
		assert.Equal(t, "v1", output.Version)
		require.Len(t, output.Points, 2)
		assert.Equal(t, "chunk", output.Points[0].Kind)
		assert.Equal(t, [3]float64{1, 2, 3}, output.Points[0].Coords)
		assert.Equal(t, "query", output.Points[1].Kind)
	})

	t.Run("propagates error", func(t *testing.T) {
		viz := &mockVisualizationService{err: errors.New("embed failed")}
		server := newTestServer(t, &Ports{Visualization: viz})

		_, _, err := server.handleVisualize(ctx, nil, VisualizeInput{})
		assert.EqualError(t, err, "embed failed")
	})
}

func TestServer_handleEndSession(t *testing.T) {
	ctx := context.Background()

	t.Run("drops the session", func(t *testing.T) {
		viz := &mockVisualizationService{}
		server := newTestServer(t, &Ports{Visualization: viz})

		_, output, err := server.handleEndSession(ctx, nil, SessionInput{SessionID: "sess-1"})
		require.NoError(t, err)
		assert.True(t, output.Ended)
		assert.Equal(t, "sess-1", viz.endedSession)
	})

	t.Run("requires a session ID", func(t *testing.T) {
		server := newTestServer(t, &Ports{Visualization: &mockVisualizationService{}})

		_, _, err := server.handleEndSession(ctx, nil, SessionInput{})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("unavailable without visualization", func(t *testing.T) {
		server := newTestServer(t, &Ports{})

		_, _, err := server.handleEndSession(ctx, nil, SessionInput{SessionID: "s"})
		assert.ErrorIs(t, err, errUnavailable)
	})
}

func TestServer_handleReconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("summarises report", func(t *testing.T) {
		docs := &mockDocumentService{report: &driving.ReconcileReport{
			Checked: 3,
			Fixed:   []domain.ConsistencyError{{DocumentID: "doc-1", Expected: 4, Actual: 2}},
		}}
		server := newTestServer(t, &Ports{Document: docs})

		_, output, err := server.handleReconcile(ctx, nil, ReconcileInput{})
		require.NoError(t, err)
		assert.Equal(t, 3, output.Checked)
		require.Len(t, output.Fixed, 1)
		assert.Contains(t, output.Fixed[0], "doc-1")
		assert.NotNil(t, output.OrphansRemoved)
	})

	t.Run("unavailable without document port", func(t *testing.T) {
		server := newTestServer(t, &Ports{})
		_, _, err := server.handleReconcile(ctx, nil, ReconcileInput{})
		assert.ErrorIs(t, err, errUnavailable)
	})
}
