package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
	"github.com/SanjayDoppalapudi/RAG/internal/core/ports/driving"
	"github.com/SanjayDoppalapudi/RAG/internal/parsers"
)

// maxIngestWait bounds how long the ingest tool blocks when asked to wait.
const maxIngestWait = 2 * time.Minute

// QueryInput is the input schema for the query tool.
type QueryInput struct {
	Question  string `json:"question" jsonschema:"the question to answer from ingested documents"`
	TopK      int    `json:"top_k,omitempty" jsonschema:"number of chunks to retrieve (default from settings)"`
	SessionID string `json:"session_id,omitempty" jsonschema:"visualize session to place the question in"`
}

// QueryOutput is the output schema for the query tool.
type QueryOutput struct {
	Answer    string         `json:"answer"`
	NoContext bool           `json:"no_context"`
	Sources   []SourceOutput `json:"sources"`
	// QueryPoint is set when a session was given and its basis is current.
	QueryPoint *[3]float64 `json:"query_point,omitempty"`
}

// SourceOutput cites one chunk used in an answer.
type SourceOutput struct {
	DocumentID    string  `json:"document_id"`
	DocumentName  string  `json:"document_name"`
	SequenceIndex int     `json:"sequence_index"`
	Score         float64 `json:"score"`
	Text          string  `json:"text"`
}

// IngestInput is the input schema for the ingest tool.
type IngestInput struct {
	Name       string `json:"name" jsonschema:"file name used to pick the parser and as the display name"`
	Content    string `json:"content" jsonschema:"the document text"`
	MIMEType   string `json:"mime_type,omitempty" jsonschema:"content type; detected from the name when empty"`
	DocumentID string `json:"document_id,omitempty" jsonschema:"re-ingest this existing document"`
	Wait       bool   `json:"wait,omitempty" jsonschema:"block until ingestion finishes"`
}

// JobOutput describes an ingestion job and its document.
type JobOutput struct {
	JobID          string `json:"job_id"`
	DocumentID     string `json:"document_id"`
	State          string `json:"state"`
	Step           string `json:"step"`
	DocumentStatus string `json:"document_status,omitempty"`
	ChunkCount     int    `json:"chunk_count"`
	Error          string `json:"error,omitempty"`
}

// JobInput is the input schema for the job_status tool.
type JobInput struct {
	JobID string `json:"job_id" jsonschema:"the job handle returned by ingest"`
}

// DocumentInput identifies a document.
type DocumentInput struct {
	DocumentID string `json:"document_id" jsonschema:"the document ID"`
}

// DeleteOutput is the output schema for the delete_document tool.
type DeleteOutput struct {
	DocumentID string `json:"document_id"`
	Deleted    bool   `json:"deleted"`
}

// VisualizeInput is the input schema for the visualize tool.
type VisualizeInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"reuse the projection of an earlier call"`
	Query     string `json:"query,omitempty" jsonschema:"a question to place among the chunks"`
}

// VisualizeOutput is the output schema for the visualize tool.
type VisualizeOutput struct {
	SessionID string        `json:"session_id"`
	Version   string        `json:"version"`
	Points    []PointOutput `json:"points"`
}

// PointOutput is one projected point.
type PointOutput struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	DocumentID string     `json:"document_id,omitempty"`
	Group      string     `json:"group"`
	Label      string     `json:"label"`
	Coords     [3]float64 `json:"coords"`
}

// SessionInput identifies a visualize session.
type SessionInput struct {
	SessionID string `json:"session_id" jsonschema:"the session returned by visualize"`
}

// SessionOutput confirms a session was ended.
type SessionOutput struct {
	SessionID string `json:"session_id"`
	Ended     bool   `json:"ended"`
}

// ReconcileInput is the empty input of the reconcile tool.
type ReconcileInput struct{}

// ReconcileOutput summarises a reconcile pass.
type ReconcileOutput struct {
	Checked        int      `json:"checked"`
	Fixed          []string `json:"fixed"`
	OrphansRemoved []string `json:"orphans_removed"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query",
		Description: "Answer a question using only the ingested documents, with cited sources",
	}, s.handleQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest",
		Description: "Upload a text document for parsing, chunking and embedding",
	}, s.handleIngest)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "job_status",
		Description: "Report the progress of an ingestion job",
	}, s.handleJobStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_document",
		Description: "Delete a document and all of its chunks",
	}, s.handleDeleteDocument)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "visualize",
		Description: "Project every chunk, and optionally a query, into 3D coordinates",
	}, s.handleVisualize)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "end_session",
		Description: "Drop the cached projection of a visualize session",
	}, s.handleEndSession)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "reconcile",
		Description: "Repair divergence between the document registry and the chunk store",
	}, s.handleReconcile)
}

// handleQuery handles the query tool invocation.
func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	qc, err := s.ports.Answer.Answer(ctx, input.Question, input.TopK)
	if err != nil {
		return nil, QueryOutput{}, err
	}

	output := QueryOutput{
		Answer:    qc.Answer,
		NoContext: qc.NoContext,
		Sources:   make([]SourceOutput, len(qc.Retrieved)),
	}
	for i, r := range qc.Retrieved {
		output.Sources[i] = SourceOutput{
			DocumentID:    r.Metadata.DocumentID,
			DocumentName:  r.Metadata.DocumentName,
			SequenceIndex: r.Metadata.SequenceIndex,
			Score:         r.Score,
			Text:          r.Metadata.Text,
		}
	}

	if input.SessionID != "" && s.ports.Visualization != nil && len(qc.QueryEmbedding) > 0 {
		p, err := s.ports.Visualization.ProjectQuery(ctx, input.SessionID, qc.QueryEmbedding)
		switch {
		case err == nil:
			coords := [3]float64(p)
			output.QueryPoint = &coords
		case errors.Is(err, domain.ErrStaleProjection), errors.Is(err, domain.ErrNotFound):
			log.Debug("query not placed in session %s: %v", input.SessionID, err)
		default:
			return nil, QueryOutput{}, err
		}
	}
	return nil, output, nil
}

// handleIngest handles the ingest tool invocation.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, JobOutput, error) {
	if s.ports.Ingestion == nil {
		return nil, JobOutput{}, errUnavailable
	}

	mimeType := input.MIMEType
	if mimeType == "" {
		mimeType = parsers.DetectMIMEType(input.Name)
	}
	job, err := s.ports.Ingestion.Ingest(ctx, driving.IngestRequest{
		DocumentID:  input.DocumentID,
		DisplayName: input.Name,
		MIMEType:    mimeType,
		Content:     []byte(input.Content),
	})
	if err != nil {
		return nil, JobOutput{}, err
	}

	if !input.Wait {
		return nil, JobOutput{
			JobID:      job.ID,
			DocumentID: job.DocumentID,
			State:      string(job.State),
			Step:       string(job.CurrentStep),
		}, nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, maxIngestWait)
	defer cancel()
	status, err := s.ports.Ingestion.Wait(waitCtx, job.ID)
	if err != nil {
		return nil, JobOutput{}, fmt.Errorf("waiting for job %s: %w", job.ID, err)
	}
	return nil, jobOutput(status), nil
}

// handleJobStatus handles the job_status tool invocation.
func (s *Server) handleJobStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input JobInput,
) (*mcp.CallToolResult, JobOutput, error) {
	if s.ports.Ingestion == nil {
		return nil, JobOutput{}, errUnavailable
	}
	status, err := s.ports.Ingestion.JobStatus(ctx, input.JobID)
	if err != nil {
		return nil, JobOutput{}, err
	}
	return nil, jobOutput(status), nil
}

// handleDeleteDocument handles the delete_document tool invocation.
func (s *Server) handleDeleteDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentInput,
) (*mcp.CallToolResult, DeleteOutput, error) {
	if s.ports.Document == nil {
		return nil, DeleteOutput{}, errUnavailable
	}
	if err := s.ports.Document.Delete(ctx, input.DocumentID); err != nil {
		return nil, DeleteOutput{}, err
	}
	return nil, DeleteOutput{DocumentID: input.DocumentID, Deleted: true}, nil
}

// handleVisualize handles the visualize tool invocation.
func (s *Server) handleVisualize(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input VisualizeInput,
) (*mcp.CallToolResult, VisualizeOutput, error) {
	if s.ports.Visualization == nil {
		return nil, VisualizeOutput{}, errUnavailable
	}
	viz, err := s.ports.Visualization.Visualize(ctx, input.SessionID, input.Query)
	if err != nil {
		return nil, VisualizeOutput{}, err
	}

	output := VisualizeOutput{
		SessionID: viz.SessionID,
		Version:   viz.Version,
		Points:    make([]PointOutput, len(viz.Points)),
	}
	for i, p := range viz.Points {
		output.Points[i] = PointOutput{
			ID:         p.ID,
			Kind:       string(p.Kind),
			DocumentID: p.DocumentID,
			Group:      p.Group,
			Label:      p.Label,
			Coords:     p.Point,
		}
	}
	return nil, output, nil
}

// handleEndSession handles the end_session tool invocation.
func (s *Server) handleEndSession(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input SessionInput,
) (*mcp.CallToolResult, SessionOutput, error) {
	if s.ports.Visualization == nil {
		return nil, SessionOutput{}, errUnavailable
	}
	if input.SessionID == "" {
		return nil, SessionOutput{}, fmt.Errorf("%w: session_id is required", domain.ErrInvalidInput)
	}
	s.ports.Visualization.EndSession(input.SessionID)
	return nil, SessionOutput{SessionID: input.SessionID, Ended: true}, nil
}

// handleReconcile handles the reconcile tool invocation.
func (s *Server) handleReconcile(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ReconcileInput,
) (*mcp.CallToolResult, ReconcileOutput, error) {
	if s.ports.Document == nil {
		return nil, ReconcileOutput{}, errUnavailable
	}
	report, err := s.ports.Document.Reconcile(ctx)
	if err != nil {
		return nil, ReconcileOutput{}, err
	}

	output := ReconcileOutput{
		Checked:        report.Checked,
		Fixed:          make([]string, len(report.Fixed)),
		OrphansRemoved: report.OrphansRemoved,
	}
	for i := range report.Fixed {
		output.Fixed[i] = report.Fixed[i].Error()
	}
	if output.OrphansRemoved == nil {
		output.OrphansRemoved = []string{}
	}
	return nil, output, nil
}

func jobOutput(status *domain.JobStatus) JobOutput {
	return JobOutput{
		JobID:          status.Job.ID,
		DocumentID:     status.Job.DocumentID,
		State:          string(status.Job.State),
		Step:           string(status.Job.CurrentStep),
		DocumentStatus: string(status.Document.Status),
		ChunkCount:     status.Document.ChunkCount,
		Error:          status.Document.LastError,
	}
}
