package mcp

import (
	"context"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
	"github.com/SanjayDoppalapudi/RAG/internal/core/ports/driving"
)

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	qc        *domain.QueryContext
	err       error
	lastQuery string
	lastTopK  int
}

func (m *mockAnswerService) Answer(_ context.Context, query string, topK int) (*domain.QueryContext, error) {
	m.lastQuery = query
	m.lastTopK = topK
	return m.qc, m.err
}

// mockIngestionService is a mock implementation of driving.IngestionService.
type mockIngestionService struct {
	job     *domain.IngestionJob
	status  *domain.JobStatus
	err     error
	waitErr error
	lastReq driving.IngestRequest
	waited  bool
}

func (m *mockIngestionService) Ingest(_ context.Context, req driving.IngestRequest) (*domain.IngestionJob, error) {
	m.lastReq = req
	return m.job, m.err
}

func (m *mockIngestionService) JobStatus(_ context.Context, _ string) (*domain.JobStatus, error) {
	return m.status, m.err
}

func (m *mockIngestionService) Wait(_ context.Context, _ string) (*domain.JobStatus, error) {
	m.waited = true
	return m.status, m.waitErr
}

func (m *mockIngestionService) Cancel(_ context.Context, _ string) error { return m.err }

func (m *mockIngestionService) Resume(_ context.Context) (int, error) { return 0, m.err }

func (m *mockIngestionService) Shutdown(_ context.Context) error { return nil }

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	document  *domain.Document
	report    *driving.ReconcileReport
	err       error
	deleted   string
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, id string) error {
	m.deleted = id
	return m.err
}

func (m *mockDocumentService) Reconcile(_ context.Context) (*driving.ReconcileReport, error) {
	return m.report, m.err
}

// mockVisualizationService is a mock implementation of driving.VisualizationService.
type mockVisualizationService struct {
	viz         *domain.Visualization
	err         error
	lastSession string
	lastQuery   string

	point        domain.Point3
	projectErr   error
	projected    []float32
	endedSession string
}

func (m *mockVisualizationService) Visualize(
	_ context.Context,
	sessionID, queryText string,
) (*domain.Visualization, error) {
	m.lastSession = sessionID
	m.lastQuery = queryText
	return m.viz, m.err
}

func (m *mockVisualizationService) ProjectQuery(_ context.Context, sessionID string, embedding []float32) (domain.Point3, error) {
	m.lastSession = sessionID
	m.projected = embedding
	return m.point, m.projectErr
}

func (m *mockVisualizationService) EndSession(sessionID string) {
	m.endedSession = sessionID
}
