package cli

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
	"github.com/SanjayDoppalapudi/RAG/internal/core/ports/driving"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type mockIngestionService struct {
	mu       sync.Mutex
	requests []driving.IngestRequest
	status   *domain.JobStatus
	err      error
	resumed  int
}

func (m *mockIngestionService) Ingest(_ context.Context, req driving.IngestRequest) (*domain.IngestionJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.requests = append(m.requests, req)
	docID := req.DocumentID
	if docID == "" {
		docID = "doc-new"
	}
	return &domain.IngestionJob{ID: "job-1", DocumentID: docID, State: domain.JobQueued, CurrentStep: domain.StepParse}, nil
}

func (m *mockIngestionService) JobStatus(_ context.Context, jobID string) (*domain.JobStatus, error) {
	if m.status == nil || m.status.Job.ID != jobID {
		return nil, domain.ErrNotFound
	}
	return m.status, nil
}

func (m *mockIngestionService) Wait(ctx context.Context, jobID string) (*domain.JobStatus, error) {
	return m.JobStatus(ctx, jobID)
}

func (m *mockIngestionService) Cancel(context.Context, string) error { return nil }

func (m *mockIngestionService) Resume(context.Context) (int, error) { return m.resumed, nil }

func (m *mockIngestionService) Shutdown(context.Context) error { return nil }

func (m *mockIngestionService) received() []driving.IngestRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]driving.IngestRequest(nil), m.requests...)
}

type mockAnswerService struct {
	qc       *domain.QueryContext
	err      error
	question string
	topK     int
}

func (m *mockAnswerService) Answer(_ context.Context, query string, topK int) (*domain.QueryContext, error) {
	m.question = query
	m.topK = topK
	return m.qc, m.err
}

type mockVisualizationService struct {
	viz     *domain.Visualization
	session string
	query   string
}

func (m *mockVisualizationService) Visualize(_ context.Context, sessionID, queryText string) (*domain.Visualization, error) {
	m.session = sessionID
	m.query = queryText
	return m.viz, nil
}

func (m *mockVisualizationService) ProjectQuery(context.Context, string, []float32) (domain.Point3, error) {
	return domain.Point3{}, nil
}

func (m *mockVisualizationService) EndSession(string) {}

type mockDocumentService struct {
	docs    []domain.Document
	deleted []string
	report  *driving.ReconcileReport
	err     error
}

func (m *mockDocumentService) List(context.Context) ([]domain.Document, error) { return m.docs, nil }

func (m *mockDocumentService) Get(_ context.Context, id string) (*domain.Document, error) {
	for i := range m.docs {
		if m.docs[i].ID == id {
			return &m.docs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockDocumentService) Delete(_ context.Context, id string) error {
	if _, err := m.Get(context.Background(), id); err != nil {
		return err
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockDocumentService) Reconcile(context.Context) (*driving.ReconcileReport, error) {
	return m.report, m.err
}

type mockSettingsService struct {
	settings    domain.AppSettings
	validateErr error
	pingErr     error
	embedding   []string
	llm         []string
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(s *domain.AppSettings) error {
	m.settings = *s
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(p domain.AIProvider, model, apiKey string) error {
	m.embedding = []string{string(p), model, apiKey}
	return nil
}

func (m *mockSettingsService) SetLLMProvider(p domain.AIProvider, model, apiKey string) error {
	m.llm = []string{string(p), model, apiKey}
	return nil
}

func (m *mockSettingsService) Validate() error { return m.validateErr }

func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

func (m *mockSettingsService) ValidateEmbeddingConfig() error { return m.pingErr }

func (m *mockSettingsService) ValidateLLMConfig() error { return m.pingErr }

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	ingestion     *mockIngestionService
	answer        *mockAnswerService
	visualization *mockVisualizationService
	documents     *mockDocumentService
	settings      *mockSettingsService
}

// setupTestServices installs mocks with a small fixture corpus and returns
// a cleanup that restores the previous services and flag values.
func setupTestServices() (*testServices, func()) {
	ts := &testServices{
		ingestion: &mockIngestionService{
			status: &domain.JobStatus{
				Job: domain.IngestionJob{ID: "job-1", DocumentID: "doc-1", State: domain.JobDone, CurrentStep: domain.StepDone},
				Document: domain.Document{
					ID: "doc-1", DisplayName: "Test Document 1", Status: domain.StatusReady, ChunkCount: 3,
				},
			},
		},
		answer: &mockAnswerService{qc: &domain.QueryContext{
			Answer: "Paris is the capital.",
			Retrieved: []domain.RetrievedChunk{{
				ChunkID: "c-1",
				Metadata: domain.ChunkMetadata{
					DocumentID: "doc-1", DocumentName: "Test Document 1", SequenceIndex: 2, Text: "Paris...",
				},
				Score: 0.875,
			}},
		}},
		visualization: &mockVisualizationService{viz: &domain.Visualization{
			SessionID: "sess-1",
			Version:   "abc123",
			Variance:  [3]float64{2, 1, 0.5},
			Points: []domain.ProjectedPoint{
				{ID: "c-1", Kind: domain.PointKindChunk, DocumentID: "doc-1", Group: "Test Document 1", Label: "Paris...", Point: domain.Point3{1, 0, 0}},
				{ID: "c-2", Kind: domain.PointKindChunk, DocumentID: "doc-1", Group: "Test Document 1", Label: "Lyon...", Point: domain.Point3{-1, 0, 0}},
				{ID: "query", Kind: domain.PointKindQuery, Group: "query", Label: "capital?", Point: domain.Point3{0.5, 0.25, 0}},
			},
		}},
		documents: &mockDocumentService{docs: []domain.Document{
			{ID: "doc-1", DisplayName: "Test Document 1", MIMEType: "text/plain", Status: domain.StatusReady,
				ChunkCount: 3, CreatedAt: testTime, UpdatedAt: testTime},
			{ID: "doc-2", DisplayName: "broken.pdf", MIMEType: "application/pdf", Status: domain.StatusFailed,
				LastError: "parse: no text extracted", CreatedAt: testTime, UpdatedAt: testTime},
		}},
		settings: &mockSettingsService{settings: domain.DefaultAppSettings()},
	}

	prev := struct {
		ingestion     driving.IngestionService
		answer        driving.AnswerService
		visualization driving.VisualizationService
		documents     driving.DocumentService
		settings      driving.SettingsService
		schedule      string
	}{ingestionService, answerService, visualizationService, documentService, settingsService, reconcileSchedule}

	ingestionService = ts.ingestion
	answerService = ts.answer
	visualizationService = ts.visualization
	documentService = ts.documents
	settingsService = ts.settings
	reconcileSchedule = ""

	return ts, func() {
		ingestionService = prev.ingestion
		answerService = prev.answer
		visualizationService = prev.visualization
		documentService = prev.documents
		settingsService = prev.settings
		reconcileSchedule = prev.schedule
		resetFlags()
	}
}

// resetFlags clears command flag variables between executions.
func resetFlags() {
	ingestID, ingestName, ingestWait, ingestWatch = "", "", false, ""
	queryTopK, queryJSON = 0, false
	vizQuery, vizJSON = "", false
	documentJSON = false
	settingsProvider, settingsModel, settingsNoCheck = "", "", false
}

// execute runs the root command with args and returns combined output.
func execute(args ...string) (string, error) {
	resetFlags()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(bytes.NewReader(nil))
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

var errBoom = errors.New("boom")
