package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestIngestCmd_Use(t *testing.T) {
	assert.Equal(t, "ingest [file...]", ingestCmd.Use)
}

func TestIngestCmd_HelpListsParsedTypes(t *testing.T) {
	for _, kind := range []string{"plain text", "Markdown", "HTML", "PDF", "DOCX"} {
		assert.Contains(t, ingestCmd.Long, kind)
	}
}

func TestIngestCmd_RequiresFileOrWatch(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("ingest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least one file or --watch")
}

func TestIngestCmd_IDWithManyFiles(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("ingest", "--id", "doc-1", "a.txt", "b.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "single file")
}

func TestIngestCmd_QueuesFile(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	path := writeTemp(t, "notes.md", "# Title\n\nBody")

	out, err := execute("ingest", path)
	require.NoError(t, err)

	assert.Contains(t, out, "Queued")
	assert.Contains(t, out, "job-1")

	reqs := ts.ingestion.received()
	require.Len(t, reqs, 1)
	assert.Equal(t, "notes.md", reqs[0].DisplayName)
	assert.Equal(t, "text/markdown", reqs[0].MIMEType)
	assert.Equal(t, []byte("# Title\n\nBody"), reqs[0].Content)
	assert.Empty(t, reqs[0].DocumentID)
}

func TestIngestCmd_IDAndName(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	path := writeTemp(t, "notes.txt", "hello")

	_, err := execute("ingest", "--id", "doc-1", "--name", "My Notes", path)
	require.NoError(t, err)

	reqs := ts.ingestion.received()
	require.Len(t, reqs, 1)
	assert.Equal(t, "doc-1", reqs[0].DocumentID)
	assert.Equal(t, "My Notes", reqs[0].DisplayName)
}

func TestIngestCmd_Wait(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	path := writeTemp(t, "notes.txt", "hello")

	out, err := execute("ingest", "--wait", path)
	require.NoError(t, err)
	assert.Contains(t, out, "State:    done")
	assert.Contains(t, out, "Chunks:   3")
}

func TestIngestCmd_WaitReportsFailure(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.ingestion.status.Job.State = domain.JobFailed
	ts.ingestion.status.Document.Status = domain.StatusFailed
	ts.ingestion.status.Document.LastError = "parse: no text extracted"
	path := writeTemp(t, "scan.pdf", "%PDF-1.4")

	out, err := execute("ingest", "--wait", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no text extracted")
	assert.Contains(t, out, "Error:    parse: no text extracted")
}

func TestIngestCmd_MissingFileContinues(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	good := writeTemp(t, "good.txt", "hello")

	_, err := execute("ingest", "/nonexistent/file.txt", good)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/nonexistent/file.txt")
	assert.Len(t, ts.ingestion.received(), 1, "remaining files are still ingested")
}

func TestIngestCmd_RejectedByService(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.ingestion.err = domain.ErrIngestionInProgress
	path := writeTemp(t, "notes.txt", "hello")

	_, err := execute("ingest", path)
	assert.ErrorIs(t, err, domain.ErrIngestionInProgress)
}

func TestStatusCmd(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("status", "job-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Job job-1")
	assert.Contains(t, out, "Test Document 1")
	assert.Contains(t, out, "Status:   ready")

	_, err = execute("status", "job-unknown")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSkipWatched(t *testing.T) {
	dir := t.TempDir()
	regular := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(regular, []byte("x"), 0o600))

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"regular file", regular, false},
		{"directory", dir, true},
		{"hidden", filepath.Join(dir, ".doc.txt"), true},
		{"backup", filepath.Join(dir, "doc.txt~"), true},
		{"swap", filepath.Join(dir, "doc.txt.swp"), true},
		{"missing", filepath.Join(dir, "gone.txt"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, skipWatched(tt.path))
		})
	}
}

func TestWatchDirectory_IngestsNewAndChangedFiles(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	dir := t.TempDir()
	cmd := &cobra.Command{}
	buf := &syncBuffer{}
	cmd.SetOut(buf)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watchDirectory(ctx, cmd, dir) }()

	require.Eventually(t, func() bool {
		return strings.Contains(buf.String(), "Watching")
	}, 5*time.Second, 10*time.Millisecond)

	path := filepath.Join(dir, "inbox.txt")
	require.NoError(t, os.WriteFile(path, []byte("first"), 0o600))
	require.Eventually(t, func() bool {
		return len(ts.ingestion.received()) >= 1
	}, 5*time.Second, 50*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("second version"), 0o600))
	require.Eventually(t, func() bool {
		reqs := ts.ingestion.received()
		return len(reqs) >= 2 && string(reqs[len(reqs)-1].Content) == "second version"
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	reqs := ts.ingestion.received()
	assert.Empty(t, reqs[0].DocumentID)
	assert.Equal(t, "doc-new", reqs[len(reqs)-1].DocumentID, "changes re-ingest the same document")
	assert.Contains(t, buf.String(), "Watching "+dir)
}

// syncBuffer is a bytes.Buffer safe for concurrent use.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
