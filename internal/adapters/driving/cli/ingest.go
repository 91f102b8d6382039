package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
	"github.com/SanjayDoppalapudi/RAG/internal/core/ports/driving"
	"github.com/SanjayDoppalapudi/RAG/internal/parsers"
)

// watchSettle is how long a file must stay quiet before it is ingested.
const watchSettle = 500 * time.Millisecond

var (
	ingestID    string
	ingestName  string
	ingestWait  bool
	ingestWatch string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Ingest documents",
	Long: `Upload files for parsing, chunking and embedding.

Each file becomes one document. Supported types are plain text, Markdown,
HTML, PDF and DOCX. Without --wait the job handle is printed and the job continues
under 'ragvis serve' if this process exits first.

Examples:
  ragvis ingest notes.md report.pdf --wait
  ragvis ingest --id 3f2c... notes.md      # re-ingest an existing document
  ragvis ingest --watch ./inbox            # ingest files as they appear`,
	Args: validateIngestArgs,
	RunE: runIngest,
}

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Show ingestion job progress",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestID, "id", "", "re-ingest the document with this ID")
	ingestCmd.Flags().StringVar(&ingestName, "name", "", "display name (default: file name)")
	ingestCmd.Flags().BoolVarP(&ingestWait, "wait", "w", false, "wait for ingestion to finish")
	ingestCmd.Flags().StringVar(&ingestWatch, "watch", "", "watch a directory and ingest new or changed files")
	requires(needsCore, ingestCmd, statusCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(statusCmd)
}

func validateIngestArgs(_ *cobra.Command, args []string) error {
	if len(args) == 0 && ingestWatch == "" {
		return errors.New("requires at least one file or --watch")
	}
	if len(args) > 1 && (ingestID != "" || ingestName != "") {
		return errors.New("--id and --name apply to a single file")
	}
	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}
	ctx := cmd.Context()

	var errs []error
	for _, path := range args {
		job, err := ingestFile(ctx, path, ingestID, ingestName)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		cmd.Printf("Queued %s: job %s (document %s)\n", path, job.ID, job.DocumentID)

		if ingestWait {
			status, err := ingestionService.Wait(ctx, job.ID)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", path, err))
				continue
			}
			printJobStatus(cmd, status)
			if status.Job.State == domain.JobFailed {
				errs = append(errs, fmt.Errorf("%s: %s", path, status.Document.LastError))
			}
		}
	}

	if ingestWatch != "" {
		if err := watchDirectory(ctx, cmd, ingestWatch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ingestFile reads path and submits it. docID re-ingests an existing
// document; name overrides the display name.
func ingestFile(ctx context.Context, path, docID, name string) (*domain.IngestionJob, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	if name == "" {
		name = filepath.Base(path)
	}
	return ingestionService.Ingest(ctx, driving.IngestRequest{
		DocumentID:  docID,
		DisplayName: name,
		MIMEType:    parsers.DetectMIMEType(path),
		Content:     content,
	})
}

// watchDirectory ingests files created or modified in dir until ctx is
// cancelled. A file that changes again is re-ingested into the same document.
func watchDirectory(ctx context.Context, cmd *cobra.Command, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	cmd.Printf("Watching %s (Ctrl+C to stop)\n", dir)

	documents := make(map[string]string)
	pending := make(map[string]*time.Timer)
	ready := make(chan string)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if skipWatched(event.Name) {
				continue
			}
			path := event.Name
			if t, ok := pending[path]; ok {
				t.Reset(watchSettle)
				continue
			}
			pending[path] = time.AfterFunc(watchSettle, func() {
				select {
				case ready <- path:
				case <-ctx.Done():
				}
			})

		case path := <-ready:
			delete(pending, path)
			job, err := ingestFile(ctx, path, documents[path], "")
			if errors.Is(err, domain.ErrIngestionInProgress) {
				cmd.Printf("Skipped %s: previous ingestion still running\n", path)
				continue
			}
			if err != nil {
				cmd.Printf("Failed %s: %v\n", path, err)
				continue
			}
			documents[path] = job.DocumentID
			cmd.Printf("Queued %s: job %s (document %s)\n", path, job.ID, job.DocumentID)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			cmd.Printf("Watch error: %v\n", err)
		}
	}
}

// skipWatched ignores directories, hidden files and editor temp files.
func skipWatched(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp") {
		return true
	}
	info, err := os.Stat(path)
	return err != nil || info.IsDir()
}

func runStatus(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	status, err := ingestionService.JobStatus(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get job status: %w", err)
	}
	printJobStatus(cmd, status)
	return nil
}

func printJobStatus(cmd *cobra.Command, status *domain.JobStatus) {
	cmd.Printf("Job %s\n", status.Job.ID)
	cmd.Printf("  Document: %s (%s)\n", status.Document.DisplayName, status.Job.DocumentID)
	cmd.Printf("  State:    %s\n", status.Job.State)
	cmd.Printf("  Step:     %s\n", status.Job.CurrentStep)
	cmd.Printf("  Status:   %s\n", status.Document.Status)
	if status.Document.Status == domain.StatusReady {
		cmd.Printf("  Chunks:   %d\n", status.Document.ChunkCount)
	}
	if status.Document.LastError != "" {
		cmd.Printf("  Error:    %s\n", status.Document.LastError)
	} else if status.Job.LastError != "" {
		cmd.Printf("  Error:    %s\n", status.Job.LastError)
	}
}
