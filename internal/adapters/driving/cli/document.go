package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
)

const timeLayout = "2006-01-02 15:04:05"

var documentJSON bool

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage ingested documents",
	Long:  `List, inspect or delete ingested documents.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document and its chunks",
	Long: `Removes every chunk of the document from the vector store and marks the
document deleted. A running ingestion of the document is cancelled first.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentDelete,
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Repair registry and vector store divergence",
	Long: `Compares each document's recorded chunk count with the vector store,
corrects mismatches and removes chunks that no live document owns.
'ragvis serve' runs this on the reconcile.schedule setting.`,
	Args: cobra.NoArgs,
	RunE: runReconcile,
}

func init() {
	documentListCmd.Flags().BoolVar(&documentJSON, "json", false, "output as JSON")

	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	requires(needsCore, documentListCmd, documentGetCmd, documentDeleteCmd, reconcileCmd)
	rootCmd.AddCommand(documentCmd)
	rootCmd.AddCommand(reconcileCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docs, err := documentService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if documentJSON {
		infos := make([]map[string]any, len(docs))
		for i := range docs {
			infos[i] = map[string]any{
				"id":          docs[i].ID,
				"name":        docs[i].DisplayName,
				"status":      docs[i].Status,
				"chunk_count": docs[i].ChunkCount,
				"updated_at":  docs[i].UpdatedAt,
			}
		}
		data, err := json.MarshalIndent(infos, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal documents: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(docs) == 0 {
		cmd.Println("No documents found.")
		return nil
	}

	cmd.Println("Documents:")
	cmd.Println()
	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
		cmd.Printf("    Name:   %s\n", docs[i].DisplayName)
		cmd.Printf("    Status: %s\n", docs[i].Status)
		if docs[i].Status == domain.StatusReady {
			cmd.Printf("    Chunks: %d\n", docs[i].ChunkCount)
		}
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	doc, err := documentService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Name:     %s\n", doc.DisplayName)
	cmd.Printf("  Type:     %s\n", doc.MIMEType)
	cmd.Printf("  Status:   %s\n", doc.Status)
	cmd.Printf("  Chunks:   %d\n", doc.ChunkCount)
	cmd.Printf("  Created:  %s\n", doc.CreatedAt.Format(timeLayout))
	cmd.Printf("  Updated:  %s\n", doc.UpdatedAt.Format(timeLayout))
	if doc.LastError != "" {
		cmd.Printf("  Error:    %s\n", doc.LastError)
	}
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docID := args[0]
	if err := documentService.Delete(cmd.Context(), docID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Document %s deleted.\n", docID)
	return nil
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	report, err := documentService.Reconcile(cmd.Context())
	if report != nil {
		cmd.Printf("Checked %d documents.\n", report.Checked)
		for i := range report.Fixed {
			cmd.Printf("  fixed: %s\n", report.Fixed[i].Error())
		}
		for _, id := range report.OrphansRemoved {
			cmd.Printf("  removed orphaned chunks of %s\n", id)
		}
		if len(report.Fixed) == 0 && len(report.OrphansRemoved) == 0 {
			cmd.Println("Registry and vector store are consistent.")
		}
	}
	if err != nil {
		return fmt.Errorf("reconcile incomplete: %w", err)
	}
	return nil
}
