package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
)

var (
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question about ingested documents",
	Long: `Answers a question using only the chunks retrieved from ingested documents
and lists the sources the answer was grounded on.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of chunks to retrieve (default from settings)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the answer as JSON")
	requires(needsCore, queryCmd)
	rootCmd.AddCommand(queryCmd)
}

// answerJSON is the JSON shape of a query result.
type answerJSON struct {
	Question  string             `json:"question"`
	Answer    string             `json:"answer"`
	NoContext bool               `json:"no_context"`
	Sources   []domain.SourceRef `json:"sources"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	if answerService == nil {
		return errors.New("answer service not configured")
	}

	question := strings.Join(args, " ")
	qc, err := answerService.Answer(cmd.Context(), question, queryTopK)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		data, err := json.MarshalIndent(answerJSON{
			Question:  question,
			Answer:    qc.Answer,
			NoContext: qc.NoContext,
			Sources:   qc.Sources(),
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(qc.Answer)
	if qc.NoContext {
		return nil
	}
	cmd.Println()
	cmd.Println("Sources:")
	for i, src := range qc.Sources() {
		cmd.Printf("  [%d] %s, chunk %d (score %.3f)\n", i+1, src.DocumentName, src.SequenceIndex, src.Score)
	}
	return nil
}
