package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
)

var (
	vizQuery string
	vizJSON  bool
)

var visualizeCmd = &cobra.Command{
	Use:   "visualize",
	Short: "Project the corpus into 3D coordinates",
	Long: `Projects every stored chunk into three dimensions with principal component
analysis. With --query the question is embedded and placed in the same space.

Each run fits a fresh basis. To place further questions in a stable plot, use
the MCP visualize tool under 'ragvis serve', which keeps the session's basis
until the corpus changes.

The text output summarises the projection; use --json for the full point set
to feed a plotting tool.`,
	Args: cobra.NoArgs,
	RunE: runVisualize,
}

func init() {
	visualizeCmd.Flags().StringVarP(&vizQuery, "query", "q", "", "question to place among the chunks")
	visualizeCmd.Flags().BoolVar(&vizJSON, "json", false, "output all points as JSON")
	requires(needsCore, visualizeCmd)
	rootCmd.AddCommand(visualizeCmd)
}

// pointJSON is the JSON shape of one projected point.
type pointJSON struct {
	ID         string  `json:"id"`
	Kind       string  `json:"kind"`
	DocumentID string  `json:"document_id,omitempty"`
	Group      string  `json:"group"`
	Label      string  `json:"label"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
}

// visualizationJSON is the JSON shape of a visualization.
type visualizationJSON struct {
	SessionID string      `json:"session_id"`
	Version   string      `json:"version"`
	Variance  [3]float64  `json:"variance"`
	Points    []pointJSON `json:"points"`
}

func runVisualize(cmd *cobra.Command, _ []string) error {
	if visualizationService == nil {
		return errors.New("visualization service not configured")
	}

	viz, err := visualizationService.Visualize(cmd.Context(), "", vizQuery)
	if err != nil {
		return fmt.Errorf("visualization failed: %w", err)
	}

	if vizJSON {
		out := visualizationJSON{
			SessionID: viz.SessionID,
			Version:   viz.Version,
			Variance:  viz.Variance,
			Points:    make([]pointJSON, len(viz.Points)),
		}
		for i, p := range viz.Points {
			out.Points[i] = pointJSON{
				ID:         p.ID,
				Kind:       string(p.Kind),
				DocumentID: p.DocumentID,
				Group:      p.Group,
				Label:      p.Label,
				X:          p.Point[0],
				Y:          p.Point[1],
				Z:          p.Point[2],
			}
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal visualization: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printVisualizationSummary(cmd, viz)
	return nil
}

func printVisualizationSummary(cmd *cobra.Command, viz *domain.Visualization) {
	cmd.Printf("Session: %s\n", viz.SessionID)
	cmd.Printf("Corpus:  %s\n", viz.Version)

	groups := make(map[string]int)
	var query *domain.ProjectedPoint
	chunks := 0
	for i := range viz.Points {
		p := &viz.Points[i]
		if p.Kind == domain.PointKindQuery {
			query = p
			continue
		}
		chunks++
		groups[p.Group]++
	}

	if chunks == 0 {
		cmd.Println("\nNo chunks stored yet. Ingest documents first.")
	} else {
		cmd.Printf("Variance: %.4f %.4f %.4f\n\n", viz.Variance[0], viz.Variance[1], viz.Variance[2])
		names := make([]string, 0, len(groups))
		for name := range groups {
			names = append(names, name)
		}
		sort.Strings(names)
		cmd.Printf("%d chunks in %d documents:\n", chunks, len(names))
		for _, name := range names {
			cmd.Printf("  %-40s %d\n", name, groups[name])
		}
	}

	if query != nil {
		cmd.Printf("\nQuery %q at (%.3f, %.3f, %.3f)\n",
			query.Label, query.Point[0], query.Point[1], query.Point[2])
	}
}
