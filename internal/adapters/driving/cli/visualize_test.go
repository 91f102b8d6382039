package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
)

func TestVisualizeCmd_Summary(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("visualize", "--query", "capital?")
	require.NoError(t, err)

	assert.Empty(t, ts.visualization.session, "each run starts a new session")
	assert.Equal(t, "capital?", ts.visualization.query)
	assert.Contains(t, out, "Session: sess-1")
	assert.Contains(t, out, "2 chunks in 1 documents")
	assert.Contains(t, out, `Query "capital?" at (0.500, 0.250, 0.000)`)
}

func TestVisualizeCmd_NoSessionFlag(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("visualize", "--session", "sess-1")
	assert.Error(t, err)
}

func TestVisualizeCmd_EmptyCorpus(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.visualization.viz = &domain.Visualization{SessionID: "s", Version: "empty"}

	out, err := execute("visualize")
	require.NoError(t, err)
	assert.Contains(t, out, "No chunks stored yet")
}

func TestVisualizeCmd_JSON(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("visualize", "--json")
	require.NoError(t, err)

	var got visualizationJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "sess-1", got.SessionID)
	assert.Equal(t, [3]float64{2, 1, 0.5}, got.Variance)
	require.Len(t, got.Points, 3)
	assert.Equal(t, "chunk", got.Points[0].Kind)
	assert.Equal(t, 1.0, got.Points[0].X)
	assert.Equal(t, "query", got.Points[2].Kind)
	assert.Empty(t, got.Points[2].DocumentID)
}

func TestVisualizeCmd_RejectsArgs(t *testing.T) {
	_, err := execute("visualize", "extra")
	require.Error(t, err)
}
