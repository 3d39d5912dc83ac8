package requirements

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fadedpez/agentledger/pkg/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	doc := `{
		"uni-1": {
			"Bachelor": {"min_students": 5, "min_agent_scholarships": 4},
			"Master": {"min_students": "8", "min_agent_scholarships": "4"}
		},
		"uni-2": {
			"PhD": {"min_students": null}
		}
	}`

	table, err := Parse([]byte(doc))
	require.NoError(t, err)

	req, ok := table.Lookup("uni-1", "Bachelor")
	require.True(t, ok)
	assert.Equal(t, entities.ScholarshipRequirement{MinStudents: 5, MinAgentScholarships: 4}, req)

	req, ok = table.Lookup("uni-1", "  master ")
	require.True(t, ok, "degree names match case-insensitively")
	assert.Equal(t, 8, req.MinStudents)

	req, ok = table.Lookup("uni-2", "PhD")
	require.True(t, ok)
	assert.Zero(t, req.MinStudents)

	_, ok = table.Lookup("uni-1", "Diploma")
	assert.False(t, ok)
}

func TestParseRejectsGarbageThreshold(t *testing.T) {
	_, err := Parse([]byte(`{"uni-1": {"Bachelor": {"min_students": "five"}}}`))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	table, err := Load(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	_, ok := table.Lookup("uni-1", "Bachelor")
	assert.False(t, ok)

	path := filepath.Join(dir, "requirements.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"uni-1": {"Bachelor": {"min_students": 5}}}`), 0644))

	table, err = Load(path)
	require.NoError(t, err)
	req, ok := table.Lookup("uni-1", "bachelor")
	require.True(t, ok)
	assert.Equal(t, 5, req.MinStudents)
}
