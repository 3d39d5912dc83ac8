// Package requirements loads the per-university scholarship thresholds.
//
// The JSON document maps university ID to degree name to thresholds:
//
//	{"uni-1": {"Bachelor": {"min_students": 5, "min_agent_scholarships": 4}}}
//
// A missing degree means no scholarship accrual for that degree.
package requirements

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/fadedpez/agentledger/pkg/entities"
)

// Source provides the configured thresholds for a (university, degree name)
type Source interface {
	Lookup(universityID, degreeName string) (entities.ScholarshipRequirement, bool)
}

// threshold accepts both JSON numbers and numeric strings
type threshold int

func (t *threshold) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*t = 0
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid threshold %q: %w", s, err)
		}
		*t = threshold(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*t = threshold(n)
	return nil
}

type entry struct {
	MinStudents          threshold `json:"min_students"`
	MinAgentScholarships threshold `json:"min_agent_scholarships"`
}

// Table is an in-memory requirements source
type Table struct {
	mu    sync.RWMutex
	items map[string]map[string]entities.ScholarshipRequirement
}

// NewTable creates an empty table
func NewTable() *Table {
	return &Table{items: make(map[string]map[string]entities.ScholarshipRequirement)}
}

// Parse builds a table from a requirements JSON document
func Parse(data []byte) (*Table, error) {
	var raw map[string]map[string]entry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("error parsing scholarship requirements: %w", err)
	}

	table := NewTable()
	for universityID, degrees := range raw {
		for degreeName, e := range degrees {
			table.Set(universityID, degreeName, entities.ScholarshipRequirement{
				MinStudents:          int(e.MinStudents),
				MinAgentScholarships: int(e.MinAgentScholarships),
			})
		}
	}
	return table, nil
}

// Load reads a requirements JSON file. A missing file yields an empty table.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewTable(), nil
		}
		return nil, fmt.Errorf("error reading scholarship requirements: %w", err)
	}
	return Parse(data)
}

// Set configures the thresholds for a university degree
func (t *Table) Set(universityID, degreeName string, req entities.ScholarshipRequirement) {
	t.mu.Lock()
	defer t.mu.Unlock()

	degrees, ok := t.items[universityID]
	if !ok {
		degrees = make(map[string]entities.ScholarshipRequirement)
		t.items[universityID] = degrees
	}
	degrees[normalize(degreeName)] = req
}

// Lookup implements Source. Degree names match case-insensitively.
func (t *Table) Lookup(universityID, degreeName string) (entities.ScholarshipRequirement, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	req, ok := t.items[universityID][normalize(degreeName)]
	return req, ok
}

func normalize(degreeName string) string {
	return strings.ToLower(strings.TrimSpace(degreeName))
}
