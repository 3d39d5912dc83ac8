package reporting

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fadedpez/agentledger/pkg/entities"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method string
	path   string
	body   map[string]interface{}
}

func newTestCluster(t *testing.T, status int) (*httptest.Server, func() []recordedRequest) {
	var mu sync.Mutex
	var requests []recordedRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		_ = json.Unmarshal(raw, &body)

		mu.Lock()
		requests = append(requests, recordedRequest{method: r.Method, path: r.URL.Path, body: body})
		mu.Unlock()

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(`{"result":"created"}`))
	}))
	t.Cleanup(server.Close)

	return server, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), requests...)
	}
}

func TestPublishInventoryUsesRowID(t *testing.T) {
	server, requests := newTestCluster(t, http.StatusCreated)
	publisher, err := NewElasticsearchPublisher(&ElasticsearchConfig{URL: server.URL, IndexPrefix: "test"})
	require.NoError(t, err)

	inventory := &entities.AdminScholarshipInventory{
		ID:                  "inv-1",
		UniversityID:        "univ-1",
		DegreeID:            "degree-1",
		DegreeName:          "Master",
		ApplicationYear:     2026,
		TotalApplications:   20,
		TotalFromUniversity: decimal.NewFromInt(5),
		MarginScholarships:  decimal.NewFromInt(1),
		Status:              entities.InventoryStatusActive,
		LastCalculatedAt:    time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, publisher.PublishInventory(context.Background(), inventory))

	recorded := requests()
	require.Len(t, recorded, 1)
	assert.Equal(t, http.MethodPut, recorded[0].method)
	assert.Equal(t, "/test_inventories/_doc/inv-1", recorded[0].path)
	assert.Equal(t, float64(20), recorded[0].body["total_applications"])
	assert.Equal(t, float64(5), recorded[0].body["total_scholarships_from_university"])
}

func TestPublishProjectionIndexesEachCombination(t *testing.T) {
	server, requests := newTestCluster(t, http.StatusCreated)
	publisher, err := NewElasticsearchPublisher(&ElasticsearchConfig{URL: server.URL})
	require.NoError(t, err)

	report := &entities.ProjectionReport{
		GeneratedAt: time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC),
		Projections: []*entities.SystemProjection{
			{UniversityID: "univ-1", DegreeID: "d1", StudentsPerSystemScholarship: 20, ProgressPercentage: decimal.NewFromInt(50)},
			{UniversityID: "univ-2", DegreeID: "d2", StudentsPerSystemScholarship: 8},
		},
	}
	require.NoError(t, publisher.PublishProjection(context.Background(), report))

	recorded := requests()
	require.Len(t, recorded, 2)
	assert.Equal(t, http.MethodPost, recorded[0].method)
	assert.Equal(t, "/agentledger_projections/_doc", recorded[0].path)
	assert.Equal(t, float64(20), recorded[0].body["students_per_system_scholarship"])
	assert.Equal(t, float64(50), recorded[0].body["progress_percentage"])
}

func TestPublishReportsClusterErrors(t *testing.T) {
	server, _ := newTestCluster(t, http.StatusBadRequest)
	publisher, err := NewElasticsearchPublisher(&ElasticsearchConfig{URL: server.URL})
	require.NoError(t, err)

	err = publisher.PublishInventory(context.Background(), &entities.AdminScholarshipInventory{ID: "inv-1"})
	assert.ErrorContains(t, err, "agentledger_inventories")
}
