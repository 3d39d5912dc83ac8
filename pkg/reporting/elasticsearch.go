// Package reporting indexes inventory and projection snapshots into
// Elasticsearch for dashboards
package reporting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/fadedpez/agentledger/pkg/entities"
)

//go:generate mockgen -source=$GOFILE -destination=mock/mock.go -package=mock_reporting
type Publisher interface {
	PublishInventory(ctx context.Context, inventory *entities.AdminScholarshipInventory) error
	PublishProjection(ctx context.Context, report *entities.ProjectionReport) error
}

// ElasticsearchConfig holds configuration options for the Elasticsearch publisher
type ElasticsearchConfig struct {
	URL         string
	Username    string
	Password    string
	IndexPrefix string
	Transport   http.RoundTripper // Optional, used by tests
}

// ElasticsearchPublisher implements Publisher
type ElasticsearchPublisher struct {
	client      *elasticsearch.Client
	indexPrefix string
}

// NewElasticsearchPublisher creates a publisher for the cluster at config.URL
func NewElasticsearchPublisher(config *ElasticsearchConfig) (*ElasticsearchPublisher, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{config.URL},
		Transport: config.Transport,
	}

	if config.Username != "" && config.Password != "" {
		cfg.Username = config.Username
		cfg.Password = config.Password
	}

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating Elasticsearch client: %w", err)
	}

	prefix := config.IndexPrefix
	if prefix == "" {
		prefix = "agentledger"
	}

	return &ElasticsearchPublisher{client: client, indexPrefix: prefix}, nil
}

// InventoryIndex is the index holding the latest state of every inventory row
func (p *ElasticsearchPublisher) InventoryIndex() string {
	return p.indexPrefix + "_inventories"
}

// ProjectionIndex is the index holding one document per projection run and combination
func (p *ElasticsearchPublisher) ProjectionIndex() string {
	return p.indexPrefix + "_projections"
}

// PublishInventory indexes the inventory under its row ID so dashboards see the latest recompute
func (p *ElasticsearchPublisher) PublishInventory(ctx context.Context, inventory *entities.AdminScholarshipInventory) error {
	doc := newInventoryDocument(inventory)
	return p.index(ctx, p.InventoryIndex(), inventory.ID, doc)
}

// PublishProjection indexes one document per projected (university, degree)
func (p *ElasticsearchPublisher) PublishProjection(ctx context.Context, report *entities.ProjectionReport) error {
	for _, projection := range report.Projections {
		doc := newProjectionDocument(report.GeneratedAt, projection)
		if err := p.index(ctx, p.ProjectionIndex(), "", doc); err != nil {
			return err
		}
	}
	return nil
}

func (p *ElasticsearchPublisher) index(ctx context.Context, index, documentID string, doc interface{}) error {
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("error marshaling document: %w", err)
	}

	opts := []func(*esapi.IndexRequest){
		p.client.Index.WithContext(ctx),
	}
	if documentID != "" {
		opts = append(opts, p.client.Index.WithDocumentID(documentID))
	}

	res, err := p.client.Index(index, bytes.NewReader(jsonData), opts...)
	if err != nil {
		return fmt.Errorf("error indexing document into %s: %w", index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing document into %s: %s", index, res.String())
	}
	return nil
}

type inventoryDocument struct {
	InventoryID               string                 `json:"inventory_id"`
	UniversityID              string                 `json:"university_id"`
	DegreeID                  string                 `json:"degree_id"`
	DegreeName                string                 `json:"degree_name"`
	ApplicationYear           int                    `json:"application_year"`
	TotalApplications         int                    `json:"total_applications"`
	TotalFromUniversity       float64                `json:"total_scholarships_from_university"`
	ScholarshipsGivenToAgents float64                `json:"scholarships_given_to_agents"`
	MarginScholarships        float64                `json:"margin_scholarships"`
	UnclaimedScholarships     float64                `json:"unclaimed_scholarships"`
	AvailableScholarships     float64                `json:"available_scholarships"`
	CalculationDetails        map[string]interface{} `json:"calculation_details,omitempty"`
	Status                    string                 `json:"status"`
	CalculatedAt              time.Time              `json:"calculated_at"`
}

func newInventoryDocument(inv *entities.AdminScholarshipInventory) *inventoryDocument {
	return &inventoryDocument{
		InventoryID:               inv.ID,
		UniversityID:              inv.UniversityID,
		DegreeID:                  inv.DegreeID,
		DegreeName:                inv.DegreeName,
		ApplicationYear:           inv.ApplicationYear,
		TotalApplications:         inv.TotalApplications,
		TotalFromUniversity:       inv.TotalFromUniversity.InexactFloat64(),
		ScholarshipsGivenToAgents: inv.ScholarshipsGivenToAgents.InexactFloat64(),
		MarginScholarships:        inv.MarginScholarships.InexactFloat64(),
		UnclaimedScholarships:     inv.UnclaimedScholarships.InexactFloat64(),
		AvailableScholarships:     inv.AvailableScholarships.InexactFloat64(),
		CalculationDetails:        inv.CalculationDetails,
		Status:                    string(inv.Status),
		CalculatedAt:              inv.LastCalculatedAt,
	}
}

type agentContributionDocument struct {
	AgentID         string `json:"agent_id"`
	TotalPoints     int    `json:"total_points"`
	CompletedCycles int    `json:"completed_cycles"`
	PartialProgress int    `json:"partial_progress"`
}

type projectionDocument struct {
	GeneratedAt                  time.Time                   `json:"generated_at"`
	UniversityID                 string                      `json:"university_id"`
	DegreeID                     string                      `json:"degree_id"`
	DegreeName                   string                      `json:"degree_name"`
	ApplicationYear              int                         `json:"application_year,omitempty"`
	UniversityThreshold          int                         `json:"university_threshold"`
	AgentThreshold               int                         `json:"agent_threshold"`
	GCD                          int                         `json:"gcd"`
	AgentsNeeded                 int                         `json:"agents_needed"`
	StudentsPerSystemScholarship int                         `json:"students_per_system_scholarship"`
	TotalStudents                int                         `json:"total_students"`
	SystemScholarshipsEarned     int                         `json:"system_scholarships_earned"`
	CurrentCycleProgress         int                         `json:"current_cycle_progress"`
	ProgressPercentage           float64                     `json:"progress_percentage"`
	Agents                       []agentContributionDocument `json:"agents"`
}

func newProjectionDocument(generatedAt time.Time, p *entities.SystemProjection) *projectionDocument {
	agents := make([]agentContributionDocument, 0, len(p.Agents))
	for _, a := range p.Agents {
		agents = append(agents, agentContributionDocument{
			AgentID:         a.AgentID,
			TotalPoints:     a.TotalPoints,
			CompletedCycles: a.CompletedCycles,
			PartialProgress: a.PartialProgress,
		})
	}

	return &projectionDocument{
		GeneratedAt:                  generatedAt,
		UniversityID:                 p.UniversityID,
		DegreeID:                     p.DegreeID,
		DegreeName:                   p.DegreeName,
		ApplicationYear:              p.ApplicationYear,
		UniversityThreshold:          p.UniversityThreshold,
		AgentThreshold:               p.AgentThreshold,
		GCD:                          p.GCD,
		AgentsNeeded:                 p.AgentsNeeded,
		StudentsPerSystemScholarship: p.StudentsPerSystemScholarship,
		TotalStudents:                p.TotalStudents,
		SystemScholarshipsEarned:     p.SystemScholarshipsEarned,
		CurrentCycleProgress:         p.CurrentCycleProgress,
		ProgressPercentage:           p.ProgressPercentage.InexactFloat64(),
		Agents:                       agents,
	}
}
