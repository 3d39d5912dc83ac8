package projection

import (
	"context"
	"sort"
	"time"

	"github.com/fadedpez/agentledger/internal/logging"
	"github.com/fadedpez/agentledger/internal/types"
	"github.com/fadedpez/agentledger/pkg/entities"
	"github.com/fadedpez/agentledger/pkg/reporting"
	scholarshipRepo "github.com/fadedpez/agentledger/pkg/repositories/scholarship"
	"github.com/fadedpez/agentledger/pkg/requirements"
	"github.com/shopspring/decimal"
)

// GCD returns the greatest common divisor of a and b
func GCD(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// StudentsPerSystemScholarship returns the smallest number of students after
// which both the university and every agent have completed whole cycles
func StudentsPerSystemScholarship(universityThreshold, agentThreshold int) (gcd, agentsNeeded, students int) {
	gcd = GCD(universityThreshold, agentThreshold)
	agentsNeeded = universityThreshold / gcd
	return gcd, agentsNeeded, agentsNeeded * agentThreshold
}

// Service computes the read-only system scholarship projection
type Service struct {
	repo         scholarshipRepo.Repository
	requirements requirements.Source
	publisher    reporting.Publisher
	logger       *logging.Logger
}

// NewService creates a new projection service. publisher may be nil.
func NewService(repo scholarshipRepo.Repository, reqs requirements.Source, publisher reporting.Publisher, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default
	}
	return &Service{
		repo:         repo,
		requirements: reqs,
		publisher:    publisher,
		logger:       logger,
	}
}

type pair struct {
	universityID string
	degreeID     string
}

type tally struct {
	degreeName string
	total      int
	agents     map[string]int
}

// Project builds the projection of every (university, degree) with points in
// year, or across all years when year is 0. Nothing is persisted.
func (s *Service) Project(ctx context.Context, year int, now time.Time) (*entities.ProjectionReport, error) {
	points, err := s.repo.ListPoints(ctx, scholarshipRepo.PointFilter{ApplicationYear: year})
	if err != nil {
		return nil, types.WrapError(types.ErrDatabaseError, "error listing points", err)
	}

	tallies := make(map[pair]*tally)
	for _, p := range points {
		k := pair{universityID: p.UniversityID, degreeID: p.DegreeID}
		t, ok := tallies[k]
		if !ok {
			t = &tally{degreeName: p.DegreeName, agents: make(map[string]int)}
			tallies[k] = t
		}
		t.total++
		t.agents[p.AgentID]++
	}

	keys := make([]pair, 0, len(tallies))
	for k := range tallies {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].universityID != keys[j].universityID {
			return keys[i].universityID < keys[j].universityID
		}
		return keys[i].degreeID < keys[j].degreeID
	})

	report := &entities.ProjectionReport{GeneratedAt: now}
	for _, k := range keys {
		t := tallies[k]
		req, ok := s.requirements.Lookup(k.universityID, t.degreeName)
		reason := ""
		switch {
		case !ok:
			reason = "no scholarship requirement configured"
		case req.MinAgentScholarships <= 0:
			reason = "university threshold is not set"
		case req.MinStudents <= 0:
			reason = "agent threshold is not set"
		}
		if reason != "" {
			s.logger.Info("Skipping projection for %s %s: %s", k.universityID, t.degreeName, reason)
			report.Skipped = append(report.Skipped, entities.SkippedProjection{
				UniversityID: k.universityID,
				DegreeID:     k.degreeID,
				DegreeName:   t.degreeName,
				Reason:       reason,
			})
			continue
		}

		report.Projections = append(report.Projections,
			project(k.universityID, k.degreeID, t, year, req.MinAgentScholarships, req.MinStudents))
	}

	if s.publisher != nil {
		if err := s.publisher.PublishProjection(ctx, report); err != nil {
			s.logger.Warn("Failed to publish projection: %v", err)
		}
	}
	return report, nil
}

func project(universityID, degreeID string, t *tally, year, universityThreshold, agentThreshold int) *entities.SystemProjection {
	gcd, agentsNeeded, studentsPer := StudentsPerSystemScholarship(universityThreshold, agentThreshold)
	progress := t.total % studentsPer

	projection := &entities.SystemProjection{
		UniversityID:                 universityID,
		DegreeID:                     degreeID,
		DegreeName:                   t.degreeName,
		ApplicationYear:              year,
		UniversityThreshold:          universityThreshold,
		AgentThreshold:               agentThreshold,
		GCD:                          gcd,
		AgentsNeeded:                 agentsNeeded,
		StudentsPerSystemScholarship: studentsPer,
		TotalStudents:                t.total,
		SystemScholarshipsEarned:     t.total / studentsPer,
		CurrentCycleProgress:         progress,
		ProgressPercentage: decimal.NewFromInt(int64(progress)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(studentsPer))).
			Round(2),
	}

	for agentID, total := range t.agents {
		projection.Agents = append(projection.Agents, entities.AgentContribution{
			AgentID:         agentID,
			TotalPoints:     total,
			CompletedCycles: total / agentThreshold,
			PartialProgress: total % agentThreshold,
		})
	}
	sort.Slice(projection.Agents, func(i, j int) bool {
		return projection.Agents[i].AgentID < projection.Agents[j].AgentID
	})
	return projection
}
