package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/fadedpez/agentledger/internal/app"
	"github.com/fadedpez/agentledger/internal/config"
	"github.com/fadedpez/agentledger/pkg/academic"
	"github.com/fadedpez/agentledger/pkg/entities"
)

func main() {
	inventoriesCmd := flag.NewFlagSet("recalculate-inventories", flag.ExitOnError)
	inventoriesYear := inventoriesCmd.Int("year", 0, "Cycle year (default: current cycle)")

	fixCmd := flag.NewFlagSet("fix-scholarships", flag.ExitOnError)
	fixAgent := fixCmd.String("agent", "", "Agent ID (default: every agent)")

	expireCmd := flag.NewFlagSet("expire-points", flag.ExitOnError)
	resetCmd := flag.NewFlagSet("reset-cycle", flag.ExitOnError)

	projectionCmd := flag.NewFlagSet("projection", flag.ExitOnError)
	projectionYear := projectionCmd.Int("year", 0, "Cycle year (default: every year)")

	progressCmd := flag.NewFlagSet("progress", flag.ExitOnError)
	progressAgent := progressCmd.String("agent", "", "Agent ID")

	if len(os.Args) < 2 || os.Args[1] == "help" {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	ledger, err := app.New(cfg, logger)
	if err != nil {
		fmt.Printf("Error starting ledger: %v\n", err)
		os.Exit(1)
	}
	defer ledger.Close()

	ctx := context.Background()
	now := ledger.Now()

	switch os.Args[1] {
	case "recalculate-inventories":
		inventoriesCmd.Parse(os.Args[2:])
		year := *inventoriesYear
		if year == 0 {
			year = academic.CycleYear(now)
		}
		summary, err := ledger.Inventories.RecalculateAllInventories(ctx, year, now)
		exitOnError(err)
		printSummary(fmt.Sprintf("Inventories for %d", year), summary)

	case "fix-scholarships":
		fixCmd.Parse(os.Args[2:])
		summary, err := ledger.Scholarships.FixMissingScholarships(ctx, *fixAgent, now)
		exitOnError(err)
		printSummary("Scholarship repair", summary)

	case "expire-points":
		expireCmd.Parse(os.Args[2:])
		count, err := ledger.Scholarships.ExpireOldPoints(ctx, now)
		exitOnError(err)
		fmt.Printf("Expired %d point(s)\n", count)

	case "reset-cycle":
		resetCmd.Parse(os.Args[2:])
		reset, err := ledger.Scholarships.ResetForNewCycle(ctx, now)
		exitOnError(err)
		fmt.Printf("Cycle %d: expired %d commission(s) and %d point(s), closed %d inventor(ies)\n",
			reset.CycleYear, reset.CommissionsExpired, reset.PointsExpired, reset.InventoriesClosed)

	case "projection":
		projectionCmd.Parse(os.Args[2:])
		report, err := ledger.Projections.Project(ctx, *projectionYear, now)
		exitOnError(err)
		printProjection(report)

	case "progress":
		progressCmd.Parse(os.Args[2:])
		if *progressAgent == "" {
			fmt.Println("Error: -agent is required")
			progressCmd.Usage()
			os.Exit(1)
		}
		progress, err := ledger.Scholarships.AgentProgress(ctx, *progressAgent)
		exitOnError(err)
		for _, p := range progress {
			if !p.ThresholdConfigured {
				fmt.Printf("%s %s: %d active point(s), no scholarship configured\n", p.UniversityID, p.DegreeName, p.ActivePoints)
				continue
			}
			fmt.Printf("%s %s: %d/%d points, %d to next, earned=%d used=%d expired=%d\n",
				p.UniversityID, p.DegreeName, p.ActivePoints, p.Threshold, p.PointsToNext,
				p.EarnedCommissions, p.UsedCommissions, p.ExpiredCommissions)
		}

	default:
		fmt.Printf("Error: Unknown command '%s'\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  reconcile recalculate-inventories [-year N]  - Recompute admin inventories")
	fmt.Println("  reconcile fix-scholarships [-agent ID]       - Backfill missing scholarship commissions")
	fmt.Println("  reconcile expire-points                      - Expire points past their cutoff")
	fmt.Println("  reconcile reset-cycle                        - Close out prior accrual cycles")
	fmt.Println("  reconcile projection [-year N]               - Print the system scholarship projection")
	fmt.Println("  reconcile progress -agent ID                 - Print an agent's scholarship progress")
	fmt.Println("  reconcile help                               - Show this help")
}

func exitOnError(err error) {
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func printSummary(title string, summary *entities.RepairSummary) {
	fmt.Printf("%s: processed=%d created=%d failed=%d\n", title, summary.Processed, summary.Created, summary.Failed)
	for _, detail := range summary.Details {
		fmt.Println("  " + detail)
	}
	for _, e := range summary.Errors {
		fmt.Println("  error: " + e)
	}
	if summary.Failed > 0 {
		os.Exit(2)
	}
}

func printProjection(report *entities.ProjectionReport) {
	for _, p := range report.Projections {
		fmt.Printf("%s %s: %d students, %d per system scholarship (gcd %d, %d agents), earned %d, progress %d (%s%%)\n",
			p.UniversityID, p.DegreeName, p.TotalStudents, p.StudentsPerSystemScholarship, p.GCD, p.AgentsNeeded,
			p.SystemScholarshipsEarned, p.CurrentCycleProgress, p.ProgressPercentage.StringFixed(2))
		for _, a := range p.Agents {
			fmt.Printf("    %s: %d points, %d completed, %d in progress\n", a.AgentID, a.TotalPoints, a.CompletedCycles, a.PartialProgress)
		}
	}
	if len(report.Skipped) > 0 {
		names := make([]string, 0, len(report.Skipped))
		for _, s := range report.Skipped {
			names = append(names, fmt.Sprintf("%s %s (%s)", s.UniversityID, s.DegreeName, s.Reason))
		}
		fmt.Println("Skipped: " + strings.Join(names, "; "))
	}
}
