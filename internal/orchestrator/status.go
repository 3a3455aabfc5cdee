package orchestrator

import (
	"fmt"
	"time"

	"github.com/snakada/ecbridge/internal/checkpoint"
	"github.com/snakada/ecbridge/internal/config"
	"github.com/snakada/ecbridge/internal/idmap"
)

// ShowStatus prints the most recent run and the ID map totals.
func ShowStatus(cfg *config.Config) error {
	ledger, err := checkpoint.New(cfg.Migration.DataDir)
	if err != nil {
		return err
	}
	defer ledger.Close()

	run, results, err := ledger.LatestRun()
	if err != nil {
		return err
	}
	if run == nil {
		fmt.Println("No migration runs recorded")
	} else {
		fmt.Printf("Run: %s\n", run.ID)
		fmt.Printf("Status: %s%s\n", run.Status, dryRunSuffix(run))
		fmt.Printf("Started: %s\n", run.StartedAt.Format(time.RFC3339))
		if run.CompletedAt != nil {
			fmt.Printf("Finished: %s (%s)\n",
				run.CompletedAt.Format(time.RFC3339),
				run.CompletedAt.Sub(run.StartedAt).Round(time.Second))
		}
		for _, r := range results {
			fmt.Printf("  %-10s %d created, %d linked, %d skipped, %d failed\n",
				r.Entity, r.Created, r.Linked, r.Skipped, r.Failed)
		}
	}

	m := idmap.Open(cfg.IDMapFile()).Map()
	fmt.Println()
	fmt.Println("ID map:")
	for _, t := range []idmap.Table{idmap.Products, idmap.Customers, idmap.Orders} {
		fmt.Printf("  %-10s %d migrated\n", t, m.Count(t))
	}
	if m.LocationID != 0 {
		fmt.Printf("  location   %d\n", m.LocationID)
	}
	return nil
}

// ShowHistory prints up to limit past runs, most recent first.
func ShowHistory(cfg *config.Config, limit int) error {
	ledger, err := checkpoint.New(cfg.Migration.DataDir)
	if err != nil {
		return err
	}
	defer ledger.Close()

	runs, err := ledger.Runs(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No migration runs recorded")
		return nil
	}

	for _, run := range runs {
		duration := "-"
		if run.CompletedAt != nil {
			duration = run.CompletedAt.Sub(run.StartedAt).Round(time.Second).String()
		}
		fmt.Printf("%s  %s  %-22s %s\n",
			run.ID, run.StartedAt.Format("2006-01-02 15:04"), run.Status+dryRunSuffix(&run), duration)

		results, err := ledger.EntityResults(run.ID)
		if err != nil {
			return err
		}
		for _, r := range results {
			fmt.Printf("    %-10s %d created, %d linked, %d skipped, %d failed\n",
				r.Entity, r.Created, r.Linked, r.Skipped, r.Failed)
		}
	}
	return nil
}

func dryRunSuffix(run *checkpoint.Run) string {
	if run.DryRun {
		return " (dry run)"
	}
	return ""
}
