// Audit-trail inspection tool: lists recorded stream runs and shows the
// patch a run triggered.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/MrMan003/Nexus/internal/audit"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to the audit database")
	last := flag.Int("last", 20, "show N most recent runs")
	runID := flag.String("run", "", "show single run detail")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: nexus-inspect --db path/to/audit.db [--last N] [--run id] [--json]")
		os.Exit(2)
	}

	store, err := audit.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *runID != "" {
		err = runDetailMode(store, *runID, *jsonOut)
	} else {
		err = runListMode(store, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

func runListMode(store *audit.Store, last int, jsonOut bool) error {
	runs, err := store.ListRuns(last)
	if err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tPROJECT\tSOURCE\tDEVIATION\tALERT\tTRIGGER\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f%%\t%s\t%v\t%s\n",
			shortID(r.RunID), r.ProjectID, r.Source, r.DeviationPercent,
			r.AlertLevel, r.TriggerRecal, r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

// #endregion list-mode

// #region detail-mode

func runDetailMode(store *audit.Store, runID string, jsonOut bool) error {
	run, err := store.GetRun(runID)
	if err != nil {
		return err
	}
	patch, hasPatch, err := store.GetPatch(runID)
	if err != nil {
		return err
	}

	if jsonOut {
		detail := map[string]any{"run": run}
		if hasPatch {
			detail["patch"] = patch
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(detail)
	}

	fmt.Printf("Run %s\n", run.RunID)
	fmt.Printf("  Project:    %s\n", run.ProjectID)
	fmt.Printf("  Source:     %s (%d readings against SBC %g)\n", run.Source, run.ReadingCount, run.DesignSBC)
	fmt.Printf("  Deviation:  %.2f%% [%s]\n", run.DeviationPercent, run.AlertLevel)
	fmt.Printf("  Triggered:  %v\n", run.TriggerRecal)
	fmt.Printf("  Created:    %s\n", run.CreatedAt.Format("2006-01-02 15:04:05"))

	if !hasPatch {
		fmt.Println("  No patch recorded for this run.")
		return nil
	}

	fmt.Printf("\nPatch [%s]\n", patch.Severity)
	fmt.Printf("  Action:     %s\n", patch.StructuralAction)
	fmt.Printf("  Depth:      +%dmm | Piles: +%d\n", patch.AddDepthMM, patch.AddPiles)
	fmt.Printf("  Risk band:  %s | Cost delta: +%.2f Cr\n", patch.NewRiskBand, patch.CostDeltaCr)
	fmt.Printf("  Approval:   %v | Enriched: %v\n", patch.RequiresApproval, patch.Enriched)
	return nil
}

// #endregion detail-mode

// #region helpers

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion helpers
