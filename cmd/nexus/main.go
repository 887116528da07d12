// Demo entry point: runs the full closed loop for a sample project brief
// and prints each layer's result.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/MrMan003/Nexus/internal/audit"
	"github.com/MrMan003/Nexus/internal/config"
	"github.com/MrMan003/Nexus/internal/design"
	"github.com/MrMan003/Nexus/internal/narrative"
	"github.com/MrMan003/Nexus/internal/pipeline"
	"github.com/MrMan003/Nexus/internal/project"
	"github.com/MrMan003/Nexus/internal/recal"
	"github.com/MrMan003/Nexus/internal/report"
	"github.com/MrMan003/Nexus/internal/sensor"
	"github.com/MrMan003/Nexus/internal/twin"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "record runs to this audit database (empty = off)")
	seed := flag.Int64("seed", 0, "sensor stream seed (0 = random)")
	flag.Parse()

	// Best effort: a missing .env just means the environment is already set.
	_ = godotenv.Load()

	var store *audit.Store
	if *dbPath != "" {
		var err error
		store, err = audit.NewStore(*dbPath)
		if err != nil {
			log.Fatalf("open audit store: %v", err)
		}
		defer store.Close()
	}

	narrativeCfg := narrative.DefaultConfig()
	var (
		enricher recal.Enricher
		textgen  design.TextGen
		caller   twin.Caller
	)
	if narrativeCfg.Enabled && narrativeCfg.APIKey != "" {
		client := narrative.NewClient(narrativeCfg)
		enricher, textgen, caller = client, client, client
	}

	pipe := pipeline.New(
		design.NewGenerator(textgen),
		twin.NewEngine(caller),
		sensor.NewEngine(config.DefaultAlertThresholds()),
		recal.NewPolicy(config.DefaultSeverityThresholds(), enricher),
		store,
	)
	if *seed != 0 {
		pipe.StreamConfig.Seed = seed
	}

	brief := project.Input{
		ProjectID:   "LNT-HYD-2026-001",
		Structure:   "10-storey Residential Tower",
		SoilType:    "Black Cotton Soil",
		SeismicZone: "III",
		LoadKN:      2500.0,
		BudgetCr:    12.5,
		Season:      "Monsoon",
		Location:    "Hyderabad, Telangana",
		Vertical:    "Buildings & Factories",
		Notes:       "Adjacent to water body; high water table expected.",
	}

	header("NEXUS - Dynamic Engineering System")

	result, err := pipe.Run(context.Background(), brief)
	if err != nil {
		log.Fatalf("pipeline: %v", err)
	}

	step("STEP 1 - Generative Design")
	for _, v := range result.Variants {
		fmt.Printf("  [%s] %s | Depth: %gm | Piles: %d | Risk: %g/10 | Cost: %g Cr\n",
			v.ID, v.Name, v.DepthM, v.Piles, v.RiskScore, v.CostCr)
	}
	fmt.Printf("\n  Recommended: %s - %s\n", result.Recommended.ID, result.Recommended.Name)

	step("STEP 2 - Digital Twin Simulation (Monte Carlo)")
	fmt.Println(indent(report.TwinSummary(result.Simulation)))

	step("STEP 3 - Sensor Stream (Live Site Data)")
	fmt.Printf("  Last 5 readings: %s\n", report.RecentReadings(result.Stream, 5))
	fmt.Println(indent(report.StreamSummary(result.Stream)))

	if result.Patch != nil {
		step("STEP 4 - ADAPTIVE RECALIBRATION TRIGGERED")
		fmt.Println(indent(report.PatchSummary(*result.Patch)))
	}

	step("STEP 5 - Business Impact")
	fmt.Println(indent(report.ImpactSummary(result.Impact)))

	if result.RunID != "" {
		fmt.Printf("\n  Audit run: %s\n", result.RunID)
	}
}

// #endregion main

// #region output

func header(text string) {
	line := strings.Repeat("=", 60)
	c := color.New(color.FgCyan, color.Bold)
	fmt.Println(line)
	c.Printf("  %s\n", text)
	fmt.Println(line)
}

func step(text string) {
	line := strings.Repeat("-", 60)
	fmt.Printf("\n%s\n  %s\n%s\n", line, text, line)
}

func indent(block string) string {
	return "  " + strings.ReplaceAll(block, "\n", "\n  ")
}

// #endregion output
