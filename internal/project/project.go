// Package project defines the engineering brief that seeds a pipeline run.
package project

import (
	"errors"
	"fmt"
	"strings"
)

// #region input

// Input is a project brief as supplied by the caller.
type Input struct {
	ProjectID   string
	Structure   string
	SoilType    string
	SeismicZone string // II / III / IV / V
	LoadKN      float64
	BudgetCr    float64 // project budget in Crore
	Season      string
	Location    string
	Vertical    string
	Notes       string
}

// #endregion input

// #region validate

// Validate checks the brief before any computation. All violations are
// collected into a single error.
func (in Input) Validate() error {
	var problems []string
	if in.LoadKN <= 0 {
		problems = append(problems, "load_kN must be positive")
	}
	if in.BudgetCr <= 0 {
		problems = append(problems, "budget_cr must be positive")
	}
	switch in.SeismicZone {
	case "II", "III", "IV", "V":
	default:
		problems = append(problems, fmt.Sprintf("seismic_zone must be II/III/IV/V, got %q", in.SeismicZone))
	}
	if len(problems) > 0 {
		return errors.New("project validation failed: " + strings.Join(problems, "; "))
	}
	return nil
}

// #endregion validate

// #region prompt-context

// PromptContext renders the brief as free text for prompt injection.
func (in Input) PromptContext() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s | Structure: %s\n", in.ProjectID, in.Structure)
	fmt.Fprintf(&b, "Soil: %s | Seismic Zone: %s\n", in.SoilType, in.SeismicZone)
	fmt.Fprintf(&b, "Load: %g kN | Budget: %g Cr\n", in.LoadKN, in.BudgetCr)
	fmt.Fprintf(&b, "Season: %s | Location: %s\n", in.Season, in.Location)
	fmt.Fprintf(&b, "Vertical: %s", in.Vertical)
	if in.Notes != "" {
		fmt.Fprintf(&b, "\nEngineer Notes: %s", in.Notes)
	}
	return b.String()
}

// #endregion prompt-context
