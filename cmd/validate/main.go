// Command validate performs data integrity checks across the three source
// files: it runs the real loaders, the join, and the enrichment, then reports
// row counts, diagnostics, metric coverage, and the severity distribution.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -buildings data/buildings.csv \
//	  -temperature data/temperature.csv \
//	  -electricity data/electricity.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/ecobolig/housing-energy-etl/internal/domain"
	"github.com/ecobolig/housing-energy-etl/internal/ingest"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	buildings := flag.String("buildings", "", "path to the building register file")
	temperature := flag.String("temperature", "", "path to the temperature sensor file")
	electricity := flag.String("electricity", "", "path to the electricity meter file")
	sheet := flag.String("sheet", "", "worksheet name for .xlsx inputs (default: first sheet)")
	projectType := flag.String("project-type", "studentboliger", "project type to keep from the register")
	flag.Parse()

	if *buildings == "" || *temperature == "" || *electricity == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*buildings, *temperature, *electricity, *sheet, *projectType); code != 0 {
		os.Exit(code)
	}
}

func run(buildingsPath, temperaturePath, electricityPath, sheet, projectType string) int {
	ctx := context.Background()

	buildingRows, err := ingest.NewFileSource(buildingsPath, sheet).Rows(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read buildings: %v\n", err)
		return 1
	}
	tempRows, err := ingest.NewFileSource(temperaturePath, sheet).Rows(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read temperature: %v\n", err)
		return 1
	}
	elecRows, err := ingest.NewFileSource(electricityPath, sheet).Rows(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read electricity: %v\n", err)
		return 1
	}

	buildings, buildingsRejected, buildingDiags := domain.LoadBuildings(buildingRows, domain.BuildingLoadOptions{
		ProjectType: projectType,
	})
	temps, tempsRejected, tempDiags := domain.LoadTemperatures(tempRows)
	cons, consRejected, consDiags := domain.LoadConsumption(elecRows)

	phases := []*phase{
		checkLoads(buildings, buildingsRejected, len(buildingRows), temps, tempsRejected, cons, consRejected),
		checkJoin(buildings, temps, cons),
		checkSeverity(buildings, temps, cons),
	}

	reportDiagnostics("buildings", buildingDiags)
	reportDiagnostics("temperature", tempDiags)
	reportDiagnostics("electricity", consDiags)

	failed := 0
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = "FAIL"
			failed++
		}
		fmt.Printf("[%s] %s\n", status, p.name)
		for _, e := range p.errors {
			fmt.Printf("       %s\n", e)
		}
	}
	if failed > 0 {
		fmt.Printf("\n%d of %d phases failed\n", failed, len(phases))
		return 1
	}
	fmt.Println("\nall phases passed")
	return 0
}

func checkLoads(buildings []domain.BuildingRecord, buildingsRejected, buildingRows int,
	temps []domain.TemperatureSample, tempsRejected int,
	cons []domain.ConsumptionRecord, consRejected int) *phase {
	p := &phase{name: "source loads"}

	fmt.Printf("buildings:   %d loaded, %d rejected (of %d rows)\n", len(buildings), buildingsRejected, buildingRows)
	fmt.Printf("temperature: %d samples, %d rejected\n", len(temps), tempsRejected)
	fmt.Printf("electricity: %d records, %d rejected\n", len(cons), consRejected)

	if len(buildings) == 0 {
		p.errorf("no buildings survived loading; check project-type filter and required columns")
	}
	if len(cons) == 0 {
		p.errorf("no consumption records loaded")
	}

	seen := make(map[string]bool, len(buildings))
	for _, b := range buildings {
		if seen[b.ID] {
			p.errorf("duplicate building id after dedupe: %s", b.ID)
		}
		seen[b.ID] = true
		if (b.Coords == nil) != (b.GeoSource == "") {
			p.errorf("building %s: coordinates and geo source disagree", b.ID)
		}
	}
	return p
}

func checkJoin(buildings []domain.BuildingRecord, temps []domain.TemperatureSample, cons []domain.ConsumptionRecord) *phase {
	p := &phase{name: "join and enrichment"}

	joined, joinDiags := domain.Join(buildings, temps, cons)
	joined = domain.Enrich(joined)

	orphans := 0
	keys := make(map[domain.PeriodKey]bool, len(joined))
	var withTemp, withKWh, withPerArea int
	for _, r := range joined {
		if keys[r.Key()] {
			p.errorf("duplicate period key: %+v", r.Key())
		}
		keys[r.Key()] = true
		if r.Orphan {
			orphans++
		}
		if r.MeanTemp != nil {
			withTemp++
		}
		if r.KWh != nil {
			withKWh++
		}
		if r.KWhPerArea != nil {
			withPerArea++
		}
	}

	fmt.Printf("joined:      %d records (%d orphan), %d join diagnostics\n", len(joined), orphans, len(joinDiags))
	fmt.Printf("coverage:    temp %d, kwh %d, kwh/m2 %d\n", withTemp, withKWh, withPerArea)

	if len(joined) == 0 {
		p.errorf("join produced no records")
	}
	return p
}

func checkSeverity(buildings []domain.BuildingRecord, temps []domain.TemperatureSample, cons []domain.ConsumptionRecord) *phase {
	p := &phase{name: "severity distribution"}

	classifier, err := domain.NewClassifier(domain.DefaultPerAreaBounds())
	if err != nil {
		p.errorf("default bounds rejected: %v", err)
		return p
	}

	joined, _ := domain.Join(buildings, temps, cons)
	joined = domain.Enrich(joined)

	counts := make(map[domain.Tier]int)
	unclassified := 0
	for _, r := range joined {
		if tier := classifier.Classify(r.KWhPerArea); tier != nil {
			counts[*tier]++
		} else {
			unclassified++
		}
	}

	fmt.Printf("severity:    low=%d medium=%d high=%d critical=%d unclassified=%d\n",
		counts[domain.TierLow], counts[domain.TierMedium], counts[domain.TierHigh], counts[domain.TierCritical], unclassified)
	return p
}

func reportDiagnostics(source string, diags []domain.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	fmt.Printf("%s diagnostics:\n", source)
	for reason, n := range domain.CountByReason(diags) {
		fmt.Printf("  %-28s %d\n", reason, n)
	}
}
