// Command genfixtures writes a deterministic set of sample source files in
// the native export format (semicolon-delimited, comma decimals) and verifies
// they round-trip through the real loaders.
//
// Usage:
//
//	go run ./cmd/genfixtures -out data/sample
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ecobolig/housing-energy-etl/internal/domain"
	"github.com/ecobolig/housing-energy-etl/internal/ingest"
)

func main() {
	out := flag.String("out", "data/sample", "output directory for the fixture files")
	flag.Parse()

	if err := run(*out); err != nil {
		log.Fatal(err)
	}
}

func run(outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	files := map[string][][]string{
		"buildings.csv":   buildingRows(),
		"temperature.csv": temperatureRows(),
		"electricity.csv": electricityRows(),
	}
	for name, rows := range files {
		path := filepath.Join(outDir, name)
		if err := writeSemicolonCSV(path, rows); err != nil {
			return err
		}
		fmt.Printf("wrote %s (%d rows)\n", path, len(rows)-1)
	}

	return verify(outDir)
}

// buildingRows covers the register quirks: an alias city, a duplicate
// identifier, a non-student project that must be filtered out, missing
// coordinates, and comma decimals.
func buildingRows() [][]string {
	return [][]string{
		{"project_name", "city", "project_type", "year_built", "lat", "lon", "total_HE", "Total_BRA"},
		{"Moholt 50", "TRONDHEIM", "studentboliger", "2016", "63,4095", "10,4340", "632", "18500,5"},
		{"Berg Studentby", "Trondheim", "studentboliger", "1968", "63,4203", "10,4102", "340", "9800"},
		{"Jakobsli Hus A", "JAKOBSLI", "studentboliger", "2001", "", "", "120", "3400"},
		{"Sognsvann Blokk 3", "OSLO", "studentboliger", "1972", "59,9696", "10,7312", "410", "11250"},
		{"Kringsja 12", "OSLO", "studentboliger", "1990", "59,9645", "10,7290", "280", "7600"},
		{"Hatleberg", "BERGEN", "studentboliger", "1965", "60,3780", "5,3450", "390", "10400"},
		{"Hatleberg", "BERGEN", "studentboliger", "1965", "60,0000", "5,0000", "999", "99999"},
		{"Sentrum Kontorbygg", "OSLO", "naeringsbygg", "2010", "59,9100", "10,7500", "", "5000"},
	}
}

// temperatureRows uses the sensor export's month-name time format and comma
// decimals, including a winter month with heating degree days.
func temperatureRows() [][]string {
	rows := [][]string{{"project_name", "City", "Time", "temperature", "HDD_17"}}
	months := []string{"jan", "feb", "mar", "apr", "mai", "jun", "jul", "aug", "sep", "okt", "nov", "des"}
	temps := []string{"-4,2", "-3,1", "0,5", "4,8", "10,2", "14,5", "16,1", "15,3", "10,8", "5,9", "0,4", "-2,8"}
	hdd := []string{"657", "563", "512", "366", "211", "75", "28", "53", "186", "344", "498", "614"}

	for _, building := range []struct{ name, city string }{
		{"Moholt 50", "TRONDHEIM"},
		{"Berg Studentby", "TRONDHEIM"},
		{"Jakobsli Hus A", "JAKOBSLI"},
		{"Sognsvann Blokk 3", "OSLO"},
		{"Kringsja 12", "OSLO"},
		{"Hatleberg", "BERGEN"},
	} {
		for _, year := range []string{"22", "23"} {
			for i, m := range months {
				rows = append(rows, []string{building.name, building.city, m + "." + year, temps[i], hdd[i]})
			}
		}
	}
	return rows
}

// electricityRows uses the wide meter format, including the misspelled April
// and May columns the exports actually carry, and a yearly total column.
func electricityRows() [][]string {
	header := []string{
		"project_name", "year",
		"Jan_KwH", "Feb_KwH", "Mar_KwH", "Apr__KwH", "may__KwH", "Jun_KwH",
		"Jul_KwH", "Aug_KwH", "Sep_KwH", "Oct_KwH", "Nov_KwH", "Dec_KwH",
		"Year_total_KwH",
	}
	rows := [][]string{header}

	profiles := map[string][]string{
		"Moholt 50":         {"98500", "91200", "84100", "61200", "44800", "30100", "26500", "28900", "42700", "62300", "83400", "95600"},
		"Berg Studentby":    {"52100", "48700", "45300", "33800", "24100", "16900", "14800", "16200", "23400", "33900", "44800", "50700"},
		"Jakobsli Hus A":    {"18400", "17100", "15900", "11800", "8600", "5900", "5200", "5700", "8300", "12100", "15800", "17900"},
		"Sognsvann Blokk 3": {"61800", "57400", "53200", "39700", "28600", "19800", "17400", "19100", "27600", "40100", "53100", "60100"},
		"Kringsja 12":       {"42300", "39200", "36400", "27100", "19500", "13600", "11900", "13000", "18800", "27400", "36300", "41100"},
		"Hatleberg":         {"55700", "51800", "48000", "35800", "25800", "17900", "15700", "17200", "24900", "36100", "47900", "54200"},
	}
	names := []string{"Moholt 50", "Berg Studentby", "Jakobsli Hus A", "Sognsvann Blokk 3", "Kringsja 12", "Hatleberg"}

	for _, name := range names {
		for yi, year := range []string{"2022", "2023"} {
			row := []string{name, year}
			var total float64
			for _, v := range profiles[name] {
				// Second year runs a few percent lower.
				val := v
				if yi == 1 {
					var n float64
					fmt.Sscanf(v, "%f", &n)
					val = fmt.Sprintf("%.0f", n*0.96)
				}
				row = append(row, val)
				var n float64
				fmt.Sscanf(val, "%f", &n)
				total += n
			}
			row = append(row, fmt.Sprintf("%.0f", total))
			rows = append(rows, row)
		}
	}
	return rows
}

func writeSemicolonCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // flushed and synced below

	w := csv.NewWriter(f)
	w.Comma = ';'
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// verify loads the written files back through the real loaders and checks the
// expected shape, so a fixture regression is caught at generation time.
func verify(outDir string) error {
	read := func(name string) ([]domain.RawRecord, error) {
		f, err := os.Open(filepath.Join(outDir, name))
		if err != nil {
			return nil, err
		}
		defer f.Close() //nolint:errcheck // read-only file
		return ingest.ReadCSV(f, ingest.CSVOptions{})
	}

	buildingRows, err := read("buildings.csv")
	if err != nil {
		return err
	}
	tempRows, err := read("temperature.csv")
	if err != nil {
		return err
	}
	elecRows, err := read("electricity.csv")
	if err != nil {
		return err
	}

	buildings, _, _ := domain.LoadBuildings(buildingRows, domain.BuildingLoadOptions{ProjectType: "studentboliger"})
	temps, _, _ := domain.LoadTemperatures(tempRows)
	cons, _, _ := domain.LoadConsumption(elecRows)

	var problems []string
	if len(buildings) != 6 {
		problems = append(problems, fmt.Sprintf("expected 6 buildings after filter and dedupe, got %d", len(buildings)))
	}
	for _, b := range buildings {
		if b.ID == "Jakobsli Hus A" && b.City != "TRONDHEIM" {
			problems = append(problems, fmt.Sprintf("alias city not canonicalized: %s", b.City))
		}
	}
	if want := 6 * 2 * 12; len(temps) != want {
		problems = append(problems, fmt.Sprintf("expected %d temperature samples, got %d", want, len(temps)))
	}
	// Twelve months plus a yearly record per building-year.
	if want := 6 * 2 * 13; len(cons) != want {
		problems = append(problems, fmt.Sprintf("expected %d consumption records, got %d", want, len(cons)))
	}

	joined, _ := domain.Join(buildings, temps, cons)
	joined = domain.Enrich(joined)
	for _, r := range joined {
		if r.Orphan {
			problems = append(problems, fmt.Sprintf("unexpected orphan record for %s", r.BuildingID))
			break
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("fixture verification failed:\n  %s", strings.Join(problems, "\n  "))
	}
	fmt.Printf("verified: %d buildings, %d samples, %d meter records, %d joined\n",
		len(buildings), len(temps), len(cons), len(joined))
	return nil
}
