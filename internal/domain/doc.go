// Package domain reconciles three tabular sources describing student-housing
// buildings into one per-building, per-period dataset.
//
// # Data Sources
//
// All three sources are semicolon-delimited tabular exports from the housing
// operator's reporting tools. Header names are matched case-insensitively with
// surrounding whitespace ignored, and runs of underscores collapse to one, so
// the real-world header quirks ("Apr__KwH", " may__KwH") resolve cleanly.
//
// Building metadata (one row per project):
//
//	project_name;city;project_type;year_built;lat;lon;total_HE;Total_BRA
//
//	total_HE is the number of resident students (husstandsekvivalenter),
//	Total_BRA the usable floor area in m². Only rows with project_type
//	"studentboliger" are loaded by default. Rows missing coordinates fall
//	back to their city's gazetteer entry with a small deterministic offset
//	per building so markers do not stack.
//
// Temperature (one row per city-period sample, repeated per project):
//
//	project_name;city;time;temperature;HDD_17
//
//	The time column accepts ISO forms (2023-01, 2023-01-15, 2023) and the
//	legacy Norwegian month form "aug.20" (= August 2020). HDD_17 is heating
//	degree days against a 17 °C base.
//
// Electricity (wide format, one row per project per year):
//
//	project_name;city;Year;Jan_KwH;…;Dec_KwH;Year_total_KwH
//
//	Each month column becomes one monthly consumption record; Year_total_KwH
//	becomes a yearly record. A long format (project_name;city;year;month;kwh)
//	is accepted as well.
//
// # Value Conventions
//
// Numbers use either comma or period as the decimal separator ("12,5" and
// "12.5" are the same value); grouping spaces and non-breaking spaces are
// stripped. Empty cells and the sentinels "NA", "N/A", "NaN" and "-" mean
// missing. Missing never becomes zero: a metric that cannot be computed is
// absent in the output.
//
// City names are upper-cased and trimmed, then passed through an alias table
// (JAKOBSLI → TRONDHEIM) so the three sources agree on city keys.
//
// # Periods and Joining
//
// A period is a (year, month) pair; month 0 denotes a yearly period. The join
// emits exactly one record per (building, year, month) key observed in the
// temperature or electricity data. Mean temperature is the arithmetic mean of
// the non-missing samples in the period bucket, with no outlier rejection.
// Buildings present only in metadata get no joined record; they remain
// visible through the dataset's building listing.
//
// # Severity
//
// Map markers are colored by classifying a building's yearly consumption
// intensity against an ordered boundary table (lower bound inclusive, upper
// bound exclusive, top tier unbounded). The default per-m² boundaries
// (30/50/100 kWh) come from the operator's map legend; per-resident
// boundaries default to 2000/4000/8000 kWh. A building with no computable
// metric gets no tier and is drawn neutral, never "low".
package domain
