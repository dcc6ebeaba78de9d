package domain

import (
	"math"
	"strconv"
	"strings"
)

// Code says why a field value is missing after normalization. The empty code
// means the value parsed cleanly. Normalization never fails hard: malformed
// input yields a missing value plus a code the caller can log or count.
type Code string

const (
	CodeEmpty         Code = "empty"          // empty cell or NA sentinel
	CodeInvalidFormat Code = "invalid-format" // present but unparseable
	CodeOutOfRange    Code = "out-of-range"   // parseable but outside the legal range
)

// missingSentinels are cell values that mean "no data", compared after
// trimming and lower-casing. pandas-era exports used several spellings.
var missingSentinels = map[string]bool{
	"":       true,
	"-":      true,
	"\u2013": true, // en dash
	"na":     true,
	"n/a":    true,
	"nan":    true,
}

// CleanText trims whitespace, byte-order marks, and non-breaking spaces.
func CleanText(raw string) string {
	return strings.TrimFunc(raw, isJunkRune)
}

func isJunkRune(r rune) bool {
	switch r {
	case ' ', '\t', '\r', '\n', '\uFEFF', '\u00A0', '\u202F':
		return true
	}
	return false
}

// ParseNumber coerces a raw cell into a float64. Both comma and period are
// accepted as the decimal separator; grouping spaces are stripped. Returns
// ok=false with a Code when the value is missing or malformed.
func ParseNumber(raw string) (float64, bool, Code) {
	s := CleanText(raw)
	if missingSentinels[strings.ToLower(s)] {
		return 0, false, CodeEmpty
	}

	s = stripGrouping(s)
	s = normalizeDecimalSeparator(s)

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, CodeInvalidFormat
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, CodeOutOfRange
	}
	return v, true, ""
}

// ParseInt coerces a raw cell into an int. Non-integral numeric strings are
// reported missing rather than truncated, so year/month keys never corrupt
// silently.
func ParseInt(raw string) (int, bool, Code) {
	v, ok, code := ParseNumber(raw)
	if !ok {
		return 0, false, code
	}
	if v != math.Trunc(v) {
		return 0, false, CodeInvalidFormat
	}
	if v > math.MaxInt32 || v < math.MinInt32 {
		return 0, false, CodeOutOfRange
	}
	return int(v), true, ""
}

// stripGrouping removes space-like grouping characters inside a numeric string.
func stripGrouping(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00A0' || r == '\u202F' {
			return -1
		}
		return r
	}, s)
}

// normalizeDecimalSeparator rewrites locale decimal commas to periods.
// When both separators appear ("1.234,56"), the rightmost one is the decimal
// separator and the other is a grouping character. A lone comma is a decimal
// separator; repeated commas are grouping ("1,234,567").
func normalizeDecimalSeparator(s string) string {
	lastComma := strings.LastIndexByte(s, ',')
	lastPeriod := strings.LastIndexByte(s, '.')

	switch {
	case lastComma < 0:
		return s
	case lastPeriod < 0:
		if strings.Count(s, ",") > 1 {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)
	case lastComma > lastPeriod:
		s = strings.ReplaceAll(s, ".", "")
		return strings.Replace(s, ",", ".", 1)
	default:
		return strings.ReplaceAll(s, ",", "")
	}
}

// monthNames maps lower-cased Norwegian and English month abbreviations to
// month numbers, for the legacy "aug.20" time format.
var monthNames = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4,
	"mai": 5, "may": 5, "jun": 6, "jul": 7, "aug": 8,
	"sep": 9, "okt": 10, "oct": 10, "nov": 11, "des": 12, "dec": 12,
}

// ParseDate coerces a raw cell into a Date. Accepted forms, most specific
// first: YYYY-MM-DD, YYYY-MM, bare YYYY, and the legacy month form
// "aug.20" / "aug.2020".
func ParseDate(raw string) (Date, bool, Code) {
	s := CleanText(raw)
	if missingSentinels[strings.ToLower(s)] {
		return Date{}, false, CodeEmpty
	}

	if parts := strings.Split(s, "-"); len(parts) <= 3 && len(parts[0]) == 4 {
		if d, ok, code := parseISODate(parts); ok || code != CodeInvalidFormat {
			return d, ok, code
		}
	}

	if mon, year, ok := splitMonthYear(s); ok {
		if year < 1900 || year > 2100 {
			return Date{}, false, CodeOutOfRange
		}
		return Date{Year: year, Month: mon}, true, ""
	}

	return Date{}, false, CodeInvalidFormat
}

func parseISODate(parts []string) (Date, bool, Code) {
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Date{}, false, CodeInvalidFormat
		}
		nums[i] = n
	}

	d := Date{Year: nums[0]}
	if len(nums) > 1 {
		d.Month = nums[1]
	}
	if len(nums) > 2 {
		d.Day = nums[2]
	}

	if d.Year < 1900 || d.Year > 2100 {
		return Date{}, false, CodeOutOfRange
	}
	if len(nums) > 1 && (d.Month < 1 || d.Month > 12) {
		return Date{}, false, CodeOutOfRange
	}
	if len(nums) > 2 && (d.Day < 1 || d.Day > 31) {
		return Date{}, false, CodeOutOfRange
	}
	return d, true, ""
}

// splitMonthYear parses "aug.20" or "aug.2020" into (month, year).
// Two-digit years are taken as 2000-based, matching the source exports.
func splitMonthYear(s string) (int, int, bool) {
	name, yearStr, found := strings.Cut(strings.ToLower(s), ".")
	if !found {
		return 0, 0, false
	}
	mon, ok := monthNames[strings.TrimSpace(name)]
	if !ok {
		return 0, 0, false
	}
	yearStr = strings.TrimSpace(yearStr)
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return 0, 0, false
	}
	if len(yearStr) == 2 {
		year += 2000
	}
	return mon, year, true
}

// cityAliases corrects source rows whose city field names a neighbourhood or
// street area rather than the municipality the other sources use.
var cityAliases = map[string]string{
	"JAKOBSLI": "TRONDHEIM", // Jakobsliveien is in Trondheim
}

// CanonicalCity upper-cases and trims a city name and resolves known aliases
// so the three sources agree on city keys.
func CanonicalCity(raw string) string {
	city := strings.ToUpper(CleanText(raw))
	if canonical, ok := cityAliases[city]; ok {
		return canonical
	}
	return city
}
