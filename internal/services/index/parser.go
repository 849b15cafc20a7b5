package index

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ternarybob/quire/internal/common"
	"github.com/ternarybob/quire/internal/models"
)

// MinRuleFields is the number of positional cells every index row must carry
const MinRuleFields = 6

const (
	paramPairSep  = "|"
	paramValueSep = "="
	cropSep       = "/"
)

var validate = validator.New()

// ParseIndex turns raw index rows into rules sorted by sort index. Rows that fail to
// parse are returned as FormatErrors and never abort the others. Parameter warnings
// are returned separately; they never reject a row.
func ParseIndex(table *Table) (rules []models.IndexRule, rowErrs []error, warnings []string) {
	for _, row := range table.Rows {
		rule, warns, err := ParseRow(table.Source, row)
		warnings = append(warnings, warns...)
		if err != nil {
			rowErrs = append(rowErrs, err)
			continue
		}
		rules = append(rules, rule)
	}

	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].SortIndex < rules[j].SortIndex
	})
	return rules, rowErrs, warnings
}

// ParseRow parses one index row: title, source, category, sort, begin, end, params...
func ParseRow(source string, row Row) (models.IndexRule, []string, error) {
	fail := func(format string, args ...interface{}) (models.IndexRule, []string, error) {
		return models.IndexRule{}, nil, &common.FormatError{Source: source, Row: row.Number, Reason: fmt.Sprintf(format, args...)}
	}

	cells := row.Cells
	if len(cells) < MinRuleFields {
		return fail("expected at least %d fields, got %d", MinRuleFields, len(cells))
	}

	rule := models.IndexRule{
		Row:        row.Number,
		Title:      strings.TrimSpace(cells[0]),
		SourcePath: strings.TrimSpace(cells[1]),
		Category:   strings.TrimSpace(cells[2]),
	}

	sortIndex, ok, err := parseIntCell(cells[3])
	if err != nil || !ok {
		return fail("sort index %q is not an integer", cells[3])
	}
	rule.SortIndex = sortIndex

	begin, hasBegin, err := parseIntCell(cells[4])
	if err != nil {
		return fail("begin page %q is not an integer", cells[4])
	}
	end, hasEnd, err := parseIntCell(cells[5])
	if err != nil {
		return fail("end page %q is not an integer", cells[5])
	}
	if hasBegin && hasEnd {
		if begin > end {
			return fail("begin page %d is after end page %d", begin, end)
		}
		rule.PageRange = &models.PageRange{Begin: begin, End: end}
	}

	if err := validate.Struct(rule); err != nil {
		return fail("%v", err)
	}
	if err := models.ValidateArticleKey(rule.Key()); err != nil {
		return fail("%v", err)
	}

	params, warnings := ParseParams(cells[MinRuleFields:])
	for i := range warnings {
		warnings[i] = fmt.Sprintf("%s row %d: %s", source, row.Number, warnings[i])
	}
	rule.Params = params
	return rule, warnings, nil
}

// ParseParams parses parameter cells of the form KEY=VALUE|KEY=VALUE. Keys are case
// insensitive. Each recognized key has its own typed parser; anything it rejects is
// dropped with a warning.
func ParseParams(cells []string) (models.Params, []string) {
	var params models.Params
	var warnings []string

	for _, cell := range cells {
		for _, pair := range strings.Split(cell, paramPairSep) {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			kv := strings.SplitN(pair, paramValueSep, 2)
			if len(kv) != 2 {
				warnings = append(warnings, fmt.Sprintf("dropped malformed parameter %q", pair))
				continue
			}
			key := strings.ToUpper(strings.TrimSpace(kv[0]))
			value := strings.TrimSpace(kv[1])

			switch key {
			case models.ParamCrop:
				crop, err := ParseCrop(value)
				if err != nil {
					warnings = append(warnings, fmt.Sprintf("dropped %s=%q: %v", key, value, err))
					continue
				}
				params.Crop = crop
			case models.ParamLang:
				if value == "" {
					warnings = append(warnings, fmt.Sprintf("dropped empty %s", key))
					continue
				}
				params.Lang = value
			default:
				warnings = append(warnings, fmt.Sprintf("dropped unknown parameter %q", key))
			}
		}
	}
	return params, warnings
}

// ParseCrop parses left/top/right/bottom. Extra components are ignored.
func ParseCrop(value string) (*models.CropRect, error) {
	parts := strings.Split(value, cropSep)
	if len(parts) < 4 {
		return nil, fmt.Errorf("want 4 %q-separated integers, got %d", cropSep, len(parts))
	}
	var v [4]int
	for i := 0; i < 4; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return nil, fmt.Errorf("component %d (%q) is not an integer", i+1, parts[i])
		}
		if n < 0 {
			return nil, fmt.Errorf("component %d is negative", i+1)
		}
		v[i] = n
	}
	return &models.CropRect{Left: v[0], Top: v[1], Right: v[2], Bottom: v[3]}, nil
}

// ParseFallback turns (source, params...) rows into the fallback table. Rows without a
// source or without any valid parameter are skipped.
func ParseFallback(table *Table) (map[string]models.Params, []string) {
	fallback := make(map[string]models.Params)
	var warnings []string

	for _, row := range table.Rows {
		if len(row.Cells) == 0 {
			continue
		}
		source := strings.TrimSpace(row.Cells[0])
		if source == "" {
			continue
		}
		params, warns := ParseParams(row.Cells[1:])
		for _, w := range warns {
			warnings = append(warnings, fmt.Sprintf("%s row %d: %s", table.Source, row.Number, w))
		}
		if params.Empty() {
			continue
		}
		if _, dup := fallback[source]; dup {
			warnings = append(warnings, fmt.Sprintf("%s row %d: duplicate entry for %s replaces the earlier one", table.Source, row.Number, source))
		}
		fallback[source] = params
	}
	return fallback, warnings
}

// parseIntCell accepts integer cells as spreadsheets export them ("3", "3.0", " 3 ").
// An empty cell is reported as absent, not as an error.
func parseIntCell(cell string) (int, bool, error) {
	s := strings.TrimSpace(cell)
	if s == "" || strings.EqualFold(s, "nan") {
		return 0, false, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false, fmt.Errorf("not an integer: %q", cell)
	}
	// float64(math.MaxInt) rounds up to 2^63, which does not fit
	if f < math.MinInt || f >= math.MaxInt {
		return 0, false, fmt.Errorf("integer out of range: %q", cell)
	}
	return int(f), true, nil
}
