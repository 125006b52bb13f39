package agent

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/querypilot/querypilot-engine/pkg/prompts"
)

// Column type inference buckets.
const (
	colTypeNumber   = "number"
	colTypeBoolean  = "boolean"
	colTypeDatetime = "datetime"
	colTypeCategory = "category"
	colTypeUnknown  = "unknown"
)

const (
	narrowDistributionMax = 25
	sampleValueMax        = 5
	sampleUniqueMax       = 10
)

// summarizeColumns builds the per-column statistical digest handed to the
// chart selection model. Raw row values never reach the model.
func summarizeColumns(rows []map[string]any) []prompts.ColumnSummary {
	if len(rows) == 0 {
		return nil
	}

	names := make([]string, 0, len(rows[0]))
	for name := range rows[0] {
		names = append(names, name)
	}
	sort.Strings(names)

	summaries := make([]prompts.ColumnSummary, 0, len(names))
	for _, name := range names {
		summaries = append(summaries, summarizeColumn(name, rows))
	}
	return summaries
}

func summarizeColumn(name string, rows []map[string]any) prompts.ColumnSummary {
	summary := prompts.ColumnSummary{Name: name, Type: colTypeUnknown}

	values := make([]any, 0, len(rows))
	for _, row := range rows {
		if v, ok := row[name]; ok && v != nil {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return summary
	}

	summary.Type = inferColumnType(values[0])

	switch summary.Type {
	case colTypeNumber:
		min, max, sum := 0.0, 0.0, 0.0
		first := true
		for _, v := range values {
			n, ok := toFloat(v)
			if !ok {
				continue
			}
			if first {
				min, max = n, n
				first = false
			} else {
				if n < min {
					min = n
				}
				if n > max {
					max = n
				}
			}
			sum += n
			if n < 0 {
				summary.HasNegative = true
			}
		}
		if !first {
			avg := sum / float64(len(values))
			summary.Min, summary.Max, summary.Avg = &min, &max, &avg
		}

	case colTypeCategory, colTypeDatetime:
		unique := make(map[string]struct{}, len(values))
		for _, v := range values {
			unique[fmt.Sprint(v)] = struct{}{}
		}
		summary.UniqueCount = len(unique)
		if summary.UniqueCount <= narrowDistributionMax {
			summary.Distribution = "narrow"
		} else {
			summary.Distribution = "wide"
		}
		if summary.UniqueCount <= sampleUniqueMax {
			samples := make([]string, 0, len(unique))
			for v := range unique {
				samples = append(samples, v)
			}
			sort.Strings(samples)
			if len(samples) > sampleValueMax {
				samples = samples[:sampleValueMax]
			}
			summary.Samples = samples
		}
	}

	return summary
}

func inferColumnType(v any) string {
	switch val := v.(type) {
	case bool:
		return colTypeBoolean
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return colTypeNumber
	case time.Time:
		return colTypeDatetime
	case string:
		if _, err := strconv.ParseFloat(val, 64); err == nil {
			return colTypeNumber
		}
		if looksLikeTimestamp(val) {
			return colTypeDatetime
		}
		return colTypeCategory
	default:
		return colTypeUnknown
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func looksLikeTimestamp(s string) bool {
	for _, layout := range timestampLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
