package prompts

import (
	"fmt"
	"strings"
)

// ColumnSummary is the per-column statistical digest given to the chart
// selection model instead of raw rows.
type ColumnSummary struct {
	Name         string
	Type         string // number, boolean, datetime, category, unknown
	Min          *float64
	Max          *float64
	Avg          *float64
	HasNegative  bool
	UniqueCount  int
	Distribution string // narrow or wide, for category/datetime columns
	Samples      []string
}

// BuildGraphAnalysisPrompt creates the chart suggestion prompt from the
// query, generated SQL, and column statistics.
func BuildGraphAnalysisPrompt(userQuery, sqlQuery string, rowCount int, columns []ColumnSummary) string {
	var prompt strings.Builder

	prompt.WriteString("Decide whether a query result should be visualized and, if so, propose charts.\n\n")
	prompt.WriteString(fmt.Sprintf("User question: %s\n", userQuery))
	prompt.WriteString(fmt.Sprintf("SQL: %s\n", sqlQuery))
	prompt.WriteString(fmt.Sprintf("Row count: %d\n\n", rowCount))

	prompt.WriteString("Columns:\n")
	for _, col := range columns {
		prompt.WriteString(fmt.Sprintf("- %s (%s)", col.Name, col.Type))
		if col.Min != nil && col.Max != nil && col.Avg != nil {
			prompt.WriteString(fmt.Sprintf(": min=%.4g max=%.4g avg=%.4g", *col.Min, *col.Max, *col.Avg))
			if col.HasNegative {
				prompt.WriteString(", has negatives")
			}
		}
		if col.UniqueCount > 0 {
			prompt.WriteString(fmt.Sprintf(", %d unique", col.UniqueCount))
			if col.Distribution != "" {
				prompt.WriteString(fmt.Sprintf(" (%s)", col.Distribution))
			}
		}
		if len(col.Samples) > 0 {
			prompt.WriteString(fmt.Sprintf(", samples: %s", strings.Join(col.Samples, ", ")))
		}
		prompt.WriteString("\n")
	}

	prompt.WriteString(`
Chart selection heuristics:
- Temporal x-axis: line or area; aggregate if the series is dense.
- Categorical counts or sums: bar, or pie for small part-of-whole sets; bucket categories beyond 15 into "Other".
- Two numeric columns: scatter.
- A single aggregate value: no chart.
- Raw record listings: table.
- Keep plotted points at or below 25 except for scatter.

Respond with JSON only:
{
  "shouldVisualize": true,
  "reasoning": "...",
  "graphs": [
    {
      "type": "bar|line|pie|scatter|area|table",
      "title": "...",
      "xAxis": {"field": "column_name", "label": "..."},
      "yAxis": {"field": "column_name", "label": "..."},
      "color": "optional column_name",
      "legend": true
    }
  ]
}`)

	return prompt.String()
}
