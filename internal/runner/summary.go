package runner

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/detentsh/testgate/internal/audit"
)

var (
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true)
)

// Summary renders results as a bordered module/audit/status/findings table,
// one row per AuditResult, in the order given.
func Summary(results []audit.AuditResult) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("MODULE", "AUDIT", "STATUS", "FINDINGS").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	for _, r := range results {
		status := string(r.Status)
		if r.Status == audit.Pass {
			status = passStyle.Render(status)
		} else {
			status = failStyle.Render(status)
		}
		t.Row(r.Module, r.Name, status, formatCount(r.FindingCount))
	}

	return t.Render()
}

func formatCount(n float64) string {
	if n == float64(int64(n)) {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'f', 1, 64)
}
