package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/use-agent/tenderscope/models"
)

// RenderTable prints records in report order as a rounded table.
func RenderTable(w io.Writer, records []models.TenderRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"#", "Status", "Title", "Agency", "Number", "Tab", "Relevant"})

	for i, r := range Sorted(records) {
		t.AppendRow(table.Row{i + 1, r.AwardStatus, r.Title, r.Agency, r.Identifier.Value, r.Tab, relevance(r.Relevance)})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d tenders", len(records))})

	t.SetStyle(table.StyleRounded)
	t.Render()
}

func relevance(r *models.Relevance) string {
	if r == nil {
		return "-"
	}
	if r.Relevant {
		return fmt.Sprintf("yes (%.2f)", r.Confidence)
	}
	return fmt.Sprintf("no (%.2f)", r.Confidence)
}
