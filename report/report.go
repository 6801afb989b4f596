// Package report orders tender records and renders them as CSV files or
// terminal tables.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/use-agent/tenderscope/models"
)

// Columns is the CSV header.
var Columns = []string{"S/N", "Awarded", "Title", "Agency", "Awardee", "Tender Number", "Ref_Num", "Respondents", "Tab"}

// utf8BOM lets spreadsheet tools detect the encoding.
const utf8BOM = "\ufeff"

// Sort orders records by award status (OPEN, AWARDED, PENDING AWARD,
// NO AWARD, then anything else) and then by title. It is stable.
func Sort(records []models.TenderRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		pi, pj := records[i].AwardStatus.Priority(), records[j].AwardStatus.Priority()
		if pi != pj {
			return pi < pj
		}
		return records[i].Title < records[j].Title
	})
}

// Sorted returns a sorted copy of records.
func Sorted(records []models.TenderRecord) []models.TenderRecord {
	out := append([]models.TenderRecord(nil), records...)
	Sort(out)
	return out
}

// WriteCSV writes records in report order with serial numbers from 1.
func WriteCSV(w io.Writer, records []models.TenderRecord) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for i, r := range Sorted(records) {
		row := []string{
			strconv.Itoa(i + 1),
			string(r.AwardStatus),
			r.Title,
			r.Agency,
			strings.Join(r.Awardees, "; "),
			r.Identifier.Value,
			r.ReferenceNumber,
			FormatRespondents(r.Respondents),
			string(r.Tab),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatRespondents renders respondents as "name (amount); ...", or the
// sentinel when there are none.
func FormatRespondents(rs []models.Respondent) string {
	if len(rs) == 0 {
		return models.NotAvailable
	}
	parts := make([]string, 0, len(rs))
	for _, r := range rs {
		parts = append(parts, fmt.Sprintf("%s (%s)", r.Name, r.Amount))
	}
	return strings.Join(parts, "; ")
}

// Filename is the report file name for a run finished at t.
func Filename(t time.Time) string {
	return "tenders_" + t.Format("20060102_150405") + ".csv"
}

// WriteFile writes the CSV report into dir and returns its path.
func WriteFile(dir string, records []models.TenderRecord, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, Filename(now))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	if err := WriteCSV(f, records); err != nil {
		f.Close()
		return "", fmt.Errorf("write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close report: %w", err)
	}
	return path, nil
}
