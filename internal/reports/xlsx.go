// Package reports exports reconciliation results as xlsx workbooks.
package reports

import (
	"fmt"
	"time"

	"github.com/SscSPs/bizledger/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "Summary"
	checksSheet  = "Checks"
)

var checkHeadings = []string{
	"Kind", "ID", "Name", "Stored", "Calculated", "Difference",
	"Mismatch", "Fixed", "Best hypothesis", "Best value", "Error",
}

// WriteReconciliationReport saves report to path: run counters on a Summary
// sheet and one row per check on a Checks sheet. Amounts are written as exact
// decimal strings.
func WriteReconciliationReport(path string, report *domain.ReconciliationReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}
	summary := [][]any{
		{"Job", report.Job},
		{"Company", companyLabel(report.CompanyID)},
		{"Dry run", report.DryRun},
		{"Started at", report.StartedAt.Format(time.RFC3339)},
		{"Finished at", report.FinishedAt.Format(time.RFC3339)},
		{"Checked", report.Checked},
		{"Mismatches", report.Mismatches},
		{"Fixed", report.Fixed},
		{"Errors", report.Errors},
		{"Interrupted", report.Interrupted},
	}
	if err := writeRows(f, summarySheet, 1, summary); err != nil {
		return err
	}

	if _, err := f.NewSheet(checksSheet); err != nil {
		return fmt.Errorf("failed to create checks sheet: %w", err)
	}
	header := make([]any, len(checkHeadings))
	for i, h := range checkHeadings {
		header[i] = h
	}
	rows := [][]any{header}
	for _, c := range report.Checks {
		bestName, bestValue := "", ""
		if c.Best != nil {
			bestName, bestValue = c.Best.Name, c.Best.Value.String()
		}
		rows = append(rows, []any{
			string(c.Target.Kind), c.Target.ID, c.Name,
			amount(c.Stored), amount(c.Calculated), amount(c.Difference),
			c.Mismatch, c.Fixed, bestName, bestValue, c.Err,
		})
	}
	if err := writeRows(f, checksSheet, 1, rows); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save report to %s: %w", path, err)
	}
	return nil
}

// WriteCurrencyRecalcStats saves the counters of a currency-field backfill.
func WriteCurrencyRecalcStats(path string, companyID string, stats *domain.CurrencyRecalcStats) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}
	rows := [][]any{
		{"Company", companyLabel(companyID)},
		{"Processed", stats.Processed},
		{"Updated", stats.Updated},
		{"Skipped", stats.Skipped},
		{"Errors", stats.Errors},
		{"Interrupted", stats.Interrupted},
	}
	if err := writeRows(f, summarySheet, 1, rows); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save report to %s: %w", path, err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, firstRow int, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, firstRow+i)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, firstRow+i, err)
		}
	}
	return nil
}

func amount(d decimal.Decimal) string {
	return d.String()
}

func companyLabel(companyID string) string {
	if companyID == "" {
		return "all"
	}
	return companyID
}
