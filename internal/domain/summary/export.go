package summary

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportWorkbook writes the dashboard views for [from, to) to an xlsx
// workbook with one sheet per view.
func (s *Service) ExportWorkbook(ctx context.Context, from, to time.Time, path string) error {
	chart, err := s.ChartData(ctx, from, to)
	if err != nil {
		return err
	}
	table, err := s.TableData(ctx, from, to)
	if err != nil {
		return err
	}
	bands, err := s.BandData(ctx, from, to)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	if err := writeChartSheet(f, chart); err != nil {
		return err
	}
	if err := writeTableSheet(f, table); err != nil {
		return err
	}
	if err := writeBandSheet(f, bands); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	s.logger.Info("workbook exported", "path", path, "from", from, "to", to)
	return nil
}

func writeChartSheet(f *excelize.File, chart *ChartData) error {
	const sheet = "Chart"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", &[]any{"datetime", "total", "average"}); err != nil {
		return err
	}
	for i := range chart.Labels {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{chart.Labels[i], chart.Totals[i], chart.Averages[i]}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	summaryRow := len(chart.Labels) + 3
	cell, err := excelize.CoordinatesToCellName(1, summaryRow)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &[]any{"min total", chart.MinTotal, "max total", chart.MaxTotal})
}

func writeTableSheet(f *excelize.File, table *TableData) error {
	const sheet = "Consumers"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", &[]any{"consumer", "area", "tariff", "average"}); err != nil {
		return err
	}
	for i, row := range table.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{row.ConsumerID, row.Area, row.Tariff, row.Average}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	return nil
}

func writeBandSheet(f *excelize.File, bands []BandRow) error {
	const sheet = "Band Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", &[]any{"area", "band", "day type", "average"}); err != nil {
		return err
	}
	for i, b := range bands {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{b.Area, b.Band, b.DayType, b.Average}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
