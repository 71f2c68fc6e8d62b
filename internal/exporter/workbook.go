package exporter

import (
	"fmt"
	"io"
	"math"

	"github.com/xuri/excelize/v2"

	"cotcli/internal/frame"
)

// WorkbookFile is the name of the spreadsheet export.
const WorkbookFile = "market_views.xlsx"

// maxSheetName is Excel's sheet name length limit.
const maxSheetName = 31

// Sheet is one worksheet of the workbook.
type Sheet struct {
	Title string
	Frame *frame.Frame
}

// WriteWorkbook stages a workbook holding one sheet per frame.
func (s *Staging) WriteWorkbook(sheets ...Sheet) (Output, error) {
	rows := 0
	for _, sh := range sheets {
		rows += sh.Frame.Len()
	}
	return s.WriteFile(WorkbookFile, rows, func(w io.Writer) error {
		return RenderWorkbook(w, sheets...)
	})
}

// RenderWorkbook writes an xlsx workbook with a bold, frozen header row on
// every sheet. NaN cells are left empty.
func RenderWorkbook(w io.Writer, sheets ...Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("workbook needs at least one sheet")
	}
	wb := excelize.NewFile()
	defer wb.Close()

	header, err := wb.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for i, sh := range sheets {
		title := sh.Title
		if len(title) > maxSheetName {
			title = title[:maxSheetName]
		}
		if i == 0 {
			if err := wb.SetSheetName(wb.GetSheetName(0), title); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := wb.NewSheet(title); err != nil {
			return fmt.Errorf("add sheet %s: %w", title, err)
		}
		if err := writeSheet(wb, title, sh.Frame, header); err != nil {
			return fmt.Errorf("sheet %s: %w", title, err)
		}
	}
	wb.SetActiveSheet(0)
	return wb.Write(w)
}

func writeSheet(wb *excelize.File, title string, f *frame.Frame, headerStyle int) error {
	sw, err := wb.NewStreamWriter(title)
	if err != nil {
		return err
	}
	if err := sw.SetPanes(&excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	names := f.Columns()
	cols := make([]*frame.Column, len(names))
	header := make([]interface{}, 0, len(names)+2)
	header = append(header, frame.MarketColumn, frame.DateColumn)
	for j, n := range names {
		cols[j], _ = f.Column(n)
		header = append(header, n)
	}
	if err := sw.SetColWidth(1, 2, 14); err != nil {
		return err
	}
	if err := sw.SetRow("A1", header, excelize.RowOpts{StyleID: headerStyle}); err != nil {
		return err
	}

	row := make([]interface{}, len(header))
	for i, k := range f.Keys() {
		row[0] = k.Market
		row[1] = k.Date.Format(frame.DateLayout)
		for j, c := range cols {
			row[j+2] = cellValue(c, i)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	return sw.Flush()
}

func cellValue(c *frame.Column, i int) interface{} {
	switch c.Kind {
	case frame.Float:
		if math.IsNaN(c.Floats[i]) || math.IsInf(c.Floats[i], 0) {
			return nil
		}
		return c.Floats[i]
	case frame.String:
		return c.Strings[i]
	case frame.Bool:
		return c.Bools[i]
	default:
		return c.Ints[i]
	}
}
