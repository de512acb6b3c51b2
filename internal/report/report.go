package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"sleep-analyzer/internal/hypnogram"
	"sleep-analyzer/internal/models"
)

const sheetName = "Sleep Report"

// timelineHeader labels the per-segment rows.
var timelineHeader = []string{
	"Start Time",
	"State",
	"Duration (min)",
}

// BuildSeriesReport renders one analyzed session as an xlsx workbook: the
// session header, the segment timeline and the relative distribution.
func BuildSeriesReport(series *models.Series, segments []hypnogram.SleepSegment, distribution hypnogram.SleepStateDistribution) ([]byte, error) {
	f := excelize.NewFile()
	// Close only on error; WriteTo needs the file open.

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	// Session header block.
	if err := setCells(f, map[string]interface{}{
		"A1": "Device",
		"B1": series.DeviceID,
		"A2": "Session Start",
		"B2": series.StartDate.Format("2006-01-02 15:04:05"),
		"A3": "Satisfaction",
		"B3": series.Satisfaction.String(),
	}); err != nil {
		f.Close()
		return nil, err
	}

	// Timeline header on row 5.
	for col, header := range timelineHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 5)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}
	for i, width := range []float64{22, 14, 16} {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	// Segment rows.
	for i, segment := range segments {
		row := i + 6
		if err := setCells(f, map[string]interface{}{
			fmt.Sprintf("A%d", row): segment.StartTime.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("B%d", row): segment.State.String(),
			fmt.Sprintf("C%d", row): segment.DurationSeconds / 60,
		}); err != nil {
			f.Close()
			return nil, err
		}
	}

	// Distribution block below the timeline.
	row := len(segments) + 7
	if err := f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), "Distribution"); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set distribution header: %w", err)
	}
	if err := f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), headerStyle); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set distribution style: %w", err)
	}
	relative := distribution.Relative()
	for i, state := range hypnogram.SleepStates() {
		if err := setCells(f, map[string]interface{}{
			fmt.Sprintf("A%d", row+1+i): state.String(),
			fmt.Sprintf("B%d", row+1+i): distribution.AbsoluteMillis[state] / 60000,
			fmt.Sprintf("C%d", row+1+i): fmt.Sprintf("%.1f%%", relative[state]*100),
		}); err != nil {
			f.Close()
			return nil, err
		}
	}

	var buffer bytes.Buffer
	if err := f.Write(&buffer); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}
	return buffer.Bytes(), nil
}

func setCells(f *excelize.File, cells map[string]interface{}) error {
	for cell, value := range cells {
		if err := f.SetCellValue(sheetName, cell, value); err != nil {
			return fmt.Errorf("failed to set cell %s: %w", cell, err)
		}
	}
	return nil
}
