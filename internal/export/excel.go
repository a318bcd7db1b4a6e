package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/newsmaker-md/content-pipeline/internal/archive"
)

const sheetName = "Posts"

var headerRow = []any{"ID", "Title", "Date", "URL", "Body", "ImagePath"}

// Workbook builds an Excel file with one row per saved article, newest
// first. Articles whose body file is unreadable get an empty Body cell.
func Workbook(dir *archive.Dir) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &headerRow); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, s := range dir.Summaries() {
		body, err := dir.ReadBody(s.ID)
		if err != nil {
			body = ""
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []any{s.ID, s.Title, s.Date, s.URL, body, s.LocalImagePath}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %s: %w", s.ID, err)
		}
	}

	return f, nil
}

// Write streams the workbook for dir to w.
func Write(dir *archive.Dir, w io.Writer) error {
	f, err := Workbook(dir)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.WriteTo(w)
	return err
}
