package dataset

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// WriteXLSX saves the frame as a single-sheet workbook.
func WriteXLSX(path string, f *Frame) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("dataset")
	if err != nil {
		return eris.Wrap(err, "dataset: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range f.Columns {
		header.AddCell().SetString(col)
	}
	for _, row := range f.Rows {
		r := sheet.AddRow()
		for _, val := range row {
			r.AddCell().SetString(val)
		}
	}

	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "dataset: save %s", path)
	}
	return nil
}
