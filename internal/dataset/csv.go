package dataset

import (
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"
)

// WriteCSV encodes the frame with a header row. The metadata and IDs columns
// hold serialized JSON strings and round-trip unchanged.
func WriteCSV(w io.Writer, f *Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Columns); err != nil {
		return eris.Wrap(err, "dataset: write csv header")
	}
	for _, row := range f.Rows {
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "dataset: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "dataset: flush csv")
}

// ReadCSV decodes a frame previously written by WriteCSV, preserving row
// order. Used by reload mode.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrap(err, "dataset: read csv header")
	}

	frame := &Frame{Columns: header}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return frame, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "dataset: read csv row")
		}
		frame.Rows = append(frame.Rows, row)
	}
}
