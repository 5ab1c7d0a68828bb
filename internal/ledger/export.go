package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"spendsense/internal/core"
)

// Header is the column order of the tabular export.
var Header = []string{"Date", "Description", "Amount", "Predicted Category"}

// ErrBadHeader is returned by ReadCSV when the first row is not Header.
var ErrBadHeader = errors.New("unexpected export header")

// Rows renders records as string rows (without the header) in insertion
// order.
func Rows(records []core.Expense) [][]string {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{r.Date.String(), r.Description, r.Amount.String(), r.Category}
	}
	return rows
}

// WriteCSV writes the header and every record.
func WriteCSV(w io.Writer, records []core.Expense) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	if err := cw.WriteAll(Rows(records)); err != nil {
		return fmt.Errorf("writing csv records: %w", err)
	}
	return nil
}

// ReadCSV parses the output of WriteCSV.
func ReadCSV(r io.Reader) ([]core.Expense, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	for i := range Header {
		if head[i] != Header[i] {
			return nil, fmt.Errorf("column %d is %q: %w", i, head[i], ErrBadHeader)
		}
	}

	var out []core.Expense
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv line %d: %w", line, err)
		}
		d, err := core.ParseDate(row[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		amount, err := decimal.NewFromString(row[2])
		if err != nil || amount.IsNegative() {
			return nil, fmt.Errorf("line %d: %q: %w", line, row[2], core.ErrInvalidAmount)
		}
		out = append(out, core.Expense{
			Date:        d,
			Description: row[1],
			Amount:      amount,
			Category:    row[3],
		})
	}
}
