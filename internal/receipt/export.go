package receipt

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
)

// Columns is the header row of every export and the column set of the receipts table
var Columns = []string{"Vendor_Name", "Transaction_ID", "Total_Amount", "Timestamp"}

// WriteCSV writes the header row followed by one row per record
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write([]string{r.VendorName, r.TransactionID, r.TotalAmount, r.Timestamp}); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}

// ReadCSV parses an export produced by WriteCSV
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Columns)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if !slices.Equal(header, Columns) {
		return nil, fmt.Errorf("unexpected header: %v", header)
	}

	records := make([]Record, 0)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading record: %w", err)
		}
		records = append(records, Record{
			VendorName:    row[0],
			TransactionID: row[1],
			TotalAmount:   row[2],
			Timestamp:     row[3],
		})
	}
	return records, nil
}
