package receipt

import (
	"time"

	"github.com/zombor/receipt-scanner/internal/extraction"
	"github.com/zombor/receipt-scanner/internal/scanning"
)

// TimestampLayout is the capture time format stored with every record
const TimestampLayout = "2006-01-02 15:04:05"

// Record represents the fields extracted from one receipt. Missing values
// hold a sentinel ("Unknown Vendor", "N/A"), never an empty string.
type Record struct {
	VendorName    string `json:"Vendor_Name"`
	TransactionID string `json:"Transaction_ID"`
	TotalAmount   string `json:"Total_Amount"`
	Timestamp     string `json:"Timestamp"` // Capture time, not the document date
}

// NewRecord builds a record from extracted fields, stamped with now in local time
func NewRecord(fields extraction.Fields, now time.Time) Record {
	return Record{
		VendorName:    fields.VendorName,
		TransactionID: fields.TransactionID,
		TotalAmount:   fields.TotalAmount,
		Timestamp:     now.Local().Format(TimestampLayout),
	}
}

// Scan is the outcome of processing one upload
type Scan struct {
	Record   Record          `json:"record"`
	RawText  string          `json:"raw_text"`
	Kind     scanning.Kind   `json:"kind"`
	Source   scanning.Source `json:"source"`
	Pages    int             `json:"pages"`
	Filename string          `json:"filename"`         // As uploaded
	Upload   string          `json:"upload,omitempty"` // Stored name of the original
}

// History is an ordered list of records owned by the caller
type History struct {
	records []Record
}

// Append adds a record at the end
func (h *History) Append(record Record) {
	h.records = append(h.records, record)
}

// Records returns a copy of the records in upload order
func (h *History) Records() []Record {
	records := make([]Record, len(h.records))
	copy(records, h.records)
	return records
}

// Len returns the number of records
func (h *History) Len() int {
	return len(h.records)
}

// Clear removes every record
func (h *History) Clear() {
	h.records = nil
}
