package receipt

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/receipt-scanner/internal/extraction"
)

var _ = Describe("Record", func() {
	Describe("NewRecord", func() {
		It("should copy the fields and stamp the local capture time", func() {
			now := time.Date(2023, 12, 31, 23, 59, 1, 0, time.Local)
			record := NewRecord(extraction.Fields{
				VendorName:    "Border Books",
				TransactionID: "A-77",
				TotalAmount:   "1,204.00",
			}, now)

			Expect(record).To(Equal(Record{
				VendorName:    "Border Books",
				TransactionID: "A-77",
				TotalAmount:   "1,204.00",
				Timestamp:     "2023-12-31 23:59:01",
			}))
		})

		It("should format the timestamp in local time", func() {
			now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
			record := NewRecord(extraction.Fields{}, now)
			Expect(record.Timestamp).To(Equal(now.Local().Format(TimestampLayout)))
		})
	})

	It("should marshal with the column names as keys", func() {
		data, err := json.Marshal(Record{VendorName: "Joe's Diner", TransactionID: "4521", TotalAmount: "12.50", Timestamp: "2024-03-09 14:05:07"})
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(MatchJSON(`{"Vendor_Name":"Joe's Diner","Transaction_ID":"4521","Total_Amount":"12.50","Timestamp":"2024-03-09 14:05:07"}`))
	})
})

var _ = Describe("History", func() {
	var history History

	BeforeEach(func() {
		history = History{}
	})

	It("should start empty", func() {
		Expect(history.Len()).To(Equal(0))
		Expect(history.Records()).To(BeEmpty())
	})

	It("should keep records in append order", func() {
		history.Append(Record{VendorName: "First"})
		history.Append(Record{VendorName: "Second"})

		Expect(history.Len()).To(Equal(2))
		Expect(history.Records()).To(Equal([]Record{{VendorName: "First"}, {VendorName: "Second"}}))
	})

	It("should keep identical records", func() {
		history.Append(Record{VendorName: "Same"})
		history.Append(Record{VendorName: "Same"})
		Expect(history.Len()).To(Equal(2))
	})

	It("should return a copy", func() {
		history.Append(Record{VendorName: "First"})
		records := history.Records()
		records[0].VendorName = "Changed"
		Expect(history.Records()[0].VendorName).To(Equal("First"))
	})

	It("should clear", func() {
		history.Append(Record{VendorName: "First"})
		history.Clear()
		Expect(history.Len()).To(Equal(0))
	})
})

var _ = Describe("CSV export", func() {
	var records []Record

	BeforeEach(func() {
		records = []Record{
			{VendorName: "Joe's Diner", TransactionID: "4521", TotalAmount: "12.50", Timestamp: "2024-03-09 14:05:07"},
			{VendorName: "Smith, Jones & Co", TransactionID: "N/A", TotalAmount: "1,204.00", Timestamp: "2024-03-09 14:06:00"},
		}
	})

	Describe("WriteCSV", func() {
		It("should write the header then one row per record", func() {
			var buf bytes.Buffer
			Expect(WriteCSV(&buf, records)).To(Succeed())

			lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
			Expect(lines).To(Equal([]string{
				"Vendor_Name,Transaction_ID,Total_Amount,Timestamp",
				"Joe's Diner,4521,12.50,2024-03-09 14:05:07",
				`"Smith, Jones & Co",N/A,"1,204.00",2024-03-09 14:06:00`,
			}))
		})

		It("should write only the header for no records", func() {
			var buf bytes.Buffer
			Expect(WriteCSV(&buf, nil)).To(Succeed())
			Expect(buf.String()).To(Equal("Vendor_Name,Transaction_ID,Total_Amount,Timestamp\n"))
		})
	})

	Describe("ReadCSV", func() {
		It("should read back what WriteCSV wrote", func() {
			var buf bytes.Buffer
			Expect(WriteCSV(&buf, records)).To(Succeed())

			read, err := ReadCSV(&buf)
			Expect(err).NotTo(HaveOccurred())
			Expect(read).To(Equal(records))
		})

		It("should reject an unexpected header", func() {
			_, err := ReadCSV(strings.NewReader("Vendor,Total\nJoe's Diner,12.50\n"))
			Expect(err).To(HaveOccurred())
		})

		It("should reject an empty input", func() {
			_, err := ReadCSV(strings.NewReader(""))
			Expect(err).To(MatchError(ContainSubstring("reading header")))
		})
	})
})

var _ = Describe("Session", func() {
	var session *Session

	BeforeEach(func() {
		session = NewSessions().Create()
	})

	It("should have no current scan", func() {
		Expect(session.Current()).To(BeNil())
		Expect(session.History()).To(BeEmpty())
	})

	It("should make the latest scan current and append every record", func() {
		first := &Scan{Record: Record{VendorName: "First"}}
		second := &Scan{Record: Record{VendorName: "Second"}}
		session.Add(first)
		session.Add(second)

		Expect(session.Current()).To(BeIdenticalTo(second))
		Expect(session.History()).To(Equal([]Record{first.Record, second.Record}))
	})

	It("should clear the current scan and history", func() {
		session.Add(&Scan{Record: Record{VendorName: "First"}})
		session.Clear()

		Expect(session.Current()).To(BeNil())
		Expect(session.History()).To(BeEmpty())
	})

	It("should accept concurrent adds", func() {
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				session.Add(&Scan{Record: Record{VendorName: "Concurrent"}})
			}()
		}
		wg.Wait()
		Expect(session.History()).To(HaveLen(20))
	})
})

var _ = Describe("Sessions", func() {
	It("should look up created sessions by ID", func() {
		sessions := NewSessions()
		session := sessions.Create()

		found, ok := sessions.Get(session.ID)
		Expect(ok).To(BeTrue())
		Expect(found).To(BeIdenticalTo(session))
	})

	It("should keep sessions separate", func() {
		sessions := NewSessions()
		a := sessions.Create()
		b := sessions.Create()
		a.Add(&Scan{Record: Record{VendorName: "Only A"}})

		Expect(a.ID).NotTo(Equal(b.ID))
		Expect(b.History()).To(BeEmpty())
	})

	It("should not find unknown IDs", func() {
		_, ok := NewSessions().Get("unknown")
		Expect(ok).To(BeFalse())
	})
})
