package receipt_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"path/filepath"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/receipt-scanner/internal/receipt"
	"github.com/zombor/receipt-scanner/internal/scanning"
)

// fakeOCR returns canned text per call, in order
type fakeOCR struct {
	mu     sync.Mutex
	texts  []string
	images []image.Image
}

func (f *fakeOCR) Recognize(_ context.Context, img image.Image) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images = append(f.images, img)
	text := f.texts[0]
	if len(f.texts) > 1 {
		f.texts = f.texts[1:]
	}
	return text, nil
}

func (f *fakeOCR) Close() error { return nil }

// emptyTextLayer reports a scanned PDF with no embedded text
type emptyTextLayer struct {
	pages int
}

func (e emptyTextLayer) PageTexts([]byte) ([]string, error) {
	return make([]string, e.pages), nil
}

// blankRasterizer renders every page as a blank image
type blankRasterizer struct {
	pages int
}

func (b blankRasterizer) Pages([]byte) ([]image.Image, error) {
	images := make([]image.Image, b.pages)
	for i := range images {
		images[i] = image.NewGray(image.Rect(0, 0, 20, 30))
	}
	return images, nil
}

func encodedPNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		img.Set(x, 10, color.Black)
	}
	var buf bytes.Buffer
	Expect(png.Encode(&buf, img)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("Integration", func() {
	var (
		tempDir  string
		store    *receipt.BoltStore
		storage  *receipt.LocalStorage
		ocr      *fakeOCR
		server   *receipt.Server
		ghServer *ghttp.Server
		client   *http.Client
	)

	BeforeEach(func() {
		tempDir = GinkgoT().TempDir()

		var err error
		store, err = receipt.NewBoltStore(filepath.Join(tempDir, "receipts.db"))
		Expect(err).NotTo(HaveOccurred())

		storage, err = receipt.NewLocalStorage(filepath.Join(tempDir, "uploads"))
		Expect(err).NotTo(HaveOccurred())

		ocr = &fakeOCR{texts: []string{"Joe's Diner\nOrder #: 4521\nTotal: $12.50\n"}}
		acquirer := scanning.NewAcquirer(ocr, emptyTextLayer{pages: 2}, blankRasterizer{pages: 2})

		service := receipt.NewService(acquirer, store, storage)
		server = receipt.NewServer(service, receipt.BasicAuth{})

		ghServer = ghttp.NewServer()
		ghServer.RouteToHandler(http.MethodGet, "/export/history.csv", server.ServeHTTP)

		jar, err := cookiejar.New(nil)
		Expect(err).NotTo(HaveOccurred())
		client = &http.Client{Jar: jar}
	})

	AfterEach(func() {
		if ghServer != nil {
			ghServer.Close()
		}
		if store != nil {
			store.Close()
		}
	})

	scanFile := func(filename string, data []byte) *http.Response {
		ghServer.AppendHandlers(server.ServeHTTP)

		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, err := writer.CreateFormFile("file", filename)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(writer.Close()).To(Succeed())

		resp, err := client.Post(ghServer.URL()+"/api/receipts", writer.FormDataContentType(), body)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	decodeScan := func(resp *http.Response) receipt.Scan {
		defer resp.Body.Close()
		respBody, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())

		var scan receipt.Scan
		Expect(json.Unmarshal(respBody, &scan)).To(Succeed())
		return scan
	}

	It("should scan an image, save the record and keep the original", func() {
		resp := scanFile("diner.png", encodedPNG())
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		scan := decodeScan(resp)
		Expect(scan.Record.VendorName).To(Equal("Joe's Diner"))
		Expect(scan.Record.TransactionID).To(Equal("4521"))
		Expect(scan.Record.TotalAmount).To(Equal("12.50"))
		Expect(scan.Source).To(Equal(scanning.SourceOCR))

		// Verify the original is in storage
		_, err := storage.Get(scan.Upload)
		Expect(err).NotTo(HaveOccurred())

		// Verify the row is in the database
		records, err := store.List()
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(Equal([]receipt.Record{scan.Record}))
	})

	It("should OCR every page of a scanned PDF", func() {
		ocr.texts = []string{"Corner Market\n", "Invoice #: INV-9\nAmount Due: 3.99\n"}

		resp := scanFile("scan.pdf", []byte("%PDF-1.4 scanned"))
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		scan := decodeScan(resp)
		Expect(scan.Source).To(Equal(scanning.SourceOCRFallback))
		Expect(scan.Pages).To(Equal(2))
		Expect(scan.RawText).To(Equal("Corner Market\n\nInvoice #: INV-9\nAmount Due: 3.99\n\n"))
		Expect(scan.Record.VendorName).To(Equal("Corner Market"))
		Expect(scan.Record.TransactionID).To(Equal("INV-9"))
		Expect(scan.Record.TotalAmount).To(Equal("3.99"))
		Expect(ocr.images).To(HaveLen(2))
	})

	It("should export every scan of the session", func() {
		scanFile("first.png", encodedPNG()).Body.Close()
		scanFile("second.png", encodedPNG()).Body.Close()

		resp, err := client.Get(ghServer.URL() + "/export/history.csv")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		records, err := receipt.ReadCSV(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(2))

		saved, err := store.List()
		Expect(err).NotTo(HaveOccurred())
		Expect(saved).To(HaveLen(2))
		Expect(strings.Join([]string{records[0].VendorName, records[1].VendorName}, "|")).To(Equal("Joe's Diner|Joe's Diner"))
	})
})
