package scanning

import (
	"bytes"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"
)

// DefaultDPI is the resolution used when rasterizing scanned pages
const DefaultDPI = 300

// FitzTextLayer reads PDF text with MuPDF
type FitzTextLayer struct{}

// PageTexts returns the text of every page
func (FitzTextLayer) PageTexts(pdfData []byte) ([]string, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	pages := make([]string, 0, doc.NumPage())
	for n := 0; n < doc.NumPage(); n++ {
		text, err := doc.Text(n)
		if err != nil {
			return nil, fmt.Errorf("reading text of page %d: %w", n+1, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// NativeTextLayer reads PDF text without cgo
type NativeTextLayer struct{}

// PageTexts returns the text of every page. Pages without content yield an
// empty string so page numbering is preserved.
func (NativeTextLayer) PageTexts(pdfData []byte) (pages []string, err error) {
	// Malformed content streams panic inside the parser
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("parsing PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(pdfData), int64(len(pdfData)))
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}

	pages = make([]string, 0, reader.NumPage())
	for n := 1; n <= reader.NumPage(); n++ {
		page := reader.Page(n)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("reading text of page %d: %w", n, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// FitzRasterizer renders PDF pages with MuPDF
type FitzRasterizer struct {
	DPI float64
}

// NewFitzRasterizer creates a rasterizer, using DefaultDPI when dpi is not positive
func NewFitzRasterizer(dpi float64) *FitzRasterizer {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &FitzRasterizer{DPI: dpi}
}

// Pages renders every page at the configured resolution
func (f *FitzRasterizer) Pages(pdfData []byte) ([]image.Image, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	images := make([]image.Image, 0, doc.NumPage())
	for n := 0; n < doc.NumPage(); n++ {
		img, err := doc.ImageDPI(n, f.DPI)
		if err != nil {
			return nil, fmt.Errorf("rendering PDF page %d: %w", n+1, err)
		}
		images = append(images, img)
	}
	return images, nil
}
