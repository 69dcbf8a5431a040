package scanning

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"strings"
)

// OCR recognizes the text in a raster image
type OCR interface {
	// Recognize returns the full recognized text of the image
	Recognize(ctx context.Context, img image.Image) (string, error)

	// Close releases engine resources
	Close() error
}

// TextLayer reads the embedded text of a PDF, one string per page in page order
type TextLayer interface {
	PageTexts(pdfData []byte) ([]string, error)
}

// Rasterizer renders every page of a PDF, in page order
type Rasterizer interface {
	Pages(pdfData []byte) ([]image.Image, error)
}

// Kind is the upload category derived from the filename extension
type Kind string

const (
	KindImage Kind = "image"
	KindPDF   Kind = "pdf"
)

// Source describes how the text of an upload was obtained
type Source string

const (
	SourceOCR         Source = "ocr"
	SourceTextLayer   Source = "text-layer"
	SourceOCRFallback Source = "ocr-fallback"
)

// ErrUnsupportedType is returned for uploads that are not jpg, jpeg, png or pdf
var ErrUnsupportedType = errors.New("unsupported file type: expected jpg, jpeg, png or pdf")

// AcquisitionError reports that text could not be obtained from an upload.
// Nothing should be extracted when Acquire returns one.
type AcquisitionError struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("processing %s: %s: %v", e.Kind, e.Reason, e.Err)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

// Message is the text shown to the user
func (e *AcquisitionError) Message() string {
	label := "image"
	if e.Kind == KindPDF {
		label = "PDF"
	}
	return fmt.Sprintf("Error processing %s: %s: %v", label, e.Reason, e.Err)
}

// Acquisition is the raw text obtained from one upload
type Acquisition struct {
	Text   string
	Kind   Kind
	Source Source
	Pages  int
}

// KindOf classifies a filename by its lowercased extension
func KindOf(filename string) (Kind, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	switch ext {
	case "jpg", "jpeg", "png":
		return KindImage, nil
	case "pdf":
		return KindPDF, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, filename)
	}
}

// Acquirer turns uploaded images and PDFs into raw text
type Acquirer struct {
	ocr        OCR
	textLayer  TextLayer
	rasterizer Rasterizer
}

// NewAcquirer creates an Acquirer from an OCR engine and PDF collaborators
func NewAcquirer(ocr OCR, textLayer TextLayer, rasterizer Rasterizer) *Acquirer {
	return &Acquirer{
		ocr:        ocr,
		textLayer:  textLayer,
		rasterizer: rasterizer,
	}
}

// Acquire returns the text of an upload. Failures while reading the upload
// are returned as *AcquisitionError; an unknown extension is ErrUnsupportedType.
func (a *Acquirer) Acquire(ctx context.Context, filename string, data []byte) (*Acquisition, error) {
	kind, err := KindOf(filename)
	if err != nil {
		return nil, err
	}

	if kind == KindPDF {
		return a.acquirePDF(ctx, data)
	}
	return a.acquireImage(ctx, data)
}

func (a *Acquirer) acquireImage(ctx context.Context, data []byte) (*Acquisition, error) {
	img, err := decodeImage(data)
	if err != nil {
		return nil, &AcquisitionError{Kind: KindImage, Reason: "decoding image", Err: err}
	}

	text, err := a.ocr.Recognize(ctx, img)
	if err != nil {
		return nil, &AcquisitionError{Kind: KindImage, Reason: "recognizing text", Err: err}
	}

	return &Acquisition{
		Text:   text,
		Kind:   KindImage,
		Source: SourceOCR,
		Pages:  1,
	}, nil
}

func (a *Acquirer) acquirePDF(ctx context.Context, data []byte) (*Acquisition, error) {
	pages, err := a.textLayer.PageTexts(data)
	if err != nil {
		return nil, &AcquisitionError{Kind: KindPDF, Reason: "reading text layer", Err: err}
	}

	var text strings.Builder
	for _, page := range pages {
		text.WriteString(page)
		text.WriteString("\n")
	}
	if strings.TrimSpace(text.String()) != "" {
		return &Acquisition{
			Text:   text.String(),
			Kind:   KindPDF,
			Source: SourceTextLayer,
			Pages:  len(pages),
		}, nil
	}

	images, err := a.rasterizer.Pages(data)
	if err != nil {
		return nil, &AcquisitionError{Kind: KindPDF, Reason: "rasterizing pages", Err: err}
	}

	slog.Info("PDF has no text layer, falling back to OCR", "pages", len(images))

	text.Reset()
	for i, img := range images {
		pageText, err := a.ocr.Recognize(ctx, img)
		if err != nil {
			return nil, &AcquisitionError{
				Kind:   KindPDF,
				Reason: fmt.Sprintf("recognizing page %d", i+1),
				Err:    err,
			}
		}
		text.WriteString(pageText)
		text.WriteString("\n")
	}

	return &Acquisition{
		Text:   text.String(),
		Kind:   KindPDF,
		Source: SourceOCRFallback,
		Pages:  len(images),
	}, nil
}
