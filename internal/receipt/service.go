package receipt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/receipt-scanner/internal/extraction"
	"github.com/zombor/receipt-scanner/internal/scanning"
)

// TextSource turns an upload into raw text
type TextSource interface {
	Acquire(ctx context.Context, filename string, data []byte) (*scanning.Acquisition, error)
}

// ErrNoText is returned when an upload was read but yielded no text
var ErrNoText = errors.New("no text found in upload")

// IDGenerator generates unique IDs for uploads
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates random UUIDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service runs the scan pipeline and the persistence gateway
type Service struct {
	source      TextSource
	store       Store
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(source TextSource, store Store, storage Storage) *Service {
	return &Service{
		source:      source,
		store:       store,
		storage:     storage,
		idGenerator: &defaultIDGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(source TextSource, store Store, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		source:      source,
		store:       store,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	repeatedSpaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = repeatedSpaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	// Truncate to reasonable length (50 chars for base, plus extension)
	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}

	if base == "" {
		base = "receipt"
	}

	return base + ext
}

// Scan stores the original upload, reads its text and extracts a record.
// Acquisition failures are returned wrapping *scanning.AcquisitionError.
func (s *Service) Scan(ctx context.Context, filename string, data []byte) (*Scan, error) {
	kind, err := scanning.KindOf(filename)
	if err != nil {
		return nil, err
	}

	id := s.idGenerator.Generate()

	savedName, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving upload: %w", err)
	}

	acquisition, err := s.source.Acquire(ctx, filename, data)
	if err != nil {
		slog.Error("Failed to read receipt text",
			"filename", filename,
			"kind", kind,
			"file_size", len(data),
			"error", err,
		)
		// Nothing was extracted, so the original is not worth keeping
		if delErr := s.storage.Delete(savedName); delErr != nil {
			slog.Warn("Failed to delete upload", "upload", savedName, "error", delErr)
		}
		return nil, fmt.Errorf("acquiring text: %w", err)
	}

	if strings.TrimSpace(acquisition.Text) == "" {
		slog.Warn("No text found in receipt",
			"filename", filename,
			"source", acquisition.Source,
			"pages", acquisition.Pages,
		)
		if delErr := s.storage.Delete(savedName); delErr != nil {
			slog.Warn("Failed to delete upload", "upload", savedName, "error", delErr)
		}
		return nil, ErrNoText
	}

	fields := extraction.Extract(acquisition.Text)
	record := NewRecord(fields, s.timeSource.Now())

	slog.Info("Extracted receipt",
		"filename", filename,
		"source", acquisition.Source,
		"pages", acquisition.Pages,
		"vendor", record.VendorName,
	)

	return &Scan{
		Record:   record,
		RawText:  acquisition.Text,
		Kind:     acquisition.Kind,
		Source:   acquisition.Source,
		Pages:    acquisition.Pages,
		Filename: filename,
		Upload:   savedName,
	}, nil
}

// Save inserts the record into the store. The error is not retried.
func (s *Service) Save(ctx context.Context, record Record) error {
	if err := s.store.Insert(ctx, record); err != nil {
		return fmt.Errorf("saving receipt: %w", err)
	}
	return nil
}

// ErrNoPreview is returned for uploads that cannot be previewed
var ErrNoPreview = errors.New("preview not available")

// Preview returns a PNG thumbnail of a stored image upload
func (s *Service) Preview(name string) ([]byte, error) {
	kind, err := scanning.KindOf(name)
	if err != nil || kind != scanning.KindImage {
		return nil, ErrNoPreview
	}

	data, err := s.storage.Get(name)
	if err != nil {
		return nil, fmt.Errorf("getting upload: %w", err)
	}

	thumb, err := Thumbnail(data, PreviewWidth)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoPreview, err)
	}
	return thumb, nil
}
