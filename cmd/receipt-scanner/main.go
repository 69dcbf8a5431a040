package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/receipt-scanner/internal/receipt"
	"github.com/zombor/receipt-scanner/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

// config holds the settings for the pluggable store and OCR engine
type config struct {
	storeType         string
	storeURL          string
	storeKey          string
	postgresDSN       string
	dbPath            string
	ocrType           string
	tesseractLang     string
	visionCredentials string
	azureEndpoint     string
	azureKey          string
	geminiKey         string
	geminiModel       string
	ollamaURL         string
	ollamaModel       string
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// Values from .env become environment variables; real environment variables win
	envFile := os.Getenv("RECEIPT_SCANNER_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Error("Failed to load env file", "path", envFile, "error", err)
		os.Exit(1)
	}

	fs := ff.NewFlagSet("receipt-scanner")
	var (
		port              = fs.IntLong("port", 8080, "HTTP server port")
		uploadsPath       = fs.StringLong("uploads", "./uploads", "Directory for uploaded originals")
		storeType         = fs.StringLong("store", "supabase", "Store type: 'supabase', 'postgres' or 'bolt'")
		storeURL          = fs.StringLong("store-url", "", "Supabase project URL")
		storeKey          = fs.StringLong("store-key", "", "Supabase API key")
		postgresDSN       = fs.StringLong("postgres-dsn", "", "Postgres connection string (store=postgres)")
		dbPath            = fs.StringLong("db", "receipts.db", "BoltDB file path (store=bolt)")
		ocrType           = fs.StringLong("ocr", "tesseract", "OCR engine: 'tesseract', 'vision', 'azure', 'gemini' or 'ollama'")
		tesseractLang     = fs.StringLong("tesseract-lang", "eng", "Tesseract language codes, '+' separated")
		visionCredentials = fs.StringLong("vision-credentials", "", "Google service account JSON file (default credentials if empty)")
		azureEndpoint     = fs.StringLong("azure-endpoint", "", "Azure Computer Vision endpoint")
		azureKey          = fs.StringLong("azure-key", "", "Azure Computer Vision key")
		geminiKey         = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel       = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL         = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel       = fs.StringLong("ollama-model", "llava", "Ollama vision model name")
		pdfText           = fs.StringLong("pdf-text", "fitz", "PDF text layer reader: 'fitz' or 'native'")
		dpi               = fs.IntLong("dpi", scanning.DefaultDPI, "Resolution for rasterizing scanned PDF pages")
		authUser          = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass          = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion       = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPT_SCANNER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	cfg := config{
		storeType:         *storeType,
		storeURL:          *storeURL,
		storeKey:          *storeKey,
		postgresDSN:       *postgresDSN,
		dbPath:            *dbPath,
		ocrType:           *ocrType,
		tesseractLang:     *tesseractLang,
		visionCredentials: *visionCredentials,
		azureEndpoint:     *azureEndpoint,
		azureKey:          *azureKey,
		geminiKey:         *geminiKey,
		geminiModel:       *geminiModel,
		ollamaURL:         *ollamaURL,
		ollamaModel:       *ollamaModel,
	}

	ctx := context.Background()

	// Initialize store
	slog.Info("Initializing store...", "type", cfg.storeType)
	store, err := newStore(cfg)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Initialize OCR engine
	slog.Info("Initializing OCR engine...", "type", cfg.ocrType)
	ocr, err := newOCR(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize OCR engine", "error", err)
		os.Exit(1)
	}
	defer ocr.Close()

	textLayer, err := newTextLayer(*pdfText)
	if err != nil {
		slog.Error("Failed to initialize PDF reader", "error", err)
		os.Exit(1)
	}

	// Initialize storage
	slog.Info("Initializing uploads storage...", "path", *uploadsPath)
	storage, err := receipt.NewLocalStorage(*uploadsPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	acquirer := scanning.NewAcquirer(ocr, textLayer, scanning.NewFitzRasterizer(float64(*dpi)))
	service := receipt.NewService(acquirer, store, storage)

	basicAuth := receipt.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := receipt.NewServer(service, basicAuth)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}

// newStore builds the persistence gateway. Missing connection settings are fatal.
func newStore(cfg config) (receipt.Store, error) {
	switch cfg.storeType {
	case "supabase":
		return receipt.NewSupabaseStore(cfg.storeURL, cfg.storeKey)
	case "postgres":
		return receipt.NewPostgresStore(cfg.postgresDSN)
	case "bolt":
		return receipt.NewBoltStore(cfg.dbPath)
	default:
		return nil, fmt.Errorf("invalid store type %q: expected supabase, postgres or bolt", cfg.storeType)
	}
}

// newOCR builds the configured OCR engine
func newOCR(ctx context.Context, cfg config) (scanning.OCR, error) {
	switch cfg.ocrType {
	case "tesseract":
		return scanning.NewTesseract(strings.Split(cfg.tesseractLang, "+")...)
	case "vision":
		return scanning.NewVision(ctx, cfg.visionCredentials)
	case "azure":
		return scanning.NewAzure(cfg.azureEndpoint, cfg.azureKey)
	case "gemini":
		apiKey := cfg.geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			return nil, errors.New("gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
		}
		return scanning.NewGemini(apiKey, cfg.geminiModel)
	case "ollama":
		return scanning.NewOllama(cfg.ollamaURL, cfg.ollamaModel)
	default:
		return nil, fmt.Errorf("invalid OCR engine %q: expected tesseract, vision, azure, gemini or ollama", cfg.ocrType)
	}
}

// newTextLayer selects the PDF text layer reader
func newTextLayer(name string) (scanning.TextLayer, error) {
	switch name {
	case "fitz":
		return scanning.FitzTextLayer{}, nil
	case "native":
		return scanning.NativeTextLayer{}, nil
	default:
		return nil, fmt.Errorf("invalid PDF text reader %q: expected fitz or native", name)
	}
}
