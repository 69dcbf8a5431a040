package scanning

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"
)

// Azure implements the OCR interface with Azure Computer Vision printed text recognition
type Azure struct {
	client *computervision.BaseClient
}

// NewAzure creates an Azure engine for a Cognitive Services endpoint
func NewAzure(endpoint, apiKey string) (*Azure, error) {
	if endpoint == "" || apiKey == "" {
		return nil, fmt.Errorf("azure endpoint and key are required")
	}

	client := computervision.New(endpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(apiKey)

	return &Azure{client: &client}, nil
}

// Recognize returns the recognized lines, top to bottom, joined with newlines
func (a *Azure) Recognize(ctx context.Context, img image.Image) (string, error) {
	pngData, err := encodePNG(img)
	if err != nil {
		return "", err
	}

	result, err := a.client.RecognizePrintedTextInStream(
		ctx,
		true,
		io.NopCloser(bytes.NewReader(pngData)),
		computervision.OcrLanguages(computervision.En),
	)
	if err != nil {
		return "", fmt.Errorf("azure OCR failed: %w", err)
	}

	return azureText(result), nil
}

// azureText flattens regions and lines, joining words with spaces
func azureText(result computervision.OcrResult) string {
	if result.Regions == nil {
		return ""
	}

	var text strings.Builder
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			if line.Words == nil {
				continue
			}
			words := make([]string, 0, len(*line.Words))
			for _, word := range *line.Words {
				if word.Text != nil {
					words = append(words, *word.Text)
				}
			}
			text.WriteString(strings.Join(words, " "))
			text.WriteString("\n")
		}
	}
	return text.String()
}

// Close is a no-op; the client holds no connections
func (a *Azure) Close() error {
	return nil
}
