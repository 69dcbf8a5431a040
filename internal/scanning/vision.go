package scanning

import (
	"context"
	"errors"
	"fmt"
	"image"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

// Vision implements the OCR interface using Google Cloud Vision document text detection
type Vision struct {
	client *vision.ImageAnnotatorClient
}

// NewVision creates a Vision engine. An empty credentialsFile falls back to
// application default credentials.
func NewVision(ctx context.Context, credentialsFile string) (*Vision, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating vision client: %w", err)
	}

	return &Vision{client: client}, nil
}

// Recognize returns the full text annotation of the image
func (v *Vision) Recognize(ctx context.Context, img image.Image) (string, error) {
	pngData, err := encodePNG(img)
	if err != nil {
		return "", err
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: pngData},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	}

	resp, err := v.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return "", fmt.Errorf("vision API call failed: %w", err)
	}

	return visionText(resp)
}

// visionText pulls the page text out of a batch response holding one image
func visionText(resp *visionpb.BatchAnnotateImagesResponse) (string, error) {
	if resp == nil || len(resp.Responses) == 0 {
		return "", errors.New("no response from vision API")
	}

	annotation := resp.Responses[0]
	if annotation.Error != nil {
		return "", fmt.Errorf("vision API error: %s", annotation.Error.Message)
	}

	// Blank images come back without an annotation
	if annotation.FullTextAnnotation == nil {
		return "", nil
	}
	return annotation.FullTextAnnotation.Text, nil
}

// Close closes the underlying Vision client
func (v *Vision) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}
