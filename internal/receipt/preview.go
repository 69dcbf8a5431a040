package receipt

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// PreviewWidth is the width of the thumbnail shown next to the extracted fields
const PreviewWidth = 300

// Thumbnail decodes an uploaded image and scales it down to width, keeping
// the aspect ratio. Smaller images are not enlarged.
func Thumbnail(data []byte, width int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	if img.Bounds().Dx() > width {
		img = imaging.Resize(img, width, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encoding thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
