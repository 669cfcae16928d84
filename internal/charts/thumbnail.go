package charts

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// ThumbnailWidth is the default width of chart previews.
const ThumbnailWidth = 400

// Thumbnail shrinks a PNG so its longer side is at most maxDim, keeping the
// aspect ratio. Images already small enough are re-encoded unchanged.
func Thumbnail(data []byte, maxDim int) ([]byte, error) {
	if maxDim <= 0 {
		return nil, fmt.Errorf("invalid thumbnail size %d", maxDim)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width > maxDim || height > maxDim {
		// a zero dimension tells imaging to keep the aspect ratio
		if width >= height {
			img = imaging.Resize(img, maxDim, 0, imaging.Lanczos)
		} else {
			img = imaging.Resize(img, 0, maxDim, imaging.Lanczos)
		}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
