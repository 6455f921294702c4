package face

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// DecodeImage decodes a JPEG, PNG, BMP or WebP payload.
func DecodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, domain.ErrInvalidImage.WithError(fmt.Errorf("empty payload"))
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}

	b := img.Bounds()
	if b.Dx() < 2 || b.Dy() < 2 {
		return nil, domain.ErrInvalidImage.WithError(fmt.Errorf("%s image too small: %dx%d", format, b.Dx(), b.Dy()))
	}

	return img, nil
}
