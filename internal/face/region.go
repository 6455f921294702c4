package face

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

const (
	// DefaultPaddingRatio is the fraction of the face height added around it.
	DefaultPaddingRatio = 0.4

	horizontalPaddingFactor = 0.75
	topPaddingFactor        = 1.2
	bottomPaddingFactor     = 0.8
)

// RegionExpander grows a detected box to include hair and chin, then cuts
// and resizes it to a square crop.
type RegionExpander struct {
	paddingRatio float64
}

func NewRegionExpander(paddingRatio float64) *RegionExpander {
	return &RegionExpander{paddingRatio: paddingRatio}
}

// ExpandedBox returns the padded and clamped region for box. More padding
// goes above the face than below it.
func (e *RegionExpander) ExpandedBox(bounds image.Rectangle, box domain.BoundingBox) domain.BoundingBox {
	padH := int(float64(box.Height()) * e.paddingRatio)
	padW := int(float64(box.Width()) * e.paddingRatio * horizontalPaddingFactor)

	return domain.BoundingBox{
		X1:         box.X1 - padW,
		Y1:         box.Y1 - int(float64(padH)*topPaddingFactor),
		X2:         box.X2 + padW,
		Y2:         box.Y2 + int(float64(padH)*bottomPaddingFactor),
		Confidence: box.Confidence,
	}.Clamp(bounds)
}

// Expand crops the expanded region and stretches it to CropSize×CropSize
// with bilinear interpolation. Aspect ratio is not preserved.
func (e *RegionExpander) Expand(img image.Image, box domain.BoundingBox) (domain.FaceCrop, error) {
	if !box.Valid() {
		return domain.FaceCrop{}, fmt.Errorf("expand: degenerate box %+v", box)
	}

	region := e.ExpandedBox(img.Bounds(), box)
	if !region.Valid() {
		return domain.FaceCrop{}, fmt.Errorf("expand: box %+v lies outside image %v", box, img.Bounds())
	}

	dst := image.NewRGBA(image.Rect(0, 0, domain.CropSize, domain.CropSize))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, region.Rect(), draw.Src, nil)

	return domain.FaceCrop{Image: dst, Box: region}, nil
}
