package domain

import (
	"image"
)

// CropSize is the edge length of every FaceCrop.
const CropSize = 112

// BoundingBox is a face rectangle in source-image pixel coordinates.
type BoundingBox struct {
	X1         int     `json:"x1"`
	Y1         int     `json:"y1"`
	X2         int     `json:"x2"`
	Y2         int     `json:"y2"`
	Confidence float64 `json:"confidence"`
}

func (b BoundingBox) Width() int  { return b.X2 - b.X1 }
func (b BoundingBox) Height() int { return b.Y2 - b.Y1 }

// Valid reports whether the box has a positive area.
func (b BoundingBox) Valid() bool {
	return b.X1 < b.X2 && b.Y1 < b.Y2
}

// Rect returns the box as an image.Rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// Clamp restricts the box to bounds. The result may be invalid when the box
// lies completely outside bounds.
func (b BoundingBox) Clamp(bounds image.Rectangle) BoundingBox {
	b.X1 = max(b.X1, bounds.Min.X)
	b.Y1 = max(b.Y1, bounds.Min.Y)
	b.X2 = min(b.X2, bounds.Max.X)
	b.Y2 = min(b.Y2, bounds.Max.Y)
	return b
}

// FaceCrop is a CropSize×CropSize color image cut out of a source frame.
// Box is the expanded region it was taken from.
type FaceCrop struct {
	Image *image.RGBA
	Box   BoundingBox
}
