package face

import (
	"context"
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider"
)

const (
	// ModelInputSize is the square input edge expected by the embedder.
	ModelInputSize = 112

	verticalBorderRatio   = 0.3
	horizontalBorderRatio = 0.2
	pixelMean             = 127.5
	pixelScale            = 128.0
)

// EmbeddingExtractor computes unit-length embeddings for face crops.
type EmbeddingExtractor struct {
	embedder provider.Embedder
}

func NewEmbeddingExtractor(embedder provider.Embedder) *EmbeddingExtractor {
	return &EmbeddingExtractor{embedder: embedder}
}

// Embed runs the model on crop. Any backend failure, an empty output or a
// zero vector is reported as domain.ErrExtractionFailed.
func (e *EmbeddingExtractor) Embed(ctx context.Context, crop domain.FaceCrop) (domain.Embedding, error) {
	if crop.Image == nil {
		return nil, domain.ErrExtractionFailed.WithError(fmt.Errorf("crop has no image"))
	}

	raw, err := e.embedder.Infer(ctx, Preprocess(crop.Image))
	if err != nil {
		return nil, domain.ErrExtractionFailed.WithError(err)
	}

	emb, err := domain.NormalizeEmbedding(raw)
	if err != nil {
		return nil, domain.ErrExtractionFailed.WithError(err)
	}
	return emb, nil
}

// Preprocess builds the 1×3×112×112 model input from a crop. The crop is
// first bordered by replicating its edge pixels (30% of the height above
// and below, 20% of the width on each side), then resized, scaled to
// roughly [-1, 1] and laid out channel-first in B, G, R order.
func Preprocess(crop *image.RGBA) provider.Tensor {
	padded := replicateBorder(crop,
		int(float64(crop.Bounds().Dy())*verticalBorderRatio),
		int(float64(crop.Bounds().Dx())*horizontalBorderRatio),
	)

	resized := image.NewRGBA(image.Rect(0, 0, ModelInputSize, ModelInputSize))
	draw.BiLinear.Scale(resized, resized.Bounds(), padded, padded.Bounds(), draw.Src, nil)

	const plane = ModelInputSize * ModelInputSize
	data := make([]float32, 3*plane)
	for y := 0; y < ModelInputSize; y++ {
		for x := 0; x < ModelInputSize; x++ {
			off := resized.PixOffset(x, y)
			i := y*ModelInputSize + x
			data[i] = normalizePixel(resized.Pix[off+2])       // B
			data[plane+i] = normalizePixel(resized.Pix[off+1]) // G
			data[2*plane+i] = normalizePixel(resized.Pix[off]) // R
		}
	}

	return provider.Tensor{
		Shape: [4]int{1, 3, ModelInputSize, ModelInputSize},
		Data:  data,
	}
}

func normalizePixel(v uint8) float32 {
	return float32((float64(v) - pixelMean) / pixelScale)
}

// replicateBorder returns a copy of src with top/bottom rows and left/right
// columns of width padY and padX copied from the nearest edge pixel.
func replicateBorder(src *image.RGBA, padY, padX int) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w+2*padX, h+2*padY))

	for y := 0; y < h+2*padY; y++ {
		sy := b.Min.Y + min(max(y-padY, 0), h-1)
		for x := 0; x < w+2*padX; x++ {
			sx := b.Min.X + min(max(x-padX, 0), w-1)
			copy(dst.Pix[dst.PixOffset(x, y):dst.PixOffset(x, y)+4], src.Pix[src.PixOffset(sx, sy):src.PixOffset(sx, sy)+4])
		}
	}
	return dst
}
