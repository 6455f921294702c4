package mock

import (
	"context"
	"image"
	"image/color"
	"math/rand/v2"

	"github.com/saturnino-fabrica-de-software/facegate/internal/provider"
)

const (
	// Background é o cinza neutro que o Detector trata como "sem rosto".
	Background = 128

	foregroundTolerance = 12
	poolSize            = 8
	defaultConfidence   = 0.99
)

var (
	_ provider.Detector = (*Detector)(nil)
	_ provider.Embedder = (*Embedder)(nil)
)

// Detector implementa provider.Detector para testes e desenvolvimento.
// Cada faixa contígua de colunas com pixels diferentes do fundo vira uma
// detecção, da esquerda para a direita.
type Detector struct {
	Confidence float64
}

func NewDetector() *Detector {
	return &Detector{Confidence: defaultConfidence}
}

func (d *Detector) Predict(ctx context.Context, img image.Image, minConfidence float64) ([]provider.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.Confidence <= minConfidence {
		return []provider.Detection{}, nil
	}

	b := img.Bounds()
	active := make([]bool, b.Dx())
	for x := b.Min.X; x < b.Max.X; x++ {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			if isForeground(img.At(x, y)) {
				active[x-b.Min.X] = true
				break
			}
		}
	}

	detections := []provider.Detection{}
	for start := 0; start < len(active); {
		if !active[start] {
			start++
			continue
		}
		end := start
		for end < len(active) && active[end] {
			end++
		}

		y1, y2 := b.Max.Y, b.Min.Y
		for x := b.Min.X + start; x < b.Min.X+end; x++ {
			for y := b.Min.Y; y < b.Max.Y; y++ {
				if isForeground(img.At(x, y)) {
					y1 = min(y1, y)
					y2 = max(y2, y+1)
				}
			}
		}

		detections = append(detections, provider.Detection{
			X1:         float64(b.Min.X + start),
			Y1:         float64(y1),
			X2:         float64(b.Min.X + end),
			Y2:         float64(y2),
			Confidence: d.Confidence,
		})
		start = end
	}

	return detections, nil
}

func isForeground(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	for _, v := range [3]uint32{r >> 8, g >> 8, b >> 8} {
		diff := int(v) - Background
		if diff > foregroundTolerance || diff < -foregroundTolerance {
			return true
		}
	}
	return false
}

// Embedder implementa provider.Embedder com average pooling do tensor.
// Imagens parecidas produzem vetores parecidos, o que basta para testar
// o fluxo completo sem um modelo real.
type Embedder struct{}

func NewEmbedder() *Embedder {
	return &Embedder{}
}

func (e *Embedder) Infer(ctx context.Context, input provider.Tensor) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	channels, h, w := input.Shape[1], input.Shape[2], input.Shape[3]
	if input.Shape[0] != 1 || len(input.Data) != input.Len() {
		return nil, errShape
	}

	cellsY := (h + poolSize - 1) / poolSize
	cellsX := (w + poolSize - 1) / poolSize
	out := make([]float32, 0, channels*cellsY*cellsX)

	for c := 0; c < channels; c++ {
		plane := input.Data[c*h*w : (c+1)*h*w]
		for cy := 0; cy < cellsY; cy++ {
			for cx := 0; cx < cellsX; cx++ {
				var sum float32
				var n int
				for y := cy * poolSize; y < min((cy+1)*poolSize, h); y++ {
					for x := cx * poolSize; x < min((cx+1)*poolSize, w); x++ {
						sum += plane[y*w+x]
						n++
					}
				}
				out = append(out, sum/float32(n))
			}
		}
	}

	return out, nil
}

// SyntheticFace desenha um "rosto" determinístico no centro de um fundo
// cinza. O mesmo seed produz a mesma pessoa; variant muda só o ruído.
func SyntheticFace(seed, variant uint64, w, h int) *image.RGBA {
	img := BlankImage(w, h)
	DrawFace(img, image.Rect(w/4, h/4, 3*w/4, 3*h/4), seed, variant)
	return img
}

// BlankImage retorna uma imagem só com o fundo, sem rosto.
func BlankImage(w, h int) *image.RGBA {
	return FlatImage(w, h, Background)
}

// FlatImage retorna uma imagem de cor única. Qualquer valor diferente do
// fundo é detectado como um rosto sem textura.
func FlatImage(w, h int, gray uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = gray
		img.Pix[i+1] = gray
		img.Pix[i+2] = gray
		img.Pix[i+3] = 255
	}
	return img
}

// DrawFace pinta rect com blocos de 5px cuja cor depende só de seed, mais
// um ruído de ±8 que depende de variant.
func DrawFace(img *image.RGBA, rect image.Rectangle, seed, variant uint64) {
	const block = 5

	pattern := rand.New(rand.NewPCG(seed, 0x5eed))
	noise := rand.New(rand.NewPCG(seed, variant+1))

	cols := (rect.Dx() + block - 1) / block
	rows := (rect.Dy() + block - 1) / block
	colors := make([][3]int, cols*rows)
	for i := range colors {
		for c := 0; c < 3; c++ {
			v := pattern.IntN(90)
			if pattern.IntN(2) == 0 {
				colors[i][c] = 10 + v
			} else {
				colors[i][c] = 156 + v
			}
		}
	}

	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			cell := colors[((y-rect.Min.Y)/block)*cols+(x-rect.Min.X)/block]
			off := img.PixOffset(x, y)
			for c := 0; c < 3; c++ {
				img.Pix[off+c] = uint8(cell[c] + noise.IntN(17) - 8)
			}
			img.Pix[off+3] = 255
		}
	}
}
