package face

import (
	"image"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// DefaultLivenessThreshold is the Laplacian variance a crop must exceed.
const DefaultLivenessThreshold = 50.0

// LivenessClassifier is a passive, single-feature texture check: printed
// photos and screens tend to be blurrier than a live face. High resolution
// replays defeat it.
type LivenessClassifier struct {
	threshold float64
}

func NewLivenessClassifier(threshold float64) *LivenessClassifier {
	return &LivenessClassifier{threshold: threshold}
}

// IsLive reports whether the crop's sharpness is strictly above threshold.
func (l *LivenessClassifier) IsLive(crop domain.FaceCrop) bool {
	live, _ := l.Check(crop)
	return live
}

// Check returns the liveness decision together with the score it was made on.
func (l *LivenessClassifier) Check(crop domain.FaceCrop) (bool, float64) {
	score := l.Score(crop)
	return score > l.threshold, score
}

// Score returns the population variance of the Laplacian of the crop's
// grayscale image.
func (l *LivenessClassifier) Score(crop domain.FaceCrop) float64 {
	if crop.Image == nil {
		return 0
	}
	return laplacianVariance(grayscale(crop.Image))
}

type grayImage struct {
	w, h int
	pix  []float64
}

// grayscale applies the ITU-R BT.601 luma weights and rounds to 8 bits.
func grayscale(img *image.RGBA) grayImage {
	b := img.Bounds()
	g := grayImage{w: b.Dx(), h: b.Dy(), pix: make([]float64, b.Dx()*b.Dy())}
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			off := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			r := float64(img.Pix[off])
			gr := float64(img.Pix[off+1])
			bl := float64(img.Pix[off+2])
			v := 0.299*r + 0.587*gr + 0.114*bl
			g.pix[y*g.w+x] = float64(int(v + 0.5))
		}
	}
	return g
}

// reflect101 maps i into [0, n) mirroring around the edge pixels
// without repeating them (dcb|abcd|cba).
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

// laplacianVariance convolves with the 4-neighbour kernel
// [0 1 0; 1 -4 1; 0 1 0] and returns the variance of the response.
func laplacianVariance(g grayImage) float64 {
	n := g.w * g.h
	if n == 0 {
		return 0
	}

	at := func(x, y int) float64 {
		return g.pix[reflect101(y, g.h)*g.w+reflect101(x, g.w)]
	}

	var sum, sumSq float64
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			v := at(x, y-1) + at(x-1, y) + at(x+1, y) + at(x, y+1) - 4*at(x, y)
			sum += v
			sumSq += v * v
		}
	}

	mean := sum / float64(n)
	return sumSq/float64(n) - mean*mean
}
