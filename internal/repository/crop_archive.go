package repository

import (
	"context"
	"fmt"
	"image/jpeg"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

const cropJPEGQuality = 95

// CropArchive writes accepted enrollment crops to
// <dir>/<account>/<timestamp>_<n>.jpg for later review or re-enrollment.
type CropArchive struct {
	dir string
	now func() time.Time
}

func NewCropArchive(dir string) *CropArchive {
	return &CropArchive{dir: dir, now: time.Now}
}

func (a *CropArchive) Save(ctx context.Context, accountID string, crops []domain.FaceCrop) error {
	accountDir := filepath.Join(a.dir, url.PathEscape(accountID))
	if err := os.MkdirAll(accountDir, 0o750); err != nil {
		return fmt.Errorf("create crop dir: %w", err)
	}

	stamp := a.now().UTC().Format("20060102T150405.000000")
	for i, crop := range crops {
		if err := ctx.Err(); err != nil {
			return err
		}
		if crop.Image == nil {
			continue
		}

		path := filepath.Join(accountDir, fmt.Sprintf("%s_%02d.jpg", stamp, i))
		if err := writeJPEG(path, crop); err != nil {
			return err
		}
	}
	return nil
}

func writeJPEG(path string, crop domain.FaceCrop) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return fmt.Errorf("create crop %s: %w", filepath.Base(path), err)
	}
	if err := jpeg.Encode(f, crop.Image, &jpeg.Options{Quality: cropJPEGQuality}); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode crop %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close crop %s: %w", filepath.Base(path), err)
	}
	return nil
}
