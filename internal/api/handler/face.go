package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/service"
)

const (
	maxImageSize = 10 * 1024 * 1024 // 10MB
)

var validImageTypes = map[string]bool{
	"image/jpeg":               true,
	"image/png":                true,
	"image/webp":               true,
	"image/bmp":                true,
	"image/x-ms-bmp":           true,
	"application/octet-stream": true,
}

// Pipeline is the part of service.Pipeline the face endpoints need.
type Pipeline interface {
	Enroll(ctx context.Context, req service.EnrollRequest) (*domain.EnrollResult, error)
	Verify(ctx context.Context, imageBytes []byte) (*domain.VerifyResult, error)
	VerifyAll(ctx context.Context, imageBytes []byte) (*domain.MultiVerifyResult, error)
}

// FaceHandler handles enrollment and verification requests
type FaceHandler struct {
	pipeline Pipeline
	logger   *slog.Logger
}

func NewFaceHandler(pipeline Pipeline, logger *slog.Logger) *FaceHandler {
	return &FaceHandler{
		pipeline: pipeline,
		logger:   logger,
	}
}

// Enroll POST /v1/enroll - register a person from 5 to 20 images
func (h *FaceHandler) Enroll(c *fiber.Ctx) error {
	name := strings.TrimSpace(c.FormValue("name"))
	accountID := strings.TrimSpace(c.FormValue("account_id"))
	if name == "" || accountID == "" {
		return domain.ErrValidationFailed.WithError(errors.New("name and account_id are required"))
	}

	form, err := c.MultipartForm()
	if err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}

	files := form.File["files"]
	if len(files) == 0 {
		files = form.File["files[]"]
	}
	if len(files) < domain.MinEnrollImages || len(files) > domain.MaxEnrollImages {
		return domain.ErrInvalidSampleCount
	}

	// Undecodable files are reported per sample by the pipeline, so only
	// the size is checked here.
	images := make([][]byte, 0, len(files))
	for i, file := range files {
		data, err := readUpload(file)
		if err != nil {
			return fmt.Errorf("file %d: %w", i, err)
		}
		images = append(images, data)
	}

	result, err := h.pipeline.Enroll(c.UserContext(), service.EnrollRequest{
		Name:      name,
		AccountID: accountID,
		Images:    images,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

// Verify POST /v1/verify - identify the first face in the image
func (h *FaceHandler) Verify(c *fiber.Ctx) error {
	imageBytes, err := extractAndValidateImage(c)
	if err != nil {
		return err
	}

	result, err := h.pipeline.Verify(c.UserContext(), imageBytes)
	if err != nil {
		return err
	}

	return c.JSON(result)
}

// VerifyMulti POST /v1/verify/multi - identify every face in the image
func (h *FaceHandler) VerifyMulti(c *fiber.Ctx) error {
	imageBytes, err := extractAndValidateImage(c)
	if err != nil {
		return err
	}

	result, err := h.pipeline.VerifyAll(c.UserContext(), imageBytes)
	if err != nil {
		return err
	}

	return c.JSON(result)
}

// extractAndValidateImage reads the "file" part of a multipart request.
func extractAndValidateImage(c *fiber.Ctx) ([]byte, error) {
	file, err := c.FormFile("file")
	if err != nil {
		return nil, domain.ErrValidationFailed.WithError(errors.New("file is required"))
	}

	contentType := file.Header.Get("Content-Type")
	if contentType != "" && !validImageTypes[contentType] {
		return nil, domain.ErrInvalidImage.WithError(fmt.Errorf("unsupported content type %q", contentType))
	}

	return readUpload(file)
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	if file.Size == 0 {
		return nil, domain.ErrInvalidImage.WithError(errors.New("empty file"))
	}
	if file.Size > maxImageSize {
		return nil, domain.ErrInvalidImage.WithError(fmt.Errorf("file exceeds %d bytes", maxImageSize))
	}

	f, err := file.Open()
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	defer func() {
		_ = f.Close()
	}()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}

	return data, nil
}
