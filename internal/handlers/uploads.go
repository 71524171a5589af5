package handlers

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/arcade/backend/internal/storage"
	"github.com/arcade/backend/pkg/logger"
	"github.com/arcade/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	messageNoImage           = "No image file provided"
	messageNoFile            = "No file provided"
	messageUploadFailed      = "Upload failed"
	messageUploadURLFailed   = "Failed to generate upload URL"
	messageDownloadURLFailed = "Failed to generate download URL"
	messageKeyRequired       = "key is required"
	probeObjectName          = "test.txt"
	probeTimeout             = 5 * time.Second
	defaultContentType       = "application/octet-stream"
	demoArchiveType          = "zip"
	fallbackUploadName       = "file"
)

// ObjectStorage is the subset of the S3 client the upload routes need.
type ObjectStorage interface {
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	PresignedPutURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
	PresignedGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
	PublicURL(objectName string) string
	Probe(ctx context.Context, objectName string) error
}

type UploadsHandler struct {
	Storage ObjectStorage
	now     func() time.Time
}

func NewUploadsHandler(store ObjectStorage) *UploadsHandler {
	return &UploadsHandler{Storage: store, now: time.Now}
}

func (h *UploadsHandler) UploadImage(c *fiber.Ctx) error {
	userID := callerID(c)

	fileHeader, err := c.FormFile("image")
	if err != nil || fileHeader.Size == 0 {
		return utils.Error(c, fiber.StatusBadRequest, messageNoImage)
	}

	objectName := fmt.Sprintf("uploads/%d-%s", h.now().UnixMilli(), uploadBaseName(fileHeader.Filename))
	if err := h.store(c, fileHeader, objectName); err != nil {
		logger.ErrorWithUser(userID, "image_upload_failed", err, map[string]interface{}{
			"object_name": objectName,
			"size":        fileHeader.Size,
		})
		return utils.Error(c, fiber.StatusInternalServerError, messageUploadFailed)
	}

	logger.InfoWithUser(userID, "image_uploaded", map[string]interface{}{
		"object_name": objectName,
		"size":        fileHeader.Size,
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"url": h.Storage.PublicURL(objectName)})
}

func (h *UploadsHandler) UploadImageURL(c *fiber.Ctx) error {
	userID := callerID(c)

	probeCtx, cancel := context.WithTimeout(c.UserContext(), probeTimeout)
	if err := h.Storage.Probe(probeCtx, probeObjectName); err != nil {
		logger.WarnWithUser(userID, "storage_probe_failed", map[string]interface{}{
			"object_name": probeObjectName,
			"error":       err.Error(),
		})
	} else {
		logger.Debug("storage_probe_ok", map[string]interface{}{
			"object_name": probeObjectName,
		})
	}
	cancel()

	objectName := fmt.Sprintf("images/%d-%s", h.now().UnixMilli(), randomSuffix())
	signedURL, err := h.Storage.PresignedPutURL(c.UserContext(), objectName, storage.PresignExpiry)
	if err != nil {
		logger.ErrorWithUser(userID, "upload_url_failed", err, map[string]interface{}{
			"object_name": objectName,
		})
		return utils.Error(c, fiber.StatusInternalServerError, messageUploadURLFailed)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"url":       signedURL,
		"key":       objectName,
		"publicUrl": h.Storage.PublicURL(objectName),
	})
}

// DownloadURL signs a GET for the key captured by the wildcard segment. The
// key may be percent-encoded and may contain slashes.
func (h *UploadsHandler) DownloadURL(c *fiber.Ctx) error {
	userID := callerID(c)

	key, err := url.PathUnescape(c.Params("*"))
	if err != nil || strings.TrimSpace(key) == "" {
		return utils.Error(c, fiber.StatusBadRequest, messageKeyRequired)
	}

	signedURL, err := h.Storage.PresignedGetURL(c.UserContext(), key, storage.PresignExpiry)
	if err != nil {
		logger.ErrorWithUser(userID, "download_url_failed", err, map[string]interface{}{
			"object_name": key,
		})
		return utils.Error(c, fiber.StatusInternalServerError, messageDownloadURLFailed)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"url": signedURL})
}

// UploadDemo stores a demo bundle under demos/. A type of "zip" forces the
// zip extension regardless of the uploaded name.
func (h *UploadsHandler) UploadDemo(c *fiber.Ctx) error {
	userID := callerID(c)

	fileHeader, err := c.FormFile("file")
	if err != nil || fileHeader.Size == 0 {
		return utils.Error(c, fiber.StatusBadRequest, messageNoFile)
	}

	demoType := strings.TrimSpace(c.FormValue("type"))
	ext := strings.TrimPrefix(filepath.Ext(fileHeader.Filename), ".")
	if demoType == demoArchiveType {
		ext = demoArchiveType
	}
	if ext == "" {
		ext = "bin"
	}

	objectName := fmt.Sprintf("demos/%d-%s.%s", h.now().UnixMilli(), randomSuffix(), strings.ToLower(ext))
	if err := h.store(c, fileHeader, objectName); err != nil {
		logger.ErrorWithUser(userID, "demo_upload_failed", err, map[string]interface{}{
			"object_name": objectName,
			"type":        demoType,
		})
		return utils.Error(c, fiber.StatusInternalServerError, messageUploadFailed)
	}

	logger.InfoWithUser(userID, "demo_file_uploaded", map[string]interface{}{
		"object_name": objectName,
		"type":        demoType,
		"size":        fileHeader.Size,
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"url":      h.Storage.PublicURL(objectName),
		"fileName": objectName,
		"type":     demoType,
	})
}

func (h *UploadsHandler) store(c *fiber.Ctx, fileHeader *multipart.FileHeader, objectName string) error {
	stream, err := fileHeader.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer stream.Close()

	return h.Storage.Upload(c.UserContext(), objectName, stream, fileHeader.Size, uploadContentType(fileHeader))
}

func uploadContentType(fileHeader *multipart.FileHeader) string {
	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(fileHeader.Filename))
	}
	if contentType == "" {
		contentType = defaultContentType
	}
	return contentType
}

func uploadBaseName(name string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return fallbackUploadName
	}
	return base
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
