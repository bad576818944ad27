package service

import (
	"context"
	"mime"
	"path/filepath"
	"strings"

	"blogmsg/internal/constants"
	"blogmsg/internal/models"
	"blogmsg/pkg/messaging"

	apperrors "blogmsg/internal/errors"

	"github.com/sirupsen/logrus"
)

// AttachmentKind is the coarse split the composer cares about.
type AttachmentKind string

const (
	KindImage AttachmentKind = "image"
	KindFile  AttachmentKind = "file"
)

// Uploader pushes attachment bytes to the storage endpoints. Size ceilings
// are enforced before any network call; an oversized file never leaves the
// client.
type Uploader struct {
	client messaging.Client
	logger *logrus.Logger
}

func NewUploader(client messaging.Client, logger *logrus.Logger) *Uploader {
	if logger == nil {
		logger = logrus.New()
	}
	return &Uploader{client: client, logger: logger}
}

// UploadImage stores an image, rejecting anything over the image ceiling.
func (u *Uploader) UploadImage(ctx context.Context, filename string, data []byte) (*models.AttachmentMeta, error) {
	limit := int64(constants.MaxImageSizeMB) * 1024 * 1024
	if int64(len(data)) > limit {
		return nil, apperrors.NewAttachmentTooLargeError("image", int64(len(data)), limit)
	}

	resp, err := u.client.UploadImage(ctx, filename, data)
	if err != nil {
		u.logger.WithError(err).WithField("filename", filename).Warn("Image upload failed")
		return nil, err
	}

	return &models.AttachmentMeta{
		URL:      resp.URL,
		Filename: resp.Filename,
		Size:     resp.Size,
		MimeType: resp.MimeType,
	}, nil
}

// UploadFile stores a generic attachment, rejecting anything over the file
// ceiling.
func (u *Uploader) UploadFile(ctx context.Context, filename string, data []byte) (*models.AttachmentMeta, error) {
	limit := int64(constants.MaxAttachmentSizeMB) * 1024 * 1024
	if int64(len(data)) > limit {
		return nil, apperrors.NewAttachmentTooLargeError("attachment", int64(len(data)), limit)
	}

	resp, err := u.client.UploadFile(ctx, filename, data)
	if err != nil {
		u.logger.WithError(err).WithField("filename", filename).Warn("File upload failed")
		return nil, err
	}

	return &models.AttachmentMeta{
		URL:      resp.URL,
		Filename: resp.Filename,
		Size:     resp.Size,
		MimeType: resp.MimeType,
	}, nil
}

// KindOf classifies a MIME type into the image/file split.
func KindOf(mimeType string) AttachmentKind {
	if strings.HasPrefix(mimeType, "image/") {
		return KindImage
	}
	return KindFile
}

// DetectContentType resolves a MIME type from a filename extension, with a
// manual fallback for types the platform registry may not know.
func DetectContentType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))

	if contentType := mime.TypeByExtension(ext); contentType != "" {
		return contentType
	}

	switch ext {
	case ".jpg", ".jpeg", ".jfif":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".pdf":
		return "application/pdf"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt":
		return "text/plain"
	case ".zip":
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}
