package media

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"

	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/internal/config"
)

const uploadTimeout = 60 * time.Second

// Cloudinary stores food item photos.
type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	folder string
	logger *zap.Logger
}

func NewCloudinary(cfg config.MediaConfig, logger *zap.Logger) (*Cloudinary, error) {
	if !cfg.Enabled() {
		return nil, errors.New("media: cloudinary credentials are not configured")
	}
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	folder := cfg.Folder
	if folder == "" {
		folder = "greenbite/food-items"
	}
	return &Cloudinary{cld: cld, folder: folder, logger: logger}, nil
}

// UploadImage uploads the image and returns its HTTPS URL.
func (c *Cloudinary) UploadImage(ctx context.Context, name string, file io.Reader) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	resp, err := c.cld.Upload.Upload(ctx, file, uploader.UploadParams{Folder: c.folder})
	if err != nil {
		return "", domain.Unavailable("image upload failed", err)
	}
	if resp.Error.Message != "" {
		return "", domain.Unavailable("image upload failed", errors.New(resp.Error.Message))
	}
	c.logger.Debug("image uploaded", zap.String("name", name), zap.String("public_id", resp.PublicID))
	return resp.SecureURL, nil
}
