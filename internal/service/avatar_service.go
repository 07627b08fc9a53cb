package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strings"

	"handbook/internal/config"
	"handbook/internal/ids"
	"handbook/internal/models"
	"handbook/internal/storage"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultAvatarMaxUploadMB = 5
	AvatarMaxDimension       = 1024
	// AvatarMaxPixels bounds the declared size of an upload before it is decoded.
	AvatarMaxPixels = 40_000_000
	JPEGQuality              = 82
	WebPQuality              = 80
)

// AvatarService validates, downsizes and stores profile pictures.
type AvatarService struct {
	blobs              storage.BlobStore
	maxUploadSizeBytes int64
}

// NewAvatarService returns an AvatarService writing to blobs.
func NewAvatarService(blobs storage.BlobStore, cfg *config.Config) *AvatarService {
	maxUploadSizeMB := DefaultAvatarMaxUploadMB
	if cfg != nil && cfg.AvatarMaxUploadMB > 0 {
		maxUploadSizeMB = cfg.AvatarMaxUploadMB
	}
	return &AvatarService{
		blobs:              blobs,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// Store processes content and saves it, returning the public URL.
func (s *AvatarService) Store(ctx context.Context, content []byte) (string, error) {
	data, ext, err := s.Process(content)
	if err != nil {
		return "", err
	}
	url, err := s.blobs.Put(ctx, data, ids.AvatarFilename(ext))
	if err != nil {
		return "", models.NewInternalError("Failed to store avatar", err)
	}
	return url, nil
}

// Delete removes a stored avatar. It is best-effort and reports success.
func (s *AvatarService) Delete(ctx context.Context, url *string) bool {
	if url == nil || *url == "" {
		return false
	}
	return s.blobs.Delete(ctx, *url)
}

// Process checks size and format. Images within AvatarMaxDimension are
// returned untouched; larger ones are downscaled and re-encoded in their
// own format.
func (s *AvatarService) Process(content []byte) ([]byte, string, error) {
	if len(content) == 0 {
		return nil, "", models.NewValidationError("No file uploaded")
	}
	if int64(len(content)) > s.maxUploadSizeBytes {
		return nil, "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	header, format, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil || !isSupportedDecodedFormat(format) ||
		header.Width <= 0 || header.Height <= 0 ||
		int64(header.Width)*int64(header.Height) > AvatarMaxPixels {
		return nil, "", models.NewValidationError("Only images are allowed")
	}

	decoded, format, err := image.Decode(bytes.NewReader(content))
	if err != nil || !isSupportedDecodedFormat(format) {
		return nil, "", models.NewValidationError("Only images are allowed")
	}
	ext := extensionFor(format)

	b := decoded.Bounds()
	if b.Dx() <= AvatarMaxDimension && b.Dy() <= AvatarMaxDimension {
		return content, ext, nil
	}

	resized := resizeToFit(decoded, AvatarMaxDimension, AvatarMaxDimension)
	encoded, err := encodeAs(resized, format)
	if err != nil {
		return nil, "", models.NewInternalError("Failed to process image", err)
	}
	return encoded, ext, nil
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeAs(img image.Image, format string) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	var err error
	switch format {
	case "png":
		err = png.Encode(buf, img)
	case "gif":
		err = gif.Encode(buf, img, nil)
	case "webp":
		err = webp.Encode(buf, img, &webp.Options{Quality: WebPQuality})
	default:
		err = jpeg.Encode(buf, img, &jpeg.Options{Quality: JPEGQuality})
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isSupportedDecodedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg", "png", "gif", "webp":
		return true
	default:
		return false
	}
}

func extensionFor(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return ".jpg"
	default:
		return "." + strings.ToLower(format)
	}
}
