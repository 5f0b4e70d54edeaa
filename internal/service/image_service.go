package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"log/slog"
	"math"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"inkwell/internal/config"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/observability"

	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMediaRoot            = "media"
	MediaURL                    = "/media"
	DefaultImageMaxUploadSizeMB = 10
	AvatarMaxSize               = 300
	AvatarJPEGQuality           = 90
)

// Media kinds name the directory an upload is stored under.
const (
	MediaKindAvatar    = "profile_pics"
	MediaKindPostImage = "blog_images"
)

// ErrInvalidMediaPath is returned for paths that escape the media root.
var ErrInvalidMediaPath = errors.New("invalid media path")

type ImageService struct {
	mediaRoot          string
	maxUploadSizeBytes int64
}

func NewImageService(cfg *config.Config) *ImageService {
	mediaRoot := DefaultMediaRoot
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB

	if cfg != nil {
		if cfg.MediaRoot != "" {
			mediaRoot = cfg.MediaRoot
		}
		if cfg.ImageMaxUploadSizeMB > 0 {
			maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
		}
	}

	return &ImageService{
		mediaRoot:          mediaRoot,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// MediaRoot is the directory media paths are relative to.
func (s *ImageService) MediaRoot() string {
	return s.mediaRoot
}

// StoreUpload validates content as an image and writes it under <media root>/<kind>/.
// It returns the media-relative path of the stored file.
func (s *ImageService) StoreUpload(kind, filename string, content []byte) (string, error) {
	if kind != MediaKindAvatar && kind != MediaKindPostImage {
		return "", models.NewValidationError("Unknown media kind")
	}
	if len(content) == 0 {
		return "", models.NewValidationError("The submitted file is empty.")
	}
	if int64(len(content)) > s.maxUploadSizeBytes {
		return "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	detectedType := http.DetectContentType(content)
	if !isAllowedImageMIME(detectedType) {
		return "", models.NewValidationError("Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}
	if _, format, err := image.DecodeConfig(bytes.NewReader(content)); err != nil || !isSupportedDecodedFormat(format) {
		return "", models.NewValidationError("Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}

	rel := filepath.ToSlash(filepath.Join(kind, uuid.NewString()+imageExtension(filename, detectedType)))
	abs, err := s.absPath(rel)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	if err := writeBytesToFile(abs, content); err != nil {
		return "", models.NewInternalError(err)
	}
	return rel, nil
}

// ProcessAvatar rewrites the avatar at relPath as an RGB JPEG whose longer side is at most
// AvatarMaxSize. The default placeholder is left untouched.
func (s *ImageService) ProcessAvatar(ctx context.Context, relPath string) error {
	if relPath == "" || relPath == models.DefaultProfileImage {
		return nil
	}
	_, span := observability.StartSpan(ctx, "image", "ProcessAvatar")

	abs, err := s.absPath(relPath)
	if err != nil {
		observability.EndSpan(span, err)
		return err
	}
	err = processAvatarFile(abs)
	observability.EndSpan(span, err)
	return err
}

func processAvatarFile(path string) error {
	// #nosec G304: path is resolved inside the media root
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	src, _, err := image.Decode(f)
	_ = f.Close()
	if err != nil {
		return err
	}

	if needsRGBConversion(src) {
		src = toRGB(src)
	}
	out := resizeToFit(src, AvatarMaxSize, AvatarMaxSize)

	encoded, err := encodeJPEG(out, AvatarJPEGQuality)
	if err != nil {
		return err
	}
	return writeBytesToFile(path, encoded)
}

// DeleteMedia removes a stored file. The default avatar is never removed, and failures are
// logged rather than returned.
func (s *ImageService) DeleteMedia(ctx context.Context, relPath string) {
	if relPath == "" || relPath == models.DefaultProfileImage {
		return
	}
	abs, err := s.absPath(relPath)
	if err == nil {
		err = os.Remove(abs)
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		observability.ImageProcessingFailures.WithLabelValues("delete").Inc()
		middleware.Logger.WarnContext(ctx, "failed to delete media file",
			slog.String("path", relPath), slog.String("error", err.Error()))
	}
}

func (s *ImageService) absPath(relPath string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(relPath))
	if filepath.IsAbs(clean) || clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", ErrInvalidMediaPath
	}
	return filepath.Join(s.mediaRoot, clean), nil
}

// needsRGBConversion reports whether img carries a palette or an alpha channel.
func needsRGBConversion(img image.Image) bool {
	if _, ok := img.(*image.Paletted); ok {
		return true
	}
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	return false
}

// toRGB drops the alpha channel, keeping each pixel's color values.
func toRGB(src image.Image) image.Image {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			c.A = 0xff
			dst.SetNRGBA(x-b.Min.X, y-b.Min.Y, c)
		}
	}
	return dst
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

	scaleW := float64(maxWidth) / float64(w)
	scaleH := float64(maxHeight) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	newW := int(math.Round(float64(w) * scale))
	newH := int(math.Round(float64(h) * scale))
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isSupportedDecodedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg", "png", "gif", "webp":
		return true
	default:
		return false
	}
}

// imageExtension keeps a recognised extension from the client filename, falling back to the sniffed type.
func imageExtension(filename, detectedType string) string {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return ext
	}
	switch normalizeContentType(detectedType) {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

func writeBytesToFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
