package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"strings"
	"time"

	_ "image/gif" // 支援 GIF
	_ "image/png" // 支援 PNG

	"nutrition-api/internal/infrastructure/config"
	"nutrition-api/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // 支援 WebP
)

const jpegQuality = 85

// Service 圖片解碼、驗證並轉成 JPEG data URI
type Service struct {
	maxSizeBytes int64
	maxDimension int
	http         *resty.Client
}

// NewService 創建新的圖片處理服務
func NewService(cfg config.ImageConfig) *Service {
	return &Service{
		maxSizeBytes: cfg.MaxSizeBytes,
		maxDimension: cfg.MaxDimension,
		http:         resty.New().SetTimeout(30 * time.Second),
	}
}

// ProcessImage 接受 data URI、純 base64 或 http(s) URL
func (s *Service) ProcessImage(ctx context.Context, imageData string) (string, error) {
	imageData = strings.TrimSpace(imageData)
	if imageData == "" {
		return "", common.ErrInvalidImageFormat.WithMessage("Imagem em falta.")
	}

	var raw []byte
	var err error
	switch {
	case strings.HasPrefix(imageData, "http://") || strings.HasPrefix(imageData, "https://"):
		raw, err = s.download(ctx, imageData)
	case strings.HasPrefix(imageData, "data:image/"):
		_, payload, ok := strings.Cut(imageData, ",")
		if !ok {
			return "", common.ErrInvalidImageFormat
		}
		raw, err = decodeBase64(payload)
	default:
		raw, err = decodeBase64(imageData)
	}
	if err != nil {
		return "", err
	}
	return s.ProcessBytes(raw)
}

// ProcessBytes 上傳的原始位元組
func (s *Service) ProcessBytes(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", common.ErrInvalidImageFormat.WithMessage("Imagem em falta.")
	}
	if s.maxSizeBytes > 0 && int64(len(raw)) > s.maxSizeBytes {
		return "", common.ErrInvalidImageSize.Wrap(fmt.Errorf("image size %d exceeds %d bytes", len(raw), s.maxSizeBytes))
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", common.ErrInvalidImageFormat.Wrap(fmt.Errorf("failed to decode image: %w", err))
	}
	if !isSupportedFormat(format) {
		return "", common.ErrInvalidImageType.Wrap(fmt.Errorf("unsupported image format: %s", format))
	}

	img = s.fit(img)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", common.ErrInvalidImageFormat.Wrap(fmt.Errorf("failed to encode image as JPEG: %w", err))
	}

	bounds := img.Bounds()
	common.LogImageProcessing("debug",
		zap.String("format", format),
		zap.Int("width", bounds.Dx()),
		zap.Int("height", bounds.Dy()),
		zap.Int("original_bytes", len(raw)),
		zap.Int("jpeg_bytes", buf.Len()),
	)
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// fit 長邊超過 maxDimension 時等比縮小
func (s *Service) fit(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if s.maxDimension <= 0 || (w <= s.maxDimension && h <= s.maxDimension) {
		return img
	}

	nw, nh := s.maxDimension, h*s.maxDimension/w
	if h > w {
		nw, nh = w*s.maxDimension/h, s.maxDimension
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func (s *Service) download(ctx context.Context, url string) ([]byte, error) {
	resp, err := s.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, common.ErrInvalidImageFormat.Wrap(fmt.Errorf("failed to download image: %w", err))
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, common.ErrInvalidImageFormat.Wrap(fmt.Errorf("failed to download image: status code %d", resp.StatusCode()))
	}
	return resp.Body(), nil
}

func decodeBase64(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// 部分客戶端不補 '='
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
	}
	if err != nil {
		return nil, common.ErrInvalidImageFormat.Wrap(fmt.Errorf("failed to decode base64 data: %w", err))
	}
	return data, nil
}

// isSupportedFormat 檢查圖片格式是否支援
func isSupportedFormat(format string) bool {
	switch format {
	case "jpeg", "png", "gif", "webp":
		return true
	}
	return false
}
