package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"time"

	"github.com/TIANLI0/CompositeKit/config"
	"github.com/TIANLI0/CompositeKit/model"
	"github.com/TIANLI0/CompositeKit/utils"
	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrDecode 输入图片无法解码
	ErrDecode = errors.New("failed to decode image")
	// ErrQueueFull 等待处理槽位超时
	ErrQueueFull = errors.New("compositing queue is full")
	// ErrImageTooLarge 输入图片或缩放结果超过像素上限
	ErrImageTooLarge = errors.New("image too large")
)

// DefaultMaxPixels 未配置 max_pixels 时的像素上限
const DefaultMaxPixels = 50_000_000

// 单边尺寸上限，保证坐标运算不会溢出
const maxDimension = 1 << 20

// CompositeService 负责图片合成
type CompositeService struct {
	semaphore    chan struct{}
	queueTimeout time.Duration
	resampler    Resampler
	maxPixels    int64
}

func NewCompositeService(cfg *config.CompositorConfig) (*CompositeService, error) {
	resampler, err := LookupResampler(cfg.Resampler)
	if err != nil {
		return nil, err
	}

	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	maxPixels := cfg.MaxPixels
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	return &CompositeService{
		semaphore:    make(chan struct{}, maxConcurrent),
		queueTimeout: cfg.QueueTimeout,
		resampler:    resampler,
		maxPixels:    maxPixels,
	}, nil
}

// Composite 解码、缩放、定位、叠加并编码。
// 画布尺寸等于叠加图尺寸，先绘制产品图，再将叠加图居中绘制在最上层。
func (s *CompositeService) Composite(ctx context.Context, req *model.CompositeRequest) (*model.CompositeResult, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()

	startTime := time.Now()

	product, overlay, err := s.decodePair(req.Background(), req.Overlay())
	if err != nil {
		return nil, err
	}

	if mode := req.Resize(); mode != nil {
		w, h, err := ResizeDimensions(mode, product.Bounds().Dx(), product.Bounds().Dy())
		if err != nil {
			return nil, err
		}
		if err := s.checkPixels("resized background", w, h); err != nil {
			return nil, err
		}
		product = s.resampler.Resample(product, w, h)
	}

	canvas, productBox, overlayBox := Compose(req.BackgroundColor(), product, overlay, req.Offset())

	var buf bytes.Buffer
	contentType, err := encode(&buf, canvas, req.Format(), req.JPEGQuality())
	if err != nil {
		return nil, err
	}

	utils.Logger.Info("image composited",
		zap.Int("width", canvas.Bounds().Dx()),
		zap.Int("height", canvas.Bounds().Dy()),
		zap.Any("product", productBox),
		zap.String("format", req.Format()),
		zap.Int("bytes", buf.Len()),
		zap.Duration("duration", time.Since(startTime)))

	return &model.CompositeResult{
		Data:        buf.Bytes(),
		ContentType: contentType,
		Width:       canvas.Bounds().Dx(),
		Height:      canvas.Bounds().Dy(),
		Product:     productBox,
		Overlay:     overlayBox,
		Timestamp:   time.Now().Unix(),
	}, nil
}

func (s *CompositeService) acquire(ctx context.Context) error {
	if s.queueTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queueTimeout)
		defer cancel()
	}

	select {
	case s.semaphore <- struct{}{}:
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrQueueFull
		}
		return ctx.Err()
	}
}

func (s *CompositeService) release() {
	<-s.semaphore
}

func (s *CompositeService) decodePair(background, overlay []byte) (image.Image, image.Image, error) {
	var product, top image.Image

	var g errgroup.Group
	g.Go(func() error {
		img, err := s.decode("background", background)
		product = img
		return err
	})
	g.Go(func() error {
		img, err := s.decode("overlay", overlay)
		top = img
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return product, top, nil
}

// decode 先读取图片头检查尺寸，再完整解码
func (s *CompositeService) decode(name string, data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, name, err)
	}
	if err := s.checkPixels(name, cfg.Width, cfg.Height); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, name, err)
	}
	return img, nil
}

func (s *CompositeService) checkPixels(name string, width, height int) error {
	if width > maxDimension || height > maxDimension || int64(width)*int64(height) > s.maxPixels {
		return fmt.Errorf("%w: %s is %dx%d, limit is %d pixels", ErrImageTooLarge, name, width, height, s.maxPixels)
	}
	return nil
}

// ResizeDimensions 计算缩放后的尺寸，每个维度至少为 1。
// 结果超过单边上限时返回 ErrImageTooLarge
func ResizeDimensions(mode model.ResizeMode, width, height int) (int, int, error) {
	var w, h float64

	switch m := mode.(type) {
	case model.ResizeWidth:
		w = float64(m.Width)
		h = math.Trunc(float64(m.Width) * float64(height) / float64(width))
	case model.ResizeHeight:
		w = math.Trunc(float64(m.Height) * float64(width) / float64(height))
		h = float64(m.Height)
	case model.ResizeScale:
		w = math.Trunc(float64(width) * m.Factor)
		h = math.Trunc(float64(height) * m.Factor)
	default:
		return width, height, nil
	}

	if w > maxDimension || h > maxDimension {
		return 0, 0, fmt.Errorf("%w: resize to %.0fx%.0f exceeds %d pixels per side", ErrImageTooLarge, w, h, maxDimension)
	}
	return max(int(w), 1), max(int(h), 1), nil
}

// ProductPosition 计算产品图左上角坐标。Pixel 与 Percent 的锚点是产品图中心
func ProductPosition(mode model.OffsetMode, product, canvas image.Point) image.Point {
	switch m := mode.(type) {
	case model.OffsetPixel:
		return image.Pt(m.X-product.X/2, m.Y-product.Y/2)
	case model.OffsetPercent:
		x := float64(canvas.X)*m.X/100 - float64(product.X)/2
		y := float64(canvas.Y)*m.Y/100 - float64(product.Y)/2
		return image.Pt(clampCoord(x), clampCoord(y))
	default:
		return centered(product, canvas)
	}
}

// clampCoord 超出范围的坐标收敛到画布之外，产品图整体被裁掉
func clampCoord(v float64) int {
	return int(math.Max(-2*maxDimension, math.Min(math.Trunc(v), 2*maxDimension)))
}

func centered(size, canvas image.Point) image.Point {
	return image.Pt(max(canvas.X-size.X, 0)/2, max(canvas.Y-size.Y, 0)/2)
}

// Compose 在叠加图尺寸的纯色画布上依次绘制产品图和叠加图
func Compose(bg color.NRGBA, product, overlay image.Image, offset model.OffsetMode) (*image.NRGBA, model.BBox, model.BBox) {
	canvasSize := overlay.Bounds().Size()
	canvas := imaging.New(canvasSize.X, canvasSize.Y, bg)

	productSize := product.Bounds().Size()
	productPos := ProductPosition(offset, productSize, canvasSize)
	canvas = imaging.Overlay(canvas, product, productPos, 1.0)

	overlayPos := centered(canvasSize, canvasSize)
	canvas = imaging.Overlay(canvas, overlay, overlayPos, 1.0)

	return canvas,
		model.BBox{X: productPos.X, Y: productPos.Y, Width: productSize.X, Height: productSize.Y},
		model.BBox{X: overlayPos.X, Y: overlayPos.Y, Width: canvasSize.X, Height: canvasSize.Y}
}

func encode(buf *bytes.Buffer, img image.Image, format string, quality int) (string, error) {
	switch format {
	case model.FormatJPEG:
		if err := imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return "", fmt.Errorf("failed to encode JPEG: %w", err)
		}
		return "image/jpeg", nil
	default:
		if err := imaging.Encode(buf, img, imaging.PNG); err != nil {
			return "", fmt.Errorf("failed to encode PNG: %w", err)
		}
		return "image/png", nil
	}
}
