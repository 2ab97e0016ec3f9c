package model

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
)

var (
	// ErrInvalidConfiguration 合成请求违反约束
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrFileNotFound 输入图片路径不存在
	ErrFileNotFound = errors.New("file not found")
)

const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"

	DefaultJPEGQuality = 90
)

// CompositeOptions 合成参数的线上格式
type CompositeOptions struct {
	BackgroundColor []int     `json:"background_color" yaml:"background_color" mapstructure:"background_color"`
	ResizeMode      *ModeSpec `json:"resize_mode,omitempty" yaml:"resize_mode,omitempty" mapstructure:"resize_mode"`
	OffsetMode      *ModeSpec `json:"offset_mode,omitempty" yaml:"offset_mode,omitempty" mapstructure:"offset_mode"`
	OutputFormat    string    `json:"output_format,omitempty" yaml:"output_format,omitempty" mapstructure:"output_format"`
	JPEGQuality     int       `json:"jpeg_quality,omitempty" yaml:"jpeg_quality,omitempty" mapstructure:"jpeg_quality"`
}

// CompositeRequest 经过校验的合成请求，构造后不可修改
type CompositeRequest struct {
	background      []byte
	overlay         []byte
	backgroundColor color.NRGBA
	resize          ResizeMode
	offset          OffsetMode
	format          string
	quality         int
}

// NewCompositeRequest 校验参数并构造合成请求。
// 只检查缓冲区非空，不解析图片内容。
func NewCompositeRequest(background, overlay []byte, opts CompositeOptions) (*CompositeRequest, error) {
	if len(background) == 0 {
		return nil, invalidf("background image buffer is empty")
	}
	if len(overlay) == 0 {
		return nil, invalidf("overlay image buffer is empty")
	}

	req, err := parseOptions(opts)
	if err != nil {
		return nil, err
	}
	req.background = bytes.Clone(background)
	req.overlay = bytes.Clone(overlay)
	return req, nil
}

// ValidateOptions 在没有图片的情况下校验参数
func ValidateOptions(opts CompositeOptions) error {
	_, err := parseOptions(opts)
	return err
}

// NormalizeOptions 校验参数并补全默认值
func NormalizeOptions(opts CompositeOptions) (CompositeOptions, error) {
	req, err := parseOptions(opts)
	if err != nil {
		return CompositeOptions{}, err
	}
	return req.Options(), nil
}

func parseOptions(opts CompositeOptions) (*CompositeRequest, error) {
	bg, err := ParseColor(opts.BackgroundColor)
	if err != nil {
		return nil, err
	}

	resize, err := ParseResizeMode(opts.ResizeMode)
	if err != nil {
		return nil, err
	}

	offset, err := ParseOffsetMode(opts.OffsetMode)
	if err != nil {
		return nil, err
	}

	format, quality, err := parseOutput(opts.OutputFormat, opts.JPEGQuality)
	if err != nil {
		return nil, err
	}

	return &CompositeRequest{
		backgroundColor: bg,
		resize:          resize,
		offset:          offset,
		format:          format,
		quality:         quality,
	}, nil
}

// ParseColor 解析 RGBA 四元组，每个分量必须在 [0,255]
func ParseColor(c []int) (color.NRGBA, error) {
	if len(c) != 4 {
		return color.NRGBA{}, invalidf("background color must have 4 components, got %d", len(c))
	}
	for i, v := range c {
		if v < 0 || v > 255 {
			return color.NRGBA{}, invalidf("background color component %d out of range [0,255]: %d", i, v)
		}
	}
	return color.NRGBA{R: uint8(c[0]), G: uint8(c[1]), B: uint8(c[2]), A: uint8(c[3])}, nil
}

func parseOutput(format string, quality int) (string, int, error) {
	switch format {
	case "", FormatPNG:
		format = FormatPNG
	case FormatJPEG, "jpg":
		format = FormatJPEG
	default:
		return "", 0, invalidf("unsupported output format %q", format)
	}

	if quality == 0 {
		quality = DefaultJPEGQuality
	}
	if quality < 1 || quality > 100 {
		return "", 0, invalidf("jpeg quality must be in [1,100], got %d", quality)
	}
	return format, quality, nil
}

// Background 产品图原始数据，调用方不得修改
func (r *CompositeRequest) Background() []byte { return r.background }

// Overlay 叠加图原始数据，调用方不得修改
func (r *CompositeRequest) Overlay() []byte { return r.overlay }

// BackgroundColor 画布底色
func (r *CompositeRequest) BackgroundColor() color.NRGBA { return r.backgroundColor }

// Resize 返回 nil 表示不缩放
func (r *CompositeRequest) Resize() ResizeMode { return r.resize }

// Offset 产品图定位方式，默认居中
func (r *CompositeRequest) Offset() OffsetMode { return r.offset }

// Format 输出格式，png 或 jpeg
func (r *CompositeRequest) Format() string { return r.format }

// JPEGQuality 仅在输出 jpeg 时生效
func (r *CompositeRequest) JPEGQuality() int { return r.quality }

// Options 返回规范化后的参数，用于缓存键
func (r *CompositeRequest) Options() CompositeOptions {
	c := r.backgroundColor
	opts := CompositeOptions{
		BackgroundColor: []int{int(c.R), int(c.G), int(c.B), int(c.A)},
		OutputFormat:    r.format,
	}
	if r.resize != nil {
		spec := r.resize.Spec()
		opts.ResizeMode = &spec
	}
	offset := r.offset.Spec()
	opts.OffsetMode = &offset
	if r.format == FormatJPEG {
		opts.JPEGQuality = r.quality
	}
	return opts
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}
