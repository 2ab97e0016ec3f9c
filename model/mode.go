package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ModeSpec 模式的标签化线上格式，例如 {"type": "Scale", "value": 1}
type ModeSpec struct {
	Type  string `json:"type" yaml:"type" mapstructure:"type"`
	Value any    `json:"value,omitempty" yaml:"value,omitempty" mapstructure:"value"`
}

// ResizeMode 产品图在合成前的缩放策略
type ResizeMode interface {
	resizeMode()
	Spec() ModeSpec
}

// ResizeWidth 缩放到指定宽度，保持宽高比
type ResizeWidth struct {
	Width int
}

// ResizeHeight 缩放到指定高度，保持宽高比
type ResizeHeight struct {
	Height int
}

// ResizeScale 按比例缩放
type ResizeScale struct {
	Factor float64
}

func (ResizeWidth) resizeMode()  {}
func (ResizeHeight) resizeMode() {}
func (ResizeScale) resizeMode()  {}

func (m ResizeWidth) Spec() ModeSpec  { return ModeSpec{Type: "Width", Value: m.Width} }
func (m ResizeHeight) Spec() ModeSpec { return ModeSpec{Type: "Height", Value: m.Height} }
func (m ResizeScale) Spec() ModeSpec  { return ModeSpec{Type: "Scale", Value: m.Factor} }

// OffsetMode 产品图在画布上的定位策略，锚点为产品图中心
type OffsetMode interface {
	offsetMode()
	Spec() ModeSpec
}

// OffsetPixel 以像素坐标定位
type OffsetPixel struct {
	X, Y int
}

// OffsetPercent 以画布宽高的百分比定位，不做范围限制
type OffsetPercent struct {
	X, Y float64
}

// OffsetCenter 居中
type OffsetCenter struct{}

func (OffsetPixel) offsetMode()   {}
func (OffsetPercent) offsetMode() {}
func (OffsetCenter) offsetMode()  {}

func (m OffsetPixel) Spec() ModeSpec   { return ModeSpec{Type: "Pixel", Value: []int{m.X, m.Y}} }
func (m OffsetPercent) Spec() ModeSpec { return ModeSpec{Type: "Percent", Value: []float64{m.X, m.Y}} }
func (OffsetCenter) Spec() ModeSpec    { return ModeSpec{Type: "Center"} }

// ParseResizeMode 解析缩放模式，nil 表示不缩放
func ParseResizeMode(spec *ModeSpec) (ResizeMode, error) {
	if spec == nil {
		return nil, nil
	}

	switch spec.Type {
	case "Width":
		v, err := positiveInt(spec.Value)
		if err != nil {
			return nil, invalidf("resize mode Width: %v", err)
		}
		return ResizeWidth{Width: v}, nil
	case "Height":
		v, err := positiveInt(spec.Value)
		if err != nil {
			return nil, invalidf("resize mode Height: %v", err)
		}
		return ResizeHeight{Height: v}, nil
	case "Scale":
		v, err := toFloat(spec.Value)
		if err != nil {
			return nil, invalidf("resize mode Scale: %v", err)
		}
		if v <= 0 || math.IsInf(v, 0) {
			return nil, invalidf("resize mode Scale: factor must be a positive number, got %v", v)
		}
		return ResizeScale{Factor: v}, nil
	default:
		return nil, invalidf("unknown resize mode type %q", spec.Type)
	}
}

// ParseOffsetMode 解析定位模式，nil 默认为居中
func ParseOffsetMode(spec *ModeSpec) (OffsetMode, error) {
	if spec == nil {
		return OffsetCenter{}, nil
	}

	switch spec.Type {
	case "Pixel":
		pair, err := toFloatPair(spec.Value)
		if err != nil {
			return nil, invalidf("offset mode Pixel: %v", err)
		}
		x, y := pair[0], pair[1]
		if x != math.Trunc(x) || y != math.Trunc(y) {
			return nil, invalidf("offset mode Pixel: coordinates must be integers, got [%v, %v]", x, y)
		}
		if math.Abs(x) > math.MaxInt32 || math.Abs(y) > math.MaxInt32 {
			return nil, invalidf("offset mode Pixel: coordinates out of range, got [%v, %v]", x, y)
		}
		return OffsetPixel{X: int(x), Y: int(y)}, nil
	case "Percent":
		pair, err := toFloatPair(spec.Value)
		if err != nil {
			return nil, invalidf("offset mode Percent: %v", err)
		}
		return OffsetPercent{X: pair[0], Y: pair[1]}, nil
	case "Center":
		return OffsetCenter{}, nil
	default:
		return nil, invalidf("unknown offset mode type %q", spec.Type)
	}
}

// ParseModeFlag 解析命令行简写，例如 scale:1.5、width:300、percent:50,50、pixel:10,-4、center
func ParseModeFlag(s string) (*ModeSpec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	name, arg, _ := strings.Cut(s, ":")
	typ, ok := modeNames[strings.ToLower(name)]
	if !ok {
		return nil, invalidf("unknown mode %q", name)
	}
	if typ == "Center" {
		return &ModeSpec{Type: typ}, nil
	}
	if arg == "" {
		return nil, invalidf("mode %s requires a value", typ)
	}

	parts := strings.Split(arg, ",")
	values := make([]any, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, invalidf("mode %s: bad number %q", typ, p)
		}
		values = append(values, v)
	}

	if len(values) == 1 {
		return &ModeSpec{Type: typ, Value: values[0]}, nil
	}
	return &ModeSpec{Type: typ, Value: values}, nil
}

var modeNames = map[string]string{
	"width":   "Width",
	"height":  "Height",
	"scale":   "Scale",
	"pixel":   "Pixel",
	"percent": "Percent",
	"center":  "Center",
}

func toFloat(v any) (float64, error) {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0, fmt.Errorf("missing value")
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("bad number %q", n.String())
		}
		f = parsed
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("value must be finite")
	}
	return f, nil
}

func positiveInt(v any) (int, error) {
	f, err := toFloat(v)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("expected an integer, got %v", f)
	}
	if f <= 0 || f > math.MaxInt32 {
		return 0, fmt.Errorf("value must be a positive integer, got %v", f)
	}
	return int(f), nil
}

func toFloatPair(v any) ([2]float64, error) {
	var items []any
	switch vs := v.(type) {
	case []any:
		items = vs
	case []float64:
		for _, f := range vs {
			items = append(items, f)
		}
	case []int:
		for _, i := range vs {
			items = append(items, i)
		}
	case nil:
		return [2]float64{}, fmt.Errorf("missing value")
	default:
		return [2]float64{}, fmt.Errorf("expected a pair of numbers, got %T", v)
	}

	if len(items) != 2 {
		return [2]float64{}, fmt.Errorf("expected a pair of numbers, got %d values", len(items))
	}

	var pair [2]float64
	for i, item := range items {
		f, err := toFloat(item)
		if err != nil {
			return [2]float64{}, err
		}
		pair[i] = f
	}
	return pair, nil
}
