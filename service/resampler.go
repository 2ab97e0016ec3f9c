package service

import (
	"fmt"
	"image"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
)

// Resampler 将图像缩放到精确尺寸
type Resampler interface {
	Resample(img image.Image, width, height int) image.Image
}

type filterResampler struct {
	filter imaging.ResampleFilter
}

func (r filterResampler) Resample(img image.Image, width, height int) image.Image {
	return imaging.Resize(img, width, height, r.filter)
}

var resamplers = map[string]Resampler{
	"lanczos":    filterResampler{imaging.Lanczos},
	"catmullrom": filterResampler{imaging.CatmullRom},
	"linear":     filterResampler{imaging.Linear},
	"box":        filterResampler{imaging.Box},
	"nearest":    filterResampler{imaging.NearestNeighbor},
}

// LookupResampler 按名称查找缩放实现，空名称使用 lanczos
func LookupResampler(name string) (Resampler, error) {
	if name == "" {
		name = "lanczos"
	}
	r, ok := resamplers[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown resampler %q (available: %s)", name, strings.Join(ResamplerNames(), ", "))
	}
	return r, nil
}

// ResamplerNames 已注册的缩放实现
func ResamplerNames() []string {
	names := make([]string, 0, len(resamplers))
	for name := range resamplers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
